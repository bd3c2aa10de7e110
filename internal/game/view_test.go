package game

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPublicViewWhileSubmitting(t *testing.T) {
	s, active := startChatSession(t, 35)
	hand := s.Hand(active[0].ID)
	if _, err := s.SubmitCards(active[0].ID, hand[:1], active); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	v := s.PublicView(active)
	if v.Phase != PhaseSubmitting {
		t.Fatalf("expected phase %s, got %s", PhaseSubmitting, v.Phase)
	}
	if len(v.Table) != 1 {
		t.Fatalf("expected 1 table entry, got %d", len(v.Table))
	}
	entry := v.Table[0]
	if entry.PlayerID != active[0].ID {
		t.Fatal("submitting view should show who acted")
	}
	if entry.Status != "submitted" {
		t.Fatalf("expected submitted status, got %q", entry.Status)
	}
	if len(entry.Cards) != 0 {
		t.Fatal("submitting view must hide card contents")
	}
	if v.JudgeCard == "" {
		t.Fatal("judge card is always included")
	}
	if len(v.RoundWinnerIDs) != 0 {
		t.Fatal("winner ids must be empty outside results")
	}
}

func TestPublicViewWhileVotingIsAnonymous(t *testing.T) {
	s, active := startChatSession(t, 35)
	subs := submitAll(t, s, active)
	if err := s.SubmitVote(active[0].ID, subs[active[1].ID], active); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	v := s.PublicView(active)
	if v.Phase != PhaseVoting {
		t.Fatalf("expected phase %s, got %s", PhaseVoting, v.Phase)
	}
	for _, entry := range v.Table {
		if entry.PlayerID != "" {
			t.Fatal("voting view must not reveal submission authors")
		}
		if len(entry.Cards) == 0 {
			t.Fatal("voting view must show card contents")
		}
	}
	// Participation is visible, choices are not.
	if len(v.Voters) != 1 || v.Voters[0] != active[0].ID {
		t.Fatalf("expected voter list [%s], got %v", active[0].ID, v.Voters)
	}
	if v.Votes != nil {
		t.Fatal("vote choices must stay hidden until results")
	}
}

func TestPublicViewResultsDisclosesEverything(t *testing.T) {
	s, active := startChatSession(t, 35)
	subs := submitAll(t, s, active)
	alice, bob, carol := active[0], active[1], active[2]
	for voter, target := range map[string]string{
		bob.ID:   alice.ID,
		carol.ID: alice.ID,
		alice.ID: bob.ID,
	} {
		if err := s.SubmitVote(voter, subs[target], active); err != nil {
			t.Fatalf("vote %s -> %s failed: %v", voter, target, err)
		}
	}

	v := s.PublicView(active)
	if v.Phase != PhaseResults {
		t.Fatalf("expected phase %s, got %s", PhaseResults, v.Phase)
	}
	for _, entry := range v.Table {
		if entry.PlayerID == "" || len(entry.Cards) == 0 {
			t.Fatal("results view shows authors and cards")
		}
	}
	if len(v.Votes) != 3 {
		t.Fatalf("expected full votes map, got %v", v.Votes)
	}
	if len(v.RoundWinnerIDs) != 1 || v.RoundWinnerIDs[0] != alice.ID {
		t.Fatalf("expected winners [%s], got %v", alice.ID, v.RoundWinnerIDs)
	}
	if v.Scores[alice.ID] != 1 {
		t.Fatalf("expected scores in view, got %v", v.Scores)
	}
}

func TestPublicViewSerializesArraysNotNull(t *testing.T) {
	// A fresh round has no submissions and no votes; clients still get
	// arrays to iterate, never null.
	s, active := startChatSession(t, 35)
	v := s.PublicView(active)
	if v.Table == nil || v.Voters == nil {
		t.Fatal("table and voters must be non-nil even when empty")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, want := range []string{`"table":[]`, `"voters":[]`, `"roundWinnerIds":[]`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("expected %s in payload, got %s", want, raw)
		}
	}
}

func TestPublicViewScoresAreACopy(t *testing.T) {
	s, active := startChatSession(t, 35)
	v := s.PublicView(active)
	v.Scores[active[0].ID] = 99
	if s.scores[active[0].ID] == 99 {
		t.Fatal("mutating a view must not touch session state")
	}
}
