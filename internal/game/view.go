package game

// TableEntry is one submission as shown to the room. Which fields are
// populated depends on the phase: while submitting only the player id and a
// submitted marker are visible, during reading and voting only the cards,
// and in results everything.
type TableEntry struct {
	SubmissionID string   `json:"submissionId"`
	PlayerID     string   `json:"playerId,omitempty"`
	Status       string   `json:"status,omitempty"`
	Cards        []string `json:"cards,omitempty"`
}

// PublicView is the redacted broadcast snapshot of a session. Private
// hands are never part of it; they go out per player via Hand.
type PublicView struct {
	Phase          Phase              `json:"phase"`
	JudgeCard      string             `json:"judgeCard"`
	JudgeID        string             `json:"judgeId,omitempty"`
	Scores         map[string]float64 `json:"scores"`
	RoundWinnerIDs []string           `json:"roundWinnerIds"`
	Table          []TableEntry       `json:"table"`
	Voters         []string           `json:"voters"`
	Votes          map[string]string  `json:"votes,omitempty"`
}

// PublicView projects the session into a phase-appropriate snapshot safe
// for room-wide broadcast.
func (s *Session) PublicView(active []Player) *PublicView {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Table and Voters start as empty slices so the broadcast payload
	// always carries arrays, never null.
	v := &PublicView{
		Phase:          s.phase,
		JudgeCard:      s.judgeCard,
		Scores:         make(map[string]float64, len(s.scores)),
		RoundWinnerIDs: append([]string{}, s.roundWinnerIDs...),
		Table:          []TableEntry{},
		Voters:         []string{},
	}
	for id, pts := range s.scores {
		v.Scores[id] = pts
	}
	if len(active) > 0 {
		v.JudgeID = active[s.judgeIndex%len(active)].ID
	}

	switch s.phase {
	case PhaseSubmitting:
		// Reveal who has acted, never what they played.
		for _, sub := range s.table {
			v.Table = append(v.Table, TableEntry{
				SubmissionID: sub.ID,
				PlayerID:     sub.PlayerID,
				Status:       "submitted",
			})
		}
	case PhaseReading, PhaseVoting:
		for _, sub := range s.table {
			v.Table = append(v.Table, TableEntry{
				SubmissionID: sub.ID,
				Cards:        append([]string{}, sub.Cards...),
			})
		}
		if s.phase == PhaseVoting {
			for voterID := range s.votes {
				v.Voters = append(v.Voters, voterID)
			}
		}
	case PhaseResults:
		for _, sub := range s.table {
			v.Table = append(v.Table, TableEntry{
				SubmissionID: sub.ID,
				PlayerID:     sub.PlayerID,
				Cards:        append([]string{}, sub.Cards...),
			})
		}
		v.Votes = make(map[string]string, len(s.votes))
		for voterID, subID := range s.votes {
			v.Votes[voterID] = subID
		}
	}
	return v
}
