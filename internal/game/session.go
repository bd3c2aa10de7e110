package game

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/blankslate-party/blankslate/internal/catalog"
)

var (
	ErrInvalidPhase      = errors.New("invalid phase for action")
	ErrAlreadySubmitted  = errors.New("already submitted this round")
	ErrWrongCardCount    = errors.New("submission does not match blank count")
	ErrCardsNotInHand    = errors.New("cards not in hand")
	ErrAlreadyVoted      = errors.New("already voted this round")
	ErrUnknownSubmission = errors.New("unknown submission")
	ErrSelfVote          = errors.New("cannot vote for your own submission")
)

// ExhaustedJudgeCard is shown when the judge pool is empty even after a
// recycle. Visible by design rather than a fatal error.
const ExhaustedJudgeCard = "No judge cards left."

// Config freezes a room's game settings for the lifetime of one session.
type Config struct {
	Mode        Mode
	Themes      []ThemeRef
	Contributed []catalog.Contributed
}

// Session is one room's running game. It is mutated only under its own
// mutex; every action is a short synchronous transition, so a room's
// events are processed atomically and in arrival order while independent
// rooms run in parallel.
type Session struct {
	mu    sync.Mutex
	decks deckBuilder
	mode  Mode

	phase          Phase
	judgePool      []string
	fillerPool     []string
	hands          map[string][]string
	scores         map[string]float64
	judgeCard      string
	table          []*Submission
	votes          map[string]string // voterID -> submissionID
	roundWinnerIDs []string
	judgeIndex     int
	roundIx        int
}

// Start creates a session for the given roster, builds both pools, deals
// every player a full hand and opens the first round. The caller is
// responsible for the minimum-player check.
func Start(cat *catalog.Catalog, cfg Config, active []Player) *Session {
	s := &Session{
		decks:  deckBuilder{cat: cat, themes: cfg.Themes, contributed: cfg.Contributed},
		mode:   cfg.Mode,
		hands:  make(map[string][]string),
		scores: make(map[string]float64),
		votes:  make(map[string]string),
	}
	s.judgePool = s.decks.judgePool()
	s.fillerPool = s.decks.fillerPool(nil)
	for _, p := range active {
		s.scores[p.ID] = 0
		s.hands[p.ID] = []string{}
	}
	s.startRoundLocked(active)
	return s
}

// SubmitCards plays a set of filler cards for the current round. The cards
// are removed from the player's hand and a fresh submission id is returned.
// When every active player has submitted, the table is reshuffled and the
// phase advances (to reading in in-person mode, otherwise to voting).
func (s *Session) SubmitCards(playerID string, cards []string, active []Player) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseSubmitting {
		return "", ErrInvalidPhase
	}
	for _, sub := range s.table {
		if sub.PlayerID == playerID {
			return "", ErrAlreadySubmitted
		}
	}
	required := catalog.CountBlanks(s.judgeCard)
	if len(cards) != required {
		return "", ErrWrongCardCount
	}

	hand := s.hands[playerID]
	newHand := make([]string, 0, len(hand))
	for _, c := range hand {
		if !contains(cards, c) {
			newHand = append(newHand, c)
		}
	}
	if len(hand)-len(newHand) != required {
		return "", ErrCardsNotInHand
	}
	s.hands[playerID] = newHand

	sub := &Submission{ID: uuid.NewString(), PlayerID: playerID, Cards: cards}
	s.table = append(s.table, sub)
	s.maybeCloseSubmissionsLocked(active)
	return sub.ID, nil
}

// SubmitVote records one vote. Self-votes return ErrSelfVote so the
// transport can tell the voter; every other rejection is for the caller to
// drop silently. When every active player has voted, the round is tallied
// and the phase becomes results.
func (s *Session) SubmitVote(voterID, submissionID string, active []Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseVoting {
		return ErrInvalidPhase
	}
	if _, voted := s.votes[voterID]; voted {
		return ErrAlreadyVoted
	}
	target := s.findSubmissionLocked(submissionID)
	if target == nil {
		return ErrUnknownSubmission
	}
	if target.PlayerID == voterID {
		return ErrSelfVote
	}
	s.votes[voterID] = submissionID
	s.maybeCloseVotingLocked(active)
	return nil
}

// StartVoting advances an in-person room from the read-aloud walkthrough to
// voting. The judge-or-host guard is the transport's concern.
func (s *Session) StartVoting() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReading {
		return ErrInvalidPhase
	}
	s.phase = PhaseVoting
	return nil
}

// NextRound leaves results: rotate the judge, clear the table and votes,
// draw a fresh judge card and top every hand back up.
func (s *Session) NextRound(active []Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResults {
		return ErrInvalidPhase
	}
	s.startRoundLocked(active)
	return nil
}

// HandleDisconnect re-runs the completion checks against the shrunken
// roster so a round never stalls waiting on a player who left. The
// departed player's submission and vote, if any, still count.
func (s *Session) HandleDisconnect(active []Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCloseSubmissionsLocked(active)
	s.maybeCloseVotingLocked(active)
}

func (s *Session) GetPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Hand returns a copy of one player's private hand. It must only ever be
// delivered to that player.
func (s *Session) Hand(playerID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	hand := s.hands[playerID]
	out := make([]string, len(hand))
	copy(out, hand)
	return out
}

// startRoundLocked opens a round: the judge index advances modulo the
// active count on every round including the first, so the first judge is
// the player after the room's first listed one.
func (s *Session) startRoundLocked(active []Player) {
	s.phase = PhaseSubmitting
	s.table = nil
	s.votes = make(map[string]string)
	s.roundWinnerIDs = nil
	s.roundIx++
	if len(active) > 0 {
		s.judgeIndex = (s.judgeIndex + 1) % len(active)
	}
	s.drawJudgeCardLocked()
	s.replenishHandsLocked(active)
}

func (s *Session) drawJudgeCardLocked() {
	if len(s.judgePool) == 0 {
		log.Debug().Msg("judge pool empty, recycling")
		s.judgePool = s.decks.judgePool()
	}
	if len(s.judgePool) == 0 {
		s.judgeCard = ExhaustedJudgeCard
		return
	}
	s.judgeCard = s.judgePool[len(s.judgePool)-1]
	s.judgePool = s.judgePool[:len(s.judgePool)-1]
}

// replenishHandsLocked tops each active hand up to HandSize, recycling the
// filler pool when it runs dry. A recycle excludes every card currently in
// any hand; when even that yields nothing, dealing stops silently and
// hands stay short.
func (s *Session) replenishHandsLocked(active []Player) {
	for _, p := range active {
		hand, ok := s.hands[p.ID]
		if !ok {
			continue
		}
		for len(hand) < HandSize {
			if len(s.fillerPool) == 0 {
				log.Debug().Msg("filler pool empty, recycling")
				s.fillerPool = s.decks.fillerPool(s.inHandLocked())
				if len(s.fillerPool) == 0 {
					break
				}
			}
			hand = append(hand, s.fillerPool[len(s.fillerPool)-1])
			s.fillerPool = s.fillerPool[:len(s.fillerPool)-1]
		}
		s.hands[p.ID] = hand
	}
}

func (s *Session) inHandLocked() map[string]struct{} {
	held := make(map[string]struct{})
	for _, hand := range s.hands {
		for _, c := range hand {
			held[c] = struct{}{}
		}
	}
	return held
}

func (s *Session) maybeCloseSubmissionsLocked(active []Player) {
	if s.phase != PhaseSubmitting || len(active) == 0 || len(s.table) < len(active) {
		return
	}
	// Reshuffle so submission order can't leak identity.
	rand.Shuffle(len(s.table), func(i, j int) { s.table[i], s.table[j] = s.table[j], s.table[i] })
	if s.mode == ModeInPerson {
		s.phase = PhaseReading
	} else {
		s.phase = PhaseVoting
	}
}

func (s *Session) maybeCloseVotingLocked(active []Player) {
	if s.phase != PhaseVoting || len(active) == 0 || len(s.votes) < len(active) {
		return
	}
	s.tallyLocked()
	s.phase = PhaseResults
}

// tallyLocked computes the round result: every submission tied for the
// highest vote count wins, and the round's single point is split evenly
// across the winners.
func (s *Session) tallyLocked() {
	counts := make(map[string]int)
	maxVotes := 0
	for _, subID := range s.votes {
		counts[subID]++
		if counts[subID] > maxVotes {
			maxVotes = counts[subID]
		}
	}
	if maxVotes == 0 {
		return
	}
	var winners []*Submission
	for _, sub := range s.table {
		if counts[sub.ID] == maxVotes {
			winners = append(winners, sub)
		}
	}
	points := 1 / float64(len(winners))
	for _, sub := range winners {
		s.scores[sub.PlayerID] += points
		s.roundWinnerIDs = append(s.roundWinnerIDs, sub.PlayerID)
	}
}

func (s *Session) findSubmissionLocked(id string) *Submission {
	for _, sub := range s.table {
		if sub.ID == id {
			return sub
		}
	}
	return nil
}

func contains(cards []string, c string) bool {
	for _, v := range cards {
		if v == c {
			return true
		}
	}
	return false
}
