package game

import "strings"

type Phase string

const (
	PhaseSubmitting Phase = "submitting"
	PhaseReading    Phase = "reading"
	PhaseVoting     Phase = "voting"
	PhaseResults    Phase = "results"
)

// Mode selects how a round is judged after submissions close: chat rooms
// jump straight to voting, in-person rooms pass through a read-aloud phase.
type Mode string

const (
	ModeChat     Mode = "chat"
	ModeInPerson Mode = "in_person"
)

// HandSize is the target number of filler cards in each player's hand.
const HandSize = 10

// Player is the engine's view of a room member. The roster passed into each
// action contains only currently connected players, in stable room order.
type Player struct {
	ID   string `json:"playerId"`
	Name string `json:"name"`
}

// ThemeRef identifies one selected theme. An empty ContributorID means a
// built-in catalog theme; otherwise it references a contributed theme by
// (name, contributor).
type ThemeRef struct {
	Name          string
	ContributorID string
}

func (r ThemeRef) Contributed() bool { return r.ContributorID != "" }

func (r ThemeRef) String() string {
	if r.Contributed() {
		return "contributed:" + r.Name + ":" + r.ContributorID
	}
	return r.Name
}

// ParseThemeRef decodes the wire form used by room settings: either a plain
// built-in name or "contributed:<name>:<contributorId>".
func ParseThemeRef(s string) ThemeRef {
	if rest, ok := strings.CutPrefix(s, "contributed:"); ok {
		if name, id, found := strings.Cut(rest, ":"); found {
			return ThemeRef{Name: name, ContributorID: id}
		}
		return ThemeRef{Name: rest}
	}
	return ThemeRef{Name: s}
}

// ParseThemeRefs decodes a settings slice, substituting the given fallback
// theme when the selection is empty.
func ParseThemeRefs(selected []string, fallback string) []ThemeRef {
	if len(selected) == 0 {
		return []ThemeRef{{Name: fallback}}
	}
	refs := make([]ThemeRef, 0, len(selected))
	for _, s := range selected {
		refs = append(refs, ParseThemeRef(s))
	}
	return refs
}

// Submission is one player's play for the current round.
type Submission struct {
	ID       string   `json:"submissionId"`
	PlayerID string   `json:"playerId"`
	Cards    []string `json:"cards"`
}
