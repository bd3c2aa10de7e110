package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportRound appends the just-finished round to a plain-text results file.
// Best-effort: callers log the error and move on, a failed export never
// touches game state.
func ExportRound(s *Session, roomID string, players []Player, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseResults {
		return fmt.Errorf("round not finished (phase %s)", s.phase)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if s.roundIx == 1 {
		sb.WriteString(fmt.Sprintf("\nblankslate results - room %s\n", roomID))
		sb.WriteString(fmt.Sprintf("Started: %s\n", time.Now().Format("2006-01-02 15:04:05")))
		sb.WriteString(strings.Repeat("=", 50) + "\n")
	}

	sb.WriteString(fmt.Sprintf("\nRound %d: %q\n", s.roundIx, s.judgeCard))
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	counts := make(map[string]int)
	for _, subID := range s.votes {
		counts[subID]++
	}
	for _, sub := range s.table {
		sb.WriteString(fmt.Sprintf("- %s: %q (%d vote(s))\n",
			name(sub.PlayerID), strings.Join(sub.Cards, " / "), counts[sub.ID]))
	}

	if len(s.roundWinnerIDs) > 0 {
		winners := make([]string, 0, len(s.roundWinnerIDs))
		for _, id := range s.roundWinnerIDs {
			winners = append(winners, name(id))
		}
		sb.WriteString(fmt.Sprintf("Winner(s): %s\n", strings.Join(winners, ", ")))
	}

	type playerScore struct {
		name  string
		score float64
	}
	scores := make([]playerScore, 0, len(s.scores))
	for id, pts := range s.scores {
		scores = append(scores, playerScore{name: name(id), score: pts})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].name < scores[j].name
	})
	sb.WriteString("Scores:\n")
	for _, ps := range scores {
		sb.WriteString(fmt.Sprintf("- %s: %.2g\n", ps.name, ps.score))
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write to file: %w", err)
	}
	return nil
}
