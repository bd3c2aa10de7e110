package game

import (
	"math/rand"

	"github.com/blankslate-party/blankslate/internal/catalog"
)

// deckBuilder resolves a room's theme selection against the built-in
// catalog and the room's contributed themes, producing deduplicated,
// shuffled card pools. Pools are consumed by popping the tail; when a pool
// runs dry mid-game it is rebuilt with the same rules.
type deckBuilder struct {
	cat         *catalog.Catalog
	themes      []ThemeRef
	contributed []catalog.Contributed
}

// resolve maps one theme reference to its card lists. Order: built-in by
// exact name, contributed by (name, contributor), contributed by name alone
// for legacy references. Unresolvable refs contribute nothing.
func (b *deckBuilder) resolve(ref ThemeRef) (catalog.Theme, bool) {
	if !ref.Contributed() {
		if t, ok := b.cat.Theme(ref.Name); ok {
			return t, true
		}
	} else {
		for _, c := range b.contributed {
			if c.Name == ref.Name && c.ContributorID == ref.ContributorID {
				return catalog.Theme{JudgeCards: c.JudgeCards, FillerCards: c.FillerCards}, true
			}
		}
	}
	for _, c := range b.contributed {
		if c.Name == ref.Name {
			return catalog.Theme{JudgeCards: c.JudgeCards, FillerCards: c.FillerCards}, true
		}
	}
	return catalog.Theme{}, false
}

func (b *deckBuilder) collect(filler bool) []string {
	var cards []string
	for _, ref := range b.themes {
		t, ok := b.resolve(ref)
		if !ok {
			continue
		}
		if filler {
			cards = append(cards, t.FillerCards...)
		} else {
			cards = append(cards, t.JudgeCards...)
		}
	}
	if len(cards) == 0 {
		// Never build a literally empty pool from a bad selection.
		if t, ok := b.cat.Theme(catalog.DefaultTheme); ok {
			if filler {
				cards = append(cards, t.FillerCards...)
			} else {
				cards = append(cards, t.JudgeCards...)
			}
		}
	}
	return cards
}

// judgePool builds a fresh judge-card pool: resolved, deduplicated and
// shuffled once. Draws pop the tail; no per-draw resampling.
func (b *deckBuilder) judgePool() []string {
	pool := dedup(b.collect(false), nil)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// fillerPool builds a fresh filler-card pool, excluding any card text that
// is currently in a hand so a card can not reappear while still in play.
func (b *deckBuilder) fillerPool(exclude map[string]struct{}) []string {
	pool := dedup(b.collect(true), exclude)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// dedup keeps the first occurrence of each card text, dropping anything in
// the exclusion set.
func dedup(cards []string, exclude map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(cards))
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		if _, dup := seen[c]; dup {
			continue
		}
		if _, skip := exclude[c]; skip {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
