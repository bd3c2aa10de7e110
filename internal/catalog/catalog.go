// Package catalog holds the built-in card themes and the types for
// player-contributed ones. The catalog is read-only after load.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
)

//go:embed cards.json
var embedded []byte

// DefaultTheme is the theme a room falls back to when its selection
// resolves to nothing. It always exists in the embedded data.
const DefaultTheme = "classic"

type Theme struct {
	JudgeCards  []string `json:"judgeCards"`
	FillerCards []string `json:"fillerCards"`
}

// Contributed is a theme submitted at runtime by a player and scoped to one
// room. Identified by (Name, ContributorID) to avoid collisions with
// built-ins and with each other.
type Contributed struct {
	Name          string   `json:"name"`
	ContributorID string   `json:"contributorId"`
	JudgeCards    []string `json:"judgeCards"`
	FillerCards   []string `json:"fillerCards"`
}

type Catalog struct {
	Themes map[string]Theme `json:"themes"`
}

// Embedded parses the compiled-in card data.
func Embedded() (*Catalog, error) {
	return parse(embedded)
}

// Load reads a catalog from disk. On failure it returns an empty but usable
// catalog alongside the error so the server can keep running; the deck
// builder's default-theme fallback covers the empty case.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Embedded()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &Catalog{Themes: map[string]Theme{}}, fmt.Errorf("read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return &Catalog{Themes: map[string]Theme{}}, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Themes == nil {
		c.Themes = map[string]Theme{}
	}
	return &c, nil
}

// Theme looks up a built-in theme by exact name.
func (c *Catalog) Theme(name string) (Theme, bool) {
	t, ok := c.Themes[name]
	return t, ok
}

// Names returns the built-in theme names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Themes))
	for name := range c.Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var blankRun = regexp.MustCompile(`_+`)

// CountBlanks returns the number of blank-slot markers (runs of
// underscores) in a judge card. Cards without markers still require one
// filler card.
func CountBlanks(judge string) int {
	n := len(blankRun.FindAllString(judge, -1))
	if n == 0 {
		return 1
	}
	return n
}
