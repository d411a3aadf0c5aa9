// Package relevance ranks agents against a user message with a keyword
// heuristic. The score is not a semantic model: it counts vocabulary hits
// and adds a small random perturbation so repeated debates vary a little.
package relevance

import (
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/agents"
)

const (
	baseScore    = 0.3
	perKeyword   = 0.1
	perturbation = 0.1
)

// Scorer computes relevance scores from an agent catalog.
// The random source is injected so tests can fix the seed.
type Scorer struct {
	catalog *agents.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScorer creates a scorer backed by the given catalog and random source.
// A nil rng falls back to a time-seeded source.
func NewScorer(catalog *agents.Catalog, rng *rand.Rand) *Scorer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Scorer{catalog: catalog, rng: rng}
}

// Score returns a relevance score in [0,1] for one agent against a message.
// Each keyword counts at most once regardless of how often it repeats.
func (s *Scorer) Score(message, agentTitle string) float64 {
	matches := 0
	for _, kw := range s.catalog.Keywords(agentTitle) {
		if strings.Contains(message, kw) {
			matches++
		}
	}
	score := baseScore + float64(matches)*perKeyword
	if score > 1.0 {
		score = 1.0
	}
	score += s.perturb()
	return clamp01(score)
}

// Ranked pairs an agent title with its score for one debate turn.
type Ranked struct {
	Title string
	Score float64
}

// Rank scores every title and returns them ordered by descending score.
// Ties keep their input-relative order, so ranking is deterministic for a
// fixed seed.
func (s *Scorer) Rank(message string, titles []string) []Ranked {
	ranked := make([]Ranked, len(titles))
	for i, t := range titles {
		ranked[i] = Ranked{Title: t, Score: s.Score(message, t)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func (s *Scorer) perturb() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()*2*perturbation - perturbation
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
