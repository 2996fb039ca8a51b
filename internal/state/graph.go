package state

import (
	"sync"
	"time"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Transition is one observed edge: an action taken from one fingerprint
// that landed on another.
type Transition struct {
	From   Fingerprint `json:"from"`
	To     Fingerprint `json:"to"`
	Action step.Kind   `json:"action"`
	Target string      `json:"target"`
	Valid  bool        `json:"valid"`
	Change Change      `json:"change"`
	At     time.Time   `json:"at"`
}

// Graph is the append-only record of observed transitions for one run.
// Safe for concurrent appends.
type Graph struct {
	mu          sync.Mutex
	transitions []Transition
}

func NewGraph() *Graph { return &Graph{} }

func (g *Graph) Append(t Transition) {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	g.mu.Lock()
	g.transitions = append(g.transitions, t)
	g.mu.Unlock()
}

// Trace returns a copy of all transitions in append order.
func (g *Graph) Trace() []Transition {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Transition, len(g.transitions))
	copy(out, g.transitions)
	return out
}

func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transitions)
}

// LastValid returns the most recent valid transition, if any.
func (g *Graph) LastValid() (Transition, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.transitions) - 1; i >= 0; i-- {
		if g.transitions[i].Valid {
			return g.transitions[i], true
		}
	}
	return Transition{}, false
}
