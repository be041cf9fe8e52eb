// services/blocker-svc/internal/testutil/oracles.go
package testutil

import (
	"context"
	"sync"

	"netblock/services/blocker-svc/internal/oracle"
)

// ================== Scripted Oracle ==================

// Step overrides one oracle query.
type Step struct {
	Verdict oracle.Verdict
	Err     error
}

// ScriptedOracles hands out oracles that follow Script for the first
// queries and then defer to Fallback.
type ScriptedOracles struct {
	mu sync.Mutex

	Script   []Step
	Fallback oracle.Factory

	// Call tracking
	Calls   int
	Queries [][][]int
}

// NewScriptedOracles falls back to gophersat once the script runs out.
func NewScriptedOracles(script ...Step) *ScriptedOracles {
	return &ScriptedOracles{
		Script:   script,
		Fallback: func() oracle.Oracle { return &oracle.Gophersat{} },
	}
}

// Factory returns an oracle.Factory backed by s.
func (s *ScriptedOracles) Factory() oracle.Factory {
	return func() oracle.Oracle { return &scripted{parent: s} }
}

// CallCount returns the number of Solve calls so far.
func (s *ScriptedOracles) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls
}

func (s *ScriptedOracles) next(clauses [][]int) (Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.Calls
	s.Calls++
	s.Queries = append(s.Queries, clauses)
	if i < len(s.Script) {
		return s.Script[i], true
	}
	return Step{}, false
}

type scripted struct {
	parent *ScriptedOracles
	inner  oracle.Oracle
}

func (o *scripted) Solve(ctx context.Context, clauses [][]int) (oracle.Verdict, error) {
	if step, ok := o.parent.next(clauses); ok {
		o.inner = nil
		return step.Verdict, step.Err
	}
	o.inner = o.parent.Fallback()
	return o.inner.Solve(ctx, clauses)
}

func (o *scripted) Model() oracle.Model {
	if o.inner == nil {
		return nil
	}
	return o.inner.Model()
}

func (o *scripted) Name() string {
	return "scripted"
}
