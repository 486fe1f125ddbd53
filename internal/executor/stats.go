package executor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ledgerworks/taxpass/internal/model"
)

// PassStats counts outcomes for one pass across a run.
type PassStats struct {
	Completed int
	FromCache int
	Errors    int
	Skipped   int
}

// RunStats aggregates a processing run. Safe for concurrent use by the
// worker pool.
type RunStats struct {
	mu           sync.Mutex
	passes       [model.PassCount]PassStats
	transactions int
}

func (s *RunStats) addTransaction() {
	s.mu.Lock()
	s.transactions++
	s.mu.Unlock()
}

func (s *RunStats) completed(p model.Pass, fromCache bool) {
	s.mu.Lock()
	s.passes[p].Completed++
	if fromCache {
		s.passes[p].FromCache++
	}
	s.mu.Unlock()
}

func (s *RunStats) errored(p model.Pass) {
	s.mu.Lock()
	s.passes[p].Errors++
	s.mu.Unlock()
}

func (s *RunStats) skipped(p model.Pass) {
	s.mu.Lock()
	s.passes[p].Skipped++
	s.mu.Unlock()
}

// Pass returns the counters recorded for one pass.
func (s *RunStats) Pass(p model.Pass) PassStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes[p]
}

// Transactions returns how many transactions the run visited.
func (s *RunStats) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions
}

// Summary renders a one-line-per-pass report for CLI output.
func (s *RunStats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "processed %d transactions\n", s.transactions)
	for p := model.PassPayee; p <= model.PassBusiness; p++ {
		ps := s.passes[p]
		fmt.Fprintf(&b, "  %-8s completed=%d cached=%d errors=%d skipped=%d\n",
			p.String(), ps.Completed, ps.FromCache, ps.Errors, ps.Skipped)
	}
	return b.String()
}
