package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"PipFlow/internal/domain/models"
)

// Stats is the snapshot served by the ops API.
type Stats struct {
	StartedAt    time.Time `json:"startedAt"`
	Ticks        uint64    `json:"ticks"`
	Candles      uint64    `json:"candles"`
	Signals      uint64    `json:"signals"`
	Decisions    uint64    `json:"decisions"`
	Wins         uint64    `json:"wins"`
	Losses       uint64    `json:"losses"`
	ClockOffset  string    `json:"clockOffset"`
	Persona      string    `json:"persona"`
	PendingCount int       `json:"pendingCount"`
}

// StatsTracker keeps process counters and a bounded ring of recent
// signals. All methods are safe for concurrent use.
type StatsTracker struct {
	startedAt time.Time
	ticks     atomic.Uint64
	candles   atomic.Uint64
	signals   atomic.Uint64
	decisions atomic.Uint64
	wins      atomic.Uint64
	losses    atomic.Uint64

	mu     sync.Mutex
	recent []models.Signal
	cap    int
}

// NewStatsTracker creates a tracker retaining the last keep signals.
func NewStatsTracker(keep int) *StatsTracker {
	if keep <= 0 {
		keep = 200
	}
	return &StatsTracker{startedAt: time.Now(), cap: keep}
}

func (s *StatsTracker) TickSeen()     { s.ticks.Add(1) }
func (s *StatsTracker) CandleClosed() { s.candles.Add(1) }
func (s *StatsTracker) DecisionMade() { s.decisions.Add(1) }

// SignalSeen counts a signal and appends it to the recent ring.
func (s *StatsTracker) SignalSeen(sig models.Signal) {
	s.signals.Add(1)
	s.mu.Lock()
	s.recent = append(s.recent, sig)
	if len(s.recent) > s.cap {
		s.recent = s.recent[len(s.recent)-s.cap:]
	}
	s.mu.Unlock()
}

// OutcomeSeen counts a completed trade.
func (s *StatsTracker) OutcomeSeen(win bool) {
	if win {
		s.wins.Add(1)
	} else {
		s.losses.Add(1)
	}
}

// RecentSignals returns up to limit signals, newest first.
func (s *StatsTracker) RecentSignals(limit int) []models.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.Signal, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

// Snapshot returns the counter values. Persona, offset, and pending count
// are filled in by the handler from their owning components.
func (s *StatsTracker) Snapshot() Stats {
	return Stats{
		StartedAt: s.startedAt,
		Ticks:     s.ticks.Load(),
		Candles:   s.candles.Load(),
		Signals:   s.signals.Load(),
		Decisions: s.decisions.Load(),
		Wins:      s.wins.Load(),
		Losses:    s.losses.Load(),
	}
}
