// Package scheduler maintains per-mint MintSchedule cursors and a monotonic
// batch counter, emitting QuoteBatchPlan batches on each tick. Grounded on
// cmd/scanner/main.go's ticker-driven cadence and config.ScanInterval shape,
// generalized from one global interval to one per mint.
package scheduler

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/dnavarro/cyclearb/internal/domain"
)

// mintEntry pairs a schedule with its dispatch cadence and the instant it
// next becomes eligible.
type mintEntry struct {
	pair     domain.TradePair
	schedule *domain.MintSchedule
	interval time.Duration
	nextAt   time.Time
}

// Scheduler emits QuoteBatchPlan batches on Tick, one entry per eligible
// mint, preserving configured pair order.
type Scheduler struct {
	entries     []*mintEntry
	nextBatchID atomic.Uint64
}

// New builds a Scheduler from ordered (pair, schedule, interval) triples.
// Pair order is preserved: "for each mint in trade-pair order" per spec.
func New(pairs []domain.TradePair, schedules []*domain.MintSchedule, intervals []time.Duration) *Scheduler {
	s := &Scheduler{}
	now := time.Now()
	for i := range pairs {
		s.entries = append(s.entries, &mintEntry{
			pair:     pairs[i],
			schedule: schedules[i],
			interval: intervals[i],
			nextAt:   now,
		})
	}
	return s
}

// Tick pops one size from every mint whose ready instant has passed,
// builds a QuoteBatchPlan for each, and returns the minimum wait until the
// next mint becomes eligible so the caller can sleep precisely.
func (s *Scheduler) Tick(now time.Time) (batch []domain.QuoteBatchPlan, minWait time.Duration) {
	minWait = -1
	for _, e := range s.entries {
		if now.Before(e.nextAt) {
			wait := e.nextAt.Sub(now)
			if minWait < 0 || wait < minWait {
				minWait = wait
			}
			continue
		}
		amount := e.schedule.Next()
		batch = append(batch, domain.QuoteBatchPlan{
			BatchID: s.nextBatchID.Add(1) - 1,
			Pair:    e.pair,
			Amount:  amount,
		})
		e.nextAt = now.Add(e.interval)
		if minWait < 0 || e.interval < minWait {
			minWait = e.interval
		}
	}
	if minWait < 0 {
		minWait = 0
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].BatchID < batch[j].BatchID })
	return batch, minWait
}

// PinPreferredIP sets PreferredIP on any batch item matching pair/amount
// (spec.md §4.11's streaming-leg pinning). Nothing in this module calls it,
// and the dispatcher's standard path does not read PreferredIP.
func PinPreferredIP(batch []domain.QuoteBatchPlan, pair domain.TradePair, amount uint64, ip string) {
	for i := range batch {
		if batch[i].Pair == pair && batch[i].Amount == amount {
			batch[i].PreferredIP = ip
		}
	}
}
