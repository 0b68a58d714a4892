// Package landing races signed transaction variants across N lander
// backends under a wall-clock deadline, returning the first confirmed
// receipt and cancelling the rest. Grounded on spec.md §4.10's
// race-with-deadline shape, structurally an errgroup-with-first-result
// pattern (golang.org/x/sync/errgroup), with google/uuid correlating each
// landing attempt for logging the way the teacher tags cycles.
package landing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
	"github.com/dnavarro/cyclearb/internal/xerrors"
)

// Receipt is the outcome of one landing race.
type Receipt struct {
	TaskID    string
	Signature string
	Lander    string
	Succeeded bool
}

// Stage races variants across registered lander clients.
type Stage struct {
	Landers map[string]ports.LanderClient
	Leases  LeaseAcquirer
}

// LeaseAcquirer is the narrow slice of iplease.Pool the landing stage
// needs for IP-bound landers; nil disables lease-gating entirely.
type LeaseAcquirer interface {
	AcquireForLanding(ctx context.Context) (release func(success bool), err error)
}

// Race implements spec.md §4.10: one goroutine per (variant, lander) pair,
// first success cancels siblings, deadline cancels everything.
func (s *Stage) Race(parent context.Context, variants []domain.TxVariant, deadline domain.Deadline) (Receipt, error) {
	taskID := uuid.NewString()
	now := time.Now()
	if deadline.Passed(now) {
		return Receipt{TaskID: taskID}, xerrors.New("landing.Race", xerrors.KindLanding, errDeadlinePassed)
	}

	ctx, cancel := context.WithDeadline(parent, deadline.At)
	defer cancel()

	type result struct {
		sig     string
		lander  string
		ok      bool
	}
	resultCh := make(chan result, len(variants))
	var wg sync.WaitGroup

	for _, v := range variants {
		client, ok := s.Landers[v.Lander.Name]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(v domain.TxVariant, client ports.LanderClient) {
			defer wg.Done()
			var release func(success bool)
			if s.Leases != nil {
				r, err := s.Leases.AcquireForLanding(ctx)
				if err != nil {
					return
				}
				release = r
			}
			succeeded := false
			if release != nil {
				defer func() { release(succeeded) }()
			}
			sig, err := client.Submit(ctx, v)
			if err != nil {
				return
			}
			succeeded = true
			select {
			case resultCh <- result{sig: sig.String(), lander: v.Lander.Name, ok: true}:
				cancel()
			case <-ctx.Done():
			}
		}(v, client)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		if r.ok {
			// Let every sibling observe the cancellation and release its
			// lease before the winner is reported.
			cancel()
			wg.Wait()
			return Receipt{TaskID: taskID, Signature: r.sig, Lander: r.lander, Succeeded: true}, nil
		}
	}

	if deadline.Passed(time.Now()) {
		return Receipt{TaskID: taskID}, xerrors.New("landing.Race", xerrors.KindLanding, errDeadlineExpired)
	}
	return Receipt{TaskID: taskID}, xerrors.New("landing.Race", xerrors.KindLanding, errAllFailed)
}

type landingError string

func (e landingError) Error() string { return string(e) }

const (
	errDeadlinePassed  = landingError("deadline already passed at submit time")
	errDeadlineExpired = landingError("deadline elapsed before any variant landed")
	errAllFailed       = landingError("every lander submission failed before deadline")
)
