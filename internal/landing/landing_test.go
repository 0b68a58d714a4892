package landing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnavarro/cyclearb/internal/domain"
	"github.com/dnavarro/cyclearb/internal/ports"
)

type fakeLander struct {
	name  string
	delay time.Duration
	fail  bool
}

func (f fakeLander) Name() string                     { return f.name }
func (f fakeLander) Transport() domain.LanderTransport { return domain.LanderRPC }
func (f fakeLander) Submit(ctx context.Context, v domain.TxVariant) (solana.Signature, error) {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return solana.Signature{}, ctx.Err()
	}
	if f.fail {
		return solana.Signature{}, assertErr
	}
	return solana.Signature{1}, nil
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

const assertErr = fakeErr("submit failed")

func variantsFor(names ...string) []domain.TxVariant {
	var out []domain.TxVariant
	for i, n := range names {
		out = append(out, domain.TxVariant{Lander: domain.Lander{Name: n}, Primary: i == 0})
	}
	return out
}

func TestRaceReturnsFastestSuccess(t *testing.T) {
	stage := &Stage{Landers: map[string]ports.LanderClient{
		"a": fakeLander{name: "a", delay: 300 * time.Millisecond},
		"b": fakeLander{name: "b", delay: 200 * time.Millisecond},
		"c": fakeLander{name: "c", delay: 500 * time.Millisecond},
	}}

	receipt, err := stage.Race(context.Background(), variantsFor("a", "b", "c"), domain.Deadline{At: time.Now().Add(400 * time.Millisecond)})
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded)
	assert.Equal(t, "b", receipt.Lander)
}

func TestRaceFailsWhenDeadlineAlreadyPassed(t *testing.T) {
	stage := &Stage{}
	receipt, err := stage.Race(context.Background(), nil, domain.Deadline{At: time.Now().Add(-time.Second)})
	require.Error(t, err)
	assert.False(t, receipt.Succeeded)
}

func TestRaceReturnsFailureWhenEveryLanderFails(t *testing.T) {
	stage := &Stage{Landers: map[string]ports.LanderClient{
		"a": fakeLander{name: "a", fail: true},
	}}
	receipt, err := stage.Race(context.Background(), variantsFor("a"), domain.Deadline{At: time.Now().Add(time.Second)})
	require.Error(t, err)
	assert.False(t, receipt.Succeeded)
}

type fakeLeaseAcquirer struct {
	mu       sync.Mutex
	released []bool
}

func (f *fakeLeaseAcquirer) AcquireForLanding(ctx context.Context) (func(success bool), error) {
	return func(success bool) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released = append(f.released, success)
	}, nil
}

func TestRaceReportsRealOutcomeToLeaseAcquirer(t *testing.T) {
	leases := &fakeLeaseAcquirer{}
	stage := &Stage{
		Landers: map[string]ports.LanderClient{
			"ok":   fakeLander{name: "ok"},
			"fail": fakeLander{name: "fail", fail: true},
		},
		Leases: leases,
	}

	receipt, err := stage.Race(context.Background(), variantsFor("ok", "fail"), domain.Deadline{At: time.Now().Add(time.Second)})
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded)

	leases.mu.Lock()
	defer leases.mu.Unlock()
	require.Len(t, leases.released, 2)
	var sawSuccess, sawFailure bool
	for _, ok := range leases.released {
		if ok {
			sawSuccess = true
		} else {
			sawFailure = true
		}
	}
	assert.True(t, sawSuccess, "the lander that submitted successfully must release(true)")
	assert.True(t, sawFailure, "the lander whose Submit failed must release(false)")
}
