package iplease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseConservesSlots(t *testing.T) {
	p := New(Config{IPs: []string{"10.0.0.1", "10.0.0.2"}, PerIPInflightLimit: 1, Cooldowns: DefaultCooldowns()})

	lease, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)
	require.NotNil(t, lease)
	lease.Release(Success)

	// A second acquire must succeed without blocking now that the slot was
	// returned — conserves slot counts across acquire -> release.
	lease2, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)
	lease2.Release(Success)
}

func TestAcquireExcludingAvoidsIPWhenAlternativeExists(t *testing.T) {
	p := New(Config{IPs: []string{"10.0.0.1", "10.0.0.2"}, PerIPInflightLimit: 1, Cooldowns: DefaultCooldowns()})

	forward, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)

	reverse, err := p.AcquireExcluding(context.Background(), QuoteSell, forward.IP())
	require.NoError(t, err)
	assert.NotEqual(t, forward.IP(), reverse.IP())

	forward.Release(Success)
	reverse.Release(Success)
}

func TestRateLimitedCooldownRoutesToDifferentIP(t *testing.T) {
	p := New(Config{IPs: []string{"10.0.0.1", "10.0.0.2"}, PerIPInflightLimit: 1, Cooldowns: Cooldowns{RateLimited: 30 * time.Second}})

	first, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)
	firstIP := first.IP()
	first.Release(RateLimited)

	second, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)
	assert.NotEqual(t, firstIP, second.IP())
	second.Release(Success)
}

func TestAcquireOnEmptyPoolReturnsNetworkResourceError(t *testing.T) {
	p := New(Config{})
	_, err := p.Acquire(context.Background(), QuoteBuy)
	require.Error(t, err)
}

func TestSingleSlotFallsBackToSerialExecution(t *testing.T) {
	p := New(Config{IPs: []string{"10.0.0.1"}, PerIPInflightLimit: 1, Cooldowns: DefaultCooldowns()})

	lease, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx, QuoteSell)
	require.Error(t, err, "single-slot pool must block until the first lease is released")

	lease.Release(Success)
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	p := New(Config{IPs: []string{"10.0.0.1"}, PerIPInflightLimit: 1, Cooldowns: DefaultCooldowns()})
	lease, err := p.Acquire(context.Background(), QuoteBuy)
	require.NoError(t, err)
	defer lease.Release(Success)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Acquire(ctx, QuoteBuy)
	assert.Error(t, err)
}
