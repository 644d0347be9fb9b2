package expiry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/consent-lifecycle-api/internal/tenant"
	tenantmocks "github.com/wso2/consent-lifecycle-api/internal/tenant/mocks"
)

type countingExpirer struct {
	calls atomic.Int32
	delay time.Duration
}

func (c *countingExpirer) ExpirePending(ctx context.Context, _ *tenant.Partition, _ int64) (int64, error) {
	c.calls.Add(1)
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return 0, nil
}

func TestNewScheduler_RejectsInvalidSpec(t *testing.T) {
	_, err := NewScheduler("every minute please", newSweeper(staticTenants{}, tenantmocks.StaticResolver{}, newMemoryHandles()), logrus.New())

	assert.Error(t, err)
}

func TestScheduler_RunsSweeps(t *testing.T) {
	expirer := &countingExpirer{}
	sched, err := NewScheduler("@every 1s", newSweeper(staticTenants{"acme"}, tenantmocks.StaticResolver{}, expirer), logrus.New())
	require.NoError(t, err)

	sched.Start()
	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sched.Stop(ctx))
}

func TestScheduler_StopWaitsForRunningSweep(t *testing.T) {
	expirer := &countingExpirer{delay: 300 * time.Millisecond}
	sched, err := NewScheduler("@every 1s", newSweeper(staticTenants{"acme"}, tenantmocks.StaticResolver{}, expirer), logrus.New())
	require.NoError(t, err)

	sched.Start()
	require.Eventually(t, func() bool { return expirer.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, sched.Stop(ctx))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), expirer.calls.Load())
}

func TestScheduler_StopTimesOut(t *testing.T) {
	expirer := &countingExpirer{delay: 10 * time.Second}
	sched, err := NewScheduler("@every 1s", newSweeper(staticTenants{"acme"}, tenantmocks.StaticResolver{}, expirer), logrus.New())
	require.NoError(t, err)

	sched.Start()
	require.Eventually(t, func() bool { return expirer.calls.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, sched.Stop(ctx))
}

func TestCronLogger_ToFields(t *testing.T) {
	fields := toFields([]any{"entry", 1, "next", "soon", "dangling"})

	assert.Equal(t, logrus.Fields{"entry": 1, "next": "soon"}, fields)
}
