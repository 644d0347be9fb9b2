// Package expiry moves consent handles that were never used past their expiry
// to REQ_EXPIRED, tenant by tenant.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/system/log"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// TenantLister enumerates the tenants that have a partition.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// HandleExpirer performs the bulk PENDING -> REQ_EXPIRED transition in one
// partition.
type HandleExpirer interface {
	ExpirePending(ctx context.Context, p *tenant.Partition, now int64) (int64, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Total        int64
	PerPartition map[string]int64
	Failed       []string
}

// Sweeper runs the expiry transition across every tenant partition.
type Sweeper struct {
	tenants  TenantLister
	resolver tenant.PartitionResolver
	handles  HandleExpirer
	metrics  *Metrics
	logger   *logrus.Logger
	now      func() int64
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithMetrics records sweep outcomes on metrics.
func WithMetrics(metrics *Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = metrics
	}
}

// WithClock overrides the millisecond clock.
func WithClock(now func() int64) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper creates a sweeper.
func NewSweeper(tenants TenantLister, resolver tenant.PartitionResolver, handles HandleExpirer,
	logger *logrus.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		tenants:  tenants,
		resolver: resolver,
		handles:  handles,
		logger:   logger,
		now:      utils.GetCurrentTimeMillis,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce sweeps every partition once. A partition that cannot be resolved or
// updated is logged, listed in Failed and skipped; the returned error joins
// those failures. Only cancellation of ctx ends the sweep before the last
// partition, and ctx.Err() is then part of the returned error.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	result := SweepResult{PerPartition: make(map[string]int64)}
	defer func() { s.metrics.observeSweep(result, start) }()

	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep could not enumerate tenants")
		return result, err
	}

	now := s.now()
	var errs []error
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		entry := s.logger.WithField(log.FieldTenantID, tenantID)

		partition, err := s.resolver.Resolve(ctx, tenantID)
		if err != nil {
			entry.WithError(err).Error("Expiry sweep skipped partition")
			result.Failed = append(result.Failed, tenantID)
			errs = append(errs, fmt.Errorf("resolve %s: %w", tenantID, err))
			continue
		}

		changed, err := s.handles.ExpirePending(ctx, partition, now)
		if err != nil {
			entry.WithError(err).Error("Expiry sweep failed for partition")
			result.Failed = append(result.Failed, tenantID)
			errs = append(errs, fmt.Errorf("expire %s: %w", tenantID, err))
			continue
		}

		result.PerPartition[tenantID] = changed
		result.Total += changed
		if changed > 0 {
			entry.WithField("expired", changed).Info("Expired consent handles")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"partitions": len(tenants),
		"expired":    result.Total,
		"failed":     len(result.Failed),
		"duration":   time.Since(start).String(),
	}).Debug("Expiry sweep finished")

	return result, errors.Join(errs...)
}
