// Package tenant maps tenant identifiers to their isolated data partitions.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

// Opener opens a connection pool for one tenant schema.
type Opener func(cfg config.DatabaseConfig) (*database.DB, error)

// PartitionResolver is what stores and services depend on.
type PartitionResolver interface {
	Resolve(ctx context.Context, tenantID string) (*Partition, error)
}

// Resolver caches one partition per tenant for the life of the process.
type Resolver struct {
	base        config.DatabaseConfig
	prefix      string
	provisioner *Provisioner
	open        Opener
	logger      *logrus.Logger

	group singleflight.Group

	mu         sync.RWMutex
	partitions map[string]*Partition
	closed     bool
}

var _ PartitionResolver = (*Resolver)(nil)

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithOpener replaces the connection opener.
func WithOpener(open Opener) ResolverOption {
	return func(r *Resolver) {
		r.open = open
	}
}

// WithProvisioner enables Provision. Resolve never creates schemas.
func WithProvisioner(p *Provisioner) ResolverOption {
	return func(r *Resolver) {
		r.provisioner = p
	}
}

// NewResolver creates a resolver deriving tenant DSNs from base.
func NewResolver(base config.DatabaseConfig, prefix string, logger *logrus.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		base:       base,
		prefix:     prefix,
		logger:     logger,
		partitions: make(map[string]*Partition),
	}
	r.open = func(cfg config.DatabaseConfig) (*database.DB, error) {
		return database.Open(&cfg, logger)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the partition of tenantID, connecting on first use.
// A missing or malformed tenant id is a ConfigurationError. A tenant whose
// schema does not exist is a PartitionError.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*Partition, error) {
	return r.resolve(ctx, tenantID, false)
}

// Provision creates the schema and tables of tenantID when missing and caches
// the resulting partition.
func (r *Resolver) Provision(ctx context.Context, tenantID string) (*Partition, error) {
	if r.provisioner == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ConfigurationError,
			"tenant provisioning is not configured")
	}
	return r.resolve(ctx, tenantID, true)
}

func (r *Resolver) resolve(ctx context.Context, tenantID string, provision bool) (*Partition, error) {
	if err := utils.ValidateTenantIDForPrefix(tenantID, r.prefix); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ConfigurationError, err.Error())
	}

	if p, ok := r.lookup(tenantID); ok {
		return p, nil
	}

	// tenant ids never contain '/'
	key := tenantID
	if provision {
		key = "provision/" + tenantID
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if p, ok := r.lookup(tenantID); ok {
			return p, nil
		}

		schema := SchemaName(r.prefix, tenantID)
		db, err := r.connect(ctx, schema, provision)
		if err != nil {
			return nil, serviceerror.Wrapf(serviceerror.PartitionError, err,
				"failed to resolve partition for tenant '%s'", tenantID)
		}
		return r.store(tenantID, schema, db)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Partition), nil
}

func (r *Resolver) lookup(tenantID string) (*Partition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.partitions[tenantID]
	return p, ok
}

func (r *Resolver) store(tenantID, schema string, db *database.DB) (*Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		_ = db.Close()
		return nil, serviceerror.CustomServiceError(serviceerror.PartitionError, "tenant resolver is closed")
	}
	// a concurrent Provision may have won
	if p, ok := r.partitions[tenantID]; ok {
		_ = db.Close()
		return p, nil
	}

	p := &Partition{TenantID: tenantID, Schema: schema, DB: db}
	r.partitions[tenantID] = p

	r.logger.WithFields(logrus.Fields{
		log.FieldTenantID:  tenantID,
		log.FieldPartition: schema,
	}).Info("Tenant partition resolved")

	return p, nil
}

func (r *Resolver) connect(ctx context.Context, schema string, provision bool) (*database.DB, error) {
	cfg := r.base.ForSchema(schema)
	open := func() (*database.DB, error) {
		return r.open(cfg)
	}

	if provision {
		return r.provisioner.Provision(ctx, schema, open)
	}

	db, err := open()
	if err != nil {
		if database.IsUnknownDatabase(err) {
			return nil, fmt.Errorf("schema %s does not exist: %w", schema, err)
		}
		return nil, err
	}
	return db, nil
}

// Cached reports how many partitions are open.
func (r *Resolver) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.partitions)
}

// Close closes every cached partition. Later resolutions fail.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var errs []error
	for tenantID, p := range r.partitions {
		if err := p.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
		delete(r.partitions, tenantID)
	}
	return errors.Join(errs...)
}
