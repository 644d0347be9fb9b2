package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consent"
	"github.com/wso2/consent-lifecycle-api/internal/consenthandle"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/expiry"
	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// serviceSet holds the long-lived components that need an ordered shutdown.
type serviceSet struct {
	resolver   *tenant.Resolver
	templates  consenttemplate.TemplateStore
	handles    consenthandle.HandleStore
	consents   consent.ConsentStore
	dispatcher *dispatch.Manager
	scheduler  *expiry.Scheduler
	logger     *logrus.Logger
}

// registerServices builds the tenant resolver, stores, dispatch manager and
// expiry scheduler.
func registerServices(cfg *config.Config, systemDB *database.DB, reg prometheus.Registerer,
	logger *logrus.Logger) (*serviceSet, error) {
	dbType := cfg.Database.System.Type

	resolver := tenant.NewResolver(cfg.Database.System, cfg.Tenancy.DatabasePrefix, logger,
		tenant.WithProvisioner(tenant.NewProvisioner(systemDB, logger)))
	for _, tenantID := range cfg.Tenancy.ProvisionTenants {
		if _, err := resolver.Provision(context.Background(), tenantID); err != nil {
			_ = resolver.Close()
			return nil, fmt.Errorf("failed to provision tenant %s: %w", tenantID, err)
		}
	}
	logger.WithField("provisioned", len(cfg.Tenancy.ProvisionTenants)).Info("Tenant resolver initialized")

	templates := consenttemplate.NewTemplateStore(logger)
	handles := consenthandle.NewHandleStore(dbType)
	consents := consent.NewConsentStore(handles, logger)

	dispatchOpts := []dispatch.Option{
		dispatch.WithMetrics(dispatch.NewMetrics(reg)),
		dispatch.WithWorkers(cfg.Dispatch.Workers),
		dispatch.WithQueue(cfg.Dispatch.QueueSize, cfg.Dispatch.EnqueueTimeout),
	}
	if cfg.Dispatch.Notification.Enabled {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithNotificationSender(dispatch.NewNotificationClient(cfg.Dispatch.Notification, logger)))
	}
	if cfg.Dispatch.Audit.Enabled {
		dispatchOpts = append(dispatchOpts,
			dispatch.WithAuditSender(dispatch.NewAuditClient(cfg.Dispatch.Audit, logger)))
	}
	dispatcher := dispatch.NewManager(resolver, dispatch.NewTriggerStore(dbType), logger, dispatchOpts...)
	logger.WithFields(logrus.Fields{
		"notifications": cfg.Dispatch.Notification.Enabled,
		"audit":         cfg.Dispatch.Audit.Enabled,
		"workers":       cfg.Dispatch.Workers,
	}).Info("Dispatch manager initialized")

	services := &serviceSet{
		resolver:   resolver,
		templates:  templates,
		handles:    handles,
		consents:   consents,
		dispatcher: dispatcher,
		logger:     logger,
	}

	if cfg.Scheduler.Enabled {
		sweeper := expiry.NewSweeper(
			tenant.NewDiscovery(systemDB, cfg.Tenancy.DatabasePrefix),
			resolver,
			handles,
			logger,
			expiry.WithMetrics(expiry.NewMetrics(reg)),
		)
		scheduler, err := expiry.NewScheduler(cfg.Scheduler.ExpiryCron, sweeper, logger)
		if err != nil {
			_ = dispatcher.Close(context.Background())
			_ = resolver.Close()
			return nil, fmt.Errorf("failed to create expiry scheduler: %w", err)
		}
		scheduler.Start()
		services.scheduler = scheduler
	}

	return services, nil
}

// unregister stops the scheduler, drains dispatch and closes tenant
// connections, in that order.
func (s *serviceSet) unregister(ctx context.Context) error {
	var errs []error

	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("dispatch drain: %w", err))
	}

	if err := s.resolver.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close tenant partitions: %w", err))
	}

	if len(errs) == 0 {
		s.logger.Info("Services stopped")
	}
	return errors.Join(errs...)
}
