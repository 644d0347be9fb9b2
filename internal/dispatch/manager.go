// Package dispatch sends consent notifications and audit records off the
// request path and keeps a local record of every notification attempt.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/wso2/consent-lifecycle-api/internal/dispatch/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

const (
	defaultWorkers        = 8
	defaultQueueSize      = 1024
	defaultEnqueueTimeout = 2 * time.Second
	defaultActor          = "system"
)

// Dispatcher is what services use to hand off side effects. Neither method
// reports failures to the caller.
type Dispatcher interface {
	Trigger(ctx context.Context, n Notification)
	Audit(ctx context.Context, e AuditEvent)
}

type task struct {
	ctx          context.Context
	notification *Notification
	audit        *AuditEvent
}

func (t task) kind() string {
	if t.notification != nil {
		return kindNotification
	}
	return kindAudit
}

// Manager queues dispatch tasks and runs them on a bounded worker pool.
type Manager struct {
	resolver tenant.PartitionResolver
	triggers TriggerStoreInterface
	notifier NotificationSender
	auditor  AuditSender
	metrics  *Metrics
	logger   *logrus.Logger

	workers        int
	queueSize      int
	enqueueTimeout time.Duration

	queue    chan task
	pool     *pool.Pool
	loopDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Dispatcher = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithNotificationSender enables notifications.
func WithNotificationSender(s NotificationSender) Option {
	return func(m *Manager) {
		m.notifier = s
	}
}

// WithAuditSender enables audit delivery.
func WithAuditSender(s AuditSender) Option {
	return func(m *Manager) {
		m.auditor = s
	}
}

// WithMetrics records dispatch metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithWorkers bounds the number of concurrent deliveries.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithQueue sets the queue capacity and how long an enqueue may wait for room.
func WithQueue(size int, enqueueTimeout time.Duration) Option {
	return func(m *Manager) {
		if size > 0 {
			m.queueSize = size
		}
		if enqueueTimeout > 0 {
			m.enqueueTimeout = enqueueTimeout
		}
	}
}

// NewManager creates a manager and starts its worker loop.
func NewManager(resolver tenant.PartitionResolver, triggers TriggerStoreInterface, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		resolver:       resolver,
		triggers:       triggers,
		logger:         logger,
		workers:        defaultWorkers,
		queueSize:      defaultQueueSize,
		enqueueTimeout: defaultEnqueueTimeout,
		loopDone:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.queue = make(chan task, m.queueSize)
	m.pool = pool.New().WithMaxGoroutines(m.workers)
	go m.run()

	return m
}

// Trigger queues a notification. It returns once the task is queued or dropped.
func (m *Manager) Trigger(ctx context.Context, n Notification) {
	if m.notifier == nil || n.Payload == nil {
		m.metrics.observeTask(kindNotification, outcomeSkipped)
		return
	}
	m.enqueue(task{ctx: context.WithoutCancel(ctx), notification: &n})
}

// Audit queues an audit record.
func (m *Manager) Audit(ctx context.Context, e AuditEvent) {
	if m.auditor == nil || e.Payload == nil {
		m.metrics.observeTask(kindAudit, outcomeSkipped)
		return
	}
	m.enqueue(task{ctx: context.WithoutCancel(ctx), audit: &e})
}

func (m *Manager) enqueue(t task) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		m.drop(t, "dispatch manager is closed")
		return
	}

	select {
	case m.queue <- t:
		m.metrics.setQueueDepth(len(m.queue))
		return
	default:
	}

	timer := time.NewTimer(m.enqueueTimeout)
	defer timer.Stop()

	select {
	case m.queue <- t:
		m.metrics.setQueueDepth(len(m.queue))
	case <-timer.C:
		m.drop(t, "dispatch queue full")
	}
}

func (m *Manager) drop(t task, reason string) {
	m.metrics.incrementDropped(t.kind())

	entry := m.logger.WithField("kind", t.kind())
	if t.notification != nil {
		entry = entry.WithFields(logrus.Fields{
			log.FieldTenantID:  t.notification.TenantID,
			log.FieldEventType: t.notification.Payload.EventType(),
		})
	} else {
		entry = entry.WithFields(logrus.Fields{
			log.FieldTenantID:  t.audit.TenantID,
			log.FieldEventType: t.audit.Payload.EventType(),
		})
	}
	entry.Warn("Dispatch task dropped: " + reason)
}

func (m *Manager) run() {
	defer close(m.loopDone)

	for t := range m.queue {
		m.metrics.setQueueDepth(len(m.queue))
		m.pool.Go(func() {
			m.execute(t)
		})
	}
	m.pool.Wait()
}

func (m *Manager) execute(t task) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithField("panic", r).Error("Dispatch task panicked")
			m.metrics.observeTask(t.kind(), outcomeFailed)
		}
	}()

	if t.notification != nil {
		m.Process(t.ctx, *t.notification)
		return
	}
	m.ProcessAudit(t.ctx, *t.audit)
}

// Process runs one notification synchronously: persist PENDING, deliver,
// persist SENT or FAILED. It returns the final trigger record, or nil when
// no record could be written.
func (m *Manager) Process(ctx context.Context, n Notification) (final *model.NotificationTrigger) {
	if m.notifier == nil || n.Payload == nil {
		return nil
	}

	entry := m.logger.WithFields(logrus.Fields{
		log.FieldTenantID:   n.TenantID,
		log.FieldBusinessID: n.BusinessID,
		log.FieldEventType:  n.Payload.EventType(),
	})

	partition, err := m.resolver.Resolve(ctx, n.TenantID)
	if err != nil {
		entry.WithError(err).Error("Failed to resolve partition for notification")
		m.metrics.observeTask(kindNotification, outcomeFailed)
		return nil
	}

	payloadJSON, err := json.Marshal(n.Payload)
	if err != nil {
		entry.WithError(err).Error("Failed to marshal notification payload")
		m.metrics.observeTask(kindNotification, outcomeFailed)
		return nil
	}

	now := utils.GetCurrentTimeMillis()
	trigger := &model.NotificationTrigger{
		ID:            utils.GenerateUUID(),
		EventType:     string(n.Payload.EventType()),
		Resource:      string(n.Payload.Resource()),
		BusinessID:    n.BusinessID,
		TransactionID: utils.GenerateUUID(),
		Status:        model.TriggerStatusPending,
		EventPayload:  string(payloadJSON),
		CreatedTime:   now,
		UpdatedTime:   now,
	}

	if err := m.triggers.Create(ctx, partition.DB, trigger); err != nil {
		entry.WithError(err).Error("Failed to persist pending notification trigger, skipping delivery")
		m.metrics.observeTask(kindNotification, outcomeFailed)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("Notification sender panicked")
			trigger.MarkFailed("", fmt.Sprintf("notification sender panicked: %v", r))
			final = trigger
		}
		if !trigger.Status.IsTerminal() {
			trigger.MarkFailed("", "notification delivery did not complete")
		}
		trigger.UpdatedTime = utils.GetCurrentTimeMillis()
		if err := m.triggers.UpdateOutcome(ctx, partition.DB, trigger); err != nil {
			entry.WithError(err).WithField("trigger_id", trigger.ID).Error("Failed to persist notification outcome")
		}
		if trigger.Status == model.TriggerStatusSent {
			m.metrics.observeTask(kindNotification, outcomeSent)
		} else {
			m.metrics.observeTask(kindNotification, outcomeFailed)
		}
	}()

	start := time.Now()
	result, err := m.notifier.Send(ctx, &NotificationRequest{
		TenantID:            n.TenantID,
		BusinessID:          n.BusinessID,
		TransactionID:       trigger.TransactionID,
		EventType:           n.Payload.EventType(),
		Resource:            n.Payload.Resource(),
		CustomerIdentifiers: n.Customer,
		DataProcessorIDs:    nonNil(n.DataProcessorIDs),
		Language:            n.Language,
		EventPayload:        n.Payload,
	})
	m.metrics.observeDelivery(kindNotification, start)

	switch {
	case err == nil:
		trigger.MarkSent(strconv.Itoa(result.StatusCode), result.EventID)
	case result != nil:
		detail := result.Body
		if detail == "" {
			detail = err.Error()
		}
		trigger.MarkFailed(strconv.Itoa(result.StatusCode), detail)
	default:
		trigger.MarkFailed("", err.Error())
	}

	if err != nil {
		entry.WithError(err).WithField("trigger_id", trigger.ID).Warn("Notification delivery failed")
	} else {
		entry.WithField("trigger_id", trigger.ID).Debug("Notification delivered")
	}

	return trigger
}

// ProcessAudit delivers one audit record synchronously. Failures are logged.
func (m *Manager) ProcessAudit(ctx context.Context, e AuditEvent) {
	if m.auditor == nil || e.Payload == nil {
		return
	}

	actor := e.Actor
	if actor == "" {
		actor = defaultActor
	}

	record := &AuditRecord{
		TenantID:      e.TenantID,
		BusinessID:    e.BusinessID,
		TransactionID: utils.GenerateUUID(),
		Action:        e.Payload.EventType(),
		Actor:         actor,
		Target: AuditTarget{
			Type: e.Payload.Resource(),
			ID:   e.Payload.ResourceID(),
		},
		Timestamp: utils.GetCurrentTimeMillis(),
		Details:   e.Payload,
	}

	start := time.Now()
	err := m.auditor.Send(ctx, record)
	m.metrics.observeDelivery(kindAudit, start)

	if err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			log.FieldTenantID:  e.TenantID,
			log.FieldEventType: record.Action,
		}).Warn("Audit delivery failed")
		m.metrics.observeTask(kindAudit, outcomeFailed)
		return
	}
	m.metrics.observeTask(kindAudit, outcomeSent)
}

// Close stops accepting tasks and waits until queued and running tasks finish
// or ctx ends.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	select {
	case <-m.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
