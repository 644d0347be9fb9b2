package consent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consent/model"
	"github.com/wso2/consent-lifecycle-api/internal/consenthandle"
	handlemodel "github.com/wso2/consent-lifecycle-api/internal/consenthandle/model"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	templatemodel "github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	dbmodel "github.com/wso2/consent-lifecycle-api/internal/system/database/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

const defaultLanguage = "en"

// ConsentService defines the consent operations
type ConsentService interface {
	CreateConsent(ctx context.Context, tenantID string, req model.ConsentRequest) (*model.Consent, error)
	UpdateConsent(ctx context.Context, tenantID, consentID string, req model.ConsentRequest) (*model.Consent, error)
	GetActiveConsent(ctx context.Context, tenantID, consentID string) (*model.Consent, error)
	GetConsentVersion(ctx context.Context, tenantID, consentID string, version int) (*model.Consent, error)
	ListConsentVersions(ctx context.Context, tenantID, consentID string) ([]model.Consent, error)
}

type consentService struct {
	resolver   tenant.PartitionResolver
	store      ConsentStore
	handles    consenthandle.HandleStore
	templates  consenttemplate.TemplateStore
	dispatcher dispatch.Dispatcher
	logger     *logrus.Logger
	now        func() int64
}

// NewConsentService creates a new consent service
func NewConsentService(resolver tenant.PartitionResolver, store ConsentStore, handles consenthandle.HandleStore,
	templates consenttemplate.TemplateStore, dispatcher dispatch.Dispatcher, logger *logrus.Logger) ConsentService {
	return &consentService{
		resolver:   resolver,
		store:      store,
		handles:    handles,
		templates:  templates,
		dispatcher: dispatcher,
		logger:     logger,
		now:        utils.GetCurrentTimeMillis,
	}
}

// CreateConsent consumes a consent handle and records version 1 of a new consent
func (s *consentService) CreateConsent(ctx context.Context, tenantID string, req model.ConsentRequest) (*model.Consent, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if req.EndDate != nil && *req.EndDate <= now {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "endDate must be in the future")
	}
	handle, err := s.usableHandle(ctx, partition, req.ConsentHandleID, now)
	if err != nil {
		return nil, err
	}
	if err := s.validatePreferences(ctx, partition, handle, req.PreferencesStatus); err != nil {
		return nil, err
	}

	consent := newConsentVersion(handle, req)
	consentID := utils.GenerateConsentID()
	if _, err := s.store.CreateFromHandle(ctx, partition, consentID, consent, now); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			log.FieldTenantID: tenantID,
			log.FieldHandleID: req.ConsentHandleID,
		}).Error("Failed to create consent")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		log.FieldTenantID:  tenantID,
		log.FieldConsentID: consentID,
		log.FieldHandleID:  handle.ConsentHandleID,
	}).Info("Consent created")

	s.publish(ctx, tenantID, consent, req.DataProcessorIDs, dispatch.EventConsentCreated)
	return consent, nil
}

// UpdateConsent consumes a consent handle and records the next version of an
// existing consent. The handle must belong to the same customer.
func (s *consentService) UpdateConsent(ctx context.Context, tenantID, consentID string, req model.ConsentRequest) (*model.Consent, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetActive(ctx, partition, consentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if req.EndDate != nil && *req.EndDate <= now {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "endDate must be in the future")
	}
	handle, err := s.usableHandle(ctx, partition, req.ConsentHandleID, now)
	if err != nil {
		return nil, err
	}
	if !handle.CustomerIdentifiers.Equal(current.CustomerIdentifiers) {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"consent handle was issued for a different customer")
	}
	if handle.TemplateID != current.TemplateID {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("consent '%s' was given on template '%s'", consentID, current.TemplateID))
	}
	if err := s.validatePreferences(ctx, partition, handle, req.PreferencesStatus); err != nil {
		return nil, err
	}

	consent := newConsentVersion(handle, req)
	if _, err := s.store.CreateFromHandle(ctx, partition, consentID, consent, now); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			log.FieldTenantID:  tenantID,
			log.FieldConsentID: consentID,
		}).Error("Failed to update consent")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		log.FieldTenantID:  tenantID,
		log.FieldConsentID: consentID,
		"version":          consent.Version,
	}).Info("Consent updated")

	s.publish(ctx, tenantID, consent, req.DataProcessorIDs, dispatch.EventConsentUpdated)
	return consent, nil
}

// GetActiveConsent returns the version of a consent in effect
func (s *consentService) GetActiveConsent(ctx context.Context, tenantID, consentID string) (*model.Consent, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.GetActive(ctx, partition, consentID)
}

// GetConsentVersion returns one version of a consent
func (s *consentService) GetConsentVersion(ctx context.Context, tenantID, consentID string, version int) (*model.Consent, error) {
	if version < 1 {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "version must be a positive integer")
	}
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.GetVersion(ctx, partition, consentID, version)
}

// ListConsentVersions returns all versions of a consent, newest first
func (s *consentService) ListConsentVersions(ctx context.Context, tenantID, consentID string) ([]model.Consent, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, partition, consentID)
}

func (s *consentService) usableHandle(ctx context.Context, p *tenant.Partition, handleID string, now int64) (*handlemodel.ConsentHandle, error) {
	if err := utils.ValidateRequired("consentHandleId", handleID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	handle, err := s.handles.GetByID(ctx, p, handleID)
	if err != nil {
		return nil, err
	}
	if handle.Status != handlemodel.HandleStatusPending {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("consent handle '%s' is %s", handleID, handle.Status))
	}
	if utils.IsExpired(handle.ExpiresAt, now) {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("consent handle '%s' has expired", handleID))
	}
	return handle, nil
}

// validatePreferences checks the answers against the template version the
// handle is pinned to: every purpose answered, no unknown purposes, and
// mandatory purposes accepted.
func (s *consentService) validatePreferences(ctx context.Context, p *tenant.Partition,
	handle *handlemodel.ConsentHandle, answers map[string]model.PreferenceStatus) error {
	if len(answers) == 0 {
		return serviceerror.CustomServiceError(serviceerror.ValidationError, "preferencesStatus is required")
	}

	template, err := s.templates.GetVersion(ctx, p, handle.TemplateID, handle.TemplateVersion)
	if err != nil {
		if serviceerror.Is(err, serviceerror.NotFoundError) {
			return serviceerror.CustomServiceError(serviceerror.ValidationError,
				fmt.Sprintf("template '%s' version %d no longer exists", handle.TemplateID, handle.TemplateVersion))
		}
		return err
	}

	var unknown []string
	for purpose, status := range answers {
		pref, ok := template.Preference(purpose)
		if !ok {
			unknown = append(unknown, purpose)
			continue
		}
		if !status.IsValid() {
			return serviceerror.CustomServiceError(serviceerror.ValidationError,
				fmt.Sprintf("invalid status %q for purpose %q", status, purpose))
		}
		if pref.Mandatory && status != model.PreferenceAccepted {
			return serviceerror.CustomServiceError(serviceerror.ValidationError,
				fmt.Sprintf("mandatory purpose %q must be ACCEPTED", purpose))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("unknown purposes: %s", strings.Join(unknown, ", ")))
	}

	if missing := missingPurposes(template, answers); len(missing) > 0 {
		return serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("missing purposes: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func missingPurposes(t *templatemodel.ConsentTemplate, answers map[string]model.PreferenceStatus) []string {
	var missing []string
	for _, key := range t.PreferenceKeys() {
		if _, ok := answers[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// publish hands the committed version to the dispatch manager. Nothing it
// does can fail the request.
func (s *consentService) publish(ctx context.Context, tenantID string, c *model.Consent, processors []string, event dispatch.EventType) {
	payload := dispatch.ConsentEventPayload{
		Type:              event,
		ConsentID:         c.ConsentID,
		Version:           c.Version,
		ConsentHandleID:   c.ConsentHandleID,
		TemplateID:        c.TemplateID,
		TemplateVersion:   c.TemplateVersion,
		PreferencesStatus: c.PreferenceMap(),
		ConsentStatus:     string(c.ConsentStatus),
		EndDate:           c.EndDate,
	}

	s.dispatcher.Trigger(ctx, dispatch.Notification{
		TenantID:         tenantID,
		BusinessID:       c.BusinessID,
		Customer:         c.CustomerIdentifiers,
		DataProcessorIDs: processors,
		Language:         c.Language,
		Payload:          payload,
	})
	s.dispatcher.Audit(ctx, dispatch.AuditEvent{
		TenantID:   tenantID,
		BusinessID: c.BusinessID,
		Actor:      c.CustomerIdentifiers.ID,
		Payload:    payload,
	})
}

func newConsentVersion(handle *handlemodel.ConsentHandle, req model.ConsentRequest) *model.Consent {
	language := req.Language
	if language == "" {
		language = defaultLanguage
	}
	return &model.Consent{
		ConsentHandleID:     handle.ConsentHandleID,
		TemplateID:          handle.TemplateID,
		TemplateVersion:     handle.TemplateVersion,
		BusinessID:          handle.BusinessID,
		CustomerIdentifiers: handle.CustomerIdentifiers,
		PreferencesStatus:   dbmodel.NewJSON(req.PreferencesStatus),
		Language:            language,
		EndDate:             req.EndDate,
	}
}
