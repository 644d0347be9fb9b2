package consenttemplate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	dbmodel "github.com/wso2/consent-lifecycle-api/internal/system/database/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// TemplateService defines the consent template operations
type TemplateService interface {
	CreateTemplate(ctx context.Context, tenantID string, req model.TemplateRequest) (*model.ConsentTemplate, error)
	UpdateTemplate(ctx context.Context, tenantID, templateID string, req model.TemplateRequest) (*model.ConsentTemplate, error)
	GetActiveTemplate(ctx context.Context, tenantID, templateID string) (*model.ConsentTemplate, error)
	GetTemplateVersion(ctx context.Context, tenantID, templateID string, version int) (*model.ConsentTemplate, error)
	ListTemplateVersions(ctx context.Context, tenantID, templateID string) ([]model.ConsentTemplate, error)
	ListActiveTemplates(ctx context.Context, tenantID, businessID string) ([]model.ConsentTemplate, error)
}

type templateService struct {
	resolver   tenant.PartitionResolver
	store      TemplateStore
	dispatcher dispatch.Dispatcher
	logger     *logrus.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(resolver tenant.PartitionResolver, store TemplateStore, dispatcher dispatch.Dispatcher, logger *logrus.Logger) TemplateService {
	return &templateService{
		resolver:   resolver,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateTemplate creates version 1 of a new template
func (s *templateService) CreateTemplate(ctx context.Context, tenantID string, req model.TemplateRequest) (*model.ConsentTemplate, error) {
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}

	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	template := newTemplateVersion(req.BusinessID, req)
	templateID := utils.GenerateTemplateID()
	if _, err := s.store.CreateNewVersion(ctx, partition, templateID, template); err != nil {
		s.logger.WithError(err).WithField(log.FieldTenantID, tenantID).Error("Failed to create consent template")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		log.FieldTenantID:   tenantID,
		log.FieldTemplateID: templateID,
		log.FieldBusinessID: template.BusinessID,
	}).Info("Consent template created")

	s.audit(ctx, tenantID, template, dispatch.EventTemplateCreated)
	return template, nil
}

// UpdateTemplate creates the next version of an existing template and
// supersedes the current one.
func (s *templateService) UpdateTemplate(ctx context.Context, tenantID, templateID string, req model.TemplateRequest) (*model.ConsentTemplate, error) {
	if err := validateTemplateRequest(req); err != nil {
		return nil, err
	}

	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetActive(ctx, partition, templateID)
	if err != nil {
		return nil, err
	}
	if req.BusinessID != "" && req.BusinessID != current.BusinessID {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("template '%s' belongs to another business", templateID))
	}

	template := newTemplateVersion(current.BusinessID, req)
	if _, err := s.store.CreateNewVersion(ctx, partition, templateID, template); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			log.FieldTenantID:   tenantID,
			log.FieldTemplateID: templateID,
		}).Error("Failed to update consent template")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		log.FieldTenantID:   tenantID,
		log.FieldTemplateID: templateID,
		"version":           template.Version,
	}).Info("Consent template updated")

	s.audit(ctx, tenantID, template, dispatch.EventTemplateUpdated)
	return template, nil
}

// GetActiveTemplate returns the version of a template in effect
func (s *templateService) GetActiveTemplate(ctx context.Context, tenantID, templateID string) (*model.ConsentTemplate, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.GetActive(ctx, partition, templateID)
}

// GetTemplateVersion returns one version of a template
func (s *templateService) GetTemplateVersion(ctx context.Context, tenantID, templateID string, version int) (*model.ConsentTemplate, error) {
	if version < 1 {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, "version must be a positive integer")
	}
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.GetVersion(ctx, partition, templateID, version)
}

// ListTemplateVersions returns all versions of a template, newest first
func (s *templateService) ListTemplateVersions(ctx context.Context, tenantID, templateID string) ([]model.ConsentTemplate, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, partition, templateID)
}

// ListActiveTemplates returns the active version of every template of a business
func (s *templateService) ListActiveTemplates(ctx context.Context, tenantID, businessID string) ([]model.ConsentTemplate, error) {
	if err := utils.ValidateRequired("businessId", businessID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.ListActiveByBusiness(ctx, partition, businessID)
}

func (s *templateService) audit(ctx context.Context, tenantID string, t *model.ConsentTemplate, event dispatch.EventType) {
	s.dispatcher.Audit(ctx, dispatch.AuditEvent{
		TenantID:   tenantID,
		BusinessID: t.BusinessID,
		Actor:      t.BusinessID,
		Payload: dispatch.TemplateEventPayload{
			Type:           event,
			TemplateID:     t.TemplateID,
			Version:        t.Version,
			Status:         string(t.Status),
			PreferenceKeys: t.PreferenceKeys(),
		},
	})
}

func newTemplateVersion(businessID string, req model.TemplateRequest) *model.ConsentTemplate {
	uiConfig := req.UIConfig
	if uiConfig == nil {
		uiConfig = map[string]any{}
	}
	return &model.ConsentTemplate{
		Status:       req.Status,
		BusinessID:   businessID,
		Multilingual: dbmodel.NewJSON(req.Multilingual),
		UIConfig:     dbmodel.NewJSON(uiConfig),
		Preferences:  dbmodel.NewJSON(req.Preferences),
	}
}

func validateTemplateRequest(req model.TemplateRequest) error {
	if req.BusinessID == "" {
		return serviceerror.CustomServiceError(serviceerror.ValidationError, "businessId is required")
	}
	if !req.Status.IsValid() {
		return serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("invalid template status %q, expected DRAFT or PUBLISHED", req.Status))
	}
	if len(req.Multilingual) == 0 {
		return serviceerror.CustomServiceError(serviceerror.ValidationError, "at least one language is required")
	}
	for lang, text := range req.Multilingual {
		if lang == "" || text.Title == "" {
			return serviceerror.CustomServiceError(serviceerror.ValidationError,
				fmt.Sprintf("language %q requires a title", lang))
		}
	}
	if len(req.Preferences) == 0 {
		return serviceerror.CustomServiceError(serviceerror.ValidationError, "at least one preference is required")
	}
	seen := make(map[string]struct{}, len(req.Preferences))
	for _, p := range req.Preferences {
		if p.PurposeID == "" {
			return serviceerror.CustomServiceError(serviceerror.ValidationError, "preference purposeId is required")
		}
		if _, dup := seen[p.PurposeID]; dup {
			return serviceerror.CustomServiceError(serviceerror.ValidationError,
				fmt.Sprintf("duplicate preference purposeId %q", p.PurposeID))
		}
		seen[p.PurposeID] = struct{}{}
	}
	return nil
}
