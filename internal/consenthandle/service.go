package consenthandle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consenthandle/model"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// HandleService defines the consent handle operations
type HandleService interface {
	CreateHandle(ctx context.Context, tenantID string, req model.CreateRequest) (*model.ConsentHandle, error)
	GetHandle(ctx context.Context, tenantID, handleID string) (*model.ConsentHandle, error)
}

type handleService struct {
	resolver   tenant.PartitionResolver
	store      HandleStore
	templates  consenttemplate.TemplateStore
	dispatcher dispatch.Dispatcher
	validity   time.Duration
	urlFormat  string
	logger     *logrus.Logger
	now        func() int64
}

// NewHandleService creates a new consent handle service
func NewHandleService(resolver tenant.PartitionResolver, store HandleStore, templates consenttemplate.TemplateStore,
	dispatcher dispatch.Dispatcher, cfg config.ConsentHandleConfig, logger *logrus.Logger) HandleService {
	return &handleService{
		resolver:   resolver,
		store:      store,
		templates:  templates,
		dispatcher: dispatcher,
		validity:   cfg.Validity,
		urlFormat:  cfg.URLTemplate,
		logger:     logger,
		now:        utils.GetCurrentTimeMillis,
	}
}

// CreateHandle issues a PENDING handle pinned to the active version of a
// published template.
func (s *handleService) CreateHandle(ctx context.Context, tenantID string, req model.CreateRequest) (*model.ConsentHandle, error) {
	if err := utils.ValidateRequired("templateId", req.TemplateID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if err := req.CustomerIdentifiers.Validate(); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	template, err := s.templates.GetActive(ctx, partition, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !template.IsPublished() {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("template '%s' is not published", req.TemplateID))
	}
	if req.BusinessID != "" && req.BusinessID != template.BusinessID {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("template '%s' belongs to another business", req.TemplateID))
	}

	now := s.now()
	handleID := utils.GenerateHandleID()
	handle := &model.ConsentHandle{
		ConsentHandleID:     handleID,
		TemplateID:          template.TemplateID,
		TemplateVersion:     template.Version,
		BusinessID:          template.BusinessID,
		CustomerIdentifiers: req.CustomerIdentifiers,
		Status:              model.HandleStatusPending,
		ExpiresAt:           now + s.validity.Milliseconds(),
		URL:                 s.buildURL(handleID),
		CreatedTime:         now,
		UpdatedTime:         now,
	}

	if err := s.store.Create(ctx, partition, handle); err != nil {
		s.logger.WithError(err).WithField(log.FieldTenantID, tenantID).Error("Failed to create consent handle")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		log.FieldTenantID:   tenantID,
		log.FieldHandleID:   handleID,
		log.FieldTemplateID: template.TemplateID,
	}).Info("Consent handle created")

	s.dispatcher.Audit(ctx, dispatch.AuditEvent{
		TenantID:   tenantID,
		BusinessID: handle.BusinessID,
		Actor:      handle.BusinessID,
		Payload: dispatch.ConsentHandleEventPayload{
			ConsentHandleID: handleID,
			TemplateID:      handle.TemplateID,
			TemplateVersion: handle.TemplateVersion,
			ExpiresAt:       handle.ExpiresAt,
		},
	})

	return handle, nil
}

// GetHandle returns a consent handle by id
func (s *handleService) GetHandle(ctx context.Context, tenantID, handleID string) (*model.ConsentHandle, error) {
	partition, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, partition, handleID)
}

func (s *handleService) buildURL(handleID string) string {
	switch {
	case s.urlFormat == "":
		return handleID
	case strings.Contains(s.urlFormat, "%s"):
		return fmt.Sprintf(s.urlFormat, handleID)
	default:
		return strings.TrimSuffix(s.urlFormat, "/") + "/" + handleID
	}
}
