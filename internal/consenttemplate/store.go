package consenttemplate

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/versioning"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

var templateColumns = []string{
	"TEMPLATE_ID", "VERSION", "TEMPLATE_STATUS", "STATUS", "BUSINESS_ID",
	"MULTILINGUAL", "UI_CONFIG", "PREFERENCES", "CREATED_TIME", "UPDATED_TIME",
}

// TemplateStore defines the data access operations for consent templates.
// Every call runs against the given tenant partition.
type TemplateStore interface {
	CreateNewVersion(ctx context.Context, p *tenant.Partition, templateID string, t *model.ConsentTemplate) (int, error)
	GetActive(ctx context.Context, p *tenant.Partition, templateID string) (*model.ConsentTemplate, error)
	GetVersion(ctx context.Context, p *tenant.Partition, templateID string, version int) (*model.ConsentTemplate, error)
	ListVersions(ctx context.Context, p *tenant.Partition, templateID string) ([]model.ConsentTemplate, error)
	ListActiveByBusiness(ctx context.Context, p *tenant.Partition, businessID string) ([]model.ConsentTemplate, error)
}

type store struct {
	versions *versioning.Store[model.ConsentTemplate]
}

// NewTemplateStore creates the MySQL template store.
func NewTemplateStore(logger *logrus.Logger) TemplateStore {
	versions, err := versioning.NewStore(versioning.Spec[model.ConsentTemplate]{
		Entity:           "consent template",
		Table:            "CONSENT_TEMPLATE",
		IDColumn:         "TEMPLATE_ID",
		StatusColumn:     "TEMPLATE_STATUS",
		UpdatedColumn:    "UPDATED_TIME",
		ActiveStatus:     string(model.TemplateStatusActive),
		SupersededStatus: string(model.TemplateStatusSuperseded),
		Columns:          templateColumns,
		Stamp: func(t *model.ConsentTemplate, templateID string, version int, status string, now int64) {
			t.TemplateID = templateID
			t.Version = version
			t.TemplateStatus = model.TemplateStatus(status)
			t.CreatedTime = now
			t.UpdatedTime = now
		},
	}, logger)
	if err != nil {
		// the layout above is static
		panic(err)
	}
	return &store{versions: versions}
}

func (s *store) CreateNewVersion(ctx context.Context, p *tenant.Partition, templateID string, t *model.ConsentTemplate) (int, error) {
	return s.versions.CreateNewVersion(ctx, p.DB, templateID, t)
}

func (s *store) GetActive(ctx context.Context, p *tenant.Partition, templateID string) (*model.ConsentTemplate, error) {
	return s.versions.GetActive(ctx, p.DB, templateID)
}

func (s *store) GetVersion(ctx context.Context, p *tenant.Partition, templateID string, version int) (*model.ConsentTemplate, error) {
	return s.versions.GetVersion(ctx, p.DB, templateID, version)
}

func (s *store) ListVersions(ctx context.Context, p *tenant.Partition, templateID string) ([]model.ConsentTemplate, error) {
	return s.versions.ListVersions(ctx, p.DB, templateID)
}

func (s *store) ListActiveByBusiness(ctx context.Context, p *tenant.Partition, businessID string) ([]model.ConsentTemplate, error) {
	return s.versions.ListActiveBy(ctx, p.DB, "BUSINESS_ID", businessID)
}
