package consent

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consent/model"
	"github.com/wso2/consent-lifecycle-api/internal/consenthandle"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/versioning"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

var consentColumns = []string{
	"CONSENT_ID", "VERSION", "CONSENT_HANDLE_ID", "TEMPLATE_ID", "TEMPLATE_VERSION", "BUSINESS_ID",
	"CUSTOMER_IDENTIFIERS", "PREFERENCES_STATUS", "CONSENT_STATUS", "LANGUAGE", "END_DATE",
	"CREATED_TIME", "UPDATED_TIME",
}

// ConsentStore defines the data access operations for consents.
type ConsentStore interface {
	// CreateFromHandle consumes c.ConsentHandleID and stores c as the next
	// version of consentID in one transaction. Nothing is written if the
	// handle is no longer PENDING or has expired at now.
	CreateFromHandle(ctx context.Context, p *tenant.Partition, consentID string, c *model.Consent, now int64) (int, error)
	GetActive(ctx context.Context, p *tenant.Partition, consentID string) (*model.Consent, error)
	GetVersion(ctx context.Context, p *tenant.Partition, consentID string, version int) (*model.Consent, error)
	ListVersions(ctx context.Context, p *tenant.Partition, consentID string) ([]model.Consent, error)
}

type store struct {
	versions *versioning.Store[model.Consent]
	handles  consenthandle.HandleStore
}

// NewConsentStore creates the MySQL consent store.
func NewConsentStore(handles consenthandle.HandleStore, logger *logrus.Logger) ConsentStore {
	versions, err := versioning.NewStore(versioning.Spec[model.Consent]{
		Entity:           "consent",
		Table:            "CONSENT",
		IDColumn:         "CONSENT_ID",
		StatusColumn:     "CONSENT_STATUS",
		UpdatedColumn:    "UPDATED_TIME",
		ActiveStatus:     string(model.ConsentStatusActive),
		SupersededStatus: string(model.ConsentStatusSuperseded),
		Columns:          consentColumns,
		Stamp: func(c *model.Consent, consentID string, version int, status string, now int64) {
			c.ConsentID = consentID
			c.Version = version
			c.ConsentStatus = model.ConsentStatus(status)
			c.CreatedTime = now
			c.UpdatedTime = now
		},
	}, logger)
	if err != nil {
		panic(err)
	}
	return &store{versions: versions, handles: handles}
}

func (s *store) CreateFromHandle(ctx context.Context, p *tenant.Partition, consentID string, c *model.Consent, now int64) (int, error) {
	var version int
	err := p.DB.WithTransaction(ctx, func(tx *database.Tx) error {
		if err := s.handles.ConsumeTx(ctx, tx, c.ConsentHandleID, now); err != nil {
			return err
		}
		v, err := s.versions.CreateNewVersionTx(ctx, tx, consentID, c)
		version = v
		return err
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *store) GetActive(ctx context.Context, p *tenant.Partition, consentID string) (*model.Consent, error) {
	return s.versions.GetActive(ctx, p.DB, consentID)
}

func (s *store) GetVersion(ctx context.Context, p *tenant.Partition, consentID string, version int) (*model.Consent, error) {
	return s.versions.GetVersion(ctx, p.DB, consentID, version)
}

func (s *store) ListVersions(ctx context.Context, p *tenant.Partition, consentID string) ([]model.Consent, error) {
	return s.versions.ListVersions(ctx, p.DB, consentID)
}
