package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/consent-lifecycle-api/internal/consent/model"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// MockConsentStore is a mock implementation of consent.ConsentStore
type MockConsentStore struct {
	mock.Mock
}

func (m *MockConsentStore) CreateFromHandle(ctx context.Context, p *tenant.Partition, consentID string, c *model.Consent, now int64) (int, error) {
	args := m.Called(ctx, p, consentID, c, now)
	return args.Int(0), args.Error(1)
}

func (m *MockConsentStore) GetActive(ctx context.Context, p *tenant.Partition, consentID string) (*model.Consent, error) {
	args := m.Called(ctx, p, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consent), args.Error(1)
}

func (m *MockConsentStore) GetVersion(ctx context.Context, p *tenant.Partition, consentID string, version int) (*model.Consent, error) {
	args := m.Called(ctx, p, consentID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Consent), args.Error(1)
}

func (m *MockConsentStore) ListVersions(ctx context.Context, p *tenant.Partition, consentID string) ([]model.Consent, error) {
	args := m.Called(ctx, p, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Consent), args.Error(1)
}
