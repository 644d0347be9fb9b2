package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// MockTemplateStore is a mock implementation of consenttemplate.TemplateStore
type MockTemplateStore struct {
	mock.Mock
}

func (m *MockTemplateStore) CreateNewVersion(ctx context.Context, p *tenant.Partition, templateID string, t *model.ConsentTemplate) (int, error) {
	args := m.Called(ctx, p, templateID, t)
	return args.Int(0), args.Error(1)
}

func (m *MockTemplateStore) GetActive(ctx context.Context, p *tenant.Partition, templateID string) (*model.ConsentTemplate, error) {
	args := m.Called(ctx, p, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsentTemplate), args.Error(1)
}

func (m *MockTemplateStore) GetVersion(ctx context.Context, p *tenant.Partition, templateID string, version int) (*model.ConsentTemplate, error) {
	args := m.Called(ctx, p, templateID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsentTemplate), args.Error(1)
}

func (m *MockTemplateStore) ListVersions(ctx context.Context, p *tenant.Partition, templateID string) ([]model.ConsentTemplate, error) {
	args := m.Called(ctx, p, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConsentTemplate), args.Error(1)
}

func (m *MockTemplateStore) ListActiveByBusiness(ctx context.Context, p *tenant.Partition, businessID string) ([]model.ConsentTemplate, error) {
	args := m.Called(ctx, p, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConsentTemplate), args.Error(1)
}
