package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// MockResolver is a mock implementation of tenant.PartitionResolver
type MockResolver struct {
	mock.Mock
}

var _ tenant.PartitionResolver = (*MockResolver)(nil)

func (m *MockResolver) Resolve(ctx context.Context, tenantID string) (*tenant.Partition, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Partition), args.Error(1)
}

// StaticResolver resolves every valid tenant id to a partition without a
// connection, for service tests whose stores are fakes.
type StaticResolver struct{}

func (StaticResolver) Resolve(_ context.Context, tenantID string) (*tenant.Partition, error) {
	return &tenant.Partition{TenantID: tenantID, Schema: "consent_tenant_" + tenantID}, nil
}
