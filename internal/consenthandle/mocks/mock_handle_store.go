package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/consent-lifecycle-api/internal/consenthandle/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// MockHandleStore is a mock implementation of consenthandle.HandleStore
type MockHandleStore struct {
	mock.Mock
}

func (m *MockHandleStore) Create(ctx context.Context, p *tenant.Partition, h *model.ConsentHandle) error {
	args := m.Called(ctx, p, h)
	return args.Error(0)
}

func (m *MockHandleStore) GetByID(ctx context.Context, p *tenant.Partition, handleID string) (*model.ConsentHandle, error) {
	args := m.Called(ctx, p, handleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConsentHandle), args.Error(1)
}

func (m *MockHandleStore) ConsumeTx(ctx context.Context, tx *database.Tx, handleID string, now int64) error {
	args := m.Called(ctx, tx, handleID, now)
	return args.Error(0)
}

func (m *MockHandleStore) ExpirePending(ctx context.Context, p *tenant.Partition, now int64) (int64, error) {
	args := m.Called(ctx, p, now)
	return args.Get(0).(int64), args.Error(1)
}
