package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
)

// MockDispatcher is a mock implementation of dispatch.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

var _ dispatch.Dispatcher = (*MockDispatcher)(nil)

func (m *MockDispatcher) Trigger(ctx context.Context, n dispatch.Notification) {
	m.Called(ctx, n)
}

func (m *MockDispatcher) Audit(ctx context.Context, e dispatch.AuditEvent) {
	m.Called(ctx, e)
}
