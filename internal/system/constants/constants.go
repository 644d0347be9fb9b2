package constants

const (
	ContentTypeHeaderName   = "Content-Type"
	CorrelationIDHeaderName = "X-Correlation-ID"
	TenantIDHeaderName      = "X-Tenant-Id"
	BusinessIDHeaderName    = "X-Business-Id"
	TransactionIDHeaderName = "X-Transaction-Id"
	ContentTypeJSON         = "application/json"
	APIBasePath             = "/api/v1"

	// Audit endpoint header spelling differs from the notification endpoint.
	AuditTenantIDHeaderName      = "X-Tenant-ID"
	AuditBusinessIDHeaderName    = "X-Business-ID"
	AuditTransactionIDHeaderName = "X-Transaction-ID"

	// Context keys set by the tenant middleware
	ContextKeyTenantID      = "tenant_id"
	ContextKeyBusinessID    = "business_id"
	ContextKeyCorrelationID = "correlation_id"
)
