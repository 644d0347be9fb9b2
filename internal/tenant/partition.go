package tenant

import (
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
)

// Partition is the resolved data partition of one tenant. It is handed to
// every store call; nothing in the process holds an implicit current tenant.
type Partition struct {
	TenantID string
	Schema   string
	DB       *database.DB
}

// SchemaName returns the schema holding a tenant's data.
func SchemaName(prefix, tenantID string) string {
	return prefix + tenantID
}
