package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/wso2/consent-lifecycle-api/internal/system/database"
)

// Discovery enumerates tenant partitions by their schema name prefix.
type Discovery struct {
	system *database.DB
	prefix string
}

// NewDiscovery creates a discovery over the server-level connection.
func NewDiscovery(system *database.DB, prefix string) *Discovery {
	return &Discovery{system: system, prefix: prefix}
}

// ListTenants returns the ids of every tenant that has a partition.
func (d *Discovery) ListTenants(ctx context.Context) ([]string, error) {
	query := `
		SELECT SCHEMA_NAME
		FROM information_schema.SCHEMATA
		WHERE SCHEMA_NAME LIKE ?
		ORDER BY SCHEMA_NAME
	`

	var schemas []string
	if err := d.system.SelectContext(ctx, &schemas, query, escapeLike(d.prefix)+"%"); err != nil {
		return nil, fmt.Errorf("failed to list tenant schemas: %w", err)
	}

	tenants := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		// LIKE is case-insensitive under most collations
		if !strings.HasPrefix(schema, d.prefix) || len(schema) == len(d.prefix) {
			continue
		}
		tenants = append(tenants, strings.TrimPrefix(schema, d.prefix))
	}
	return tenants, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
