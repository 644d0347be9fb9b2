package tenant

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/log"
)

//go:embed schema.sql
var schemaDDL string

// Provisioner creates tenant schemas and their tables.
type Provisioner struct {
	system *database.DB
	logger *logrus.Logger
}

// NewProvisioner creates a provisioner using the server-level connection.
func NewProvisioner(system *database.DB, logger *logrus.Logger) *Provisioner {
	return &Provisioner{system: system, logger: logger}
}

// CreateSchema creates the tenant schema if it does not exist yet.
func (p *Provisioner) CreateSchema(ctx context.Context, schema string) error {
	query := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4", quoteIdentifier(schema))
	if _, err := p.system.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}

// ApplySchema creates any missing tables in a tenant schema.
func (p *Provisioner) ApplySchema(ctx context.Context, db *database.DB) error {
	for _, stmt := range SchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply tenant schema: %w", err)
		}
	}
	return nil
}

// Provision creates the schema and its tables on a fresh connection.
func (p *Provisioner) Provision(ctx context.Context, schema string, open func() (*database.DB, error)) (*database.DB, error) {
	if err := p.CreateSchema(ctx, schema); err != nil {
		return nil, err
	}

	db, err := open()
	if err != nil {
		return nil, err
	}

	if err := p.ApplySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	p.logger.WithField(log.FieldPartition, schema).Info("Tenant partition provisioned")
	return db, nil
}

// SchemaStatements splits the embedded DDL into single statements.
func SchemaStatements() []string {
	var stmts []string
	for _, part := range strings.Split(schemaDDL, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
