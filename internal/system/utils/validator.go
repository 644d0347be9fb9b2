package utils

import (
	"fmt"
	"regexp"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateTenantID validates a tenant identifier. Tenant ids become part of a
// schema name, so only a conservative character set is accepted.
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("invalid tenant ID: %q", tenantID)
	}
	return nil
}

// MaxSchemaNameLength is the MySQL limit on database identifiers.
const MaxSchemaNameLength = 64

// ValidateTenantIDForPrefix validates tenantID and checks that prefix plus
// tenantID still fits in a schema name.
func ValidateTenantIDForPrefix(tenantID, prefix string) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	return ValidateMaxLength("tenant ID", tenantID, MaxSchemaNameLength-len(prefix))
}

// ValidateRequired validates a field is not empty
func ValidateRequired(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateMaxLength validates a field does not exceed max characters
func ValidateMaxLength(fieldName, value string, max int) error {
	if len(value) > max {
		return fmt.Errorf("%s too long (max %d chars)", fieldName, max)
	}
	return nil
}
