// Package customer holds the end-user identity shared by handles, consents and
// outbound events.
package customer

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Identifiers identifies the end user or device a consent belongs to.
type Identifiers struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"value" binding:"required"`
}

// Validate checks that both parts are present.
func (i Identifiers) Validate() error {
	if i.Type == "" || i.ID == "" {
		return fmt.Errorf("customer identifier type and value are required")
	}
	return nil
}

// Equal reports whether both identifiers denote the same customer.
func (i Identifiers) Equal(other Identifiers) bool {
	return i.Type == other.Type && i.ID == other.ID
}

// Value implements driver.Valuer
func (i Identifiers) Value() (driver.Value, error) {
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (i *Identifiers) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	case nil:
		*i = Identifiers{}
		return nil
	default:
		return fmt.Errorf("unsupported customer identifiers column type %T", src)
	}
}
