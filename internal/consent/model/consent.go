package model

import (
	"github.com/wso2/consent-lifecycle-api/internal/system/customer"
	dbmodel "github.com/wso2/consent-lifecycle-api/internal/system/database/model"
)

// ConsentStatus is the lifecycle flag of a consent version.
type ConsentStatus string

const (
	ConsentStatusActive     ConsentStatus = "ACTIVE"
	ConsentStatusSuperseded ConsentStatus = "SUPERSEDED"
)

// PreferenceStatus is the customer's answer for one purpose.
type PreferenceStatus string

const (
	PreferenceAccepted    PreferenceStatus = "ACCEPTED"
	PreferenceNotAccepted PreferenceStatus = "NOTACCEPTED"
	PreferenceExpired     PreferenceStatus = "EXPIRED"
)

// IsValid reports whether s is a known preference status.
func (s PreferenceStatus) IsValid() bool {
	switch s {
	case PreferenceAccepted, PreferenceNotAccepted, PreferenceExpired:
		return true
	}
	return false
}

// Consent is one version of a customer's consent.
type Consent struct {
	ConsentID           string                                    `json:"consentId" db:"CONSENT_ID"`
	Version             int                                       `json:"version" db:"VERSION"`
	ConsentHandleID     string                                    `json:"consentHandleId" db:"CONSENT_HANDLE_ID"`
	TemplateID          string                                    `json:"templateId" db:"TEMPLATE_ID"`
	TemplateVersion     int                                       `json:"templateVersion" db:"TEMPLATE_VERSION"`
	BusinessID          string                                    `json:"businessId" db:"BUSINESS_ID"`
	CustomerIdentifiers customer.Identifiers                      `json:"customerIdentifiers" db:"CUSTOMER_IDENTIFIERS"`
	PreferencesStatus   dbmodel.JSON[map[string]PreferenceStatus] `json:"preferencesStatus" db:"PREFERENCES_STATUS"`
	ConsentStatus       ConsentStatus                             `json:"consentStatus" db:"CONSENT_STATUS"`
	Language            string                                    `json:"language" db:"LANGUAGE"`
	EndDate             *int64                                    `json:"endDate,omitempty" db:"END_DATE"`
	CreatedTime         int64                                     `json:"createdTime" db:"CREATED_TIME"`
	UpdatedTime         int64                                     `json:"updatedTime" db:"UPDATED_TIME"`
}

// IsActive reports whether this is the version in effect.
func (c *Consent) IsActive() bool {
	return c.ConsentStatus == ConsentStatusActive
}

// PreferenceMap returns the preference answers as plain strings.
func (c *Consent) PreferenceMap() map[string]string {
	out := make(map[string]string, len(c.PreferencesStatus.Data))
	for k, v := range c.PreferencesStatus.Data {
		out[k] = string(v)
	}
	return out
}

// ConsentRequest is the body of POST /consents and PUT /consents/:consentId.
type ConsentRequest struct {
	ConsentHandleID   string                      `json:"consentHandleId" binding:"required"`
	PreferencesStatus map[string]PreferenceStatus `json:"preferencesStatus" binding:"required"`
	Language          string                      `json:"language"`
	EndDate           *int64                      `json:"endDate,omitempty"`
	DataProcessorIDs  []string                    `json:"dataProcessorIds,omitempty"`
}

// ConsentListResponse wraps a list of consent versions.
type ConsentListResponse struct {
	Data  []Consent `json:"data"`
	Total int       `json:"total"`
}
