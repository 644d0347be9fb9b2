package model

import (
	dbmodel "github.com/wso2/consent-lifecycle-api/internal/system/database/model"
)

// TemplateStatus is the lifecycle flag of a template version.
type TemplateStatus string

const (
	TemplateStatusActive     TemplateStatus = "ACTIVE"
	TemplateStatusSuperseded TemplateStatus = "SUPERSEDED"
)

// PublishStatus says whether a template may be used for new consent handles.
type PublishStatus string

const (
	PublishStatusDraft     PublishStatus = "DRAFT"
	PublishStatusPublished PublishStatus = "PUBLISHED"
)

// IsValid reports whether s is a known publish status.
func (s PublishStatus) IsValid() bool {
	return s == PublishStatusDraft || s == PublishStatusPublished
}

// LocalizedText holds the title and description in one language.
type LocalizedText struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description,omitempty"`
}

// Preference is one purpose the customer accepts or declines.
type Preference struct {
	PurposeID string `json:"purposeId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Mandatory bool   `json:"mandatory"`
}

// ConsentTemplate is one version of a consent template.
type ConsentTemplate struct {
	TemplateID     string                                 `json:"templateId" db:"TEMPLATE_ID"`
	Version        int                                    `json:"version" db:"VERSION"`
	TemplateStatus TemplateStatus                         `json:"templateStatus" db:"TEMPLATE_STATUS"`
	Status         PublishStatus                          `json:"status" db:"STATUS"`
	BusinessID     string                                 `json:"businessId" db:"BUSINESS_ID"`
	Multilingual   dbmodel.JSON[map[string]LocalizedText] `json:"multilingual" db:"MULTILINGUAL"`
	UIConfig       dbmodel.JSON[map[string]any]           `json:"uiConfig" db:"UI_CONFIG"`
	Preferences    dbmodel.JSON[[]Preference]             `json:"preferences" db:"PREFERENCES"`
	CreatedTime    int64                                  `json:"createdTime" db:"CREATED_TIME"`
	UpdatedTime    int64                                  `json:"updatedTime" db:"UPDATED_TIME"`
}

// IsActive reports whether this is the version in effect.
func (t *ConsentTemplate) IsActive() bool {
	return t.TemplateStatus == TemplateStatusActive
}

// IsPublished reports whether new handles may pin this version.
func (t *ConsentTemplate) IsPublished() bool {
	return t.Status == PublishStatusPublished
}

// PreferenceKeys returns the purpose ids of the template, in order.
func (t *ConsentTemplate) PreferenceKeys() []string {
	keys := make([]string, 0, len(t.Preferences.Data))
	for _, p := range t.Preferences.Data {
		keys = append(keys, p.PurposeID)
	}
	return keys
}

// Preference looks up a preference by purpose id.
func (t *ConsentTemplate) Preference(purposeID string) (Preference, bool) {
	for _, p := range t.Preferences.Data {
		if p.PurposeID == purposeID {
			return p, true
		}
	}
	return Preference{}, false
}

// TemplateRequest is the body of template create and update calls.
type TemplateRequest struct {
	BusinessID   string                   `json:"businessId"`
	Status       PublishStatus            `json:"status" binding:"required"`
	Multilingual map[string]LocalizedText `json:"multilingual" binding:"required,min=1,dive"`
	UIConfig     map[string]any           `json:"uiConfig"`
	Preferences  []Preference             `json:"preferences" binding:"required,min=1,dive"`
}

// TemplateListResponse wraps a list of templates.
type TemplateListResponse struct {
	Data  []ConsentTemplate `json:"data"`
	Total int               `json:"total"`
}
