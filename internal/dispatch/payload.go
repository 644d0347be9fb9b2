package dispatch

import (
	"github.com/wso2/consent-lifecycle-api/internal/system/customer"
)

// EventType names an outbound event or audit action.
type EventType string

const (
	EventConsentCreated  EventType = "CONSENT_CREATED"
	EventConsentUpdated  EventType = "CONSENT_UPDATED"
	EventHandleCreated   EventType = "HANDLE_CREATED"
	EventTemplateCreated EventType = "TEMPLATE_CREATED"
	EventTemplateUpdated EventType = "TEMPLATE_UPDATED"
)

// Resource names the entity an event is about.
type Resource string

const (
	ResourceConsent       Resource = "CONSENT"
	ResourceConsentHandle Resource = "CONSENT_HANDLE"
	ResourceTemplate      Resource = "CONSENT_TEMPLATE"
)

// EventPayload is implemented by one struct per event kind, so every payload
// serialises with a fixed shape.
type EventPayload interface {
	EventType() EventType
	Resource() Resource
	ResourceID() string
}

// ConsentEventPayload describes a committed consent version.
type ConsentEventPayload struct {
	Type              EventType         `json:"-"`
	ConsentID         string            `json:"consentId"`
	Version           int               `json:"version"`
	ConsentHandleID   string            `json:"consentHandleId"`
	TemplateID        string            `json:"templateId"`
	TemplateVersion   int               `json:"templateVersion"`
	PreferencesStatus map[string]string `json:"preferencesStatus"`
	ConsentStatus     string            `json:"consentStatus"`
	EndDate           *int64            `json:"endDate,omitempty"`
}

func (p ConsentEventPayload) EventType() EventType { return p.Type }
func (p ConsentEventPayload) Resource() Resource   { return ResourceConsent }
func (p ConsentEventPayload) ResourceID() string   { return p.ConsentID }

// ConsentHandleEventPayload describes an issued consent handle.
type ConsentHandleEventPayload struct {
	ConsentHandleID string `json:"consentHandleId"`
	TemplateID      string `json:"templateId"`
	TemplateVersion int    `json:"templateVersion"`
	ExpiresAt       int64  `json:"expiresAt"`
}

func (p ConsentHandleEventPayload) EventType() EventType { return EventHandleCreated }
func (p ConsentHandleEventPayload) Resource() Resource   { return ResourceConsentHandle }
func (p ConsentHandleEventPayload) ResourceID() string   { return p.ConsentHandleID }

// TemplateEventPayload describes a committed template version.
type TemplateEventPayload struct {
	Type           EventType `json:"-"`
	TemplateID     string    `json:"templateId"`
	Version        int       `json:"version"`
	Status         string    `json:"status"`
	PreferenceKeys []string  `json:"preferenceKeys"`
}

func (p TemplateEventPayload) EventType() EventType { return p.Type }
func (p TemplateEventPayload) Resource() Resource   { return ResourceTemplate }
func (p TemplateEventPayload) ResourceID() string   { return p.TemplateID }

// Notification is one request to notify the external notification service.
type Notification struct {
	TenantID         string
	BusinessID       string
	Customer         customer.Identifiers
	DataProcessorIDs []string
	Language         string
	Payload          EventPayload
}

// AuditEvent is one action to record with the external audit service.
type AuditEvent struct {
	TenantID   string
	BusinessID string
	Actor      string
	Payload    EventPayload
}
