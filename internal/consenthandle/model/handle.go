package model

import (
	"github.com/wso2/consent-lifecycle-api/internal/system/customer"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

// HandleStatus is the state of a consent handle.
type HandleStatus string

const (
	HandleStatusPending    HandleStatus = "PENDING"
	HandleStatusConsumed   HandleStatus = "CONSUMED"
	HandleStatusReqExpired HandleStatus = "REQ_EXPIRED"
)

// CanTransitionTo reports whether a handle may move from s to next. A handle
// only ever leaves PENDING, and never comes back.
func (s HandleStatus) CanTransitionTo(next HandleStatus) bool {
	return s == HandleStatusPending && (next == HandleStatusConsumed || next == HandleStatusReqExpired)
}

// ConsentHandle is a single-use, time-bounded token for one consent capture.
type ConsentHandle struct {
	ConsentHandleID     string               `json:"consentHandleId" db:"ID"`
	TemplateID          string               `json:"templateId" db:"TEMPLATE_ID"`
	TemplateVersion     int                  `json:"templateVersion" db:"TEMPLATE_VERSION"`
	BusinessID          string               `json:"businessId" db:"BUSINESS_ID"`
	CustomerIdentifiers customer.Identifiers `json:"customerIdentifiers" db:"CUSTOMER_IDENTIFIERS"`
	Status              HandleStatus         `json:"status" db:"STATUS"`
	ExpiresAt           int64                `json:"expiresAt" db:"EXPIRES_AT"`
	URL                 string               `json:"url" db:"URL"`
	CreatedTime         int64                `json:"createdTime" db:"CREATED_TIME"`
	UpdatedTime         int64                `json:"updatedTime" db:"UPDATED_TIME"`
}

// IsUsable reports whether the handle can still be consumed at now.
func (h *ConsentHandle) IsUsable(now int64) bool {
	return h.Status == HandleStatusPending && !utils.IsExpired(h.ExpiresAt, now)
}

// CreateRequest is the body of POST /consent-handles.
type CreateRequest struct {
	TemplateID          string               `json:"templateId" binding:"required"`
	BusinessID          string               `json:"businessId"`
	CustomerIdentifiers customer.Identifiers `json:"customerIdentifiers" binding:"required"`
}
