package model

import "github.com/wso2/consent-lifecycle-api/internal/system/utils"

// Column bounds of NOTIFICATION_TRIGGER.
const (
	MaxRemoteEventIDLength = 255
	MaxErrorMessageLength  = 2048
)

// TriggerStatus is the delivery state of a notification trigger.
type TriggerStatus string

const (
	TriggerStatusPending TriggerStatus = "PENDING"
	TriggerStatusSent    TriggerStatus = "SENT"
	TriggerStatusFailed  TriggerStatus = "FAILED"
)

// IsTerminal reports whether no further transition is expected.
func (s TriggerStatus) IsTerminal() bool {
	return s == TriggerStatusSent || s == TriggerStatusFailed
}

// NotificationTrigger is the local record of one notification attempt.
type NotificationTrigger struct {
	ID            string        `json:"id" db:"ID"`
	EventType     string        `json:"eventType" db:"EVENT_TYPE"`
	Resource      string        `json:"resource" db:"RESOURCE"`
	BusinessID    string        `json:"businessId" db:"BUSINESS_ID"`
	TransactionID string        `json:"transactionId" db:"TRANSACTION_ID"`
	Status        TriggerStatus `json:"status" db:"STATUS"`
	EventPayload  string        `json:"eventPayload" db:"EVENT_PAYLOAD"`
	HTTPStatus    *string       `json:"httpStatus,omitempty" db:"HTTP_STATUS"`
	ErrorMessage  *string       `json:"errorMessage,omitempty" db:"ERROR_MESSAGE"`
	RemoteEventID *string       `json:"remoteEventId,omitempty" db:"REMOTE_EVENT_ID"`
	CreatedTime   int64         `json:"createdTime" db:"CREATED_TIME"`
	UpdatedTime   int64         `json:"updatedTime" db:"UPDATED_TIME"`
}

// MarkSent records a successful delivery.
func (t *NotificationTrigger) MarkSent(httpStatus, remoteEventID string) {
	t.Status = TriggerStatusSent
	t.HTTPStatus = &httpStatus
	if remoteEventID != "" {
		id := utils.TruncateUTF8(remoteEventID, MaxRemoteEventIDLength)
		t.RemoteEventID = &id
	}
	t.ErrorMessage = nil
}

// MarkFailed records a failed delivery. httpStatus is empty when no response
// was received.
func (t *NotificationTrigger) MarkFailed(httpStatus, errorMessage string) {
	t.Status = TriggerStatusFailed
	if httpStatus != "" {
		t.HTTPStatus = &httpStatus
	}
	msg := utils.TruncateUTF8(errorMessage, MaxErrorMessageLength)
	t.ErrorMessage = &msg
}
