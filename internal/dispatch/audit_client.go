package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/constants"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
)

// AuditSender delivers one audit record.
type AuditSender interface {
	Send(ctx context.Context, record *AuditRecord) error
}

// AuditRecord is the action/actor/target record posted to the audit service.
type AuditRecord struct {
	TenantID      string `json:"-"`
	BusinessID    string `json:"-"`
	TransactionID string `json:"-"`

	Action    EventType    `json:"action"`
	Actor     string       `json:"actor"`
	Target    AuditTarget  `json:"target"`
	Timestamp int64        `json:"timestamp"`
	Details   EventPayload `json:"details"`
}

// AuditTarget identifies the entity an audit record refers to.
type AuditTarget struct {
	Type Resource `json:"type"`
	ID   string   `json:"id"`
}

// AuditClient posts audit records to the external audit service.
type AuditClient struct {
	httpClient *http.Client
	url        string
	logger     *logrus.Logger
}

var _ AuditSender = (*AuditClient)(nil)

// NewAuditClient creates a new audit client instance
func NewAuditClient(cfg config.EndpointConfig, logger *logrus.Logger) *AuditClient {
	timeout := 5 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &AuditClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		url:    cfg.URL,
		logger: logger,
	}
}

// Send posts the audit record. The response body is discarded.
func (c *AuditClient) Send(ctx context.Context, record *AuditRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return serviceerror.Wrapf(serviceerror.DeliveryError, err, "failed to marshal audit record")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return serviceerror.Wrapf(serviceerror.DeliveryError, err, "failed to create audit request")
	}

	req.Header.Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
	req.Header.Set(constants.AuditTenantIDHeaderName, record.TenantID)
	req.Header.Set(constants.AuditBusinessIDHeaderName, record.BusinessID)
	req.Header.Set(constants.AuditTransactionIDHeaderName, record.TransactionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return serviceerror.Wrapf(serviceerror.DeliveryError, err, "audit service call failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return serviceerror.CustomServiceError(serviceerror.DeliveryError,
			fmt.Sprintf("audit service returned status %d", resp.StatusCode))
	}

	c.logger.WithFields(logrus.Fields{
		"action":        record.Action,
		"transactionId": record.TransactionID,
	}).Debug("Audit record delivered")

	return nil
}
