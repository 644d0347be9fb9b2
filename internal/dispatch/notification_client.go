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
	"github.com/wso2/consent-lifecycle-api/internal/system/customer"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

// maxErrorBody caps how much of a failed response is kept in the trigger record.
const maxErrorBody = 2048

// NotificationSender delivers one notification request.
type NotificationSender interface {
	Send(ctx context.Context, req *NotificationRequest) (*DeliveryResult, error)
}

// NotificationRequest is the wire form of a notification.
type NotificationRequest struct {
	TenantID      string `json:"-"`
	BusinessID    string `json:"-"`
	TransactionID string `json:"-"`

	EventType           EventType            `json:"eventType"`
	Resource            Resource             `json:"resource"`
	CustomerIdentifiers customer.Identifiers `json:"customerIdentifiers"`
	DataProcessorIDs    []string             `json:"dataProcessorIds"`
	Language            string               `json:"language"`
	EventPayload        EventPayload         `json:"eventPayload"`
}

// DeliveryResult describes the response of the notification service. It is
// set whenever a response was received, including non-2xx ones.
type DeliveryResult struct {
	StatusCode int
	EventID    string
	Body       string
}

type notificationResponse struct {
	EventID string `json:"eventId"`
}

// NotificationClient posts notifications to the external notification service.
type NotificationClient struct {
	httpClient *http.Client
	url        string
	logger     *logrus.Logger
}

var _ NotificationSender = (*NotificationClient)(nil)

// NewNotificationClient creates a new notification client instance
func NewNotificationClient(cfg config.EndpointConfig, logger *logrus.Logger) *NotificationClient {
	timeout := 10 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &NotificationClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		url:    cfg.URL,
		logger: logger,
	}
}

// Send posts the notification. A non-2xx response yields both a result and a
// DeliveryError.
func (c *NotificationClient) Send(ctx context.Context, request *NotificationRequest) (*DeliveryResult, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, serviceerror.Wrapf(serviceerror.DeliveryError, err, "failed to marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, serviceerror.Wrapf(serviceerror.DeliveryError, err, "failed to create notification request")
	}

	req.Header.Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
	req.Header.Set("Accept", constants.ContentTypeJSON)
	req.Header.Set(constants.TenantIDHeaderName, request.TenantID)
	req.Header.Set(constants.BusinessIDHeaderName, request.BusinessID)
	req.Header.Set(constants.TransactionIDHeaderName, request.TransactionID)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithError(err).WithField("duration", duration).Warn("Notification service call failed")
		return nil, serviceerror.Wrapf(serviceerror.DeliveryError, err, "notification service call failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return &DeliveryResult{StatusCode: resp.StatusCode},
			serviceerror.Wrapf(serviceerror.DeliveryError, err, "failed to read notification response")
	}

	c.logger.WithFields(logrus.Fields{
		"statusCode":    resp.StatusCode,
		"duration":      duration,
		"transactionId": request.TransactionID,
	}).Debug("Notification service response received")

	result := &DeliveryResult{StatusCode: resp.StatusCode, Body: utils.TruncateUTF8(string(body), maxErrorBody)}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return result, serviceerror.CustomServiceError(serviceerror.DeliveryError,
			fmt.Sprintf("notification service returned status %d", resp.StatusCode))
	}

	var parsed notificationResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return result, serviceerror.Wrapf(serviceerror.DeliveryError, err, "failed to parse notification response")
		}
	}
	result.EventID = parsed.EventID

	return result, nil
}
