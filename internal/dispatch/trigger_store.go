package dispatch

import (
	"context"
	"fmt"

	"github.com/wso2/consent-lifecycle-api/internal/dispatch/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	dbmodel "github.com/wso2/consent-lifecycle-api/internal/system/database/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
)

// TriggerStoreInterface persists notification trigger records.
type TriggerStoreInterface interface {
	Create(ctx context.Context, db *database.DB, trigger *model.NotificationTrigger) error
	UpdateOutcome(ctx context.Context, db *database.DB, trigger *model.NotificationTrigger) error
}

var (
	queryCreateTrigger = dbmodel.DBQuery{
		ID: "DSP-TRG-01",
		Query: `INSERT INTO NOTIFICATION_TRIGGER
			(ID, EVENT_TYPE, RESOURCE, BUSINESS_ID, TRANSACTION_ID, STATUS, EVENT_PAYLOAD,
			 HTTP_STATUS, ERROR_MESSAGE, REMOTE_EVENT_ID, CREATED_TIME, UPDATED_TIME)
			VALUES (:ID, :EVENT_TYPE, :RESOURCE, :BUSINESS_ID, :TRANSACTION_ID, :STATUS, :EVENT_PAYLOAD,
			 :HTTP_STATUS, :ERROR_MESSAGE, :REMOTE_EVENT_ID, :CREATED_TIME, :UPDATED_TIME)`,
	}

	// Only a PENDING record moves to a terminal state.
	queryUpdateTriggerOutcome = dbmodel.DBQuery{
		ID: "DSP-TRG-02",
		Query: `UPDATE NOTIFICATION_TRIGGER
			SET STATUS = ?, HTTP_STATUS = ?, ERROR_MESSAGE = ?, REMOTE_EVENT_ID = ?, UPDATED_TIME = ?
			WHERE ID = ? AND STATUS = ?`,
	}
)

// TriggerStore is the sqlx-backed trigger repository.
type TriggerStore struct {
	dbType string
}

var _ TriggerStoreInterface = (*TriggerStore)(nil)

// NewTriggerStore creates a trigger store.
func NewTriggerStore(dbType string) *TriggerStore {
	return &TriggerStore{dbType: dbType}
}

// Create inserts a trigger record.
func (s *TriggerStore) Create(ctx context.Context, db *database.DB, trigger *model.NotificationTrigger) error {
	if _, err := db.NamedExecContext(ctx, queryCreateTrigger.GetQuery(s.dbType), trigger); err != nil {
		return fmt.Errorf("failed to create notification trigger: %w", err)
	}
	return nil
}

// UpdateOutcome writes the terminal state of a PENDING trigger.
func (s *TriggerStore) UpdateOutcome(ctx context.Context, db *database.DB, trigger *model.NotificationTrigger) error {
	result, err := db.ExecContext(ctx, queryUpdateTriggerOutcome.GetQuery(s.dbType),
		trigger.Status,
		trigger.HTTPStatus,
		trigger.ErrorMessage,
		trigger.RemoteEventID,
		trigger.UpdatedTime,
		trigger.ID,
		model.TriggerStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification trigger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("notification trigger %s is not pending", trigger.ID))
	}

	return nil
}
