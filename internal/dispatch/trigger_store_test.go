package dispatch

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/consent-lifecycle-api/internal/dispatch/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
)

func newTriggerMock(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database.Wrap(sqlDB, "mysql", logrus.New()), mock
}

func TestTriggerStore_CreatePending(t *testing.T) {
	db, mock := newTriggerMock(t)
	mock.ExpectExec("INSERT INTO NOTIFICATION_TRIGGER").
		WithArgs("t1", "CONSENT_CREATED", "CONSENT", "retail", "tx1", model.TriggerStatusPending,
			`{"consentId":"c1"}`, nil, nil, nil, int64(10), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewTriggerStore("mysql").Create(context.Background(), db, &model.NotificationTrigger{
		ID: "t1", EventType: "CONSENT_CREATED", Resource: "CONSENT", BusinessID: "retail",
		TransactionID: "tx1", Status: model.TriggerStatusPending, EventPayload: `{"consentId":"c1"}`,
		CreatedTime: 10, UpdatedTime: 10,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerStore_UpdateOutcome(t *testing.T) {
	db, mock := newTriggerMock(t)
	trigger := &model.NotificationTrigger{ID: "t1", UpdatedTime: 20}
	trigger.MarkFailed("500", "boom")

	mock.ExpectExec(`UPDATE NOTIFICATION_TRIGGER`).
		WithArgs(model.TriggerStatusFailed, "500", "boom", nil, int64(20), "t1", model.TriggerStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewTriggerStore("mysql").UpdateOutcome(context.Background(), db, trigger))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerStore_UpdateOutcomeOnlyFromPending(t *testing.T) {
	db, mock := newTriggerMock(t)
	trigger := &model.NotificationTrigger{ID: "t1"}
	trigger.MarkSent("200", "evt")

	mock.ExpectExec(`UPDATE NOTIFICATION_TRIGGER`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewTriggerStore("mysql").UpdateOutcome(context.Background(), db, trigger)

	assert.True(t, serviceerror.Is(err, serviceerror.ConflictError))
}
