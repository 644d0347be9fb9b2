package versioning

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
)

type widget struct {
	ID          string `db:"ID"`
	Version     int    `db:"VERSION"`
	Status      string `db:"STATUS"`
	Name        string `db:"NAME"`
	UpdatedTime int64  `db:"UPDATED_TIME"`
}

var widgetColumns = []string{"ID", "VERSION", "STATUS", "NAME", "UPDATED_TIME"}

func newWidgetStore(t *testing.T) (*Store[widget], *database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := NewStore(Spec[widget]{
		Entity:           "widget",
		Table:            "WIDGET",
		IDColumn:         "ID",
		StatusColumn:     "STATUS",
		UpdatedColumn:    "UPDATED_TIME",
		ActiveStatus:     "ACTIVE",
		SupersededStatus: "SUPERSEDED",
		Columns:          widgetColumns,
		Stamp: func(w *widget, id string, version int, status string, now int64) {
			w.ID = id
			w.Version = version
			w.Status = status
			w.UpdatedTime = now
		},
	}, logrus.New())
	require.NoError(t, err)

	return store, database.Wrap(sqlDB, "mysql", logrus.New()), mock
}

func TestNewStore_RejectsIncompleteSpec(t *testing.T) {
	_, err := NewStore(Spec[widget]{Entity: "widget", Table: "WIDGET"}, logrus.New())
	assert.Error(t, err)

	_, err = NewStore(Spec[widget]{
		Entity: "widget", Table: "WIDGET", IDColumn: "ID", StatusColumn: "STATUS",
		ActiveStatus: "ACTIVE", SupersededStatus: "SUPERSEDED",
		Columns: []string{"ID", "STATUS"},
		Stamp:   func(*widget, string, int, string, int64) {},
	}, logrus.New())
	assert.ErrorContains(t, err, "VERSION")
}

func TestCreateNewVersion_FirstVersion(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(VERSION\) FROM WIDGET WHERE ID = \? FOR UPDATE`).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows([]string{"MAX(VERSION)"}).AddRow(nil))
	mock.ExpectExec(`INSERT INTO WIDGET`).
		WithArgs("w1", 1, "ACTIVE", "first", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE WIDGET SET STATUS = \?, UPDATED_TIME = \? WHERE ID = \? AND STATUS = \? AND VERSION < \?`).
		WithArgs("SUPERSEDED", sqlmock.AnyArg(), "w1", "ACTIVE", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rec := &widget{Name: "first"}
	version, err := store.CreateNewVersion(context.Background(), db, "w1", rec)

	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "ACTIVE", rec.Status)
	assert.NotZero(t, rec.UpdatedTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNewVersion_SupersedesPrevious(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(VERSION\)`).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(VERSION)"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO WIDGET`).
		WithArgs("w1", 2, "ACTIVE", "second", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE WIDGET SET STATUS`).
		WithArgs("SUPERSEDED", sqlmock.AnyArg(), "w1", "ACTIVE", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	version, err := store.CreateNewVersion(context.Background(), db, "w1", &widget{Name: "second"})

	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// N sequential creations yield versions 1..N, each one superseding everything
// below it.
func TestCreateNewVersion_SequentialVersionsAreContiguous(t *testing.T) {
	store, db, mock := newWidgetStore(t)
	const n = 5

	for i := 1; i <= n; i++ {
		maxRow := sqlmock.NewRows([]string{"MAX(VERSION)"})
		if i == 1 {
			maxRow.AddRow(nil)
		} else {
			maxRow.AddRow(i - 1)
		}
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT MAX\(VERSION\)`).WillReturnRows(maxRow)
		mock.ExpectExec(`INSERT INTO WIDGET`).
			WithArgs("w1", i, "ACTIVE", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE WIDGET SET STATUS`).
			WithArgs("SUPERSEDED", sqlmock.AnyArg(), "w1", "ACTIVE", i).
			WillReturnResult(sqlmock.NewResult(0, int64(min(i-1, 1))))
		mock.ExpectCommit()
	}

	for i := 1; i <= n; i++ {
		version, err := store.CreateNewVersion(context.Background(), db, "w1", &widget{})
		require.NoError(t, err)
		assert.Equal(t, i, version)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNewVersion_DuplicateIsConflict(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(VERSION\)`).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(VERSION)"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO WIDGET`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := store.CreateNewVersion(context.Background(), db, "w1", &widget{})

	assert.True(t, serviceerror.Is(err, serviceerror.ConflictError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNewVersion_SupersedeFailureRollsBack(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT MAX\(VERSION\)`).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(VERSION)"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO WIDGET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE WIDGET SET STATUS`).WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := store.CreateNewVersion(context.Background(), db, "w1", &widget{})

	assert.True(t, serviceerror.Is(err, serviceerror.DatabaseError))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNewVersion_RequiresLogicalID(t *testing.T) {
	store, db, mock := newWidgetStore(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := store.CreateNewVersion(context.Background(), db, "", &widget{})

	assert.True(t, serviceerror.Is(err, serviceerror.ValidationError))
}

func TestGetActive(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectQuery(`SELECT ID, VERSION, STATUS, NAME, UPDATED_TIME FROM WIDGET WHERE ID = \? AND STATUS = \? ORDER BY VERSION DESC LIMIT 1`).
		WithArgs("w1", "ACTIVE").
		WillReturnRows(sqlmock.NewRows(widgetColumns).AddRow("w1", 2, "ACTIVE", "second", 10))

	rec, err := store.GetActive(context.Background(), db, "w1")

	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.Equal(t, "second", rec.Name)
}

func TestGetActive_NotFound(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectQuery(`FROM WIDGET WHERE ID = \? AND STATUS = \?`).
		WillReturnRows(sqlmock.NewRows(widgetColumns))

	_, err := store.GetActive(context.Background(), db, "missing")

	assert.True(t, serviceerror.Is(err, serviceerror.NotFoundError))
}

func TestGetVersion(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectQuery(`FROM WIDGET WHERE ID = \? AND VERSION = \?`).
		WithArgs("w1", 1).
		WillReturnRows(sqlmock.NewRows(widgetColumns).AddRow("w1", 1, "SUPERSEDED", "first", 10))

	rec, err := store.GetVersion(context.Background(), db, "w1", 1)

	require.NoError(t, err)
	assert.Equal(t, "SUPERSEDED", rec.Status)
}

func TestListVersions_NewestFirst(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectQuery(`FROM WIDGET WHERE ID = \? ORDER BY VERSION DESC`).
		WithArgs("w1").
		WillReturnRows(sqlmock.NewRows(widgetColumns).
			AddRow("w1", 3, "ACTIVE", "c", 30).
			AddRow("w1", 2, "SUPERSEDED", "b", 20).
			AddRow("w1", 1, "SUPERSEDED", "a", 10))

	records, err := store.ListVersions(context.Background(), db, "w1")

	require.NoError(t, err)
	require.Len(t, records, 3)
	active := 0
	for i, r := range records {
		assert.Equal(t, 3-i, r.Version)
		if r.Status == "ACTIVE" {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestListVersions_UnknownIDIsNotFound(t *testing.T) {
	store, db, mock := newWidgetStore(t)
	mock.ExpectQuery(`FROM WIDGET WHERE ID = \?`).WillReturnRows(sqlmock.NewRows(widgetColumns))

	_, err := store.ListVersions(context.Background(), db, "nope")

	assert.True(t, serviceerror.Is(err, serviceerror.NotFoundError))
}

func TestListActiveBy_RejectsUnknownColumn(t *testing.T) {
	store, db, _ := newWidgetStore(t)

	_, err := store.ListActiveBy(context.Background(), db, "NAME; DROP TABLE WIDGET", "x")

	assert.Error(t, err)
}

func TestListActiveBy(t *testing.T) {
	store, db, mock := newWidgetStore(t)

	mock.ExpectQuery(`FROM WIDGET WHERE NAME = \? AND STATUS = \? ORDER BY ID ASC`).
		WithArgs("x", "ACTIVE").
		WillReturnRows(sqlmock.NewRows(widgetColumns).AddRow("w1", 4, "ACTIVE", "x", 1))

	records, err := store.ListActiveBy(context.Background(), db, "NAME", "x")

	require.NoError(t, err)
	assert.Len(t, records, 1)
}
