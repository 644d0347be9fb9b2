// Package versioning implements the create/activate/supersede lifecycle shared
// by consent templates and consents. Every change inserts a new version row;
// exactly one row per logical id carries the active status.
package versioning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

// Spec describes how a versioned entity is laid out in its table.
type Spec[T any] struct {
	// Entity is used in error messages, e.g. "consent template".
	Entity           string
	Table            string
	IDColumn         string
	StatusColumn     string
	UpdatedColumn    string
	ActiveStatus     string
	SupersededStatus string
	// Columns lists every column, matching the db tags of T.
	Columns []string
	// Stamp writes the logical id, version, lifecycle status and timestamps
	// into a record before it is inserted.
	Stamp func(rec *T, logicalID string, version int, status string, now int64)
}

// Store runs versioned reads and writes for one entity type. It holds no
// connection; callers pass the tenant partition's database on every call.
type Store[T any] struct {
	spec    Spec[T]
	columns map[string]struct{}
	logger  *logrus.Logger

	selectQuery     string
	insertQuery     string
	maxVersionQuery string
	supersedeQuery  string
}

// NewStore validates the table layout and prepares its queries.
func NewStore[T any](spec Spec[T], logger *logrus.Logger) (*Store[T], error) {
	if spec.Table == "" || spec.IDColumn == "" || spec.StatusColumn == "" {
		return nil, fmt.Errorf("versioned spec for %q needs table, id and status columns", spec.Entity)
	}
	if spec.ActiveStatus == "" || spec.SupersededStatus == "" {
		return nil, fmt.Errorf("versioned spec for %q needs active and superseded values", spec.Entity)
	}
	if spec.Stamp == nil {
		return nil, fmt.Errorf("versioned spec for %q needs a stamp function", spec.Entity)
	}

	cols := make(map[string]struct{}, len(spec.Columns))
	named := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		cols[c] = struct{}{}
		named = append(named, ":"+c)
	}
	for _, required := range []string{spec.IDColumn, "VERSION", spec.StatusColumn} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("versioned spec for %q is missing column %s", spec.Entity, required)
		}
	}

	columnList := strings.Join(spec.Columns, ", ")
	s := &Store[T]{
		spec:    spec,
		columns: cols,
		logger:  logger,

		selectQuery: fmt.Sprintf("SELECT %s FROM %s", columnList, spec.Table),
		insertQuery: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			spec.Table, columnList, strings.Join(named, ", ")),
		maxVersionQuery: fmt.Sprintf("SELECT MAX(VERSION) FROM %s WHERE %s = ? FOR UPDATE",
			spec.Table, spec.IDColumn),
	}

	if spec.UpdatedColumn != "" {
		s.supersedeQuery = fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE %s = ? AND %s = ? AND VERSION < ?",
			spec.Table, spec.StatusColumn, spec.UpdatedColumn, spec.IDColumn, spec.StatusColumn)
	} else {
		s.supersedeQuery = fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ? AND %s = ? AND VERSION < ?",
			spec.Table, spec.StatusColumn, spec.IDColumn, spec.StatusColumn)
	}

	return s, nil
}

// CreateNewVersion inserts rec as the next version of logicalID and
// supersedes the previously active version in the same transaction.
func (s *Store[T]) CreateNewVersion(ctx context.Context, db *database.DB, logicalID string, rec *T) (int, error) {
	var version int
	err := db.WithTransaction(ctx, func(tx *database.Tx) error {
		v, err := s.CreateNewVersionTx(ctx, tx, logicalID, rec)
		version = v
		return err
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// CreateNewVersionTx is CreateNewVersion for callers that already hold a
// transaction. The MAX(VERSION) read locks the logical id's rows, so
// concurrent creators for the same id are serialised.
func (s *Store[T]) CreateNewVersionTx(ctx context.Context, tx *database.Tx, logicalID string, rec *T) (int, error) {
	if logicalID == "" {
		return 0, serviceerror.CustomServiceError(serviceerror.ValidationError,
			fmt.Sprintf("%s id is required", s.spec.Entity))
	}

	var maxVersion sql.NullInt64
	if err := tx.GetContext(ctx, &maxVersion, s.maxVersionQuery, logicalID); err != nil {
		return 0, serviceerror.Wrapf(serviceerror.DatabaseError, err,
			"failed to read latest %s version", s.spec.Entity)
	}

	version := 1
	if maxVersion.Valid {
		version = int(maxVersion.Int64) + 1
	}

	now := utils.GetCurrentTimeMillis()
	s.spec.Stamp(rec, logicalID, version, s.spec.ActiveStatus, now)

	if _, err := tx.NamedExecContext(ctx, s.insertQuery, rec); err != nil {
		if database.IsDuplicateKey(err) {
			return 0, serviceerror.CustomServiceError(serviceerror.ConflictError,
				fmt.Sprintf("%s '%s' version %d already exists", s.spec.Entity, logicalID, version))
		}
		return 0, serviceerror.Wrapf(serviceerror.DatabaseError, err,
			"failed to insert %s version", s.spec.Entity)
	}

	args := []any{s.spec.SupersededStatus}
	if s.spec.UpdatedColumn != "" {
		args = append(args, now)
	}
	args = append(args, logicalID, s.spec.ActiveStatus, version)

	result, err := tx.ExecContext(ctx, s.supersedeQuery, args...)
	if err != nil {
		return 0, serviceerror.Wrapf(serviceerror.DatabaseError, err,
			"failed to supersede previous %s version", s.spec.Entity)
	}
	superseded, _ := result.RowsAffected()

	s.logger.WithFields(logrus.Fields{
		"entity":     s.spec.Entity,
		"logical_id": logicalID,
		"version":    version,
		"superseded": superseded,
	}).Debug("Created new version")

	return version, nil
}

// GetActive returns the active version of logicalID. Should more than one row
// look active, the highest version wins.
func (s *Store[T]) GetActive(ctx context.Context, q sqlx.QueryerContext, logicalID string) (*T, error) {
	query := s.selectQuery + fmt.Sprintf(" WHERE %s = ? AND %s = ? ORDER BY VERSION DESC LIMIT 1",
		s.spec.IDColumn, s.spec.StatusColumn)
	return s.getOne(ctx, q, query, fmt.Sprintf("%s '%s' not found", s.spec.Entity, logicalID),
		logicalID, s.spec.ActiveStatus)
}

// GetVersion returns one version of logicalID.
func (s *Store[T]) GetVersion(ctx context.Context, q sqlx.QueryerContext, logicalID string, version int) (*T, error) {
	query := s.selectQuery + fmt.Sprintf(" WHERE %s = ? AND VERSION = ?", s.spec.IDColumn)
	return s.getOne(ctx, q, query,
		fmt.Sprintf("%s '%s' version %d not found", s.spec.Entity, logicalID, version),
		logicalID, version)
}

// ListVersions returns every version of logicalID, newest first.
func (s *Store[T]) ListVersions(ctx context.Context, q sqlx.QueryerContext, logicalID string) ([]T, error) {
	query := s.selectQuery + fmt.Sprintf(" WHERE %s = ? ORDER BY VERSION DESC", s.spec.IDColumn)

	var records []T
	if err := sqlx.SelectContext(ctx, q, &records, query, logicalID); err != nil {
		return nil, serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to list %s versions", s.spec.Entity)
	}
	if len(records) == 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.NotFoundError,
			fmt.Sprintf("%s '%s' not found", s.spec.Entity, logicalID))
	}
	return records, nil
}

// ListActiveBy returns the active versions whose column equals value.
func (s *Store[T]) ListActiveBy(ctx context.Context, q sqlx.QueryerContext, column, value string) ([]T, error) {
	if _, ok := s.columns[column]; !ok {
		return nil, fmt.Errorf("unknown %s column %q", s.spec.Entity, column)
	}
	query := s.selectQuery + fmt.Sprintf(" WHERE %s = ? AND %s = ? ORDER BY %s ASC",
		column, s.spec.StatusColumn, s.spec.IDColumn)

	records := []T{}
	if err := sqlx.SelectContext(ctx, q, &records, query, value, s.spec.ActiveStatus); err != nil {
		return nil, serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to list active %s records", s.spec.Entity)
	}
	return records, nil
}

func (s *Store[T]) getOne(ctx context.Context, q sqlx.QueryerContext, query, notFound string, args ...any) (*T, error) {
	var rec T
	if err := sqlx.GetContext(ctx, q, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, serviceerror.CustomServiceError(serviceerror.NotFoundError, notFound)
		}
		return nil, serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to read %s", s.spec.Entity)
	}
	return &rec, nil
}
