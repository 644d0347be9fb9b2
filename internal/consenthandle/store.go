package consenthandle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wso2/consent-lifecycle-api/internal/consenthandle/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	dbmodel "github.com/wso2/consent-lifecycle-api/internal/system/database/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// HandleStore defines the data access operations for consent handles
type HandleStore interface {
	Create(ctx context.Context, p *tenant.Partition, h *model.ConsentHandle) error
	GetByID(ctx context.Context, p *tenant.Partition, handleID string) (*model.ConsentHandle, error)
	// ConsumeTx moves a PENDING, unexpired handle to CONSUMED inside tx.
	ConsumeTx(ctx context.Context, tx *database.Tx, handleID string, now int64) error
	// ExpirePending moves every PENDING handle whose expiry lies before now to
	// REQ_EXPIRED and returns the number of handles changed.
	ExpirePending(ctx context.Context, p *tenant.Partition, now int64) (int64, error)
}

var (
	queryCreateHandle = dbmodel.DBQuery{
		ID: "CH-01",
		Query: `INSERT INTO CONSENT_HANDLE
			(ID, TEMPLATE_ID, TEMPLATE_VERSION, BUSINESS_ID, CUSTOMER_IDENTIFIERS, STATUS,
			 EXPIRES_AT, URL, CREATED_TIME, UPDATED_TIME)
			VALUES (:ID, :TEMPLATE_ID, :TEMPLATE_VERSION, :BUSINESS_ID, :CUSTOMER_IDENTIFIERS, :STATUS,
			 :EXPIRES_AT, :URL, :CREATED_TIME, :UPDATED_TIME)`,
	}

	queryGetHandle = dbmodel.DBQuery{
		ID: "CH-02",
		Query: `SELECT ID, TEMPLATE_ID, TEMPLATE_VERSION, BUSINESS_ID, CUSTOMER_IDENTIFIERS, STATUS,
			EXPIRES_AT, URL, CREATED_TIME, UPDATED_TIME
			FROM CONSENT_HANDLE WHERE ID = ?`,
	}

	queryConsumeHandle = dbmodel.DBQuery{
		ID: "CH-03",
		Query: `UPDATE CONSENT_HANDLE SET STATUS = ?, UPDATED_TIME = ?
			WHERE ID = ? AND STATUS = ? AND EXPIRES_AT >= ?`,
	}

	queryExpirePendingHandles = dbmodel.DBQuery{
		ID: "CH-04",
		Query: `UPDATE CONSENT_HANDLE SET STATUS = ?, UPDATED_TIME = ?
			WHERE STATUS = ? AND EXPIRES_AT < ?`,
	}
)

type store struct {
	dbType string
}

// NewHandleStore creates the sqlx-backed consent handle store
func NewHandleStore(dbType string) HandleStore {
	return &store{dbType: dbType}
}

func (s *store) Create(ctx context.Context, p *tenant.Partition, h *model.ConsentHandle) error {
	if _, err := p.DB.NamedExecContext(ctx, queryCreateHandle.GetQuery(s.dbType), h); err != nil {
		if database.IsDuplicateKey(err) {
			return serviceerror.CustomServiceError(serviceerror.ConflictError,
				fmt.Sprintf("consent handle '%s' already exists", h.ConsentHandleID))
		}
		return serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to create consent handle")
	}
	return nil
}

func (s *store) GetByID(ctx context.Context, p *tenant.Partition, handleID string) (*model.ConsentHandle, error) {
	var handle model.ConsentHandle
	if err := p.DB.GetContext(ctx, &handle, queryGetHandle.GetQuery(s.dbType), handleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, serviceerror.CustomServiceError(serviceerror.NotFoundError,
				fmt.Sprintf("consent handle '%s' not found", handleID))
		}
		return nil, serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to get consent handle")
	}
	return &handle, nil
}

func (s *store) ConsumeTx(ctx context.Context, tx *database.Tx, handleID string, now int64) error {
	result, err := tx.ExecContext(ctx, queryConsumeHandle.GetQuery(s.dbType),
		model.HandleStatusConsumed, now, handleID, model.HandleStatusPending, now)
	if err != nil {
		return serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to consume consent handle")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return serviceerror.Wrapf(serviceerror.DatabaseError, err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return serviceerror.CustomServiceError(serviceerror.ConflictError,
			fmt.Sprintf("consent handle '%s' is no longer usable", handleID))
	}
	return nil
}

func (s *store) ExpirePending(ctx context.Context, p *tenant.Partition, now int64) (int64, error) {
	result, err := p.DB.ExecContext(ctx, queryExpirePendingHandles.GetQuery(s.dbType),
		model.HandleStatusReqExpired, now, model.HandleStatusPending, now)
	if err != nil {
		return 0, serviceerror.Wrapf(serviceerror.DatabaseError, err,
			"failed to expire consent handles in %s", p.Schema)
	}
	return result.RowsAffected()
}
