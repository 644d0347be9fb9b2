package tenant

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
)

func newMock(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database.Wrap(sqlDB, "mysql", logrus.New()), mock
}

func countingOpener(t *testing.T, opens *int32, schemas *sync.Map) Opener {
	return func(cfg config.DatabaseConfig) (*database.DB, error) {
		atomic.AddInt32(opens, 1)
		if schemas != nil {
			schemas.Store(cfg.Database, true)
		}
		db, mock := newMock(t)
		mock.ExpectClose()
		return db, nil
	}
}

func TestResolve_EmptyTenantIsConfigurationError(t *testing.T) {
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New())

	_, err := r.Resolve(context.Background(), "")

	assert.True(t, serviceerror.Is(err, serviceerror.ConfigurationError))
}

func TestResolve_MalformedTenantIsConfigurationError(t *testing.T) {
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New())

	_, err := r.Resolve(context.Background(), "acme`; DROP")

	assert.True(t, serviceerror.Is(err, serviceerror.ConfigurationError))
}

func TestResolve_CachesPartition(t *testing.T) {
	var opens int32
	schemas := &sync.Map{}
	r := NewResolver(config.DatabaseConfig{Database: "system"}, "consent_tenant_", logrus.New(),
		WithOpener(countingOpener(t, &opens, schemas)))

	p1, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	p2, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, "consent_tenant_acme", p1.Schema)
	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
	_, ok := schemas.Load("consent_tenant_acme")
	assert.True(t, ok)
}

func TestResolve_ConcurrentFirstUseOpensOnce(t *testing.T) {
	var opens int32
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(countingOpener(t, &opens, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "acme")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
	assert.Equal(t, 1, r.Cached())
}

func TestResolve_TenantsAreIsolated(t *testing.T) {
	var opens int32
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(countingOpener(t, &opens, nil)))

	a, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), "globex")
	require.NoError(t, err)

	assert.NotSame(t, a.DB, b.DB)
	assert.Equal(t, 2, r.Cached())
	assert.NoError(t, r.Close())
	assert.Equal(t, 0, r.Cached())
}

func TestResolve_OpenFailureIsPartitionError(t *testing.T) {
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(func(config.DatabaseConfig) (*database.DB, error) {
			return nil, &mysql.MySQLError{Number: 1049, Message: "Unknown database"}
		}))

	_, err := r.Resolve(context.Background(), "ghost")

	assert.True(t, serviceerror.Is(err, serviceerror.PartitionError))
	assert.Equal(t, 0, r.Cached())
}

func TestResolve_NeverProvisions(t *testing.T) {
	system, sysMock := newMock(t)

	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithProvisioner(NewProvisioner(system, logrus.New())),
		WithOpener(func(config.DatabaseConfig) (*database.DB, error) {
			return nil, &mysql.MySQLError{Number: 1049, Message: "Unknown database"}
		}))

	_, err := r.Resolve(context.Background(), "ghost")

	assert.True(t, serviceerror.Is(err, serviceerror.PartitionError))
	assert.NoError(t, sysMock.ExpectationsWereMet())
	assert.Equal(t, 0, r.Cached())
}

func TestResolver_ProvisionCreatesAndCaches(t *testing.T) {
	system, sysMock := newMock(t)
	sysMock.ExpectExec(regexp.QuoteMeta("CREATE DATABASE IF NOT EXISTS `consent_tenant_acme`")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tenantDB, tenantMock := newMock(t)
	for range SchemaStatements() {
		tenantMock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithProvisioner(NewProvisioner(system, logrus.New())),
		WithOpener(func(config.DatabaseConfig) (*database.DB, error) { return tenantDB, nil }))

	p, err := r.Provision(context.Background(), "acme")
	require.NoError(t, err)
	assert.Same(t, tenantDB, p.DB)

	resolved, err := r.Resolve(context.Background(), "acme")
	require.NoError(t, err)
	assert.Same(t, p, resolved)

	assert.NoError(t, sysMock.ExpectationsWereMet())
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func TestResolver_ProvisionWithoutProvisioner(t *testing.T) {
	var opens int32
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(countingOpener(t, &opens, nil)))

	_, err := r.Provision(context.Background(), "acme")

	assert.True(t, serviceerror.Is(err, serviceerror.ConfigurationError))
	assert.Zero(t, atomic.LoadInt32(&opens))
}

func TestResolve_TenantOverflowingSchemaNameIsConfigurationError(t *testing.T) {
	var opens int32
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(countingOpener(t, &opens, nil)))

	_, err := r.Resolve(context.Background(), strings.Repeat("a", 50))
	assert.True(t, serviceerror.Is(err, serviceerror.ConfigurationError))

	_, err = r.Resolve(context.Background(), strings.Repeat("a", 49))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&opens))
}

// A slow first connection for one tenant must not hold up other tenants.
func TestResolve_SlowTenantDoesNotBlockOthers(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(func(cfg config.DatabaseConfig) (*database.DB, error) {
			if cfg.Database == "consent_tenant_slow" {
				close(entered)
				<-release
			}
			db, mock := newMock(t)
			mock.ExpectClose()
			return db, nil
		}))

	_, err := r.Resolve(context.Background(), "fast")
	require.NoError(t, err)

	slowDone := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), "slow")
		slowDone <- err
	}()
	<-entered

	fastDone := make(chan error, 2)
	go func() {
		_, err := r.Resolve(context.Background(), "fast")
		fastDone <- err
		_, err = r.Resolve(context.Background(), "other")
		fastDone <- err
	}()

	for i := 0; i < 2; i++ {
		select {
		case err := <-fastDone:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("resolution blocked behind a slow tenant connection")
		}
	}

	close(release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, 3, r.Cached())
}

func TestResolve_AfterCloseFails(t *testing.T) {
	var opens int32
	r := NewResolver(config.DatabaseConfig{}, "consent_tenant_", logrus.New(),
		WithOpener(countingOpener(t, &opens, nil)))
	require.NoError(t, r.Close())

	_, err := r.Resolve(context.Background(), "acme")

	assert.True(t, serviceerror.Is(err, serviceerror.PartitionError))
	assert.Equal(t, 0, r.Cached())
}

func TestProvision_ApplyFailureClosesConnection(t *testing.T) {
	system, sysMock := newMock(t)
	sysMock.ExpectExec("CREATE DATABASE").WillReturnResult(sqlmock.NewResult(0, 1))

	tenantDB, tenantMock := newMock(t)
	tenantMock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("access denied"))
	tenantMock.ExpectClose()

	p := NewProvisioner(system, logrus.New())
	_, err := p.Provision(context.Background(), "consent_tenant_acme", func() (*database.DB, error) {
		return tenantDB, nil
	})

	assert.ErrorContains(t, err, "access denied")
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func TestSchemaStatements_CoversEveryCollection(t *testing.T) {
	stmts := SchemaStatements()
	require.Len(t, stmts, 4)
	for i, table := range []string{"CONSENT_TEMPLATE", "CONSENT_HANDLE", "CONSENT ", "NOTIFICATION_TRIGGER"} {
		assert.Contains(t, stmts[i], table)
	}
}

func TestDiscovery_ListTenants(t *testing.T) {
	system, mock := newMock(t)
	mock.ExpectQuery("SELECT SCHEMA_NAME").
		WithArgs(`consent\_tenant\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"SCHEMA_NAME"}).
			AddRow("consent_tenant_acme").
			AddRow("consent_tenant_globex").
			AddRow("consent_tenant_"))

	tenants, err := NewDiscovery(system, "consent_tenant_").ListTenants(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, tenants)
}

func TestDiscovery_QueryFailure(t *testing.T) {
	system, mock := newMock(t)
	mock.ExpectQuery("SELECT SCHEMA_NAME").WillReturnError(errors.New("connection reset"))

	_, err := NewDiscovery(system, "consent_tenant_").ListTenants(context.Background())

	assert.ErrorContains(t, err, "connection reset")
}
