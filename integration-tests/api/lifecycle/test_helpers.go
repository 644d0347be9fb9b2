// Package lifecycle exercises the template, handle and consent APIs against a
// real MySQL server configured in cmd/server/repository/conf/deployment.yaml.
package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/wso2/consent-lifecycle-api/internal/consent"
	"github.com/wso2/consent-lifecycle-api/internal/consenthandle"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/expiry"
	"github.com/wso2/consent-lifecycle-api/internal/router"
	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/database"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// TestEnvironment holds test dependencies for API tests
type TestEnvironment struct {
	Router   http.Handler
	TenantID string
	Config   *config.Config
	Logger   *logrus.Logger
	SystemDB *database.DB
	Resolver *tenant.Resolver
	Handles  consenthandle.HandleStore
	Sweeper  *expiry.Sweeper
}

// SetupTestEnvironment builds the full router over a freshly provisioned
// tenant partition. The partition is dropped when the test ends.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	cfg, err := config.Load("../../../cmd/server/repository/conf/deployment.yaml")
	require.NoError(t, err, "Failed to load config")

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	systemDB, err := database.Open(&cfg.Database.System, logger)
	require.NoError(t, err, "Failed to initialize database")

	resolver := tenant.NewResolver(cfg.Database.System, cfg.Tenancy.DatabasePrefix, logger,
		tenant.WithProvisioner(tenant.NewProvisioner(systemDB, logger)))

	dbType := cfg.Database.System.Type
	templates := consenttemplate.NewTemplateStore(logger)
	handles := consenthandle.NewHandleStore(dbType)
	consents := consent.NewConsentStore(handles, logger)
	dispatcher := dispatch.NewManager(resolver, dispatch.NewTriggerStore(dbType), logger)

	registry := prometheus.NewRegistry()
	sweeper := expiry.NewSweeper(tenant.NewDiscovery(systemDB, cfg.Tenancy.DatabasePrefix),
		resolver, handles, logger, expiry.WithMetrics(expiry.NewMetrics(registry)))

	env := &TestEnvironment{
		Router: router.SetupRouter(router.Dependencies{
			Config:     cfg,
			Logger:     logger,
			Resolver:   resolver,
			Templates:  templates,
			Handles:    handles,
			Consents:   consents,
			Dispatcher: dispatcher,
			Health:     systemDB,
			Gatherer:   registry,
		}),
		TenantID: "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Config:   cfg,
		Logger:   logger,
		SystemDB: systemDB,
		Resolver: resolver,
		Handles:  handles,
		Sweeper:  sweeper,
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_ = dispatcher.Close(ctx)
		_ = resolver.Close()
		schema := tenant.SchemaName(cfg.Tenancy.DatabasePrefix, env.TenantID)
		if _, err := systemDB.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", schema)); err != nil {
			t.Logf("failed to drop %s: %v", schema, err)
		}
		_ = systemDB.Close()
	})

	_, err = resolver.Provision(context.Background(), env.TenantID)
	require.NoError(t, err, "Failed to provision tenant partition")

	return env
}

// Do sends a JSON request as the test tenant and business "retail".
func (env *TestEnvironment) Do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", env.TenantID)
	req.Header.Set("X-Business-Id", "retail")

	recorder := httptest.NewRecorder()
	env.Router.ServeHTTP(recorder, req)
	return recorder
}

// DecodeJSON unmarshals a response body into v.
func DecodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), v), recorder.Body.String())
}

// CreatePublishedTemplate creates a template with one optional and one
// mandatory purpose and returns its id.
func CreatePublishedTemplate(t *testing.T, env *TestEnvironment) string {
	t.Helper()

	recorder := env.Do(t, http.MethodPost, "/api/v1/templates", map[string]any{
		"status": "PUBLISHED",
		"multilingual": map[string]any{
			"en": map[string]string{"title": "Marketing consent"},
		},
		"preferences": []map[string]any{
			{"purposeId": "marketing", "name": "Marketing", "mandatory": false},
			{"purposeId": "analytics", "name": "Analytics", "mandatory": true},
		},
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created struct {
		TemplateID string `json:"templateId"`
	}
	DecodeJSON(t, recorder, &created)
	require.NotEmpty(t, created.TemplateID)
	return created.TemplateID
}

// IssueHandle issues a consent handle for customer on templateID.
func IssueHandle(t *testing.T, env *TestEnvironment, templateID, customer string) string {
	t.Helper()

	recorder := env.Do(t, http.MethodPost, "/api/v1/consent-handles", map[string]any{
		"templateId": templateID,
		"customerIdentifiers": map[string]string{
			"type":  "email",
			"value": customer,
		},
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var handle struct {
		ConsentHandleID string `json:"consentHandleId"`
	}
	DecodeJSON(t, recorder, &handle)
	require.NotEmpty(t, handle.ConsentHandleID)
	return handle.ConsentHandleID
}

// ConsentBody builds a consent request with both purposes accepted.
func ConsentBody(handleID string) map[string]any {
	return map[string]any{
		"consentHandleId": handleID,
		"preferencesStatus": map[string]string{
			"marketing": "ACCEPTED",
			"analytics": "ACCEPTED",
		},
	}
}
