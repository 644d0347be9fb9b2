package consenthandle

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wso2/consent-lifecycle-api/internal/consenthandle/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/middleware"
)

type HandleAPITestSuite struct {
	suite.Suite
	fixture *serviceFixture
	router  *gin.Engine
}

func (ts *HandleAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	ts.fixture = newFixture("https://consent.example.com/capture/%s")

	ts.router = gin.New()
	api := ts.router.Group("/api/v1", middleware.CorrelationIDMiddleware(), middleware.TenantMiddleware("consent_tenant_"))
	registerRoutes(api, newHandleHandler(ts.fixture.service))
}

func (ts *HandleAPITestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		ts.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "acme")
	req.Header.Set("X-Business-Id", "retail")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *HandleAPITestSuite) TestCreateHandle() {
	ts.fixture.templates.On("GetActive", mock.Anything, mock.Anything, "TEMPLATE-1").Return(publishedTemplate(), nil)
	ts.fixture.store.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	w := ts.do(http.MethodPost, "/api/v1/consent-handles", createRequest())

	ts.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var h model.ConsentHandle
	ts.Require().NoError(json.Unmarshal(w.Body.Bytes(), &h))
	ts.Equal("PENDING", string(h.Status))
	ts.Contains(h.URL, h.ConsentHandleID)
}

func (ts *HandleAPITestSuite) TestCreateHandle_MissingCustomer() {
	w := ts.do(http.MethodPost, "/api/v1/consent-handles", map[string]any{"templateId": "TEMPLATE-1"})

	ts.Equal(http.StatusBadRequest, w.Code)
}

func (ts *HandleAPITestSuite) TestGetHandle_NotFound() {
	ts.fixture.store.On("GetByID", mock.Anything, mock.Anything, "HANDLE-x").
		Return(nil, serviceerror.CustomServiceError(serviceerror.NotFoundError, "consent handle 'HANDLE-x' not found"))

	w := ts.do(http.MethodGet, "/api/v1/consent-handles/HANDLE-x", nil)

	ts.Equal(http.StatusNotFound, w.Code)
}

func TestHandleAPITestSuite(t *testing.T) {
	suite.Run(t, new(HandleAPITestSuite))
}
