package consenttemplate

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	dispatchmocks "github.com/wso2/consent-lifecycle-api/internal/dispatch/mocks"
	"github.com/wso2/consent-lifecycle-api/internal/system/middleware"
	tenantmocks "github.com/wso2/consent-lifecycle-api/internal/tenant/mocks"
)

type TemplateAPITestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (ts *TemplateAPITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	dispatcher := &dispatchmocks.MockDispatcher{}
	dispatcher.On("Audit", mock.Anything, mock.Anything).Return()

	ts.router = gin.New()
	api := ts.router.Group("/api/v1", middleware.CorrelationIDMiddleware(), middleware.TenantMiddleware("consent_tenant_"))
	Initialize(api, tenantmocks.StaticResolver{}, newMemoryStore(), dispatcher, logrus.New())
}

func (ts *TemplateAPITestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
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

func (ts *TemplateAPITestSuite) createTemplate() model.ConsentTemplate {
	w := ts.do(http.MethodPost, "/api/v1/templates", sampleRequest())
	ts.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var tpl model.ConsentTemplate
	ts.Require().NoError(json.Unmarshal(w.Body.Bytes(), &tpl))
	return tpl
}

func (ts *TemplateAPITestSuite) TestCreateTemplate_Succeeds() {
	tpl := ts.createTemplate()

	ts.NotEmpty(tpl.TemplateID)
	ts.Equal(1, tpl.Version)
	ts.Equal(model.TemplateStatusActive, tpl.TemplateStatus)
	ts.Equal("retail", tpl.BusinessID)
}

func (ts *TemplateAPITestSuite) TestCreateTemplate_BusinessFromHeader() {
	req := sampleRequest()
	req.BusinessID = ""
	w := ts.do(http.MethodPost, "/api/v1/templates", req)

	ts.Equal(http.StatusCreated, w.Code)
	ts.Contains(w.Body.String(), `"businessId":"retail"`)
}

func (ts *TemplateAPITestSuite) TestCreateTemplate_InvalidBody() {
	w := ts.do(http.MethodPost, "/api/v1/templates", map[string]any{"status": "PUBLISHED"})

	ts.Equal(http.StatusBadRequest, w.Code)
}

func (ts *TemplateAPITestSuite) TestUpdateAndReadVersions() {
	tpl := ts.createTemplate()

	w := ts.do(http.MethodPut, "/api/v1/templates/"+tpl.TemplateID, sampleRequest())
	ts.Require().Equal(http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/templates/"+tpl.TemplateID, nil)
	ts.Equal(http.StatusOK, w.Code)
	ts.Contains(w.Body.String(), `"version":2`)

	w = ts.do(http.MethodGet, "/api/v1/templates/"+tpl.TemplateID+"/versions", nil)
	ts.Equal(http.StatusOK, w.Code)
	var list model.TemplateListResponse
	ts.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	ts.Equal(2, list.Total)
	ts.Equal(2, list.Data[0].Version)

	w = ts.do(http.MethodGet, "/api/v1/templates/"+tpl.TemplateID+"/versions/1", nil)
	ts.Equal(http.StatusOK, w.Code)
	ts.Contains(w.Body.String(), `"templateStatus":"SUPERSEDED"`)

	w = ts.do(http.MethodGet, "/api/v1/templates?businessId=retail", nil)
	ts.Equal(http.StatusOK, w.Code)
	ts.Contains(w.Body.String(), `"total":1`)
}

func (ts *TemplateAPITestSuite) TestUpdateUnknownTemplate_NotFound() {
	w := ts.do(http.MethodPut, "/api/v1/templates/TEMPLATE-missing", sampleRequest())

	ts.Equal(http.StatusNotFound, w.Code)
}

func (ts *TemplateAPITestSuite) TestGetVersion_BadVersion() {
	w := ts.do(http.MethodGet, "/api/v1/templates/TEMPLATE-1/versions/latest", nil)

	ts.Equal(http.StatusBadRequest, w.Code)
}

func (ts *TemplateAPITestSuite) TestMissingTenantHeader() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates/TEMPLATE-1", nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	ts.Equal(http.StatusBadRequest, w.Code)
}

func TestTemplateAPITestSuite(t *testing.T) {
	suite.Run(t, new(TemplateAPITestSuite))
}
