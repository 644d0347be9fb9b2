package consenttemplate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/mocks"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	dispatchmocks "github.com/wso2/consent-lifecycle-api/internal/dispatch/mocks"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
	tenantmocks "github.com/wso2/consent-lifecycle-api/internal/tenant/mocks"
)

// memoryStore keeps template versions per partition, with the same
// create/supersede rules as the SQL store.
type memoryStore struct {
	mu   sync.Mutex
	rows map[string][]model.ConsentTemplate
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string][]model.ConsentTemplate)}
}

func key(p *tenant.Partition, id string) string { return p.Schema + "/" + id }

func (s *memoryStore) CreateNewVersion(_ context.Context, p *tenant.Partition, templateID string, t *model.ConsentTemplate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(p, templateID)
	version := len(s.rows[k]) + 1
	for i := range s.rows[k] {
		s.rows[k][i].TemplateStatus = model.TemplateStatusSuperseded
	}
	t.TemplateID = templateID
	t.Version = version
	t.TemplateStatus = model.TemplateStatusActive
	s.rows[k] = append(s.rows[k], *t)
	return version, nil
}

func (s *memoryStore) GetActive(_ context.Context, p *tenant.Partition, templateID string) (*model.ConsentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[key(p, templateID)]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].IsActive() {
			t := rows[i]
			return &t, nil
		}
	}
	return nil, serviceerror.CustomServiceError(serviceerror.NotFoundError, "not found")
}

func (s *memoryStore) GetVersion(_ context.Context, p *tenant.Partition, templateID string, version int) (*model.ConsentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows[key(p, templateID)] {
		if r.Version == version {
			return &r, nil
		}
	}
	return nil, serviceerror.CustomServiceError(serviceerror.NotFoundError, "not found")
}

func (s *memoryStore) ListVersions(_ context.Context, p *tenant.Partition, templateID string) ([]model.ConsentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]model.ConsentTemplate(nil), s.rows[key(p, templateID)]...)
	if len(rows) == 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.NotFoundError, "not found")
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Version > rows[j].Version })
	return rows, nil
}

func (s *memoryStore) ListActiveByBusiness(_ context.Context, p *tenant.Partition, businessID string) ([]model.ConsentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ConsentTemplate
	for k, rows := range s.rows {
		if len(k) < len(p.Schema) || k[:len(p.Schema)] != p.Schema {
			continue
		}
		for _, r := range rows {
			if r.IsActive() && r.BusinessID == businessID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func sampleRequest() model.TemplateRequest {
	return model.TemplateRequest{
		BusinessID: "retail",
		Status:     model.PublishStatusPublished,
		Multilingual: map[string]model.LocalizedText{
			"en": {Title: "Marketing consent"},
		},
		Preferences: []model.Preference{
			{PurposeID: "marketing", Name: "Marketing", Mandatory: false},
			{PurposeID: "analytics", Name: "Analytics", Mandatory: true},
		},
	}
}

func newServiceUnderTest(store TemplateStore) (TemplateService, *dispatchmocks.MockDispatcher) {
	dispatcher := &dispatchmocks.MockDispatcher{}
	dispatcher.On("Audit", mock.Anything, mock.Anything).Return()
	return NewTemplateService(tenantmocks.StaticResolver{}, store, dispatcher, logrus.New()), dispatcher
}

func TestTemplateLifecycle_UpdateSupersedesPreviousVersion(t *testing.T) {
	ctx := context.Background()
	svc, dispatcher := newServiceUnderTest(newMemoryStore())

	v1, err := svc.CreateTemplate(ctx, "acme", sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, v1.Version)

	update := sampleRequest()
	update.Multilingual["en"] = model.LocalizedText{Title: "Marketing consent v2"}
	v2, err := svc.UpdateTemplate(ctx, "acme", v1.TemplateID, update)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	active, err := svc.GetActiveTemplate(ctx, "acme", v1.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, "Marketing consent v2", active.Multilingual.Data["en"].Title)

	old, err := svc.GetTemplateVersion(ctx, "acme", v1.TemplateID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TemplateStatusSuperseded, old.TemplateStatus)

	dispatcher.AssertNumberOfCalls(t, "Audit", 2)
	dispatcher.AssertCalled(t, "Audit", mock.Anything, mock.MatchedBy(func(e dispatch.AuditEvent) bool {
		p, ok := e.Payload.(dispatch.TemplateEventPayload)
		return ok && p.Type == dispatch.EventTemplateUpdated && p.Version == 2
	}))
}

func TestTemplateLifecycle_VersionsAreContiguousWithSingleActive(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{1, 2, 7} {
		t.Run(fmt.Sprintf("%d versions", n), func(t *testing.T) {
			svc, _ := newServiceUnderTest(newMemoryStore())

			created, err := svc.CreateTemplate(ctx, "acme", sampleRequest())
			require.NoError(t, err)
			for i := 1; i < n; i++ {
				_, err := svc.UpdateTemplate(ctx, "acme", created.TemplateID, sampleRequest())
				require.NoError(t, err)
			}

			versions, err := svc.ListTemplateVersions(ctx, "acme", created.TemplateID)
			require.NoError(t, err)
			require.Len(t, versions, n)

			active := 0
			for i, v := range versions {
				assert.Equal(t, n-i, v.Version)
				if v.IsActive() {
					active++
					assert.Equal(t, n, v.Version)
				}
			}
			assert.Equal(t, 1, active)
		})
	}
}

func TestTemplateLifecycle_TenantsDoNotSeeEachOther(t *testing.T) {
	ctx := context.Background()
	svc, _ := newServiceUnderTest(newMemoryStore())

	created, err := svc.CreateTemplate(ctx, "acme", sampleRequest())
	require.NoError(t, err)

	_, err = svc.GetActiveTemplate(ctx, "globex", created.TemplateID)
	assert.True(t, serviceerror.Is(err, serviceerror.NotFoundError))
}

func TestCreateTemplate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.TemplateRequest)
	}{
		{"missing business", func(r *model.TemplateRequest) { r.BusinessID = "" }},
		{"bad status", func(r *model.TemplateRequest) { r.Status = "LIVE" }},
		{"no languages", func(r *model.TemplateRequest) { r.Multilingual = nil }},
		{"no preferences", func(r *model.TemplateRequest) { r.Preferences = nil }},
		{"duplicate purpose", func(r *model.TemplateRequest) {
			r.Preferences = append(r.Preferences, model.Preference{PurposeID: "marketing", Name: "dup"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.MockTemplateStore{}
			svc, _ := newServiceUnderTest(store)
			req := sampleRequest()
			tt.mutate(&req)

			_, err := svc.CreateTemplate(context.Background(), "acme", req)

			assert.True(t, serviceerror.Is(err, serviceerror.ValidationError))
			store.AssertNotCalled(t, "CreateNewVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateTemplate_UnknownTemplate(t *testing.T) {
	store := &mocks.MockTemplateStore{}
	store.On("GetActive", mock.Anything, mock.Anything, "TEMPLATE-x").
		Return(nil, serviceerror.CustomServiceError(serviceerror.NotFoundError, "not found"))
	svc, dispatcher := newServiceUnderTest(store)

	_, err := svc.UpdateTemplate(context.Background(), "acme", "TEMPLATE-x", sampleRequest())

	assert.True(t, serviceerror.Is(err, serviceerror.NotFoundError))
	dispatcher.AssertNotCalled(t, "Audit", mock.Anything, mock.Anything)
}

func TestUpdateTemplate_RejectsOtherBusiness(t *testing.T) {
	store := &mocks.MockTemplateStore{}
	store.On("GetActive", mock.Anything, mock.Anything, "TEMPLATE-1").
		Return(&model.ConsentTemplate{TemplateID: "TEMPLATE-1", BusinessID: "wholesale"}, nil)
	svc, _ := newServiceUnderTest(store)

	_, err := svc.UpdateTemplate(context.Background(), "acme", "TEMPLATE-1", sampleRequest())

	assert.True(t, serviceerror.Is(err, serviceerror.ValidationError))
}

func TestCreateTemplate_StoreFailureSkipsAudit(t *testing.T) {
	store := &mocks.MockTemplateStore{}
	store.On("CreateNewVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, serviceerror.Wrap(serviceerror.DatabaseError, errors.New("deadlock")))
	svc, dispatcher := newServiceUnderTest(store)

	_, err := svc.CreateTemplate(context.Background(), "acme", sampleRequest())

	assert.True(t, serviceerror.Is(err, serviceerror.DatabaseError))
	dispatcher.AssertNotCalled(t, "Audit", mock.Anything, mock.Anything)
}

func TestCreateTemplate_PartitionFailure(t *testing.T) {
	resolver := &tenantmocks.MockResolver{}
	resolver.On("Resolve", mock.Anything, "acme").
		Return(nil, serviceerror.CustomServiceError(serviceerror.PartitionError, "down"))
	svc := NewTemplateService(resolver, &mocks.MockTemplateStore{}, &dispatchmocks.MockDispatcher{}, logrus.New())

	_, err := svc.CreateTemplate(context.Background(), "acme", sampleRequest())

	assert.True(t, serviceerror.Is(err, serviceerror.PartitionError))
}

func TestListActiveTemplates_RequiresBusiness(t *testing.T) {
	svc, _ := newServiceUnderTest(newMemoryStore())

	_, err := svc.ListActiveTemplates(context.Background(), "acme", "")

	assert.True(t, serviceerror.Is(err, serviceerror.ValidationError))
}

func TestGetTemplateVersion_RejectsNonPositive(t *testing.T) {
	svc, _ := newServiceUnderTest(newMemoryStore())

	_, err := svc.GetTemplateVersion(context.Background(), "acme", "TEMPLATE-1", 0)

	assert.True(t, serviceerror.Is(err, serviceerror.ValidationError))
}
