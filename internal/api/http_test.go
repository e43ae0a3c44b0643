package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bher20/eimpactmanager/internal/advisor"
	"github.com/bher20/eimpactmanager/internal/auth"
	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/impact"
	"github.com/bher20/eimpactmanager/internal/notification"
	"github.com/bher20/eimpactmanager/internal/report"
	"github.com/bher20/eimpactmanager/internal/rules"
	"github.com/bher20/eimpactmanager/internal/storage"
)

type sentMail struct {
	msgs []notification.Message
}

func (s *sentMail) Send(_ context.Context, _ *storage.EmailConfig, msg notification.Message) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

type fixture struct {
	mux   *http.ServeMux
	store storage.Storage
	auth  *auth.Service
	mail  *sentMail
}

func newFixture(t *testing.T, withAuth bool) *fixture {
	t.Helper()
	st := storage.NewMemory()
	f := &fixture{store: st, mail: &sentMail{}}
	d := Deps{
		Storage:       st,
		Impact:        impact.NewService(st),
		Notifications: notification.NewService(st, notification.WithTransport(f.mail)),
	}
	if withAuth {
		svc, err := auth.NewService(st)
		require.NoError(t, err)
		d.Auth = svc
		f.auth = svc
	}
	f.mux = NewMux(d)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndDocs(t *testing.T) {
	f := newFixture(t, false)

	for path, want := range map[string]string{"/healthz": "ok", "/livez": "live", "/readyz": "ready"} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}

	rec := f.do(t, http.MethodGet, "/swagger/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/calculations/carbon")

	rec = f.do(t, http.MethodGet, "/swagger/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swagger-ui")

	rec = f.do(t, http.MethodGet, "/swagger/openapi.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/portfolio")

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCarbonAndCost(t *testing.T) {
	f := newFixture(t, false)
	body := map[string]any{
		"usage":    map[string]any{"monthly_kwh": 5000, "monthly_therms": 200},
		"location": "Los Angeles, California",
	}

	rec := f.do(t, http.MethodPost, "/api/v1/calculations/carbon", body)
	require.Equal(t, http.StatusOK, rec.Code)
	carbon := decode[calc.CarbonFootprint](t, rec)
	assert.InDelta(t, 3255, carbon.MonthlyElectricityLbs, 0.01)
	assert.InDelta(t, 2340, carbon.MonthlyGasLbs, 0.01)
	assert.InDelta(t, 33.57, carbon.AnnualTotalTons, 0.01)

	rec = f.do(t, http.MethodPost, "/api/v1/calculations/cost", body)
	require.Equal(t, http.StatusOK, rec.Code)
	cost := decode[calc.EnergyCost](t, rec)
	assert.Equal(t, 0.2245, cost.ElectricityRate)
	assert.True(t, cost.AverageRate.Defined)
}

func TestCalculationValidation(t *testing.T) {
	f := newFixture(t, false)

	tests := []struct {
		name string
		path string
		body any
	}{
		{name: "negative usage", path: "/api/v1/calculations/carbon", body: map[string]any{"usage": map[string]any{"monthly_kwh": -1}}},
		{name: "malformed json", path: "/api/v1/calculations/cost", body: "{"},
		{name: "negative cost", path: "/api/v1/calculations/roi", body: map[string]any{"implementation_cost": -5}},
		{name: "bad difficulty", path: "/api/v1/calculations/priority", body: map[string]any{"difficulty": "trivial"}},
		{name: "roof share above one", path: "/api/v1/calculations/solar", body: map[string]any{"facility_sqft": 1000, "roof_usable_percent": 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestEquivalentsPriorityAndSolar(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/v1/calculations/equivalents", map[string]any{"co2_tons": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	eq := decode[calc.Equivalents](t, rec)
	assert.Equal(t, calc.Equivalents{TreesPlanted: 825, CarsOffRoad: 11, HomesPowered: 9, GallonsGasoline: 5650}, eq)

	rec = f.do(t, http.MethodPost, "/api/v1/calculations/priority", map[string]any{
		"roi_months": nil, "annual_savings": 20000, "co2_tons": 12, "difficulty": "easy", "energy_usage": 9000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	score := decode[map[string]float64](t, rec)["priority_score"]
	assert.GreaterOrEqual(t, score, 0.1)
	assert.LessOrEqual(t, score, 1.0)

	rec = f.do(t, http.MethodPost, "/api/v1/calculations/solar", map[string]any{"facility_sqft": 10000, "location": "Texas"})
	require.Equal(t, http.StatusOK, rec.Code)
	solar := decode[calc.SolarEstimate](t, rec)
	assert.InDelta(t, 42, solar.SystemSizeKW, 0.01, "default usable roof share")
}

func TestRegions(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/regions?location=Miami", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[regionsResponse](t, rec)
	assert.Equal(t, []string{"new york", "california", "texas", "florida"}, resp.Priority)
	assert.Equal(t, "florida", resp.Region)
	require.NotNil(t, resp.Factors)
	assert.Equal(t, 0.1147, resp.Factors.ElectricityRate)
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/v1/recommendations", map[string]any{
		"profile": map[string]any{"industry": "Steel factory", "company_size": "1000+ employees", "location": "Houston, TX"},
		"usage":   map[string]any{"monthly_kwh": 12000},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Industry        string `json:"industry"`
		Recommendations []struct {
			ID string `json:"id"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Manufacturing", res.Industry)
	assert.NotEmpty(t, res.Recommendations)
	assert.LessOrEqual(t, len(res.Recommendations), 8)
}

func TestAIRecommendationsWithoutModel(t *testing.T) {
	f := newFixture(t, false)
	body := map[string]any{
		"business_name": "Corner Cafe",
		"profile":       map[string]any{"industry": "Restaurant", "company_size": "1-50", "location": "Austin, TX"},
		"usage":         map[string]any{"monthly_kwh": 4000, "monthly_therms": 150},
	}

	rec := f.do(t, http.MethodPost, "/api/v1/recommendations/ai", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[advisor.Response](t, rec)
	assert.Equal(t, advisor.SourceRules, res.Source)
	assert.NotEmpty(t, res.Recommendations)

	rec = f.do(t, http.MethodPost, "/api/v1/recommendations/ai", map[string]any{"usage": map[string]any{"monthly_kwh": -5}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/recommendations/ai/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[advisor.Status](t, rec).Enabled)

	rec = f.do(t, http.MethodPost, "/api/v1/recommendations/ai/test", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAIRecommendationsModelDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	a, err := advisor.New(advisor.Config{APIKey: "k", BaseURL: upstream.URL, Model: "m"}, rules.NewEngine(nil))
	require.NoError(t, err)
	st := storage.NewMemory()
	f := &fixture{store: st, mux: NewMux(Deps{Storage: st, Impact: impact.NewService(st), Advisor: a})}

	rec := f.do(t, http.MethodPost, "/api/v1/recommendations/ai", map[string]any{
		"profile": map[string]any{"industry": "Technology"},
		"usage":   map[string]any{"monthly_kwh": 1000},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "status 503")

	rec = f.do(t, http.MethodGet, "/api/v1/recommendations/ai/status", nil)
	assert.Equal(t, advisor.Status{Enabled: true, Model: "m", Templates: 9}, decode[advisor.Status](t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/recommendations/ai/test", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestImportUsage(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/v1/usage/import", "Electric Usage: 3,000 kWh (30 days)\nNatural Gas: 90 therms", "Content-Type", "text/plain")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bill struct {
		RawKWh    float64 `json:"raw_kwh"`
		RawTherms float64 `json:"raw_therms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bill))
	assert.Equal(t, 3000.0, bill.RawKWh)
	assert.Equal(t, 90.0, bill.RawTherms)

	rec = f.do(t, http.MethodPost, "/api/v1/usage/import", "nothing useful here", "Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImplementationLifecycle(t *testing.T) {
	f := newFixture(t, false)
	alice := []string{UserHeader, "alice"}

	rec := f.do(t, http.MethodPost, "/api/v1/goals", map[string]any{
		"title": "Save $1k", "category": "cost_savings", "target_value": 1000, "unit": "usd",
	}, alice...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/implementations", map[string]any{
		"title": "LED retrofit", "category": "Energy Efficiency", "estimated_annual_savings": 1200,
		"estimated_co2_reduction": 2, "estimated_roi_months": 12, "difficulty": "Easy",
	}, alice...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var impl struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &impl))
	assert.Equal(t, "started", impl.Status)

	path := "/api/v1/implementations/" + impl.ID
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, nil, UserHeader, "bob").Code, "other users cannot see it")
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, alice...).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/implementations/missing", nil, alice...).Code)

	rec = f.do(t, http.MethodPatch, path, map[string]any{"progress_percentage": 150}, alice...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, path, map[string]any{"status": "completed"}, alice...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upd struct {
		Completed bool `json:"completed"`
		Goals     struct {
			Applied int `json:"applied"`
		} `json:"goals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upd))
	assert.True(t, upd.Completed)
	assert.Equal(t, 1, upd.Goals.Applied)

	rec = f.do(t, http.MethodPatch, path, map[string]any{"status": "started"}, alice...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/goals", nil, alice...)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		CurrentValue float64 `json:"current_value"`
		ProgressPct  float64 `json:"progress_percentage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1200.0, list[0].CurrentValue)
	assert.Equal(t, 100.0, list[0].ProgressPct)

	rec = f.do(t, http.MethodGet, path+"/roi", nil, alice...)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/portfolio", nil, alice...)
	require.Equal(t, http.StatusOK, rec.Code)
	var p struct {
		Implementations int `json:"total_implementations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 1, p.Implementations)
}

func TestPortfolioExport(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/v1/implementations", map[string]any{"title": "Heat pump", "category": "hvac"})

	rec := f.do(t, http.MethodGet, "/api/v1/portfolio/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{report.SummarySheet, report.ImplementationsSheet, report.GoalsSheet}, wb.GetSheetList())
}

func TestSnapshotsEmpty(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/portfolio/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/portfolio/snapshots?limit=0", nil).Code)
}

func TestEmailSettings(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPut, "/api/v1/settings/email", map[string]any{
		"provider": "sendgrid", "api_key": "SG.secret", "from_address": "eimpact@example.com", "enabled": true,
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/settings/email", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[storage.EmailConfig](t, rec)
	assert.Equal(t, redacted, got.APIKey)

	got.FromName = "Impact"
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPut, "/api/v1/settings/email", got).Code)
	stored, err := f.store.GetEmailConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SG.secret", stored.APIKey, "redacted value keeps the stored secret")
	assert.Equal(t, "Impact", stored.FromName)

	rec = f.do(t, http.MethodPut, "/api/v1/settings/email", map[string]any{"provider": "pigeon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/settings/email/test", map[string]any{
		"config": map[string]any{"provider": "smtp", "enabled": true}, "to": "ops@example.com",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	require.Len(t, f.mail.msgs, 1)
	assert.Equal(t, "ops@example.com", f.mail.msgs[0].To)
}

func TestAuthEnabled(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, "root", "pw"))
	_, err := f.auth.Register(ctx, "vic", "", "viewpw", auth.RoleViewer)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "vic", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "vic", "password": "viewpw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	viewer := decode[tokenResponse](t, rec)
	require.NotEmpty(t, viewer.Token)
	require.NotNil(t, viewer.Metadata.ExpiresAt)
	bearer := []string{"Authorization", "Bearer " + viewer.Token}

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/implementations", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/implementations", nil, bearer...).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/v1/implementations", map[string]any{"title": "x"}, bearer...).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/settings/email", nil, bearer...).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/v1/auth/tokens", map[string]any{"name": "ci"}, bearer...).Code)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]any{"username": "root", "password": "pw", "expires_in": "never"})
	require.Equal(t, http.StatusOK, rec.Code)
	admin := decode[tokenResponse](t, rec)
	assert.Nil(t, admin.Metadata.ExpiresAt)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/tokens", map[string]any{"name": "ci", "expires_in": "30d"}, "Authorization", "Bearer "+admin.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ci := decode[tokenResponse](t, rec)
	assert.Equal(t, auth.RoleAdmin, ci.Metadata.Role)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/settings/email", nil, "Authorization", "Bearer "+ci.Token).Code)
}
