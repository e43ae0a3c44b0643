package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/eimpactmanager/internal/storage"
)

func TestParseExpiration(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want *time.Time
	}{
		{in: "", want: nil},
		{in: "never", want: nil},
		{in: "30m", want: ptrTime(now.Add(30 * time.Minute))},
		{in: "30d", want: ptrTime(now.Add(30 * 24 * time.Hour))},
		{in: "2w", want: ptrTime(now.Add(14 * 24 * time.Hour))},
		{in: "12/25/2026", want: ptrTime(time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC))},
		{in: "12/25/2026 14:30", want: ptrTime(time.Date(2026, time.December, 25, 14, 30, 0, 0, time.UTC))},
		{in: "2027-01-15", want: ptrTime(time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseExpiration(tt.in, now)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}

	for _, bad := range []string{"01/01/2020", "soon", "0d", "-5m"} {
		_, err := parseExpiration(bad, now)
		assert.Error(t, err, bad)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func newService(t *testing.T) (*Service, storage.Storage) {
	t.Helper()
	st := storage.NewMemory()
	svc, err := NewService(st)
	require.NoError(t, err)
	return svc, st
}

func TestDefaultPoliciesPersisted(t *testing.T) {
	svc, st := newService(t)

	rules, err := st.LoadCasbinRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, len(defaultPolicies))

	// A second service over the same store does not duplicate them.
	_, err = NewService(st)
	require.NoError(t, err)
	rules, err = st.LoadCasbinRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, len(defaultPolicies))

	u, err := svc.Register(context.Background(), "ana", "ana@example.com", "s3cret", RoleAnalyst)
	require.NoError(t, err)

	tests := []struct {
		obj, act string
		want     bool
	}{
		{ObjImplementations, ActWrite, true},
		{ObjGoals, ActRead, true},
		{ObjSettings, ActWrite, false},
		{ObjSettings, ActRead, false},
	}
	for _, tt := range tests {
		ok, err := svc.Enforce(u.ID, tt.obj, tt.act)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s:%s", tt.obj, tt.act)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "root", "", "pw", "superuser")
	assert.ErrorIs(t, err, ErrUnknownRole)

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "pw"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "other"), "existing admin is kept")

	_, _, err = svc.Login(ctx, "root", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, raw, err := svc.Login(ctx, "root", "pw", "1h")
	require.NoError(t, err)
	require.NotNil(t, tok.ExpiresAt)
	assert.Equal(t, RoleAdmin, tok.Role)

	got, err := svc.ValidateToken(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)

	_, err = svc.ValidateToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Register(ctx, "root", "", "pw", RoleViewer)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestValidateTokenExpired(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	_, raw, err := svc.CreateToken(ctx, "u1", "old", RoleViewer, &past)
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestMiddlewareAndPermission(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	viewer, err := svc.Register(ctx, "vic", "", "pw", RoleViewer)
	require.NoError(t, err)
	_, raw, err := svc.CreateToken(ctx, viewer.ID, "cli", RoleViewer, nil)
	require.NoError(t, err)

	var seenUser string
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	read := svc.Middleware(svc.RequirePermission(ObjGoals, ActRead, ok))
	write := svc.Middleware(svc.RequirePermission(ObjGoals, ActWrite, ok))

	do := func(h http.Handler, header string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/goals", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(read, ""))
	assert.Equal(t, http.StatusUnauthorized, do(read, "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, do(read, "Bearer nope"))
	assert.Equal(t, http.StatusNoContent, do(read, "Bearer "+raw))
	assert.Equal(t, viewer.ID, seenUser)
	assert.Equal(t, http.StatusForbidden, do(write, "Bearer "+raw))
}

func TestAdapterRemoveFilteredPolicy(t *testing.T) {
	st := storage.NewMemory()
	a := NewAdapter(st)
	require.NoError(t, a.AddPolicy("p", "p", []string{"viewer", "goals", "read"}))
	require.NoError(t, a.AddPolicy("p", "p", []string{"viewer", "portfolio", "read"}))
	require.NoError(t, a.AddPolicy("p", "p", []string{"analyst", "goals", "read"}))
	require.NoError(t, a.AddPolicy("g", "g", []string{"u1", "viewer"}))

	require.NoError(t, a.RemoveFilteredPolicy("p", "p", 0, "viewer"))
	rules, err := st.LoadCasbinRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "analyst", rules[0].V0)
	assert.Equal(t, "g", rules[1].PType)

	require.NoError(t, a.RemoveFilteredPolicy("p", "p", 1, "goals", ""))
	rules, err = st.LoadCasbinRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}
