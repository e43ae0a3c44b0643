package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/storage"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

type recordingTransport struct {
	sent []Message
}

func (r *recordingTransport) Send(_ context.Context, _ *storage.EmailConfig, msg Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func setup(t *testing.T, enabled bool) (*Service, *recordingTransport) {
	t.Helper()
	ctx := context.Background()
	st := storage.NewMemory()
	require.NoError(t, st.SaveEmailConfig(ctx, storage.EmailConfig{Provider: "smtp", Enabled: enabled}))
	require.NoError(t, st.CreateUser(ctx, storage.User{ID: "u1", Username: "ana", Email: "ana@example.com", Notify: true}))
	require.NoError(t, st.CreateUser(ctx, storage.User{ID: "u2", Username: "bo", Email: "bo@example.com"}))

	rt := &recordingTransport{}
	return NewService(st, WithTransport(rt)), rt
}

func TestImplementationCompleted(t *testing.T) {
	svc, rt := setup(t, true)
	impl := tracking.Implementation{UserID: "u1", Title: "LED <retrofit>", EstimatedAnnualSavings: 12345.6, EstimatedCO2Reduction: 4.256}

	svc.ImplementationCompleted(context.Background(), impl)

	require.Len(t, rt.sent, 1)
	msg := rt.sent[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Implementation completed: LED <retrofit>", msg.Subject)
	assert.Contains(t, msg.HTML, "LED &lt;retrofit&gt;")
	assert.Contains(t, msg.HTML, "$12,346")
	assert.Contains(t, msg.Text, "4.26 tons")
}

func TestNotifySkipsOptedOutAndUnknownUsers(t *testing.T) {
	svc, rt := setup(t, true)
	ctx := context.Background()

	svc.GoalAchieved(ctx, goals.Goal{UserID: "u2", Title: "Cut costs"})
	svc.GoalAchieved(ctx, goals.Goal{UserID: "ghost", Title: "Cut costs"})
	assert.Empty(t, rt.sent)

	svc.GoalAchieved(ctx, goals.Goal{UserID: "u1", Title: "Cut costs", TargetValue: 10000, Unit: "usd"})
	require.Len(t, rt.sent, 1)
	assert.Contains(t, rt.sent[0].Text, "10,000.00 usd")
}

func TestSendEmailDisabled(t *testing.T) {
	svc, rt := setup(t, false)

	err := svc.SendEmail(context.Background(), Message{To: "x@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, rt.sent)
}

func TestSaveConfigRejectsUnknownProvider(t *testing.T) {
	svc, _ := setup(t, true)
	assert.Error(t, svc.SaveConfig(context.Background(), storage.EmailConfig{Provider: "pigeon"}))
}

func TestResendTransport(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := ProviderTransport{HTTPClient: srv.Client()}
	cfg := &storage.EmailConfig{Provider: "resend", APIKey: "key", FromName: "eImpact", FromAddress: "noreply@example.com"}

	// Point the client at the test server.
	tr.HTTPClient.Transport = rewriteTransport{target: srv.URL, next: http.DefaultTransport}
	require.NoError(t, tr.Send(context.Background(), cfg, Message{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>"}))
	assert.Equal(t, "eImpact <noreply@example.com>", got["from"])
	assert.Equal(t, "Hi", got["subject"])
}

type rewriteTransport struct {
	target string
	next   http.RoundTripper
}

func (rt rewriteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	u, err := r.URL.Parse(rt.target)
	if err != nil {
		return nil, err
	}
	r = r.Clone(r.Context())
	r.URL.Scheme = u.Scheme
	r.URL.Host = u.Host
	r.Host = u.Host
	return rt.next.RoundTrip(r)
}
