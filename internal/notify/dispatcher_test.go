package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/podpay/fee-engine/internal/models"
	"github.com/podpay/fee-engine/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyNotifier struct {
	failures int32
	calls    int32
}

func (n *flakyNotifier) Channel() string { return "test" }

func (n *flakyNotifier) Send(ctx context.Context, recipient, message string, metadata map[string]string) (Result, error) {
	call := atomic.AddInt32(&n.calls, 1)
	if call <= atomic.LoadInt32(&n.failures) {
		return Result{}, errors.New("provider unavailable")
	}
	return Result{ProviderID: "prov-1"}, nil
}

type memFailureLog struct {
	entries []*models.NotificationLog
}

func (l *memFailureLog) CreateNotificationLog(ctx context.Context, log *models.NotificationLog) error {
	l.entries = append(l.entries, log)
	return nil
}

func fastDispatchConfig() resilience.Config {
	return resilience.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}
}

func TestDispatch_RecoversAfterTransientFailure(t *testing.T) {
	notifier := &flakyNotifier{failures: 2}
	log := &memFailureLog{}
	d := NewDispatcher(notifier, log, nil).WithConfig(fastDispatchConfig())

	result, err := d.Dispatch(context.Background(), "merchant-1", "sale.settled", nil)
	require.NoError(t, err)
	assert.Equal(t, "prov-1", result.ProviderID)
	assert.Equal(t, int32(3), notifier.calls)

	require.Len(t, log.entries, 1)
	assert.True(t, log.entries[0].Success)
	assert.Equal(t, 3, log.entries[0].Attempts)
	assert.Equal(t, "test", log.entries[0].Channel)
}

func TestDispatch_RecordsExhaustedFailure(t *testing.T) {
	notifier := &flakyNotifier{failures: 10}
	log := &memFailureLog{}
	d := NewDispatcher(notifier, log, nil).WithConfig(fastDispatchConfig())

	_, err := d.Dispatch(context.Background(), "merchant-1", "sale.settled", nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), notifier.calls)

	require.Len(t, log.entries, 1)
	assert.False(t, log.entries[0].Success)
	assert.Equal(t, 3, log.entries[0].Attempts)
	assert.NotEmpty(t, log.entries[0].Error)
	assert.Equal(t, "merchant-1", log.entries[0].Recipient)
}

func TestWebhookNotifier_Send(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Request-Id", "req-42")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.Client())
	result, err := n.Send(context.Background(), srv.URL, "sale.settled", map[string]string{"sale_id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "req-42", result.ProviderID)
	assert.Contains(t, string(gotBody), "sale.settled")
	assert.Contains(t, string(gotBody), "abc")
}

func TestWebhookNotifier_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.Client())
	_, err := n.Send(context.Background(), srv.URL, "sale.settled", nil)
	assert.Error(t, err)
}
