package mailgun

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reprise/config"
	"reprise/providers"
)

func newTestSender(t *testing.T, status int) (*Sender, *[]url.Values) {
	t.Helper()
	var forms []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mg.example.com/messages", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "api", user)
		assert.Equal(t, "key-test", pass)

		_ = r.ParseMultipartForm(1 << 20)
		forms = append(forms, r.Form)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"<20240301.1@mg.example.com>","message":"Queued. Thank you."}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"nope"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		MailgunAPIKey:    "key-test",
		MailgunDomain:    "mg.example.com",
		MailgunRecipient: "me@example.com",
		MailgunAPIBase:   srv.URL + "/v3",
	}
	return NewSender(cfg, zap.NewNop()), &forms
}

func TestSend(t *testing.T) {
	sender, forms := newTestSender(t, http.StatusOK)
	at := time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)

	require.NoError(t, sender.Send(context.Background(), "1. The * is *", at))

	require.Len(t, *forms, 1)
	form := (*forms)[0]
	assert.Equal(t, "me@example.com", form.Get("to"))
	assert.Equal(t, "Reprise <postmaster@mg.example.com>", form.Get("from"))
	assert.Equal(t, "Reprise 2024-03-15 16:00", form.Get("subject"))
	assert.Equal(t, "1. The * is *", form.Get("text"))
	assert.Equal(t, at.Format(time.RFC1123Z), form.Get("o:deliverytime"))
}

func TestSendErrors(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		sender, _ := newTestSender(t, tt.status)
		err := sender.Send(context.Background(), "text", time.Now())
		require.Error(t, err)
		assert.Equal(t, tt.transient, providers.IsTransient(err), "status %d", tt.status)
	}
}

func TestSendNetworkErrorIsTransient(t *testing.T) {
	cfg := &config.Config{
		MailgunAPIKey:    "key-test",
		MailgunDomain:    "mg.example.com",
		MailgunRecipient: "me@example.com",
		MailgunAPIBase:   "http://127.0.0.1:1/v3",
	}
	err := NewSender(cfg, zap.NewNop()).Send(context.Background(), "text", time.Now())
	require.Error(t, err)
	assert.True(t, providers.IsTransient(err))
}
