package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birdsbuddy/internal/service"
)

func TestGetVAPIDKey(t *testing.T) {
	r := newTestRouter(&service.Service{Push: &mockPush{key: "BPub"}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/push/vapid", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPub"}`, w.Body.String())

	r = newTestRouter(&service.Service{Push: &mockPush{keyErr: service.ErrPushDisabled}})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/push/vapid", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribePush(t *testing.T) {
	push := &mockPush{}
	r := newTestRouter(&service.Service{Push: push})

	body := `{"endpoint":"https://push.example.com/abc","keys":{"p256dh":"BKey","auth":"secret"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/push/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://push.example.com/abc", push.lastSub.Endpoint)
	assert.Equal(t, "BKey", push.lastSub.P256DH)
	assert.Equal(t, "secret", push.lastSub.Auth)
}

func TestSubscribePush_Errors(t *testing.T) {
	valid := `{"endpoint":"https://push.example.com/abc","keys":{"p256dh":"BKey","auth":"secret"}}`
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed json", `{`, nil, http.StatusBadRequest},
		{"missing keys", `{"endpoint":"https://push.example.com/abc"}`, nil, http.StatusBadRequest},
		{"rejected by service", valid, fmt.Errorf("%w: endpoint", service.ErrInvalidSubscription), http.StatusBadRequest},
		{"disabled", valid, service.ErrPushDisabled, http.StatusNotFound},
		{"store failure", valid, fmt.Errorf("sqlite: locked"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Push: &mockPush{subErr: tc.err}})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/push/subscriptions", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestUnsubscribePush(t *testing.T) {
	push := &mockPush{}
	r := newTestRouter(&service.Service{Push: push})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/push/subscriptions",
		strings.NewReader(`{"endpoint":"https://push.example.com/abc"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://push.example.com/abc", push.lastUnsub)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/push/subscriptions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
