package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logging.FromZap(zap.New(core)), logs
}

func TestRequestLogger(t *testing.T) {
	log, logs := observed()

	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestID(r.Context()))
		log.Info(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/x", nil))

	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))
	entries := logs.FilterMessage("http request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.EqualValues(t, http.StatusTeapot, fields["status"])
		assert.Equal(t, "/api/x", fields["path"])
		assert.Equal(t, rr.Header().Get(requestIDHeader), fields["request_id"])
	}
	inner := logs.FilterMessage("inside handler").All()
	if assert.Len(t, inner, 1) {
		assert.Equal(t, rr.Header().Get(requestIDHeader), inner[0].ContextMap()["request_id"])
	}
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	log, _ := observed()
	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "abc", rr.Header().Get(requestIDHeader))
}

func TestRecoverer(t *testing.T) {
	log, logs := observed()
	h := Recoverer(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic in handler").Len())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{common.NewValidationError("title is required"), http.StatusBadRequest, "title is required"},
		{common.ErrorUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{common.ErrorForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("lookup: %w", common.ErrorNotFound), http.StatusNotFound, "not found"},
		{common.ErrorAlreadyExists, http.StatusConflict, "already exists"},
		{fmt.Errorf("%w: %w", common.ErrProviderFailure, errors.New("x")), http.StatusBadGateway, "model provider unavailable"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, httptest.NewRequest(http.MethodGet, "/", nil), logging.Nop(), tt.err)
			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.body+`"}`, rr.Body.String())
		})
	}
}

func TestSSEWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	sse := newSSEWriter(rr)

	assert.NoError(t, sse.Send(map[string]string{"content": "a"}))
	assert.NoError(t, sse.Send(map[string]bool{"done": true}))

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "keep-alive", rr.Header().Get("Connection"))
	assert.Equal(t, "data: {\"content\":\"a\"}\n\ndata: {\"done\":true}\n\n", rr.Body.String())
	assert.True(t, rr.Flushed)
}
