package cmd

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidV7Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string

	r := mux.NewRouter()
	r.HandleFunc("/hook", func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	})
	r.Use(requestIDMiddleware())

	t.Run("generates uuid v7", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Regexp(t, uuidV7Regex, w.Header().Get(requestIDHeader))
		assert.Equal(t, w.Header().Get(requestIDHeader), seen)
		assert.Empty(t, req.Header.Get(requestIDHeader), "request headers must stay as signed")
	})

	t.Run("reuses incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		req.Header.Set(requestIDHeader, "incoming-id")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "incoming-id", w.Header().Get(requestIDHeader))
		assert.Equal(t, "incoming-id", seen)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()

	r := mux.NewRouter()
	r.HandleFunc("/hook", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	r.Use(requestIDMiddleware(), recoveryMiddleware(logger))

	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set(requestIDHeader, "req-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.Data["panic"])
	assert.Equal(t, "req-1", entry.Data["request_id"])
}
