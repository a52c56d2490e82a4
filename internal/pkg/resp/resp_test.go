package resp

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"

	"clawchat/internal/pkg/errs"
	"clawchat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.UseWriter(io.Discard)
	os.Exit(m.Run())
}

// serve runs h behind chi's RequestID middleware.
func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondSuccess(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) {
		RespondSuccess(w, r, map[string]int{"connections": 3})
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	body := decode(t, rec)
	require.Zero(t, body.Code)
	require.Equal(t, "success", body.Message)
	require.Equal(t, map[string]any{"connections": float64(3)}, body.Data)
	require.NotEmpty(t, body.RequestID)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        *errs.CustomError
		status     int
		code       int
		retryAfter string
	}{
		{"auth failure", errs.NewError(errs.ErrInvalidToken), http.StatusUnauthorized, errs.ErrInvalidToken, ""},
		{"throttled", errs.NewError(errs.ErrRateLimitExceeded), http.StatusTooManyRequests, errs.ErrRateLimitExceeded, "1"},
		{"backend down", errs.Wrap(errs.ErrAuthBackend, errors.New("db gone")), http.StatusServiceUnavailable, errs.ErrAuthBackend, "5"},
		{"nil error", nil, http.StatusInternalServerError, errs.ErrUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(func(w http.ResponseWriter, r *http.Request) {
				RespondError(w, r, tt.err)
			})

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			body := decode(t, rec)
			require.Equal(t, tt.code, body.Code)
			require.Nil(t, body.Data)
			require.NotEmpty(t, body.RequestID)
		})
	}
}

func TestRespondError_LogsCauseWithoutLeakingIt(t *testing.T) {
	var logs bytes.Buffer
	logx.UseWriter(&logs)
	t.Cleanup(func() { logx.UseWriter(io.Discard) })

	rec := serve(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, errs.Wrap(errs.ErrUnknown, errors.New("pool exhausted")))
	})

	require.NotContains(t, rec.Body.String(), "pool exhausted")
	require.Contains(t, logs.String(), "pool exhausted")
	require.Contains(t, logs.String(), decode(t, rec).RequestID)
}

func TestRespondError_ClientErrorsAreNotLogged(t *testing.T) {
	var logs bytes.Buffer
	logx.UseWriter(&logs)
	t.Cleanup(func() { logx.UseWriter(io.Discard) })

	serve(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, errs.NewError(errs.ErrNoCredential))
	})

	require.Empty(t, logs.String())
}
