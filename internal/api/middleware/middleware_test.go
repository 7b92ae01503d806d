package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/planease/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context())))
	})
}

func signed(t *testing.T, secret []byte, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestIdentity(t *testing.T) {
	secret := []byte("test-secret")

	cases := []struct {
		name   string
		secret []byte
		header map[string]string
		status int
		user   string
	}{
		{"verified token", secret, map[string]string{"Authorization": "Bearer " + signed(t, secret, "u1")}, http.StatusOK, "u1"},
		{"wrong secret", secret, map[string]string{"Authorization": "Bearer " + signed(t, []byte("other"), "u1")}, http.StatusUnauthorized, ""},
		{"header refused with secret", secret, map[string]string{UserHeader: "u1"}, http.StatusUnauthorized, ""},
		{"gateway token", nil, map[string]string{"Authorization": "Bearer " + signed(t, []byte("gateway"), "u2")}, http.StatusOK, "u2"},
		{"gateway header", nil, map[string]string{UserHeader: "u3"}, http.StatusOK, "u3"},
		{"nothing", nil, nil, http.StatusUnauthorized, ""},
		{"garbage token", nil, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			Identity(tc.secret)(echoUser()).ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				require.Equal(t, tc.user, rr.Body.String())
			}
		})
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	h := RequestID(Logging(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "req-1", rr.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	require.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
