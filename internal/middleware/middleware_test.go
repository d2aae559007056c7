package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/idempotency"
)

var _ IdempotencyStore = (*idempotency.RedisStore)(nil)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserID(r.Context())))
	})
}

func signed(t *testing.T, secret string, claims jwt.StandardClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestRequireUser_Header(t *testing.T) {
	h := RequireUser("")(echoUser())

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(HeaderUserID, "user-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-42", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"unauthenticated"}`, rr.Body.String())
}

func TestRequireUser_JWT(t *testing.T) {
	const secret = "s3cret"
	h := RequireUser(secret)(echoUser())

	cases := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid token", "Bearer " + signed(t, secret, jwt.StandardClaims{Subject: "user-7", ExpiresAt: time.Now().Add(time.Hour).Unix()}), http.StatusOK, "user-7"},
		{"expired", "Bearer " + signed(t, secret, jwt.StandardClaims{Subject: "user-7", ExpiresAt: time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signed(t, "other", jwt.StandardClaims{Subject: "user-7"}), http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + signed(t, secret, jwt.StandardClaims{}), http.StatusUnauthorized, ""},
		{"bad scheme", "Token abc", http.StatusUnauthorized, ""},
		{"missing", "", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			// header identity is ignored once a secret is configured
			req.Header.Set(HeaderUserID, "spoofed")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.code, rr.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rr.Body.String())
			}
		})
	}
}

func TestCorrelationID(t *testing.T) {
	var seen string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(HeaderCorrelationID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc", seen)
}

func TestRecover(t *testing.T) {
	h := Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://shop.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://shop.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

type fakeIdemStore struct {
	beginResp *idempotency.Response
	beginErr  error
	completed *idempotency.Response
	released  bool
}

func (f *fakeIdemStore) Begin(context.Context, string, string) (*idempotency.Response, error) {
	return f.beginResp, f.beginErr
}

func (f *fakeIdemStore) Complete(_ context.Context, _, _ string, resp idempotency.Response) error {
	f.completed = &resp
	return nil
}

func (f *fakeIdemStore) Release(context.Context, string, string) error {
	f.released = true
	return nil
}

func TestIdempotent(t *testing.T) {
	calls := 0
	created := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"o1"}`))
	})
	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", nil)
		req.Header.Set(HeaderIdempotencyKey, "k1")
		return req.WithContext(WithUserID(req.Context(), "user-1"))
	}

	t.Run("stores first success", func(t *testing.T) {
		calls = 0
		store := &fakeIdemStore{}
		rr := httptest.NewRecorder()
		Idempotent(store, zap.NewNop())(created).ServeHTTP(rr, newReq())

		assert.Equal(t, http.StatusCreated, rr.Code)
		require.NotNil(t, store.completed)
		assert.Equal(t, http.StatusCreated, store.completed.Status)
		assert.JSONEq(t, `{"order_id":"o1"}`, string(store.completed.Body))
		assert.Equal(t, 1, calls)
	})

	t.Run("replays stored response", func(t *testing.T) {
		calls = 0
		store := &fakeIdemStore{beginResp: &idempotency.Response{Status: 201, ContentType: "application/json", Body: []byte(`{"order_id":"o1"}`)}}
		rr := httptest.NewRecorder()
		Idempotent(store, zap.NewNop())(created).ServeHTTP(rr, newReq())

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "true", rr.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, 0, calls)
	})

	t.Run("in flight", func(t *testing.T) {
		store := &fakeIdemStore{beginErr: idempotency.ErrInFlight}
		rr := httptest.NewRecorder()
		Idempotent(store, zap.NewNop())(created).ServeHTTP(rr, newReq())
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("failure releases key", func(t *testing.T) {
		store := &fakeIdemStore{}
		bad := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		Idempotent(store, zap.NewNop())(bad).ServeHTTP(httptest.NewRecorder(), newReq())
		assert.True(t, store.released)
		assert.Nil(t, store.completed)
	})

	t.Run("panic releases key", func(t *testing.T) {
		store := &fakeIdemStore{}
		explode := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		})
		rr := httptest.NewRecorder()
		Recover(zap.NewNop())(Idempotent(store, zap.NewNop())(explode)).ServeHTTP(rr, newReq())

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.True(t, store.released)
		assert.Nil(t, store.completed)
	})

	t.Run("success does not release", func(t *testing.T) {
		store := &fakeIdemStore{}
		Idempotent(store, zap.NewNop())(created).ServeHTTP(httptest.NewRecorder(), newReq())
		assert.False(t, store.released)
		require.NotNil(t, store.completed)
	})

	t.Run("store outage degrades to passthrough", func(t *testing.T) {
		calls = 0
		store := &fakeIdemStore{beginErr: errors.New("dial tcp: refused")}
		rr := httptest.NewRecorder()
		Idempotent(store, zap.NewNop())(created).ServeHTTP(rr, newReq())
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("no key passes through", func(t *testing.T) {
		store := &fakeIdemStore{beginErr: errors.New("must not be called")}
		rr := httptest.NewRecorder()
		Idempotent(store, zap.NewNop())(created).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusCreated, rr.Code)
	})
}
