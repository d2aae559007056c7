package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/idempotency"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key string) (*idempotency.Response, error)
	Complete(ctx context.Context, scope, key string, resp idempotency.Response) error
	Release(ctx context.Context, scope, key string) error
}

// Idempotent replays the stored response for a repeated Idempotency-Key.
// Only 2xx responses are remembered; anything else releases the key so the
// client can fix the request and retry. Must run after RequireUser.
func Idempotent(store IdempotencyStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderIdempotencyKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 255 {
				writeError(w, http.StatusBadRequest, "idempotency key too long")
				return
			}
			scope := GetUserID(r.Context())
			ctx := context.WithoutCancel(r.Context())

			stored, err := store.Begin(ctx, scope, key)
			switch {
			case errors.Is(err, idempotency.ErrInFlight):
				writeError(w, http.StatusConflict, "request with this idempotency key is in progress")
				return
			case err != nil:
				logger.Warn("idempotency store unavailable, processing without it", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			case stored != nil:
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			// Released on every path that does not store a response, panics included.
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Release(ctx, scope, key); err != nil {
					logger.Warn("idempotency key release failed", zap.String("key", key), zap.Error(err))
				}
			}()

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				return
			}
			completed = true
			err = store.Complete(ctx, scope, key, idempotency.Response{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				logger.Warn("idempotency store update failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
