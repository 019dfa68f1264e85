package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/pkg/logger"
)

const (
	HeaderIdempotencyKey    = "Idempotency-Key"
	HeaderIdempotencyReplay = "Idempotency-Replayed"
	maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

	idempotencyKeyCtx   = "idempotency_key"
	idempotencyStoreCtx = "idempotency_store"
)

// IdempotencyStore is the subset of postgres.IdempotencyStore the middleware uses.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, key string) error
}

// Idempotency middleware protects POST endpoints that move money against
// retried requests. Requests without the header pass through untouched.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)

		operation := c.Request.Method + " " + c.FullPath()
		replay, err := store.AcquireKey(c.Request.Context(), key, c.GetHeader("X-User-ID"), operation, hex.EncodeToString(hash[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		if replay != nil {
			c.Header(HeaderIdempotencyReplay, "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(idempotencyKeyCtx, key)
		c.Set(idempotencyStoreCtx, store)
		c.Next()
	}
}

// CompleteIdempotency stores a successful response for replay. Handlers call
// it with the exact bytes they write.
func CompleteIdempotency(c *gin.Context, status int, body []byte) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, status, "application/json", body); err != nil {
		logger.Warn(c.Request.Context(), "complete idempotency key", "key", key, "error", err)
	}
}

// finishIdempotency records a client error for replay, or releases the key on
// a server error so a retry runs the operation again.
func finishIdempotency(c *gin.Context, status int, body []byte) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	var err error
	if status >= 500 {
		err = store.ReleaseKey(ctx, key)
	} else {
		err = store.FailKey(ctx, key, status, "application/json", body)
	}
	if err != nil {
		logger.Warn(ctx, "finish idempotency key", "key", key, "status", status, "error", err)
	}
}

func idempotencyFrom(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(idempotencyKeyCtx)
	if key == "" {
		return "", nil, false
	}
	v, ok := c.Get(idempotencyStoreCtx)
	if !ok {
		return "", nil, false
	}
	store, ok := v.(IdempotencyStore)
	return key, store, ok
}
