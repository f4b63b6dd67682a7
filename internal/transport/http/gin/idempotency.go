package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	redisrepo "github.com/kirinyoku/seatflow/internal/repository/redis"
)

const headerIdempotencyKey = "Idempotency-Key"

// idempotencyKey returns the storage key for the request's Idempotency-Key
// header, or "" when the client sent none.
func idempotencyKey(c *gin.Context, storageKey func(k string) string) string {
	k := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
	if k == "" {
		return ""
	}
	return storageKey(k)
}

// runIdempotent runs fn once per key. A finished request's response is
// replayed to retries; a request still running answers 409 with Retry-After.
// Failed requests release the key. Without a store or key fn simply runs.
func runIdempotent(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	key string,
	status int,
	fn func() (any, error),
) {
	ctx := c.Request.Context()
	owned := false

	if idem != nil && key != "" {
		state, payload, err := idem.Begin(ctx, key)
		switch {
		case err != nil:
			// redis down: run without protection
			_ = c.Error(err)
		case state == redisrepo.IdemReplay:
			c.Header(headerIdempotencyKey, c.GetHeader(headerIdempotencyKey))
			c.Data(status, "application/json; charset=utf-8", []byte(payload))
			return
		case state == redisrepo.IdemInFlight:
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		default:
			owned = true
		}
	}

	resp, err := fn()
	if err != nil {
		if owned {
			_ = idem.Release(ctx, key)
		}
		respondErr(c, err)
		return
	}

	b, err := json.Marshal(resp)
	if err != nil {
		if owned {
			_ = idem.Release(ctx, key)
		}
		respondErr(c, err)
		return
	}

	if owned {
		if err := idem.Complete(ctx, key, string(b)); err != nil {
			_ = c.Error(err)
		}
		c.Header(headerIdempotencyKey, c.GetHeader(headerIdempotencyKey))
	}

	c.Data(status, "application/json; charset=utf-8", b)
}
