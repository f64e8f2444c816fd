package security

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestEvent(method, ua string, auth *core.Record) *core.RequestEvent {
	req := httptest.NewRequest(method, "/api/v1/festivals/1/purchase", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = httptest.NewRecorder()
	e.Auth = auth
	return e
}

func expectCount(mock redismock.ClientMock, key string, count int64, expirySet bool) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(count)
	mock.ExpectExpireNX(key, time.Minute).SetVal(expirySet)
	mock.ExpectTxPipelineExec()
}

func TestRateLimiter_Allow(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db, 2)
	ctx := context.Background()

	expectCount(mock, "ratelimit:user:u1", 1, true)
	expectCount(mock, "ratelimit:user:u1", 2, false)
	expectCount(mock, "ratelimit:user:u1", 3, false)

	for _, want := range []bool{true, true, false} {
		ok, err := r.Allow(ctx, "user:u1")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMiddleware_LimitsByIP(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db, 1)

	expectCount(mock, "ratelimit:ip:203.0.113.7", 2, false)

	err := r.Middleware()(requestEvent(http.MethodPost, "Mozilla/5.0", nil))

	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMiddleware_LimitsByAccount(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db, 5)

	auth := core.NewRecord(core.NewAuthCollection("users"))
	auth.Id = "u42"

	expectCount(mock, "ratelimit:user:u42", 1, true)

	err := r.Middleware()(requestEvent(http.MethodPost, "Mozilla/5.0", auth))

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMiddleware_ReadsAndRedisErrorsPassThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db, 1)

	assert.NoError(t, r.Middleware()(requestEvent(http.MethodGet, "Mozilla/5.0", nil)))

	mock.ExpectTxPipeline()
	mock.ExpectIncr("ratelimit:ip:203.0.113.7").SetErr(errors.New("connection refused"))
	assert.NoError(t, r.Middleware()(requestEvent(http.MethodPost, "Mozilla/5.0", nil)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_ExpiryFailureIsReported(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewRateLimiter(db, 5)

	mock.ExpectTxPipeline()
	mock.ExpectIncr("ratelimit:user:u7").SetVal(1)
	mock.ExpectExpireNX("ratelimit:user:u7", time.Minute).SetErr(errors.New("READONLY"))

	_, err := r.Allow(context.Background(), "user:u7")

	assert.Error(t, err)
}

func TestMiddleware_BlocksBots(t *testing.T) {
	db, _ := redismock.NewClientMock()
	r := NewRateLimiter(db, 100)

	err := r.Middleware()(requestEvent(http.MethodGet, "Googlebot/2.1", nil))

	var apiErr *router.ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}
