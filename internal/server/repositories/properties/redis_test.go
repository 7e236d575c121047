package properties

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_GetSetDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, "busauth:", 0)
	ctx := context.Background()

	mock.ExpectGet("busauth:LOCK_joao").RedisNil()
	_, ok, err := s.Get(ctx, "LOCK_joao")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectSet("busauth:LOCK_joao", "123", 0).SetVal("OK")
	require.NoError(t, s.Set(ctx, "LOCK_joao", "123"))

	mock.ExpectGet("busauth:LOCK_joao").SetVal("123")
	v, ok, err := s.Get(ctx, "LOCK_joao")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123", v)

	mock.ExpectDel("busauth:ATTEMPTS_joao", "busauth:LOCK_joao").SetVal(2)
	require.NoError(t, s.Delete(ctx, "ATTEMPTS_joao", "LOCK_joao"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, "", 0)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))
	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisStore_Incr_SetsTTLOnFirstIncrement(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, "", time.Hour)
	ctx := context.Background()

	mock.ExpectIncr("ATTEMPTS_joao").SetVal(1)
	mock.ExpectExpire("ATTEMPTS_joao", time.Hour).SetVal(true)
	n, err := s.Incr(ctx, "ATTEMPTS_joao")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	mock.ExpectIncr("ATTEMPTS_joao").SetVal(2)
	n, err = s.Incr(ctx, "ATTEMPTS_joao")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Incr_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, "", 0)

	mock.ExpectIncr("k").SetErr(errors.New("READONLY"))
	_, err := s.Incr(context.Background(), "k")
	assert.ErrorContains(t, err, "READONLY")
}
