package redislock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestAcquire_Granted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("purchase:lock:user-1:key-1", `.+`, time.Minute).SetVal(true)

	ok, err := New(db).Acquire(context.Background(), "user-1:key-1", time.Minute)

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_AlreadyHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("purchase:lock:user-1:key-1", `.+`, time.Minute).SetVal(false)

	ok, err := New(db).Acquire(context.Background(), "user-1:key-1", time.Minute)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_RedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSetNX("purchase:lock:k", `.+`, time.Minute).SetErr(errors.New("connection refused"))

	ok, err := New(db).Acquire(context.Background(), "k", time.Minute)

	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRelease(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectDel("purchase:lock:k").SetVal(1)

	assert.NoError(t, New(db).Release(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	assert.NoError(t, New(db).Ping(context.Background()))
}
