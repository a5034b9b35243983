package lock

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/clinicledger/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
)

func TestNilLockerIsDisabled(t *testing.T) {
	var l *Locker
	assert.False(t, l.Enabled())

	_, ok, err := l.TryLock(context.Background(), "key", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.NoError(t, l.Release(context.Background(), "key", "token"))
	assert.Nil(t, NewLocker(nil))
}

func TestInstallmentKey(t *testing.T) {
	assert.Equal(t, "clinicledger:lock:clinic:10:installment:500", InstallmentKey(10, 500))
}

func TestRedisClientDisabledWithoutAddr(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	client := NewRedisClient(lc, config.Config{}, zaptest.NewLogger(t))
	assert.Nil(t, client)
	assert.False(t, NewLocker(client).Enabled())
}
