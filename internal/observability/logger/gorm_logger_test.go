package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM installments":                     "SELECT",
		"  insert into financial_events (id) values (1)": "INSERT",
		"UPDATE installments SET version = version + 1":  "UPDATE",
		"":       "UNKNOWN",
		"VACUUM": "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestGormLoggerTraceLogsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(DefaultGormLoggerConfig())
	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO cash_registers VALUES (?)", 0
	}, errors.New("UNIQUE constraint failed"))

	entries := logs.FilterMessage("gorm.query").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "INSERT", entries[0].ContextMap()["operation"])
	}
}

func TestGormLoggerSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(DefaultGormLoggerConfig()).LogMode(gormlogger.Silent)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	assert.Equal(t, 0, logs.Len())
}

func TestTableFromSQL(t *testing.T) {
	cases := map[string]string{
		`SELECT * FROM "installments" WHERE id = ?`:         "installments",
		"INSERT INTO financial_audit_trail (id) VALUES (?)": "financial_audit_trail",
		"UPDATE cash_registers SET status = 'CLOSED'":       "cash_registers",
		"SELECT 1": "",
	}
	for sql, want := range cases {
		assert.Equal(t, want, tableFromSQL(sql), sql)
	}
}

func TestGormLoggerMessagesRespectLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	l := NewGormLogger(DefaultGormLoggerConfig())
	l.Info(context.Background(), "connected")
	l.Warn(context.Background(), "slow pool", 3)

	assert.Equal(t, 0, logs.FilterMessage("connected").Len())
	entries := logs.FilterMessage("slow pool").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	}
}
