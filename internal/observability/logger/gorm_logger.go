package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// CounterTable holds the per-vendor document number counters. Finalize
// serializes on its rows, so waits there show up long before the general
// slow query threshold.
const CounterTable = "document_number_counters"

type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
	// ContendedTables maps a table to its own slow threshold. Statements
	// over it are reported as lock waits.
	ContendedTables map[string]time.Duration
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		IgnoreRecordNotFound: true,
		ContendedTables: map[string]time.Duration{
			CounterTable: 50 * time.Millisecond,
		},
	}
}

// GormLogger writes gorm statements through zap with the request's vendor
// and request id attached.
type GormLogger struct {
	level                gormlogger.LogLevel
	slowThreshold        time.Duration
	ignoreRecordNotFound bool
	contended            map[string]time.Duration
	// quietBelow is the smallest threshold; faster statements are never
	// rendered unless the level is Info.
	quietBelow time.Duration
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	quietBelow := cfg.SlowThreshold
	contended := make(map[string]time.Duration, len(cfg.ContendedTables))
	for table, threshold := range cfg.ContendedTables {
		contended[strings.ToLower(table)] = threshold
		if threshold > 0 && (quietBelow <= 0 || threshold < quietBelow) {
			quietBelow = threshold
		}
	}
	return &GormLogger{
		level:                cfg.Level,
		slowThreshold:        cfg.SlowThreshold,
		ignoreRecordNotFound: cfg.IgnoreRecordNotFound,
		contended:            contended,
		quietBelow:           quietBelow,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		FromContext(ctx).Info(msg, messageFields(data)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		FromContext(ctx).Warn(msg, messageFields(data)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		FromContext(ctx).Error(msg, messageFields(data)...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	failed := err != nil && l.level >= gormlogger.Error &&
		!(l.ignoreRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound))
	if !failed && (l.level < gormlogger.Warn || (l.level < gormlogger.Info && elapsed <= l.quietBelow)) {
		return
	}

	sql, rows := fc()
	table := tableFromSQL(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", operationFromSQL(sql)),
		zap.String("table", table),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}

	log := FromContext(ctx)
	switch {
	case failed:
		log.Error("gorm.query", append(fields, zap.Error(err))...)
	case l.isLockWait(table, elapsed):
		log.Warn("gorm.lock_wait", fields...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		log.Warn("gorm.slow_query", fields...)
	case l.level >= gormlogger.Info:
		log.Debug("gorm.query", fields...)
	}
}

// ParamsFilter keeps bound values out of the log; they carry guest names
// and emails.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) isLockWait(table string, elapsed time.Duration) bool {
	threshold, ok := l.contended[table]
	return ok && threshold > 0 && elapsed > threshold
}

func messageFields(data []interface{}) []zap.Field {
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	return fields
}

func operationFromSQL(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return token
		}
	}
	return "UNKNOWN"
}

// tableFromSQL returns the first table named after FROM, INTO or UPDATE.
func tableFromSQL(sql string) string {
	tokens := strings.Fields(sql)
	for i := 0; i < len(tokens)-1; i++ {
		switch strings.ToUpper(tokens[i]) {
		case "FROM", "INTO", "UPDATE":
			next := tokens[i+1]
			if strings.HasPrefix(next, "(") {
				continue
			}
			name := strings.Trim(next, "`\"();,")
			if dot := strings.LastIndex(name, "."); dot >= 0 {
				name = strings.Trim(name[dot+1:], "`\"")
			}
			if name != "" {
				return strings.ToLower(name)
			}
		}
	}
	return ""
}

var _ gormlogger.Interface = (*GormLogger)(nil)
