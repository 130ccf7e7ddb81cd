package log

import (
	"context"
	"time"

	"github.com/kubev2v/fold-planner/pkg/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger logs operations of a component. Steps and successes are written at debug
// level, errors at error level.
type StructuredLogger struct {
	name   string
	fields []zap.Field
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name}
}

// WithContext attaches the request id found in ctx to every entry.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	fields := append([]zap.Field{}, l.fields...)
	if id := requestid.FromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return &StructuredLogger{name: l.name, fields: fields}
}

func (l *StructuredLogger) Operation(name string) *OperationBuilder {
	return &OperationBuilder{
		logger: l,
		fields: append(append([]zap.Field{}, l.fields...), zap.String("operation", name)),
	}
}

type OperationBuilder struct {
	logger *StructuredLogger
	fields []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	return &OperationTracer{
		logger: zap.L().Named(b.logger.name).With(b.fields...),
		start:  time.Now(),
	}
}

// OperationTracer logs the steps and the outcome of one operation.
type OperationTracer struct {
	logger *zap.Logger
	start  time.Time
}

func (t *OperationTracer) Step(name string) *Entry {
	return &Entry{logger: t.logger, level: zapcore.DebugLevel, msg: name}
}

func (t *OperationTracer) Success() *Entry {
	return &Entry{
		logger: t.logger,
		level:  zapcore.DebugLevel,
		msg:    "success",
		fields: []zap.Field{zap.Duration("duration", time.Since(t.start))},
	}
}

func (t *OperationTracer) Error(err error) *Entry {
	return &Entry{
		logger: t.logger,
		level:  zapcore.ErrorLevel,
		msg:    "failed",
		fields: []zap.Field{zap.Error(err), zap.Duration("duration", time.Since(t.start))},
	}
}

// Warn reports a failure the operation recovered from.
func (t *OperationTracer) Warn(err error) *Entry {
	return &Entry{
		logger: t.logger,
		level:  zapcore.WarnLevel,
		msg:    "degraded",
		fields: []zap.Field{zap.Error(err)},
	}
}

type Entry struct {
	logger *zap.Logger
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

func (e *Entry) WithString(key, value string) *Entry {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *Entry) WithInt(key string, value int) *Entry {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *Entry) WithBool(key string, value bool) *Entry {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *Entry) WithParam(key string, value any) *Entry {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *Entry) Log() {
	if ce := e.logger.Check(e.level, e.msg); ce != nil {
		ce.Write(e.fields...)
	}
}
