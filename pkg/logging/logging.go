// Package logging builds the per-invocation zap logger and carries it in the
// request context so that no logger state is shared between invocations.
package logging

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambdacontext"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

// New builds a production JSON logger at the given level.
func New(level zapcore.Level) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// RequestID returns the Lambda request id for ctx, or a fresh v4 uuid when the
// handler runs outside Lambda.
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewV4().String()
}

// ForEvent derives the invocation logger for a custom-resource event.
func ForEvent(base *zap.SugaredLogger, requestID string, event cfn.Event) *zap.SugaredLogger {
	return base.With(
		"request_id", requestID,
		"stack_id", event.StackID,
		"logical_resource_id", event.LogicalResourceID,
		"resource_type", event.ResourceType,
		"request_type", string(event.RequestType),
	)
}

func WithLogger(ctx context.Context, log *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if log, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && log != nil {
		return log
	}
	return zap.NewNop().Sugar()
}
