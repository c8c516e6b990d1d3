package logging

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-cms-scheduler/pkg/interfaces"
)

const (
	fieldEntityID   = "entity_id"
	fieldEntityType = "entity_type"
	fieldAction     = "action"
)

type fieldsKey struct{}

// ContextWithFields annotates ctx with fields, merged over any fields already
// present. Loggers bound with WithContext append them to every entry.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := ContextFields(ctx)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// ContextFields returns a copy of the fields carried by ctx.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(map[string]any)
	if len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}

// ContextWithTransition tags ctx with the entity and action being
// transitioned so listeners and adapters log under the same fields.
func ContextWithTransition(ctx context.Context, entityType, entityID, action string) context.Context {
	return ContextWithFields(ctx, transitionFields(entityType, entityID, action))
}

// WithTransitionContext enriches logger with the entity and action being
// transitioned. Empty values are ignored.
func WithTransitionContext(logger interfaces.Logger, entityType, entityID, action string) interfaces.Logger {
	return WithFields(logger, transitionFields(entityType, entityID, action))
}

// WithFields attaches fields when logger implements interfaces.FieldsLogger
// and returns it unchanged otherwise.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fieldsLogger, ok := logger.(interfaces.FieldsLogger); ok {
		return fieldsLogger.WithFields(maps.Clone(fields))
	}
	return logger
}

func transitionFields(entityType, entityID, action string) map[string]any {
	fields := make(map[string]any, 3)
	for key, value := range map[string]string{
		fieldEntityType: entityType,
		fieldEntityID:   entityID,
		fieldAction:     action,
	} {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			fields[key] = trimmed
		}
	}
	return fields
}
