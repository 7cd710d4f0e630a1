package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every record logged with a context that carries them.
// The tick executor enriches the context as it walks the queue, so store and
// provider code never has to pass job identity around by hand.
type LogFields struct {
	JobID      *int64
	BatchID    *string
	QueueIndex *int
	Location   *string // queue item name, e.g. "Monaco"
	Category   *string
	PlaceID    *string // provider place id
	Component  string  // dotted component name, e.g. "poi.engine.tick"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields; newer non-nil values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.JobID != nil {
		result.JobID = next.JobID
	}
	if next.BatchID != nil {
		result.BatchID = next.BatchID
	}
	if next.QueueIndex != nil {
		result.QueueIndex = next.QueueIndex
	}
	if next.Location != nil {
		result.Location = next.Location
	}
	if next.Category != nil {
		result.Category = next.Category
	}
	if next.PlaceID != nil {
		result.PlaceID = next.PlaceID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr returns a pointer to v, handy for inline LogFields literals:
// logger.WithLogFields(ctx, logger.LogFields{JobID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate cuts s to maxLen bytes and appends "..." when it was longer.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
