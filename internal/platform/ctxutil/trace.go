package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID     string
	RequestID   string
	JobID       string
	EncounterID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields flattens the trace data into logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	td := GetTraceData(ctx)
	if td == nil {
		return nil
	}
	out := make([]interface{}, 0, 8)
	if td.TraceID != "" {
		out = append(out, "trace_id", td.TraceID)
	}
	if td.RequestID != "" {
		out = append(out, "request_id", td.RequestID)
	}
	if td.JobID != "" {
		out = append(out, "job_id", td.JobID)
	}
	if td.EncounterID != "" {
		out = append(out, "encounter_id", td.EncounterID)
	}
	return out
}
