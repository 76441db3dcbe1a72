package ctxutil

import "context"

// Source names the entry point that triggered a write. It is stamped on logs
// and on the events the recalculation hook publishes.
type Source string

const (
	SourceHTTP Source = "http"
	SourceMQ   Source = "mq"
	SourceCLI  Source = "cli"
)

type requestDataKey struct{}

type RequestData struct {
	TraceID   string
	RequestID string
	Source    Source
}

func WithRequest(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequest(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// SourceOf returns the request source, or "" when none was attached.
func SourceOf(ctx context.Context) Source {
	if rd := GetRequest(ctx); rd != nil {
		return rd.Source
	}
	return ""
}

// LogFields returns the request and actor identifiers present on ctx as
// logger key/value pairs.
func LogFields(ctx context.Context) []any {
	var fields []any
	if rd := GetRequest(ctx); rd != nil {
		if rd.TraceID != "" {
			fields = append(fields, "trace_id", rd.TraceID)
		}
		if rd.RequestID != "" {
			fields = append(fields, "request_id", rd.RequestID)
		}
		if rd.Source != "" {
			fields = append(fields, "source", string(rd.Source))
		}
	}
	if a := GetActor(ctx); a != nil && a.ActorID != "" {
		fields = append(fields, "actor_id", a.ActorID, "role", a.Role)
	}
	return fields
}
