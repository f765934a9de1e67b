package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var allowedSpanKeys = map[attribute.Key]struct{}{
	"http.method":      {},
	"http.route":       {},
	"http.status_code": {},
	"shop":             {},
	"vendor.operation": {},
	"vendor.code":      {},
}

// SafeAttributes drops anything not on the allowlist so tokens and customer
// data never reach the trace backend.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedSpanKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError strips the message from an error before it is recorded on a span.
// Only the Go type survives.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(errorKind(err))
}

func errorKind(err error) string {
	type kinded interface{ Kind() string }
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "internal_error"
}

// ExtractContext reads inbound propagation headers.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
