package middleware

import (
	"fmt"
	"strconv"

	"conduit/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps each request in a server span that continues any
// incoming W3C trace context. The trace id is echoed in X-Trace-ID.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isOperationalPath(c.Path()) {
			return c.Next()
		}

		span := startRequestSpan(c)
		defer span.End()

		err := c.Next()
		finishRequestSpan(c, span, err)
		return err
	}
}

func startRequestSpan(c *fiber.Ctx) trace.Span {
	parent := otel.GetTextMapPropagator().Extract(c.UserContext(),
		propagation.HeaderCarrier(c.GetReqHeaders()))

	ctx, span := observability.Tracer.Start(parent, c.Method(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", c.Method()),
			attribute.String("url.path", c.Path()),
			attribute.String("client.address", c.IP()),
			attribute.String("user_agent.original", c.Get(fiber.HeaderUserAgent)),
		))

	traceID := span.SpanContext().TraceID().String()
	c.Locals("traceID", traceID)
	c.Locals("spanID", span.SpanContext().SpanID().String())
	c.Set("X-Trace-ID", traceID)
	c.SetUserContext(ctx)
	return span
}

// finishRequestSpan names the span after the matched route template, so
// "/api/articles/a" and "/api/articles/b" share one span name.
func finishRequestSpan(c *fiber.Ctx, span trace.Span, err error) {
	route := c.Route().Path
	status := c.Response().StatusCode()

	span.SetName(c.Method() + " " + route)
	span.SetAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", status),
	)
	for local, key := range map[string]string{"requestid": "request.id", "userID": "enduser.id"} {
		if v := c.Locals(local); v != nil {
			span.SetAttributes(attribute.String(key, fmt.Sprint(v)))
		}
	}

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= fiber.StatusInternalServerError:
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
	}
}

// isOperationalPath matches probe and scrape endpoints. They are not traced
// and not counted in HTTP metrics.
func isOperationalPath(path string) bool {
	switch path {
	case "/metrics", "/health", "/health/live", "/health/ready":
		return true
	}
	return false
}
