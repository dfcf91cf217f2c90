// Package service holds the business rules of the API, between the HTTP
// handlers and the repositories.
package service

import (
	"context"

	"conduit/internal/models"
	"conduit/internal/observability"

	"go.opentelemetry.io/otel/trace"
)

// DefaultPageSize and MaxPageSize bound article listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 20
)

// ClampPage applies the listing defaults and caps to a requested page.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func startSpan(ctx context.Context, svc, method string) (context.Context, trace.Span) {
	return observability.StartServiceSpan(ctx, svc, method)
}

func validationErr(err error) error {
	if err == nil {
		return nil
	}
	return models.NewValidationError(err.Error())
}
