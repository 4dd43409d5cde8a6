package provider

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/maximbilan/hivecouncil/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/maximbilan/hivecouncil/internal/provider"

// emitFunc hands one fragment to the consumer. It returns false once the
// consumer has stopped pulling; the stream body must then return nil.
type emitFunc func(fragment string) bool

// streamBody opens a backend stream, emits its text deltas and releases the
// connection before returning.
type streamBody func(ctx context.Context, emit emitFunc) error

// runStream wraps a backend stream body into the sequence returned by
// StreamCompletion: request validation, a trace span, lifecycle logging,
// empty-fragment filtering and wrapping of the terminal error.
func runStream(ctx context.Context, name, model string, logger *slog.Logger, req Request, body streamBody) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := validation.ValidatePrompt(req.Prompt); err != nil {
			yield("", fmt.Errorf("%s: %w", name, err))
			return
		}

		ctx, span := otel.Tracer(tracerName).Start(ctx, "provider.stream",
			trace.WithAttributes(
				attribute.String("llm.provider", name),
				attribute.String("llm.model", model),
			),
		)
		logger.Debug("stream opened", "provider", name, "model", model)

		fragments := 0
		stopped := false
		err := body(ctx, func(fragment string) bool {
			if fragment == "" {
				return true
			}
			fragments++
			if !yield(fragment, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil {
			err = &StreamError{Provider: name, Err: err}
		}

		span.SetAttributes(
			attribute.Int("llm.fragments", fragments),
			attribute.Bool("llm.abandoned", stopped),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if err != nil {
			logger.Warn("stream failed", "provider", name, "model", model, "fragments", fragments, "error", err)
			if !stopped {
				yield("", err)
			}
			return
		}
		logger.Debug("stream closed", "provider", name, "model", model, "fragments", fragments, "abandoned", stopped)
	}
}
