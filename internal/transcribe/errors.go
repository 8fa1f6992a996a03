package transcribe

import (
	"context"
	"errors"
	"fmt"

	"polyscribe/internal/services"
)

// ErrTotalFailure reports that every engine pass that ran failed.
var ErrTotalFailure = errors.New("all engine passes failed")

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("pipeline panic: %v", e.value)
}

// FaultKindOf classifies err into the closed fault set. A nil error is FaultNone.
func FaultKindOf(err error) FaultKind {
	var panicErr *panicError
	switch {
	case err == nil:
		return FaultNone
	case errors.As(err, &panicErr):
		return FaultInternalPanic
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FaultPipelineTimeout
	case errors.Is(err, ErrTotalFailure):
		return FaultTotalFailure
	default:
		return FaultEngineUnavailable
	}
}
