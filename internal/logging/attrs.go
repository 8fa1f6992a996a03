package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Attr aliases slog.Attr so call sites only import this package.
type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Strings renders a list field such as detected languages as one
// comma-separated value.
func Strings(key string, values []string) Attr {
	return slog.String(key, strings.Join(values, ","))
}

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Fault records the pipeline fault kind under FieldFault.
func Fault(kind fmt.Stringer) Attr {
	if kind == nil {
		return slog.String(FieldFault, "none")
	}
	return slog.String(FieldFault, kind.String())
}

func RequestID(id string) Attr { return slog.String(FieldRequestID, id) }

func Pass(name string) Attr { return slog.String(FieldPass, name) }

// Args converts attrs for the variadic slog methods.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// DecisionAttrs builds the decision_type, decision_result and decision_reason
// fields shared by every decision log line.
func DecisionAttrs(decisionType, result, reason string) []Attr {
	return []Attr{
		String(FieldDecisionType, decisionType),
		String("decision_result", result),
		String("decision_reason", reason),
	}
}
