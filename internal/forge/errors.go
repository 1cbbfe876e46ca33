package forge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLocked is returned when another run holds the output lock.
	ErrLocked = errors.New("forge: output is locked by another run")
	// ErrNoVariants is returned by MergeVariants for an empty input.
	ErrNoVariants = errors.New("forge: no variants to merge")
	// ErrNoReviewers is returned when no reviewer prompts are configured.
	ErrNoReviewers = errors.New("forge: no reviewer prompts configured")

	// ErrModel marks failures of a language model call.
	ErrModel = errors.New("model call failed")
	// ErrOutput marks failures reading or writing generated files.
	ErrOutput = errors.New("output failure")
	// ErrRecord marks failures persisting run history.
	ErrRecord = errors.New("run history failure")
)

// wrap tags err with marker and a "step: operation: message" detail so the
// run log and the stored error message share one shape.
func wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrModel
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorKind names the failure class of a forge error for logs and CLI output.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrModel):
		return "model"
	case errors.Is(err, ErrOutput):
		return "output"
	case errors.Is(err, ErrRecord):
		return "history"
	case errors.Is(err, ErrNoVariants), errors.Is(err, ErrNoReviewers):
		return "configuration"
	default:
		return "internal"
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "forge failure"
	}
	return strings.Join(parts, ": ")
}
