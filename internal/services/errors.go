package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err belongs to the configuration class. Fatal errors
// are never retried and abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// remediationError attaches operator-facing next steps to an error.
type remediationError struct {
	err   error
	steps []string
}

func (e *remediationError) Error() string { return e.err.Error() }

func (e *remediationError) Unwrap() error { return e.err }

// WithRemediation annotates err with actionable steps shown to the user when a
// run fails. Blank steps are dropped.
func WithRemediation(err error, steps ...string) error {
	if err == nil {
		return nil
	}
	cleaned := make([]string, 0, len(steps))
	for _, step := range steps {
		if step = strings.TrimSpace(step); step != "" {
			cleaned = append(cleaned, step)
		}
	}
	if len(cleaned) == 0 {
		return err
	}
	return &remediationError{err: err, steps: cleaned}
}

// Remediation collects every remediation step attached anywhere in err's chain.
func Remediation(err error) []string {
	var steps []string
	for err != nil {
		var rem *remediationError
		if !errors.As(err, &rem) {
			break
		}
		steps = append(steps, rem.steps...)
		err = rem.err
	}
	return steps
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
