// Package faults classifies ingestion errors so the workflow can decide
// whether a failure is worth retrying.
package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermanent marks bad input or an exhausted retry budget. Never retried.
	ErrPermanent = errors.New("permanent failure")
	// ErrTransient marks an infrastructure fault that may succeed on retry.
	ErrTransient = errors.New("transient failure")
	// ErrNotFound is returned by stores when the addressed object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a stage that ran past its deadline.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker. A nil marker defaults to ErrTransient.
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

// Permanent is shorthand for Wrap(ErrPermanent, ...).
func Permanent(stage, operation, message string, err error) error {
	return Wrap(ErrPermanent, stage, operation, message, err)
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// IsNotFound reports whether err signals a missing object or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
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
		return "ingestion failure"
	}
	return strings.Join(parts, ": ")
}
