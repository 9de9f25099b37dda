package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrPermanent, "metadata", "parse", "not a pdf", cause)

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "permanent failure: metadata: parse: not a pdf: boom", err.Error())
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)

	assert.ErrorIs(t, err, ErrTransient)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, "transient failure: ingestion failure", err.Error())
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
		notFound  bool
		timeout   bool
	}{
		{name: "not found", err: fmt.Errorf("get blob: %w", ErrNotFound), notFound: true},
		{name: "deadline", err: fmt.Errorf("poll: %w", context.DeadlineExceeded), timeout: true},
		{name: "timeout marker", err: Wrap(ErrTimeout, "parallel", "", "", nil), timeout: true},
		{name: "permanent", err: Permanent("thumbnail", "render", "no output", nil), permanent: true},
		{name: "plain", err: errors.New("x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.permanent, IsPermanent(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.timeout, IsTimeout(tt.err))
		})
	}
}
