package main

import (
	"fmt"
	"testing"

	"github.com/localpki/localca/internal/ca"
)

func TestU_ExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", ca.ErrInvalidConfig), 2},
		{fmt.Errorf("wrapped: %w", ca.ErrAlreadyExists), 2},
		{fmt.Errorf("wrapped: %w", ca.ErrPersistence), 3},
		{fmt.Errorf("wrapped: %w", ca.ErrMissingCA), 3},
		{fmt.Errorf("wrapped: %w", ca.ErrKeyGeneration), 4},
		{fmt.Errorf("wrapped: %w", ca.ErrMalformedRequest), 4},
		{fmt.Errorf("wrapped: %w", ca.ErrSigning), 4},
		{fmt.Errorf("wrapped: %w", ca.ErrChainVerification), 4},
		{ca.NewCAError("issue", fmt.Errorf("%w: boom", ca.ErrSigning)), 4},
		{fmt.Errorf("unclassified"), 1},
	}

	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
