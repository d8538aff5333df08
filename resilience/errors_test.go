package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrors_Distinct(t *testing.T) {
	all := []error{ErrCircuitOpen, ErrRateLimitExceeded, ErrBulkheadFull, ErrTimeout}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"circuit open", ErrCircuitOpen, true},
		{"bulkhead full", ErrBulkheadFull, true},
		{"rate limited", ErrRateLimitExceeded, true},
		{"wrapped", fmt.Errorf("GET /products: %w", ErrCircuitOpen), true},
		{"timeout", ErrTimeout, false},
		{"canceled", context.Canceled, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRejection(tt.err); got != tt.want {
				t.Errorf("IsRejection(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
