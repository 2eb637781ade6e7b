package mq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRequeue(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want bool
	}{
		{name: "handler saw cancellation", ctx: context.Background(), err: context.Canceled, want: true},
		{name: "wrapped cancellation", ctx: context.Background(), err: fmt.Errorf("save run: %w", context.Canceled), want: true},
		{name: "consumer stopping", ctx: cancelled, err: errors.New("connection reset"), want: true},
		{name: "per-message timeout", ctx: context.Background(), err: context.DeadlineExceeded, want: false},
		{name: "bad payload", ctx: context.Background(), err: errors.New("invalid json"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRequeue(tt.ctx, tt.err))
		})
	}
}
