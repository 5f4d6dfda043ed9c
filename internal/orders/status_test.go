package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"cancelled to cancelled", StatusCancelled, StatusCancelled, false},
		{"pending to pending", StatusPending, StatusPending, false},
		{"unknown from", Status("shipped"), StatusCancelled, false},
		{"unknown to", StatusPending, Status("paid"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}
