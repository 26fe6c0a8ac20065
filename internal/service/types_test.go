package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tasksync/internal/service"
)

func TestPriority_Next(t *testing.T) {
	tests := []struct {
		in   service.Priority
		want service.Priority
	}{
		{service.PriorityDefault, service.PriorityLow},
		{"", service.PriorityLow},
		{service.PriorityLow, service.PriorityMedium},
		{service.PriorityMedium, service.PriorityHigh},
		{service.PriorityHigh, service.PriorityDefault},
		{"urgent", service.PriorityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Next(), "Next(%q)", tt.in)
	}
}
