package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		kv       []any
		expected logrus.Fields
	}{
		{
			name:     "empty",
			kv:       nil,
			expected: logrus.Fields{},
		},
		{
			name:     "pairs",
			kv:       []any{"project", "pricing-tool", "status", 200},
			expected: logrus.Fields{"project": "pricing-tool", "status": 200},
		},
		{
			name:     "dangling key",
			kv:       []any{"project", "pricing-tool", "orphan"},
			expected: logrus.Fields{"project": "pricing-tool", "extra": "orphan"},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				assert.Equal(t, tt.expected, Fields(tt.kv...))
			},
		)
	}
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, 50, valueOr(0, 50))
	assert.Equal(t, 10, valueOr(10, 50))
}
