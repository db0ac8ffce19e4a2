package votes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampWindow(t *testing.T) {
	def := 24 * time.Hour

	tests := []struct {
		name   string
		window time.Duration
		want   time.Duration
	}{
		{name: "zero falls back to default", window: 0, want: def},
		{name: "negative falls back to default", window: -time.Hour, want: def},
		{name: "below minimum clamps up", window: time.Minute, want: minWindow},
		{name: "minimum passes through", window: minWindow, want: minWindow},
		{name: "ordinary window passes through", window: 6 * time.Hour, want: 6 * time.Hour},
		{name: "maximum passes through", window: maxWindow, want: maxWindow},
		{name: "above maximum clamps down", window: 30 * 24 * time.Hour, want: maxWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampWindow(tt.window, def))
		})
	}
}
