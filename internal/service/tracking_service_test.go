package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBounce(t *testing.T) {
	const threshold = 30

	tests := []struct {
		name     string
		pages    int
		duration int
		want     bool
	}{
		{"no pages, short", 0, 5, true},
		{"one page, short", 1, 10, true},
		{"one page, exactly threshold", 1, 30, false},
		{"one page, long", 1, 120, false},
		{"two pages, short", 2, 5, false},
		{"many pages, long", 8, 600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBounce(tt.pages, tt.duration, threshold))
		})
	}
}
