package docharvest_test

import (
	"testing"

	"github.com/fwojciec/docharvest"
	"github.com/stretchr/testify/assert"
)

func TestIsIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"node_modules", true},
		{"web/node_modules", true},
		{".git", true},
		{"yarn.lock", true},
		{"sub/Cargo.lock", true},
		{"docs/guide.md", false},
		{"docs", false},
		{"src/build.go", false},
		{"assets/app.min.js", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, docharvest.IsIgnored(tt.path, docharvest.DefaultIgnorePatterns))
		})
	}
}
