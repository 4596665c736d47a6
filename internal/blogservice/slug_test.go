package blogservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "Hello World!", want: "hello-world"},
		{title: "  Already   spaced  ", want: "already-spaced"},
		{title: "snake_case_title", want: "snake-case-title"},
		{title: "UPPER-CASE", want: "upper-case"},
		{title: "100% Go", want: "100-go"},
		{title: "---dashes---", want: "dashes"},
		{title: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveSlug(tt.title))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "cms"}, normalizeTags([]string{"go", "cms", "go", ""}))
	assert.Empty(t, normalizeTags(nil))
}
