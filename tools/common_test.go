package tools

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTrimPreview(t *testing.T) {
	assert.Equal(t, "hello world", TrimPreview("  hello \n\t world "))

	long := strings.Repeat("你好", 50)
	got := TrimPreview(long)
	assert.Equal(t, previewRunes+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestClampInt64(t *testing.T) {
	assert.Equal(t, int64(50), ClampInt64(0, 50, 1, 200))
	assert.Equal(t, int64(50), ClampInt64(-3, 50, 1, 200))
	assert.Equal(t, int64(200), ClampInt64(999, 50, 1, 200))
	assert.Equal(t, int64(10), ClampInt64(10, 50, 1, 200))
	assert.Equal(t, int64(5), ClampInt64(2, 50, 5, 200))
}
