package tools

import (
	"strings"
	"unicode/utf8"
)

const previewRunes = 64

// TrimPreview 折叠空白并截断到 previewRunes 个字符，用于通知摘要。
func TrimPreview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes]) + "…"
}

// ClampInt64 bounds v to [lo, hi]; a non-positive v means "use the default" and yields def.
func ClampInt64(v, def, lo, hi int64) int64 {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
