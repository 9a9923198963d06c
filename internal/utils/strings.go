package utils

import (
	"regexp"
	"strings"
	"time"
)

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify converts a display name into a URL-friendly slug.
func Slugify(text string) string {
	if strings.TrimSpace(text) == "" {
		return "untitled"
	}
	s := strings.ToLower(text)
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Normalize lowercases and trims a value for case-insensitive matching.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeAll normalizes every value and drops blanks.
func NormalizeAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := Normalize(v)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// FirstNonBlank returns preferred unless it is blank, otherwise fallback.
func FirstNonBlank(preferred, fallback string) string {
	if strings.TrimSpace(preferred) != "" {
		return preferred
	}
	return fallback
}

// ValueOrPlaceholder substitutes a placeholder dash for blank values in rendered text.
func ValueOrPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

// ListOrPlaceholder renders a comma-joined list or a dash when empty.
func ListOrPlaceholder(values []string) string {
	if len(values) == 0 {
		return "—"
	}
	return strings.Join(values, ", ")
}

// Truncate shortens text for log output.
func Truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

// FormatEpochMillis renders an epoch-millisecond timestamp, or a dash for zero.
func FormatEpochMillis(epochMillis int64) string {
	if epochMillis == 0 {
		return "—"
	}
	return time.UnixMilli(epochMillis).Format("2006-01-02 15:04")
}
