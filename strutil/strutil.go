// Package strutil holds small string helpers.
package strutil

import "strings"

// RemovePrefix returns s without the leading prefix, or s unchanged if it
// does not start with prefix.
func RemovePrefix(s, prefix string) string {
	return strings.TrimPrefix(s, prefix)
}

// RemoveLast removes the last occurrence of sub from s, wherever it is.
// s is returned unchanged if sub does not occur.
func RemoveLast(s, sub string) string {
	i := strings.LastIndex(s, sub)
	if i < 0 {
		return s
	}
	return s[:i] + s[i+len(sub):]
}
