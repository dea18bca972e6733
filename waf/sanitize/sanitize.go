package sanitize

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxInputLength caps every free-text field accepted by the storefront
const MaxInputLength = 500

// pre-compiled for performance
var (
	emailRegex      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	sqlOrEqualRegex = regexp.MustCompile(`(?i)or\s+\d+=\d+`)
	dropTableRegex  = regexp.MustCompile(`(?i)drop\s+table`)

	// header injection detection
	crlfRegex        = regexp.MustCompile(`[\r\n]`)
	headerSplitRegex = regexp.MustCompile(`[\r\n]\s*[a-zA-Z-]+\s*:`)
)

// Input strips angle brackets, trims and truncates to MaxInputLength runes
func Input(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxInputLength {
		s = string([]rune(s)[:MaxInputLength])
	}
	return s
}

// Email reports whether s looks like an address. Empty is not valid.
func Email(s string) bool {
	return emailRegex.MatchString(s)
}

// lowercase substrings that only show up in injection attempts
var (
	scriptMarkers = []string{
		"<script", "javascript:", "onerror=", "onload=", "<iframe", "<svg",
	}
	sqlMarkers = []string{
		"union select", "union all select", "drop database", "waitfor delay",
		"' or '1'='1", "' or 1=1", "\" or \"1\"=\"1", "or 1=1--",
		"'; exec", "'; drop", "admin'--", "admin' --",
	}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsMalicious checks one value for script and SQL injection patterns
func IsMalicious(s string) bool {
	s = strings.ToLower(s)
	if containsAny(s, scriptMarkers) || containsAny(s, sqlMarkers) {
		return true
	}
	return sqlOrEqualRegex.MatchString(s) || dropTableRegex.MatchString(s)
}

// AnyMalicious reports whether any of the values is malicious
func AnyMalicious(values ...string) bool {
	for _, v := range values {
		if IsMalicious(v) {
			return true
		}
	}
	return false
}

// RequestIsMalicious checks the query string and path of a request
func RequestIsMalicious(r *http.Request) bool {
	if IsMalicious(r.URL.Path) {
		return true
	}
	for _, vals := range r.URL.Query() {
		if AnyMalicious(vals...) {
			return true
		}
	}
	return false
}

// ValidateHeaders checks for malformed or malicious headers
// Returns true if headers are valid, false otherwise
func ValidateHeaders(r *http.Request) (bool, string) {
	const maxHeaderLength = 8192

	for name, values := range r.Header {
		for _, value := range values {
			if strings.Contains(value, "\x00") {
				return false, "null byte in header value: " + name
			}
			if crlfRegex.MatchString(value) {
				if headerSplitRegex.MatchString(value) {
					return false, "header injection attempt detected: " + name
				}
				return false, "CRLF characters in header value: " + name
			}
			if len(value) > maxHeaderLength {
				return false, "header value too long: " + name
			}
			if !utf8.ValidString(value) {
				return false, "invalid UTF-8 in header: " + name
			}
		}
	}

	// conflicting framing headers are a smuggling attempt
	if r.Header.Get("Content-Length") != "" && r.Header.Get("Transfer-Encoding") != "" {
		return false, "both Content-Length and Transfer-Encoding present"
	}
	return true, ""
}
