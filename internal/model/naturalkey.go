package model

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var keyFolder = cases.Fold()

// NormalizeDomain canonicalizes a website URL or bare domain into the natural
// key used for dedup: scheme and path stripped, leading www removed, lowered.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}
	s = strings.TrimSuffix(s, "/")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, "www.")
	return s
}

// NormalizeHandle canonicalizes a social handle: NFKC-normalized, casefolded,
// leading @ stripped. Handles pasted from profile pages frequently carry
// full-width or decorated unicode.
func NormalizeHandle(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "@")
	s = norm.NFKC.String(s)
	return keyFolder.String(s)
}

// SocialKey builds the natural key for a social lead from platform + handle.
func SocialKey(platform, handle string) string {
	return strings.ToLower(strings.TrimSpace(platform)) + ":" + NormalizeHandle(handle)
}
