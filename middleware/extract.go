package middleware

import (
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken() goSession.TokenExtractor {
	return func(r *http.Request) string {
		if r == nil {
			return ""
		}
		token, _ := bearerToken(r.Header.Get("Authorization"))
		return token
	}
}

// FirstOf returns the first non-empty token produced by extractors, in order.
func FirstOf(extractors ...goSession.TokenExtractor) goSession.TokenExtractor {
	return func(r *http.Request) string {
		for _, extract := range extractors {
			if extract == nil {
				continue
			}
			if token := extract(r); token != "" {
				return token
			}
		}
		return ""
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
