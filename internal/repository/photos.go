package repository

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"lost-found-backend/internal/models"
)

// maxDecodeDepth bounds how many layers of string-in-string encoding are unwrapped
const maxDecodeDepth = 3

// EncodePhotoURLs serializes the photo list for the photos column.
// An empty list is stored as NULL.
func EncodePhotoURLs(urls []string) (*string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to encode photos: %w", err)
	}
	s := string(data)
	return &s, nil
}

// DecodePhotoURLs parses a stored photo list. It never fails: legacy values
// (double-encoded JSON, stray quoting, a bare URL) are unwrapped where
// possible, anything else degrades to an empty list, and entries that do
// not look like absolute http(s) URLs are dropped. At most
// models.MaxItemPhotos entries are returned.
func DecodePhotoURLs(raw *string) []string {
	if raw == nil {
		return []string{}
	}
	urls := decodePhotos(strings.TrimSpace(*raw), 0)
	if len(urls) > models.MaxItemPhotos {
		urls = urls[:models.MaxItemPhotos]
	}
	return urls
}

func decodePhotos(raw string, depth int) []string {
	switch raw {
	case "", "null", "[]", `""`:
		return []string{}
	}
	if depth > maxDecodeDepth {
		return []string{}
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// "[\"https://...\"]" stored without the outer string being valid JSON
		if strings.HasPrefix(raw, `"[`) && strings.HasSuffix(raw, `]"`) {
			return decodePhotos(strings.ReplaceAll(raw[1:len(raw)-1], `\"`, `"`), depth+1)
		}
		if strings.Contains(raw, `\"`) {
			return decodePhotos(strings.ReplaceAll(raw, `\"`, `"`), depth+1)
		}
		if u, ok := cleanPhotoURL(raw); ok {
			return []string{u}
		}
		return []string{}
	}

	switch val := v.(type) {
	case string:
		inner := strings.TrimSpace(val)
		if u, ok := cleanPhotoURL(inner); ok {
			return []string{u}
		}
		return decodePhotos(inner, depth+1)
	case []any:
		urls := make([]string, 0, len(val))
		for _, entry := range val {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			if u, ok := cleanPhotoURL(s); ok {
				urls = append(urls, u)
			}
		}
		return urls
	default:
		return []string{}
	}
}

// cleanPhotoURL strips stray quotes and reports whether s is an absolute http(s) URL
func cleanPhotoURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}
	return s, true
}
