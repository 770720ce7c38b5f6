package repository_test

import (
	"testing"

	"lost-found-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPhotoURLsRoundTrip(t *testing.T) {
	urls := []string{
		"https://bucket.s3.us-east-1.amazonaws.com/items/u_1_0_a.jpg",
		"https://bucket.s3.us-east-1.amazonaws.com/items/u_1_1_b.jpg",
	}

	encoded, err := repository.EncodePhotoURLs(urls)
	require.NoError(t, err)
	require.NotNil(t, encoded)
	assert.Equal(t, urls, repository.DecodePhotoURLs(encoded))
}

func TestEncodeEmptyPhotoListIsNull(t *testing.T) {
	encoded, err := repository.EncodePhotoURLs(nil)
	require.NoError(t, err)
	assert.Nil(t, encoded)

	encoded, err = repository.EncodePhotoURLs([]string{})
	require.NoError(t, err)
	assert.Nil(t, encoded)
}

func TestDecodePhotoURLs(t *testing.T) {
	const a = "https://cdn.example.com/items/a.jpg"
	const b = "https://cdn.example.com/items/b.jpg"
	const c = "https://cdn.example.com/items/c.jpg"
	const d = "https://cdn.example.com/items/d.jpg"

	tests := []struct {
		name string
		raw  *string
		want []string
	}{
		{"null column", nil, []string{}},
		{"empty string", strPtr(""), []string{}},
		{"json null", strPtr("null"), []string{}},
		{"empty array", strPtr("[]"), []string{}},
		{"quoted empty", strPtr(`""`), []string{}},
		{"array", strPtr(`["` + a + `","` + b + `"]`), []string{a, b}},
		{"array with spaces", strPtr(`  [ "` + a + `" ]  `), []string{a}},
		{"double encoded", strPtr(`"[\"` + a + `\",\"` + b + `\"]"`), []string{a, b}},
		{"triple encoded", strPtr(`"\"[\\\"` + a + `\\\"]\""`), []string{a}},
		{"escaped without outer quotes", strPtr(`[\"` + a + `\"]`), []string{a}},
		{"bare url", strPtr(a), []string{a}},
		{"quoted url", strPtr(`"` + a + `"`), []string{a}},
		{"entries with stray quotes", strPtr(`["\"` + a + `\""]`), []string{a}},
		{"non url entries dropped", strPtr(`["` + a + `","not a url","ftp://x/y", 42, null]`), []string{a}},
		{"relative path dropped", strPtr(`["/items/a.jpg"]`), []string{}},
		{"malformed", strPtr(`["` + a), []string{}},
		{"garbage", strPtr("}{"), []string{}},
		{"object", strPtr(`{"url":"` + a + `"}`), []string{}},
		{"number", strPtr("17"), []string{}},
		{"hostless url", strPtr(`["https://"]`), []string{}},
		{"over photo limit", strPtr(`["` + a + `","` + b + `","` + c + `","` + d + `"]`), []string{a, b, c}},
		{"over photo limit double encoded", strPtr(`"[\"` + a + `\",\"` + b + `\",\"` + c + `\",\"` + d + `\"]"`), []string{a, b, c}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.DecodePhotoURLs(tt.raw)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePhotoURLsDepthLimit(t *testing.T) {
	// Five layers of string encoding exceed the unwrap depth.
	raw := `["https://cdn.example.com/a.jpg"]`
	for i := 0; i < 5; i++ {
		raw = quoteJSON(raw)
	}
	assert.Equal(t, []string{}, repository.DecodePhotoURLs(&raw))
}

func quoteJSON(s string) string {
	out := []byte{'"'}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"', '\\':
			out = append(out, '\\', s[i])
		default:
			out = append(out, s[i])
		}
	}
	return string(append(out, '"'))
}
