package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			raw:  `{"intent":"place_order"}`,
			want: `{"intent":"place_order"}`,
			ok:   true,
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n{\"intent\":\"unknown\"}\n```",
			want: `{"intent":"unknown"}`,
			ok:   true,
		},
		{
			name: "prose around the object",
			raw:  `Sure, here is the result: {"a":1} hope that helps`,
			want: `{"a":1}`,
			ok:   true,
		},
		{
			name: "braces inside strings",
			raw:  `{"note":"depth {stays} balanced \"quoted\""}`,
			want: `{"note":"depth {stays} balanced \"quoted\""}`,
			ok:   true,
		},
		{
			name: "nested objects",
			raw:  `{"fields":{"symbol":"SUZLON"}}`,
			want: `{"fields":{"symbol":"SUZLON"}}`,
			ok:   true,
		},
		{
			name: "unterminated object",
			raw:  `{"intent":"place_order"`,
			ok:   false,
		},
		{
			name: "no object at all",
			raw:  "I cannot answer that.",
			ok:   false,
		},
		{
			name: "empty input",
			raw:  "   ",
			ok:   false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractObject(tc.raw)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
