package storage

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInlineImage(t *testing.T) {
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	data, contentType, err := ParseInlineImage(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestParseInlineImageRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"not a data uri":  "hello world",
		"wrong mime":      "data:text/plain;base64,aGVsbG8=",
		"missing marker":  "data:image/png",
		"invalid base64":  "data:image/png;base64,???",
		"empty string":    "",
		"plain image url": "https://example.com/image.png",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseInlineImage(input)
			assert.ErrorIs(t, err, ErrInvalidInlineImage)
		})
	}
}
