package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidInlineImage = errors.New("invalid inline image data")

// ParseInlineImage decodes a "data:image/<ext>;base64,<payload>" string into
// raw bytes and its content type.
func ParseInlineImage(data string) ([]byte, string, error) {
	if !strings.HasPrefix(data, "data:image/") {
		return nil, "", ErrInvalidInlineImage
	}

	parts := strings.SplitN(data, ";base64,", 2)
	if len(parts) != 2 {
		return nil, "", ErrInvalidInlineImage
	}

	contentType := strings.TrimPrefix(parts[0], "data:")
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", ErrInvalidInlineImage
	}

	return decoded, contentType, nil
}
