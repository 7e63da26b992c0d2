package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid base64 data URL")

// DecodeDataURL splits "data:image/png;base64,<data>" on ";base64," and
// returns the decoded bytes with the MIME subtype as extension.
func DecodeDataURL(s string) ([]byte, string, error) {
	header, encoded, ok := strings.Cut(s, ";base64,")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	_, ext, ok := strings.Cut(header, "/")
	if !ok || ext == "" {
		return nil, "", ErrInvalidDataURL
	}
	ext = SanitizeName(strings.ToLower(ext))

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, "", errors.Join(ErrInvalidDataURL, err)
	}
	if len(data) == 0 {
		return nil, "", ErrInvalidDataURL
	}
	return data, ext, nil
}
