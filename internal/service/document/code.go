package document

import (
	"errors"
	"strings"

	"github.com/chmc/wbms-api/pkg/security"
)

const DefaultCodePrefix = "CHMC"

var (
	ErrInvalidCodeFormat = errors.New("invalid code format")
	ErrInvalidCodePrefix = errors.New("invalid code prefix")
)

// Codes derives verification codes from an examination's file number and
// the patient and doctor names.
type Codes struct {
	prefix string
	secret security.Secret
}

func NewCodes(prefix string, secret security.Secret) Codes {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	return Codes{prefix: prefix, secret: secret}
}

func (c Codes) Prefix() string {
	return c.prefix
}

// Raw is the full hex digest behind a code.
func (c Codes) Raw(fileNumber, patientName, doctorName string) string {
	return c.secret.Digest(fileNumber + "-" + patientName + "-" + doctorName)
}

// Code is "<prefix>-" plus the first 8 digest characters, uppercased.
func (c Codes) Code(fileNumber, patientName, doctorName string) string {
	return c.prefix + "-" + strings.ToUpper(c.Raw(fileNumber, patientName, doctorName)[:8])
}

// Parse checks that code is exactly one "PREFIX-VALUE" pair with the
// expected prefix.
func (c Codes) Parse(code string) (string, error) {
	parts := strings.Split(code, "-")
	if len(parts) != 2 {
		return "", ErrInvalidCodeFormat
	}
	if parts[0] != c.prefix {
		return "", ErrInvalidCodePrefix
	}
	return parts[1], nil
}
