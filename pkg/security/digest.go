package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// HashChunkSize is the read size used when hashing stored files.
const HashChunkSize = 8192

var ErrEmptySecret = errors.New("salt and pepper must both be set")

// Secret is a salt/pepper pair wrapped around a digest input.
type Secret struct {
	Salt   string
	Pepper string
}

func (s Secret) Validate() error {
	if s.Salt == "" || s.Pepper == "" {
		return ErrEmptySecret
	}
	return nil
}

// Digest returns hex(SHA256(salt || input || pepper)).
func (s Secret) Digest(input string) string {
	sum := sha256.Sum256([]byte(s.Salt + input + s.Pepper))
	return hex.EncodeToString(sum[:])
}

// HashReader streams r through SHA-256 in reads of at most HashChunkSize,
// regardless of any WriterTo the reader implements.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, HashChunkSize)
	for {
		n, err := r.Read(buf)
		h.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
