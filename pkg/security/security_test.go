package security

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	_, err := h.Hash("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hashed, err := h.Hash("correct-horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hashed, "correct-horse"))
	assert.ErrorIs(t, h.Compare(hashed, "wrong-horse"), ErrWrongPassword)
	assert.Error(t, h.Compare("not-a-hash", "correct-horse"))
}

func TestCheckPasswordPair(t *testing.T) {
	assert.NoError(t, CheckPasswordPair("password1", "password1"))
	assert.ErrorIs(t, CheckPasswordPair("password1", "password2"), ErrPasswordsMismatch)
	assert.ErrorIs(t, CheckPasswordPair("pw", "pw"), ErrPasswordTooShort)
	long := strings.Repeat("x", MaxPasswordLen+1)
	assert.ErrorIs(t, CheckPasswordPair(long, long), ErrPasswordTooLong)
}

func TestSecretDigest(t *testing.T) {
	s := Secret{Salt: "salt", Pepper: "pepper"}
	sum := sha256.Sum256([]byte("saltPID-01pepper"))

	assert.Equal(t, hex.EncodeToString(sum[:]), s.Digest("PID-01"))
	assert.Equal(t, s.Digest("PID-01"), s.Digest("PID-01"))
	assert.NotEqual(t, s.Digest("PID-01"), s.Digest("PID-02"))

	assert.NoError(t, s.Validate())
	assert.ErrorIs(t, Secret{Salt: "x"}.Validate(), ErrEmptySecret)
}

func TestHashReaderMatchesWholeFileDigest(t *testing.T) {
	// larger than one chunk so the loop runs more than once
	data := bytes.Repeat([]byte("docx-bytes"), 3*HashChunkSize)
	sum := sha256.Sum256(data)

	got, err := HashReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), got)

	empty, err := HashReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", empty)
}

// chunkReader records the size of every Read and would hand the whole
// buffer over at once if WriteTo were used.
type chunkReader struct {
	*bytes.Reader
	reads []int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	c.reads = append(c.reads, len(p))
	return c.Reader.Read(p)
}

func TestHashReaderReadsInChunks(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 2*HashChunkSize+10)
	r := &chunkReader{Reader: bytes.NewReader(data)}

	got, err := HashReader(r)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), got)

	require.GreaterOrEqual(t, len(r.reads), 3)
	for _, n := range r.reads {
		assert.Equal(t, HashChunkSize, n)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestHashReaderPropagatesReadError(t *testing.T) {
	_, err := HashReader(failingReader{})
	assert.EqualError(t, err, "disk gone")
}
