package storage

import (
	"context"
	"encoding/base64"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	ok, err := Clean("examination_documents/./Cruz, Juan D..docx")
	require.NoError(t, err)
	assert.Equal(t, "examination_documents/Cruz, Juan D..docx", ok)

	for _, bad := range []string{"", "/etc/passwd", "../secret", "a/../../b", "..", "a\\b"} {
		_, err := Clean(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	name := "examination_documents/edited/report.docx"

	exists, err := s.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, name, strings.NewReader("v1")))
	require.NoError(t, s.Put(ctx, name, strings.NewReader("v2")))

	rc, err := s.Open(ctx, name)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "v2", string(data))

	assert.ErrorIs(t, s.Create(ctx, name, strings.NewReader("v3")), ErrExists)
	rc, err = s.Open(ctx, name)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "v2", string(data))

	require.NoError(t, s.Delete(ctx, name))
	require.NoError(t, s.Delete(ctx, name))
	exists, err = s.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, s.Put(ctx, "../escape", strings.NewReader("x")), ErrInvalidPath)
	assert.ErrorIs(t, s.Create(ctx, "../escape", strings.NewReader("x")), ErrInvalidPath)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, "examination_documents/edited/final.docx", strings.NewReader("x"))
			if err == nil {
				created.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrExists)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, created.Load())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
}

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	data, ext, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "png", ext)

	_, ext, err = DecodeDataURL("data:image/JPEG;base64," + base64.StdEncoding.EncodeToString(payload))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", ext)

	for _, bad := range []string{"", "image/png,abc", "data:png;base64,AAAA", "data:image/png;base64,!!!", "data:image/png;base64,"} {
		_, _, err := DecodeDataURL(bad)
		assert.ErrorIs(t, err, ErrInvalidDataURL, bad)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Cruz, Juan D.", SanitizeName("Cruz, Juan D."))
	assert.Equal(t, "a_b", SanitizeName("a/b"))
	assert.Equal(t, "unnamed", SanitizeName(" .. "))
}

func TestUploadSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	up, err := UploadFromDataURL("")
	require.NoError(t, err)
	assert.Nil(t, up)

	up, err = UploadFromDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("img")))
	require.NoError(t, err)
	name, err := up.Save(ctx, store, "patient_images", "patient_7")
	require.NoError(t, err)
	assert.Equal(t, "patient_images/patient_7.png", name)

	data, ok := store.Bytes(name)
	require.True(t, ok)
	assert.Equal(t, "img", string(data))

	up, err = UploadFromReader("Result.JPG", strings.NewReader("jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpg", up.Ext)
}
