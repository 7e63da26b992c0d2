package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Upload is a decoded file waiting to be stored.
type Upload struct {
	Data []byte
	Ext  string
}

// UploadFromDataURL decodes a data URL. An empty string yields nil.
func UploadFromDataURL(s string) (*Upload, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	data, ext, err := DecodeDataURL(s)
	if err != nil {
		return nil, err
	}
	return &Upload{Data: data, Ext: ext}, nil
}

// UploadFromReader reads r fully and takes the extension from filename.
func UploadFromReader(filename string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext != "" {
		ext = SanitizeName(ext)
	}
	return &Upload{Data: data, Ext: ext}, nil
}

// Save writes u to dir/base.ext and returns the stored name.
func (u *Upload) Save(ctx context.Context, store Store, dir, base string) (string, error) {
	name := path.Join(dir, base)
	if u.Ext != "" {
		name += "." + u.Ext
	}
	if err := store.Put(ctx, name, bytes.NewReader(u.Data)); err != nil {
		return "", err
	}
	return name, nil
}
