package project

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
)

// ErrNotImage is returned when an uploaded file is not a recognized image.
var ErrNotImage = errors.New("uploaded file is not an image")

// sniffLen is the header size filetype needs to recognize every image type.
const sniffLen = 261

// Asset describes a stored upload.
type Asset struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
}

// AssetStore accepts uploaded figure images.
type AssetStore interface {
	Put(name string, r io.Reader) (Asset, error)
}

// DirAssetStore saves uploads into Dir under random names and serves them
// below BaseURL.
type DirAssetStore struct {
	Dir     string
	BaseURL string
}

var _ AssetStore = (*DirAssetStore)(nil)

// Put sniffs the content type, rejects anything but images and stores the
// data as <slug>-<uuid>.<ext>. The extension comes from the content, not from name.
func (s *DirAssetStore) Put(name string, r io.Reader) (Asset, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return Asset{}, fmt.Errorf("unable to read upload %s: %w", name, err)
	}
	if !filetype.IsImage(head) {
		return Asset{}, fmt.Errorf("%s: %w", name, ErrNotImage)
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return Asset{}, fmt.Errorf("%s: %w", name, ErrNotImage)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Asset{}, fmt.Errorf("unable to create asset directory: %w", err)
	}
	filename := uuid.NewString() + "." + kind.Extension
	if stem := slug.Make(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))); stem != "" {
		filename = stem + "-" + filename
	}
	path, err := filepath.Abs(filepath.Join(s.Dir, filename))
	if err != nil {
		return Asset{}, fmt.Errorf("unable to resolve asset path: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return Asset{}, fmt.Errorf("unable to create asset: %w", err)
	}
	if _, err := io.Copy(f, br); err != nil {
		f.Close()
		os.Remove(path)
		return Asset{}, fmt.Errorf("unable to store asset: %w", err)
	}
	if err := f.Close(); err != nil {
		return Asset{}, fmt.Errorf("unable to store asset: %w", err)
	}
	return Asset{
		Path:     path,
		URL:      strings.TrimRight(s.BaseURL, "/") + "/" + filename,
		Filename: filename,
		MIME:     kind.MIME.Value,
	}, nil
}
