package storage

import (
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultMaxImageSize int64 = 5 << 20

var (
	ErrImageRequired    = errors.New("image file is required")
	ErrUnsupportedImage = errors.New("only .jpg, .jpeg, .png, .gif and .webp files are allowed")
	ErrImageTooLarge    = errors.New("image exceeds the 5 MB limit")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageStore writes uploaded images under dir with a random file name and
// returns the public path under urlPrefix.
type ImageStore struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

func NewImageStore(dir, urlPrefix string, maxSize int64) *ImageStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	return &ImageStore{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/"), maxSize: maxSize}
}

func (s *ImageStore) Dir() string {
	return s.dir
}

// Validate checks the extension allow-list and the size ceiling.
func (s *ImageStore) Validate(filename string, size int64) error {
	if filename == "" {
		return ErrImageRequired
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return ErrUnsupportedImage
	}
	if size > s.maxSize {
		return ErrImageTooLarge
	}
	return nil
}

// Save validates and stores r, returning e.g. /images/<uuid>.png.
func (s *ImageStore) Save(filename string, size int64, r io.Reader) (string, error) {
	if err := s.Validate(filename, size); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create image dir")
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	target := filepath.Join(s.dir, name)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxSize {
		err = ErrImageTooLarge
	}
	if err != nil {
		_ = os.Remove(target)
		if errors.Is(err, ErrImageTooLarge) {
			return "", err
		}
		return "", errors.Wrap(err, "write image file")
	}
	return path.Join(s.urlPrefix, name), nil
}

// SaveMultipart stores an uploaded form file.
func (s *ImageStore) SaveMultipart(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", ErrImageRequired
	}
	if err := s.Validate(fh.Filename, fh.Size); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "open upload")
	}
	defer src.Close()
	return s.Save(fh.Filename, fh.Size, src)
}

// Remove deletes a file previously returned by Save. Paths outside the
// store are ignored.
func (s *ImageStore) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, s.urlPrefix+"/") {
		return nil
	}
	name := path.Base(publicPath)
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
