package utils

import (
	"crypto/rand"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile               = errors.New("no file uploaded")
	ErrEmptyFile            = errors.New("uploaded file is empty")
	ErrFileTooLarge         = errors.New("file size exceeds limit")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// AllowedExtensions are the upload formats the service can stage.
var AllowedExtensions = []string{".csv", ".docx"}

const DefaultMaxFileBytes int64 = 10 * 1024 * 1024

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateUploadFile(file *multipart.FileHeader) error
	ReadUploadFile(file *multipart.FileHeader) ([]byte, error)
	MaxFileBytes() int64
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileBytes
	}
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) MaxFileBytes() int64 {
	return u.maxFileSize
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateUploadFile(file *multipart.FileHeader) error {
	if file == nil || file.Filename == "" {
		return ErrNoFile
	}

	if !HasAllowedExtension(file.Filename) {
		return ErrUnsupportedExtension
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	if file.Size == 0 {
		return ErrEmptyFile
	}

	return nil
}

// ReadUploadFile reads at most one byte past the limit so oversized bodies
// with a lying header are still rejected.
func (u *utils) ReadUploadFile(file *multipart.FileHeader) ([]byte, error) {
	if file == nil {
		return nil, ErrNoFile
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	return data, nil
}

func HasAllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
