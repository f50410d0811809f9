package detector

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// File is the minimum the detector needs: a name and readable content.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type pathFile struct {
	path string
}

func FromPath(path string) File {
	return pathFile{path: path}
}

func (f pathFile) Name() string {
	return filepath.Base(f.path)
}

func (f pathFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type bytesFile struct {
	name string
	data []byte
}

func FromBytes(name string, data []byte) File {
	return bytesFile{name: name, data: data}
}

func (f bytesFile) Name() string {
	return f.name
}

func (f bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type multipartFile struct {
	header *multipart.FileHeader
}

func FromMultipart(header *multipart.FileHeader) File {
	return multipartFile{header: header}
}

func (f multipartFile) Name() string {
	return f.header.Filename
}

func (f multipartFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}
