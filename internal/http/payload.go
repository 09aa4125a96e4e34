package http

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

// Payload is a foreign response shape a handler may return
type Payload interface {
	StatusCode() int
	Header() http.Header
	Body() ([]byte, error)
	Charset() string
}

// JSON is a JSON encoded payload
type JSON struct {
	data   any
	status int
	header http.Header
}

// NewJSON creates a JSON payload
func NewJSON(data any, status int) *JSON {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &JSON{data: data, status: status, header: h}
}

// WithHeader sets an extra header on the payload
func (j *JSON) WithHeader(key, value string) *JSON {
	j.header.Set(key, value)
	return j
}

func (j *JSON) StatusCode() int     { return j.status }
func (j *JSON) Header() http.Header { return j.header.Clone() }
func (j *JSON) Charset() string     { return "" }
func (j *JSON) Data() any           { return j.data }

// Body encodes the data
func (j *JSON) Body() ([]byte, error) {
	return sonic.Marshal(j.data)
}

// File is a payload streaming a file from disk
type File struct {
	path     string
	mime     string
	download string
	status   int
}

// NewFile creates a file payload. The file must exist and be regular.
func NewFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, exception.New(fmt.Sprintf("File %s does not exist", path),
			exception.WithStatus(http.StatusNotFound), exception.WithCause(err))
	}
	if !info.Mode().IsRegular() {
		return nil, exception.New(fmt.Sprintf("File %s is not a regular file", path),
			exception.WithStatus(http.StatusNotFound))
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, exception.New(fmt.Sprintf("File %s is not readable", path),
			exception.WithStatus(http.StatusForbidden), exception.WithCause(err))
	}
	return &File{path: path, mime: mt.String(), status: http.StatusOK}, nil
}

// AsDownload marks the file as an attachment. An empty name uses the
// file's base name.
func (f *File) AsDownload(name string) *File {
	if name == "" {
		name = filepath.Base(f.path)
	}
	f.download = name
	return f
}

func (f *File) Path() string    { return f.path }
func (f *File) MIME() string    { return f.mime }
func (f *File) StatusCode() int { return f.status }
func (f *File) Charset() string { return "" }

// Header returns the content type and disposition headers
func (f *File) Header() http.Header {
	h := http.Header{}
	h.Set("Content-Type", f.mime)
	if f.download != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.download}))
	}
	return h
}

// Body reads the file
func (f *File) Body() ([]byte, error) {
	return os.ReadFile(f.path)
}
