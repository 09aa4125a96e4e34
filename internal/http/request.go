package http

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/conduit/internal/exception"
	"github.com/GriffinCanCode/conduit/internal/shared/id"
)

// Container ids under which each dispatch registers its request and response
const (
	RequestType  = "http.request"
	ResponseType = "http.response"
)

const maxMultipartMemory = 32 << 20

// Request wraps an incoming request for one dispatch
type Request struct {
	raw    *http.Request
	id     id.RequestID
	method string
	path   string
	header http.Header

	input    map[string]any
	inputErr error
	parsed   bool

	body     []byte
	bodyRead bool
}

// NewRequest wraps r
func NewRequest(r *http.Request) *Request {
	return &Request{
		raw:    r,
		id:     id.NewRequestID(),
		method: strings.ToUpper(r.Method),
		path:   NormalizePath(r.URL.Path),
		header: r.Header.Clone(),
	}
}

// NewRequestFromValues builds a request from already decoded input
func NewRequestFromValues(method, uri string, values map[string]any) *Request {
	input := map[string]any{}
	for k, v := range values {
		input[k] = trimValue(v)
	}
	return &Request{
		id:     id.NewRequestID(),
		method: strings.ToUpper(method),
		path:   NormalizePath(uri),
		header: http.Header{},
		input:  input,
		parsed: true,
	}
}

// NormalizePath strips the query string and trailing slashes. An empty
// result becomes "/".
func NormalizePath(uri string) string {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
	}
	uri = strings.TrimRight(uri, "/")
	if uri == "" {
		return "/"
	}
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return uri
}

func (r *Request) ID() string     { return r.id.String() }
func (r *Request) Method() string { return r.method }
func (r *Request) Path() string   { return r.path }

// Raw returns the underlying request, nil for requests built from values
func (r *Request) Raw() *http.Request { return r.raw }

// Context returns the request context
func (r *Request) Context() context.Context {
	if r.raw == nil {
		return context.Background()
	}
	return r.raw.Context()
}

// ConnID identifies the client connection
func (r *Request) ConnID() string {
	if r.raw == nil {
		return ""
	}
	return r.raw.RemoteAddr
}

// ClientIP returns the client address, honouring X-Forwarded-For
func (r *Request) ClientIP() string {
	if fwd := r.header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.ConnID())
	if err != nil {
		return r.ConnID()
	}
	return host
}

// Header returns the first value of key or def when absent
func (r *Request) Header(key, def string) string {
	if v := r.header.Get(key); v != "" {
		return v
	}
	return def
}

// Headers returns a copy of all headers
func (r *Request) Headers() http.Header {
	return r.header.Clone()
}

// SetHeader stores values under key. Existing values are kept unless
// replace is set.
func (r *Request) SetHeader(key string, values []string, replace bool) {
	if len(values) == 0 {
		return
	}
	key = http.CanonicalHeaderKey(key)
	if replace {
		r.header[key] = append([]string(nil), values...)
		return
	}
	r.header[key] = append(r.header[key], values...)
}

// Body reads the raw body once. The body stays readable for later form
// parsing.
func (r *Request) Body() ([]byte, error) {
	if r.bodyRead || r.raw == nil || r.raw.Body == nil {
		return r.body, nil
	}
	r.bodyRead = true
	b, err := io.ReadAll(r.raw.Body)
	if err != nil {
		return nil, err
	}
	r.body = b
	r.raw.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

// All returns the merged input. JSON bodies replace the merge entirely;
// otherwise query, form and file values merge in that order with later
// sources overwriting earlier keys. String values are trimmed.
func (r *Request) All() (map[string]any, error) {
	if !r.parsed {
		r.parsed = true
		r.input, r.inputErr = r.collect()
	}
	return r.input, r.inputErr
}

// Input returns one merged input value, nil when absent or unparsable.
// Dotted keys descend into nested objects and lists ("user.tags.0").
func (r *Request) Input(key string) any {
	all, err := r.All()
	if err != nil {
		return nil
	}
	if v, ok := all[key]; ok {
		return v
	}

	var cur any = all
	for _, part := range strings.Split(key, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// Query returns a query string value
func (r *Request) Query(key string) string {
	if r.raw == nil {
		if s, ok := r.input[key].(string); ok {
			return s
		}
		return ""
	}
	return strings.TrimSpace(r.raw.URL.Query().Get(key))
}

func (r *Request) collect() (map[string]any, error) {
	out := map[string]any{}
	if r.raw == nil {
		return out, nil
	}

	contentType := mediaType(r.header.Get("Content-Type"))
	if contentType == "application/json" {
		body, err := r.Body()
		if err != nil {
			return out, exception.New("Unable to read request body", exception.WithStatus(http.StatusBadRequest), exception.WithCause(err))
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return out, nil
		}
		var decoded any
		if err := sonic.Unmarshal(body, &decoded); err != nil {
			return out, exception.New("Malformed JSON body", exception.WithStatus(http.StatusBadRequest), exception.WithCause(err))
		}
		// A top-level list is keyed by index; scalars carry no fields.
		switch v := decoded.(type) {
		case map[string]any:
			for k, item := range v {
				out[k] = trimValue(item)
			}
		case []any:
			for i, item := range v {
				out[strconv.Itoa(i)] = trimValue(item)
			}
		}
		return out, nil
	}

	mergeValues(out, r.raw.URL.Query())

	switch contentType {
	case "multipart/form-data":
		if err := r.raw.ParseMultipartForm(maxMultipartMemory); err != nil {
			return out, exception.New("Malformed multipart body", exception.WithStatus(http.StatusBadRequest), exception.WithCause(err))
		}
		mergeValues(out, r.raw.MultipartForm.Value)
		mergeFiles(out, r.raw.MultipartForm.File)
	case "application/x-www-form-urlencoded":
		if err := r.raw.ParseForm(); err != nil {
			return out, exception.New("Malformed form body", exception.WithStatus(http.StatusBadRequest), exception.WithCause(err))
		}
		mergeValues(out, r.raw.PostForm)
	}
	return out, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

func mergeValues(dst map[string]any, src url.Values) {
	for k, vs := range src {
		switch len(vs) {
		case 0:
		case 1:
			dst[k] = strings.TrimSpace(vs[0])
		default:
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = strings.TrimSpace(v)
			}
			dst[k] = list
		}
	}
}

func mergeFiles(dst map[string]any, src map[string][]*multipart.FileHeader) {
	for k, fs := range src {
		switch len(fs) {
		case 0:
		case 1:
			dst[k] = fs[0]
		default:
			dst[k] = fs
		}
	}
}

func trimValue(v any) any {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = trimValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = trimValue(item)
		}
		return out
	default:
		return v
	}
}
