package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

// ErrResponseSent is returned when a response is written twice
var ErrResponseSent = errors.New("response already sent")

// Renderer is implemented by values that write themselves into a response
type Renderer interface {
	Respond(resp *Response) error
}

// Response is the mutable response of one dispatch
type Response struct {
	status  int
	header  http.Header
	content []byte
	charset string
	err     error
	sent    bool
}

// NewResponse creates an empty 200 response
func NewResponse() *Response {
	return &Response{
		status:  http.StatusOK,
		header:  http.Header{},
		charset: "UTF-8",
	}
}

// NewErrorResponse creates a response carrying err
func NewErrorResponse(err error) *Response {
	resp := NewResponse()
	resp.err = err
	resp.status = exception.StatusFor(err)
	resp.content = []byte(err.Error())

	var e *exception.Exception
	if errors.As(err, &e) {
		for k, vs := range e.Header() {
			resp.header[k] = vs
		}
	}
	return resp
}

func (r *Response) StatusCode() int        { return r.status }
func (r *Response) SetStatusCode(code int) { r.status = code }
func (r *Response) Charset() string        { return r.charset }
func (r *Response) SetCharset(cs string)   { r.charset = cs }
func (r *Response) Content() string        { return string(r.content) }
func (r *Response) Bytes() []byte          { return r.content }
func (r *Response) SetContent(s string)    { r.content = []byte(s) }
func (r *Response) SetBytes(b []byte)      { r.content = b }
func (r *Response) Sent() bool             { return r.sent }

// Exception returns the error this response was created for, if any
func (r *Response) Exception() error { return r.err }

// Header returns the first value stored under key
func (r *Response) Header(key string) string { return r.header.Get(key) }

// HeaderValues returns every value stored under key
func (r *Response) HeaderValues(key string) []string {
	return r.header.Values(key)
}

// Headers returns a copy of all headers
func (r *Response) Headers() http.Header { return r.header.Clone() }

// SetHeader stores value under key. Empty values are ignored. Without
// replace an existing value is kept.
func (r *Response) SetHeader(key, value string, replace bool) {
	if value == "" {
		return
	}
	if !replace && r.header.Get(key) != "" {
		return
	}
	r.header.Set(key, value)
}

// AddHeader appends value after any existing values of key
func (r *Response) AddHeader(key, value string) {
	if value != "" {
		r.header.Add(key, value)
	}
}

// JSON encodes data as the body and sets the status
func (r *Response) JSON(data any, status int) error {
	body, err := sonic.Marshal(data)
	if err != nil {
		return exception.New("Unable to encode JSON response", exception.WithCause(err))
	}
	r.SetHeader("Cache-Control", "no-cache, private", true)
	r.SetHeader("Content-Type", "application/json", true)
	r.content = body
	r.status = status
	return nil
}

// Merge copies the status, body and charset of p. Headers are only copied
// when the key is not set yet.
func (r *Response) Merge(p Payload) error {
	body, err := p.Body()
	if err != nil {
		return err
	}
	for k, vs := range p.Header() {
		if len(r.header.Values(k)) > 0 {
			continue
		}
		for _, v := range vs {
			r.header.Add(k, v)
		}
	}
	r.content = body
	r.status = p.StatusCode()
	if cs := p.Charset(); cs != "" {
		r.charset = cs
	}
	return nil
}

// WriteTo sends the response. It can only succeed once.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	if r.sent {
		return ErrResponseSent
	}
	r.sent = true

	dst := w.Header()
	for k, vs := range r.header {
		dst[k] = append([]string(nil), vs...)
	}
	ct := dst.Get("Content-Type")
	switch {
	case ct == "" && len(r.content) > 0:
		dst.Set("Content-Type", "text/html; charset="+r.charset)
	case strings.HasPrefix(ct, "text/") && !strings.Contains(ct, "charset") && r.charset != "":
		dst.Set("Content-Type", ct+"; charset="+r.charset)
	}

	w.WriteHeader(r.status)
	_, err := w.Write(r.content)
	return err
}
