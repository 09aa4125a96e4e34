package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"///", "/"},
		{"/users/", "/users"},
		{"/users//", "/users"},
		{"/users?id=1", "/users"},
		{"/users/?id=1", "/users"},
		{"users", "/users"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestRequestBasics(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users/?page=2", nil)
	r.Header.Set("X-Token", "abc")
	req := NewRequest(r)

	assert.Equal(t, "GET", req.Method())
	assert.Equal(t, "/users", req.Path())
	assert.True(t, strings.HasPrefix(req.ID(), "req_"))
	assert.Equal(t, "abc", req.Header("x-token", ""))
	assert.Equal(t, "none", req.Header("missing", "none"))
	assert.Equal(t, "2", req.Query("page"))
	assert.Equal(t, r.RemoteAddr, req.ConnID())
	assert.Equal(t, "192.0.2.1", req.ClientIP())
}

func TestRequestSetHeader(t *testing.T) {
	req := NewRequest(httptest.NewRequest(http.MethodGet, "/", nil))

	req.SetHeader("X-Mode", []string{"a"}, false)
	req.SetHeader("X-Mode", []string{"b"}, false)
	assert.Equal(t, []string{"a", "b"}, req.Headers().Values("X-Mode"))
	assert.Equal(t, "a", req.Header("X-Mode", ""))

	req.SetHeader("X-Mode", []string{"c"}, true)
	assert.Equal(t, []string{"c"}, req.Headers().Values("X-Mode"))

	req.SetHeader("X-Mode", nil, true)
	assert.Equal(t, "c", req.Header("X-Mode", ""))
}

func TestAllMergesQueryThenForm(t *testing.T) {
	body := strings.NewReader("name=+form+&role=admin")
	r := httptest.NewRequest(http.MethodPost, "/users?name=query&page=1", body)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	all, err := NewRequest(r).All()
	require.NoError(t, err)

	assert.Equal(t, "form", all["name"])
	assert.Equal(t, "admin", all["role"])
	assert.Equal(t, "1", all["page"])
}

func TestAllRepeatedQueryValues(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?tag=a&tag=+b+", nil)

	all, err := NewRequest(r).All()
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, all["tag"])
}

func TestAllJSONBypassesMerge(t *testing.T) {
	body := strings.NewReader(`{"name":"  ada  ","tags":[" x "],"nested":{"k":" v "},"n":3}`)
	r := httptest.NewRequest(http.MethodPost, "/users?page=1", body)
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	all, err := NewRequest(r).All()
	require.NoError(t, err)

	assert.Equal(t, "ada", all["name"])
	assert.Equal(t, []any{"x"}, all["tags"])
	assert.Equal(t, map[string]any{"k": "v"}, all["nested"])
	assert.EqualValues(t, 3, all["n"])
	assert.NotContains(t, all, "page")
}

func TestAllJSONList(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(`[{"name":" ada "},"  x  ",7]`))
	r.Header.Set("Content-Type", "application/json")

	req := NewRequest(r)
	all, err := req.All()
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, map[string]any{"name": "ada"}, all["0"])
	assert.Equal(t, "x", all["1"])
	assert.EqualValues(t, 7, all["2"])
	assert.Equal(t, "ada", req.Input("0.name"))

	r = httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(`"just text"`))
	r.Header.Set("Content-Type", "application/json")
	all, err = NewRequest(r).All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInputDottedKeys(t *testing.T) {
	req := NewRequestFromValues("POST", "/", map[string]any{
		"user":  map[string]any{"name": " ada ", "tags": []any{"x", "y"}},
		"a.b":   "flat",
		"count": 2,
	})

	assert.Equal(t, "ada", req.Input("user.name"))
	assert.Equal(t, "y", req.Input("user.tags.1"))
	assert.Equal(t, "flat", req.Input("a.b"))
	assert.Nil(t, req.Input("user.tags.5"))
	assert.Nil(t, req.Input("user.tags.x"))
	assert.Nil(t, req.Input("count.value"))
	assert.Nil(t, req.Input("missing"))
}

func TestAllMalformedJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	r.Header.Set("Content-Type", "application/json")

	_, err := NewRequest(r).All()
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, exception.StatusFor(err))
}

func TestAllMultipartFiles(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", " report "))
	fw, err := mw.CreateFormFile("title", "report.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("contents"))
	fw, err = mw.CreateFormFile("attachment", "a.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("a"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/upload?title=query", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	all, err := NewRequest(r).All()
	require.NoError(t, err)

	fh, ok := all["title"].(*multipart.FileHeader)
	require.True(t, ok, "files overwrite form and query values")
	assert.Equal(t, "report.txt", fh.Filename)
	assert.IsType(t, &multipart.FileHeader{}, all["attachment"])
}

func TestBodyStaysReadable(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req := NewRequest(r)

	body, err := req.Body()
	require.NoError(t, err)
	assert.Equal(t, "a=1", string(body))

	all, err := req.All()
	require.NoError(t, err)
	assert.Equal(t, "1", all["a"])
}

func TestRequestFromValues(t *testing.T) {
	req := NewRequestFromValues("post", "/jobs/?x=1", map[string]any{"name": " job ", "list": []any{" a "}})

	assert.Equal(t, "POST", req.Method())
	assert.Equal(t, "/jobs", req.Path())
	assert.Equal(t, "job", req.Input("name"))
	assert.Equal(t, []any{"a"}, req.Input("list"))
	assert.Equal(t, "job", req.Query("name"))
	assert.Nil(t, req.Raw())
	assert.Empty(t, req.ConnID())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestAllBodyReadError(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", failingReader{})
	r.Header.Set("Content-Type", "application/json")

	_, err := NewRequest(r).All()
	assert.Error(t, err)
}
