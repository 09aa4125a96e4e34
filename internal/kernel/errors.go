package kernel

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
)

var errorPage = template.Must(template.New("error").Parse(
	`<title>{{.Name}} Error {{.Status}}</title>` +
		`<h3 style='color: red'>{{.Message}}</h3>` +
		`{{if .Debug}}<pre>{{.File}}:{{.Line}}` + "\n" + `{{.Trace}}</pre>{{end}}` +
		`<div>{{.Payload}}</div>`))

var stripTags = bluemonday.StrictPolicy()

type errorView struct {
	Name    string
	Status  int
	Message template.HTML
	Debug   bool
	File    string
	Line    int
	Trace   string
	Payload string
}

// handleError asks the registered exception handler, then the error
// itself, for a result. Results that are still errors are rendered;
// failure is the wrapped form of err used for the page and the logs.
func (k *Kernel) handleError(err error, failure *exception.Exception) any {
	k.mu.RLock()
	onError := k.onError
	k.mu.RUnlock()

	var out any = err
	if onError != nil {
		out = onError.Handle(err)
	} else {
		var h exception.Handler
		if errors.As(err, &h) {
			out = h.Handle()
		}
	}

	if e, ok := out.(error); ok {
		if errors.Is(e, err) {
			return k.Render(failure)
		}
		return k.Render(e)
	}
	return out
}

// Render builds the HTML error page for err
func (k *Kernel) Render(err error) *xhttp.Response {
	e := exception.Wrap(err)
	resp := xhttp.NewErrorResponse(e)

	payload, jerr := sonic.MarshalString(e.Payload())
	if jerr != nil {
		payload = "{}"
	}

	view := errorView{
		Name:    k.name,
		Status:  resp.StatusCode(),
		Message: template.HTML(stripTags.Sanitize(e.Error())),
		Debug:   k.debug,
		File:    e.File(),
		Line:    e.Line(),
		Trace:   e.Trace(),
		Payload: payload,
	}

	var buf bytes.Buffer
	if terr := errorPage.Execute(&buf, view); terr != nil {
		k.logger.Error("failed to render error page", zap.Error(terr))
		buf.Reset()
		buf.WriteString(template.HTMLEscapeString(e.Error()))
	}

	resp.SetBytes(buf.Bytes())
	resp.SetHeader("Content-Type", "text/html; charset=UTF-8", true)
	resp.SetHeader("Cache-Control", "no-cache, private", true)
	resp.SetHeader("Date", time.Now().UTC().Format(http.TimeFormat), true)
	return resp
}
