package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/exception"
	xhttp "github.com/GriffinCanCode/conduit/internal/http"
	"github.com/GriffinCanCode/conduit/internal/logging"
)

const pattern = "**/*.html"

// URLResolver reverses named routes
type URLResolver interface {
	URL(name string, params ...string) (string, bool)
}

// Options configures an Engine
type Options struct {
	BaseURL string
	Routes  URLResolver
	Logger  *logging.Logger
}

// Engine holds the parsed templates of a views directory
type Engine struct {
	dir     string
	fsys    fs.FS
	baseURL string
	routes  URLResolver
	logger  *logging.Logger

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// NewEngine loads every template under dir
func NewEngine(dir string, opts Options) (*Engine, error) {
	return NewEngineFS(os.DirFS(dir), dir, opts)
}

// NewEngineFS loads every template in fsys. dir only labels errors.
func NewEngineFS(fsys fs.FS, dir string, opts Options) (*Engine, error) {
	e := &Engine{
		dir:     dir,
		fsys:    fsys,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		routes:  opts.Routes,
		logger:  opts.Logger,
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload rescans the views directory
func (e *Engine) Reload() error {
	matches, err := doublestar.Glob(e.fsys, pattern)
	if err != nil {
		return fmt.Errorf("glob views: %w", err)
	}

	templates := make(map[string]*template.Template, len(matches))
	for _, file := range matches {
		src, err := fs.ReadFile(e.fsys, file)
		if err != nil {
			return fmt.Errorf("read view %s: %w", file, err)
		}
		name := strings.TrimSuffix(file, path.Ext(file))
		tmpl, err := template.New(name).Funcs(e.funcs(nil)).Parse(string(src))
		if err != nil {
			return fmt.Errorf("parse view %s: %w", file, err)
		}
		templates[name] = tmpl
	}

	e.mu.Lock()
	e.templates = templates
	e.mu.Unlock()

	e.logger.Debug("views loaded", zap.String("dir", e.dir), zap.Int("templates", len(templates)))
	return nil
}

// Names lists the loaded templates
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	return names
}

// View prepares template name with data
func (e *Engine) View(name string, data map[string]any) (*View, error) {
	name = strings.TrimSuffix(strings.Trim(name, "/"), ".html")

	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return nil, exception.New(fmt.Sprintf("No template found at path %s", path.Join(e.dir, name+".html")),
			exception.WithStatus(http.StatusInternalServerError))
	}
	if data == nil {
		data = map[string]any{}
	}
	return &View{engine: e, name: name, tmpl: tmpl, data: data}, nil
}

// URL returns the absolute URL of a named route, empty when the name is
// unknown or parameters are missing
func (e *Engine) URL(name string, params ...any) string {
	if e.routes == nil {
		return ""
	}
	args := make([]string, len(params))
	for i, p := range params {
		args[i] = strings.TrimSpace(fmt.Sprint(p))
	}
	p, ok := e.routes.URL(strings.TrimSpace(name), args...)
	if !ok {
		return ""
	}
	return e.baseURL + p
}

func (e *Engine) funcs(data map[string]any) template.FuncMap {
	return template.FuncMap{
		"get": func(key string) any { return Lookup(data, key) },
		"js":  func(key string) template.JS { return template.JS(JSLiteral(Lookup(data, key))) },
		"url": e.URL,
	}
}

// View is a template bound to its data
type View struct {
	engine *Engine
	name   string
	tmpl   *template.Template
	data   map[string]any
}

func (v *View) Name() string         { return v.name }
func (v *View) Data() map[string]any { return v.data }

// Get resolves a dotted key in the view data
func (v *View) Get(key string) any { return Lookup(v.data, key) }

// Render executes the template
func (v *View) Render() ([]byte, error) {
	tmpl, err := v.tmpl.Clone()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Funcs(v.engine.funcs(v.data)).Execute(&buf, v.data); err != nil {
		return nil, fmt.Errorf("render view %s: %w", v.name, err)
	}
	return buf.Bytes(), nil
}

// Respond writes the rendered page into resp
func (v *View) Respond(resp *xhttp.Response) error {
	body, err := v.Render()
	if err != nil {
		return err
	}
	resp.SetBytes(body)
	resp.SetHeader("Content-Type", "text/html", false)
	return nil
}
