package routing

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/GriffinCanCode/conduit/internal/exception"
)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Options are the per-route attributes
type Options struct {
	As         string
	Middleware []string
}

// Group are the attributes applied to every route registered inside a
// group
type Group struct {
	Prefix     string
	As         string
	Middleware []string
}

// ParseMiddleware splits a pipe delimited middleware list
func ParseMiddleware(list string) []string {
	var out []string
	for _, m := range strings.Split(list, "|") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Collector registers routes into a table. The first registration error
// is kept and returned by Err; later calls are ignored.
type Collector struct {
	table      *Table
	prefix     string
	as         string
	middleware []string
	stack      []Group
	err        error
}

// NewCollector creates a collector whose routes are prefixed with the
// kebab-cased name. An empty name registers at the root.
func NewCollector(table *Table, name string) *Collector {
	c := &Collector{table: table}
	c.SetPrefix(KebabCase(name))
	return c
}

// KebabCase converts a CamelCase name to kebab-case
func KebabCase(name string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(name, "$1-$2"))
}

// SetPrefix sets the collector path prefix
func (c *Collector) SetPrefix(prefix string) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		c.prefix = ""
		return
	}
	c.prefix = "/" + prefix
}

// SetMiddleware sets the middleware applied to every route of the
// collector. Only the first call has an effect.
func (c *Collector) SetMiddleware(list string) {
	if c.middleware != nil {
		return
	}
	c.middleware = ParseMiddleware(list)
	if c.middleware == nil {
		c.middleware = []string{}
	}
}

// SetAs sets the name prefix of every route of the collector
func (c *Collector) SetAs(as string) {
	c.as = strings.Trim(as, ".")
}

// Err returns the first registration error
func (c *Collector) Err() error { return c.err }

// Group registers the routes added by fn with attrs merged onto the
// enclosing group
func (c *Collector) Group(attrs Group, fn func(c *Collector)) {
	attrs.Prefix = collapse(attrs.Prefix, "/")
	attrs.As = collapse(attrs.As, ".")

	if n := len(c.stack); n > 0 {
		attrs = mergeGroup(attrs, c.stack[n-1])
	}
	c.stack = append(c.stack, attrs)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	fn(c)
}

func mergeGroup(child, parent Group) Group {
	merged := Group{
		Prefix:     parent.Prefix,
		As:         parent.As,
		Middleware: Union(parent.Middleware, child.Middleware),
	}
	if child.Prefix != "" {
		merged.Prefix = strings.Trim(parent.Prefix+"/"+child.Prefix, "/")
	}
	if child.As != "" {
		merged.As = strings.Trim(parent.As+"."+child.As, ".")
	}
	return merged
}

// Union concatenates lists, keeping the first occurrence of each entry
func Union(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, m := range list {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func collapse(s, sep string) string {
	for strings.Contains(s, sep+sep) {
		s = strings.ReplaceAll(s, sep+sep, sep)
	}
	return strings.Trim(s, sep)
}

// AddRoute registers uri under method with the current group attributes
func (c *Collector) AddRoute(method, uri string, opts Options, h Handler) {
	if c.err != nil {
		return
	}
	method = strings.ToUpper(method)
	if !ValidMethod(method) {
		c.err = exception.New(fmt.Sprintf("Invalid route method %s", method),
			exception.WithKind(exception.KindInvalidRoute), exception.WithStatus(http.StatusInternalServerError))
		return
	}
	if !h.Valid() {
		c.err = exception.New("Invalid route handler method",
			exception.WithKind(exception.KindInvalidRoute), exception.WithStatus(http.StatusInternalServerError))
		return
	}

	as := opts.As
	middleware := opts.Middleware
	if n := len(c.stack); n > 0 {
		group := c.stack[n-1]
		uri = group.Prefix + "/" + strings.Trim(uri, "/")
		middleware = Union(group.Middleware, middleware)
		switch {
		case group.As != "" && as != "":
			as = group.As + "." + as
		case group.As != "":
			as = group.As
		}
	}
	if as != "" && c.as != "" {
		as = c.as + "." + as
	}

	c.err = c.table.Register(Route{
		Method:     method,
		Pattern:    c.prefix + "/" + strings.Trim(uri, "/"),
		Handler:    h,
		Middleware: Union(c.middleware, middleware),
		Name:       as,
	})
}

func (c *Collector) Get(uri string, opts Options, h Handler)     { c.AddRoute("GET", uri, opts, h) }
func (c *Collector) Post(uri string, opts Options, h Handler)    { c.AddRoute("POST", uri, opts, h) }
func (c *Collector) Put(uri string, opts Options, h Handler)     { c.AddRoute("PUT", uri, opts, h) }
func (c *Collector) Delete(uri string, opts Options, h Handler)  { c.AddRoute("DELETE", uri, opts, h) }
func (c *Collector) Patch(uri string, opts Options, h Handler)   { c.AddRoute("PATCH", uri, opts, h) }
func (c *Collector) Head(uri string, opts Options, h Handler)    { c.AddRoute("HEAD", uri, opts, h) }
func (c *Collector) Trace(uri string, opts Options, h Handler)   { c.AddRoute("TRACE", uri, opts, h) }
func (c *Collector) Connect(uri string, opts Options, h Handler) { c.AddRoute("CONNECT", uri, opts, h) }
func (c *Collector) Options(uri string, opts Options, h Handler) { c.AddRoute("OPTIONS", uri, opts, h) }
