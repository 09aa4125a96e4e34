// Package view renders HTML templates into dispatch responses.
//
// Templates are discovered under a views directory with a "**/*.html"
// glob and addressed by their slash path without extension
// ("users/show"). A View is a renderer: returning one from a handler
// writes the rendered page into the response.
//
// Template helpers:
//   - get "a.b": dotted lookup into the view data
//   - js "a.b": the value as a JavaScript literal
//   - url "users.show" 5: absolute URL of a named route
package view
