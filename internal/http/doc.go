// Package http adapts net/http requests and responses for the dispatch
// pipeline.
//
// Request normalizes the path, merges query, form and file input into one
// map and trims every string value. Response is a mutable response that is
// written to the client once.
//
// Handlers may return foreign response shapes. Anything implementing
// Payload (JSON, File) is merged into the current response; anything
// implementing Renderer writes itself into it.
//
// Example Usage:
//
//	req := http.NewRequest(r)
//	resp := http.NewResponse()
//	resp.SetHeader("x-request-id", req.ID(), true)
//	_ = resp.JSON(map[string]any{"ok": true}, 200)
//	_ = resp.WriteTo(w)
package http
