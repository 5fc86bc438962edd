// Package httpkit is the routing surface modules register handlers through
package httpkit

import (
	"net/http"

	phttp "retrosignal/internal/platform/net/http"
	"retrosignal/internal/platform/net/http/bind"
)

type (
	Router   = phttp.Router
	Handler  = phttp.Handler
	Response = phttp.Response
)

// Validate runs struct tag validation, returning a Validation error for the first bad field
var Validate = bind.Validate

// Call adapts fn to the envelope. A returned Response passes through untouched
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) phttp.Response {
		out, err := fn(r)
		if err != nil {
			return phttp.Error(err)
		}
		if resp, ok := out.(phttp.Response); ok {
			return resp
		}
		return phttp.OK(out)
	})
}

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) { r.Get(path, Call(h)) }

// Post mounts a body-less handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) { r.Post(path, Call(h)) }

// PostJSON mounts a handler whose body is decoded and validated into T
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}
