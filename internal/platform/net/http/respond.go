// Package http serves the JSON API: routing seam, response envelope and server
package http

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	perr "retrosignal/internal/platform/errors"
	"retrosignal/internal/platform/net/http/bind"
)

// Envelope wraps every response body
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// RequestID returns the id the request id middleware stored on ctx
func RequestID(r *http.Request) string { return chimw.GetReqID(r.Context()) }

// Response is what return-style handlers produce
type Response struct {
	Status int
	Body   any
}

// OK wraps data in a 200
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// Error derives the status from err
func Error(err error) Response { return Response{Body: err} }

// Handle adapts a return-style handler
func Handle(h func(*http.Request) Response) Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := h(r)
		if err, ok := resp.Body.(error); ok && err != nil {
			WriteError(w, r, err)
			return
		}
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, Envelope{
			StatusCode: status,
			Status:     http.StatusText(status),
			RequestID:  RequestID(r),
			Data:       resp.Body,
		})
	}
}

// WriteError writes err as an error envelope with its mapped status
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := perr.HTTPStatus(err)
	writeJSON(w, status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       perr.CodeOf(err),
		Error:      perr.Message(err),
		RequestID:  RequestID(r),
	})
}

// JSONHandler binds and validates a T from the body before calling fn
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		out, err := fn(r, in)
		if err != nil {
			return Error(err)
		}
		return OK(out)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
