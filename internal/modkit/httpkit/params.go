package httpkit

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	perr "retrosignal/internal/platform/errors"
)

// Param returns a path parameter captured by the router
func Param(r *http.Request, key string) string { return chi.URLParam(r, key) }

// MustParam returns a non-blank path parameter or a validation error
func MustParam(r *http.Request, key string) (string, error) {
	v := strings.TrimSpace(Param(r, key))
	if v == "" {
		return "", perr.Newf(perr.ErrorCodeValidation, "%s is required", key)
	}
	return v, nil
}

// QueryFloat parses an optional float query value; ok is false when absent
func QueryFloat(r *http.Request, key string) (v float64, ok bool, err error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, perr.Newf(perr.ErrorCodeValidation, "%s must be a number", key)
	}
	return v, true, nil
}

// QueryBool parses an optional bool query value; ok is false when absent
func QueryBool(r *http.Request, key string) (v bool, ok bool, err error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return false, false, nil
	}
	v, err = strconv.ParseBool(s)
	if err != nil {
		return false, false, perr.Newf(perr.ErrorCodeValidation, "%s must be a boolean", key)
	}
	return v, true, nil
}
