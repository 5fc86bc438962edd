package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	perr "retrosignal/internal/platform/errors"
)

func TestParam_FromChiRoute(t *testing.T) {
	t.Parallel()

	var got string
	var mustErr error
	m := chi.NewRouter()
	m.Get("/d/{id}", func(_ http.ResponseWriter, r *http.Request) {
		got = Param(r, "id")
		_, mustErr = MustParam(r, "missing")
	})
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/d/abc", nil))

	if got != "abc" {
		t.Fatalf("param = %q", got)
	}
	if !perr.IsCode(mustErr, perr.ErrorCodeValidation) {
		t.Fatalf("missing param err = %v", mustErr)
	}
}

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/x?w=0.7&d=false&bad=zz", nil)

	if v, ok, err := QueryFloat(r, "w"); err != nil || !ok || v != 0.7 {
		t.Fatalf("float = %v %v %v", v, ok, err)
	}
	if _, ok, err := QueryFloat(r, "none"); err != nil || ok {
		t.Fatalf("absent float should be ok=false")
	}
	if _, _, err := QueryFloat(r, "bad"); err == nil {
		t.Fatalf("expected float parse error")
	}
	if v, ok, err := QueryBool(r, "d"); err != nil || !ok || v {
		t.Fatalf("bool = %v %v %v", v, ok, err)
	}
	if _, _, err := QueryBool(r, "bad"); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
