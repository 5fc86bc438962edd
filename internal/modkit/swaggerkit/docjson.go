package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
)

//go:embed openapi.json
var openapiDoc string

// docReader returns the raw document; tests replace it
var docReader = func() string { return openapiDoc }

// SpecMutator edits the parsed document before it is served
type SpecMutator func(map[string]any)

var mutators []SpecMutator

// Register adds m to the mutators run on every doc.json request
func Register(m SpecMutator) {
	if m != nil {
		mutators = append(mutators, m)
	}
}

// errorSchema mirrors the envelope an error is written with
var errorSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"status_code": map[string]any{"type": "integer"},
		"status":      map[string]any{"type": "string"},
		"code":        map[string]any{"type": "integer"},
		"error":       map[string]any{"type": "string"},
		"request_id":  map[string]any{"type": "string"},
	},
	"required": []any{"status_code", "status", "error"},
}

func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(docReader()), &spec); err != nil {
			http.Error(w, "openapi document is not valid JSON", http.StatusInternalServerError)
			return
		}
		if _, ok := spec["servers"]; !ok {
			spec["servers"] = []any{map[string]any{"url": "/api/v1"}}
		}
		schemas := child(child(spec, "components"), "schemas")
		if _, ok := schemas["ErrorResponse"]; !ok {
			schemas["ErrorResponse"] = errorSchema
		}
		addErrorResponses(spec, http.StatusBadRequest, http.StatusInternalServerError)
		for _, m := range mutators {
			m(spec)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// child returns m[key] as an object, creating it when absent
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}

// addErrorResponses documents each status on every operation that does not already
func addErrorResponses(spec map[string]any, statuses ...int) {
	paths, _ := spec["paths"].(map[string]any)
	for _, p := range paths {
		ops, _ := p.(map[string]any)
		for _, op := range ops {
			o, ok := op.(map[string]any)
			if !ok {
				continue
			}
			resps := child(o, "responses")
			for _, s := range statuses {
				key := strconv.Itoa(s)
				if _, ok := resps[key]; ok {
					continue
				}
				resps[key] = map[string]any{
					"description": http.StatusText(s),
					"content": map[string]any{"application/json": map[string]any{
						"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
					}},
				}
			}
		}
	}
}
