package entity

import (
	"encoding/json"
	"strings"
)

// Annotation keys consumed by the web route
const (
	AnnotationWebExport   = "web-export"
	AnnotationRawHTTP     = "raw-http"
	AnnotationRequireAuth = "require-whisk-auth"
)

// Exec references the executable artifact of an action. The gateway never
// runs code; the reference rides along to the invoker untouched.
type Exec struct {
	Kind   string `json:"kind"`
	Binary bool   `json:"binary,omitempty"`
}

// Action is a named, invokable function unit. Namespace holds the
// namespace path of the record, "ns" or "ns/package".
type Action struct {
	Namespace   string        `json:"namespace"`
	Name        string        `json:"name"`
	Version     string        `json:"version,omitempty"`
	Publish     bool          `json:"publish"`
	Exec        Exec          `json:"exec"`
	Parameters  ParameterList `json:"parameters,omitempty"`
	Annotations ParameterList `json:"annotations,omitempty"`
}

// Path returns the namespace-relative invocation path, "name" or "pkg/name"
func (a *Action) Path() string {
	if i := strings.IndexByte(a.Namespace, '/'); i >= 0 {
		return a.Namespace[i+1:] + "/" + a.Name
	}
	return a.Name
}

// WebExported reports whether the action allows anonymous web invocation
func (a *Action) WebExported() bool {
	return a.Annotations.GetBool(AnnotationWebExport)
}

// RawHTTP reports whether the action receives the unparsed body
func (a *Action) RawHTTP() bool {
	return a.Annotations.GetBool(AnnotationRawHTTP)
}

// RequireAuth returns the require-whisk-auth annotation value and whether it
// is present. The value is JSON true for authenticated-caller-only actions,
// or a string/number secret the request must echo in X-Require-Whisk-Auth.
func (a *Action) RequireAuth() (json.RawMessage, bool) {
	return a.Annotations.Get(AnnotationRequireAuth)
}

// ImmutableParameters returns the names of parameters marked final, which
// callers may not override.
func (a *Action) ImmutableParameters() map[string]struct{} {
	return a.Parameters.FinalNames()
}
