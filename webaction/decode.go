package webaction

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
)

// Context carries one request through the pipeline. Constructed by the
// decoder, consumed by merge and invocation, discarded on response.
type Context struct {
	Method  string
	Headers http.Header

	Namespace   string
	PackageName string
	ActionName  string
	Extension   *MediaExtension

	// ProjectionPath is the URL suffix after the action segment, with a
	// leading slash, or empty
	ProjectionPath string

	Query    url.Values
	RawQuery string

	// RawBody is the unparsed request entity; folding into JSON waits
	// until the action's raw-http flag is known
	RawBody     []byte
	ContentType string

	// Caller is the authenticated identity, nil for anonymous requests
	Caller *entity.Identity

	// AuthSecret echoes the X-Require-Whisk-Auth request header
	AuthSecret string
}

func rejectNotFound() error {
	return errors.Reject(http.StatusNotFound, "The requested resource does not exist.")
}

func rejectUnsupportedExtension() error {
	return errors.Reject(http.StatusNotAcceptable, "The requested content type is not supported.")
}

func rejectTooLarge() error {
	return errors.Reject(http.StatusRequestEntityTooLarge, "The request entity is larger than the allowed limit.")
}

// DecodeRequest validates the web route path and assembles the request
// context. trailing is the URL path after the route prefix:
// "<namespace>/<package>/<action>[.<ext>][/<projection...>]".
func DecodeRequest(r *http.Request, trailing string, variant Variant, maxBodySize int64) (*Context, error) {
	segments := strings.Split(strings.TrimPrefix(trailing, "/"), "/")
	if len(segments) < 3 {
		return nil, rejectNotFound()
	}

	namespace, pkg, actionSegment := segments[0], segments[1], segments[2]
	if !entity.ValidName(namespace) {
		return nil, rejectNotFound()
	}
	if pkg != entity.DefaultPackage && !entity.ValidName(pkg) {
		return nil, rejectNotFound()
	}
	if actionSegment == "" {
		return nil, rejectNotFound()
	}

	base, ext, ok := splitExtension(actionSegment)
	if !ok {
		if variant.EnforceExtension {
			return nil, rejectUnsupportedExtension()
		}
		base, ext = actionSegment, defaultExtension()
	}
	if !entity.ValidName(base) {
		return nil, rejectNotFound()
	}

	projection := ""
	if rest := segments[3:]; len(rest) > 0 {
		projection = "/" + strings.Join(rest, "/")
	}

	body, err := readBody(r, maxBodySize)
	if err != nil {
		return nil, err
	}

	return &Context{
		Method:         r.Method,
		Headers:        r.Header,
		Namespace:      namespace,
		PackageName:    pkg,
		ActionName:     base,
		Extension:      ext,
		ProjectionPath: projection,
		Query:          r.URL.Query(),
		RawQuery:       r.URL.RawQuery,
		RawBody:        body,
		ContentType:    r.Header.Get("Content-Type"),
		AuthSecret:     r.Header.Get("X-Require-Whisk-Auth"),
	}, nil
}

// readBody drains the entity up to one byte past the limit so an exactly
// full body passes and one byte over rejects
func readBody(r *http.Request, maxBodySize int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.WrapTransient(err, "webaction", "decode", "body read failed")
	}
	if int64(len(body)) > maxBodySize {
		return nil, rejectTooLarge()
	}
	return body, nil
}

// ActionPath returns the namespace-relative record path, "act" or "pkg/act"
func (c *Context) ActionPath() string {
	if c.PackageName == entity.DefaultPackage {
		return c.ActionName
	}
	return c.PackageName + "/" + c.ActionName
}
