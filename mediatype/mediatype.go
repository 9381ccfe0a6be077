// Package mediatype is the registry of content types the web route
// understands, each tagged with whether its payload is binary. The registry
// decides how request bodies are folded into JSON and whether an action's
// http response body needs base64 decoding.
package mediatype

import (
	"mime"
	"strings"
)

// ContentType is a registered media type
type ContentType struct {
	Name   string
	Binary bool
}

// Canonical content types referenced across the web route
const (
	JSON           = "application/json"
	FormURLEncoded = "application/x-www-form-urlencoded"
	TextPlain      = "text/plain"
	TextHTML       = "text/html"
	SVG            = "image/svg+xml"
	OctetStream    = "application/octet-stream"
)

// registry covers the types web actions commonly produce. Anything textual
// renders as-is; binary types round-trip through base64 in JSON payloads.
var registry = map[string]ContentType{
	JSON:                     {Name: JSON},
	FormURLEncoded:           {Name: FormURLEncoded},
	TextPlain:                {Name: TextPlain},
	TextHTML:                 {Name: TextHTML},
	"text/css":               {Name: "text/css"},
	"text/csv":               {Name: "text/csv"},
	"text/xml":               {Name: "text/xml"},
	"application/xml":        {Name: "application/xml"},
	"application/javascript": {Name: "application/javascript"},
	SVG:                      {Name: SVG},
	OctetStream:              {Name: OctetStream, Binary: true},
	"application/pdf":        {Name: "application/pdf", Binary: true},
	"application/zip":        {Name: "application/zip", Binary: true},
	"application/gzip":       {Name: "application/gzip", Binary: true},
	"image/png":              {Name: "image/png", Binary: true},
	"image/jpeg":             {Name: "image/jpeg", Binary: true},
	"image/gif":              {Name: "image/gif", Binary: true},
	"image/webp":             {Name: "image/webp", Binary: true},
	"image/bmp":              {Name: "image/bmp", Binary: true},
	"image/x-icon":           {Name: "image/x-icon", Binary: true},
	"audio/mpeg":             {Name: "audio/mpeg", Binary: true},
	"audio/ogg":              {Name: "audio/ogg", Binary: true},
	"audio/wav":              {Name: "audio/wav", Binary: true},
	"video/mp4":              {Name: "video/mp4", Binary: true},
	"video/webm":             {Name: "video/webm", Binary: true},
	"font/woff":              {Name: "font/woff", Binary: true},
	"font/woff2":             {Name: "font/woff2", Binary: true},
	"font/ttf":               {Name: "font/ttf", Binary: true},
}

// Normalize strips media-type parameters and lowercases the bare type.
// Returns "" when the value cannot be parsed as a media type.
func Normalize(contentType string) string {
	if contentType == "" {
		return ""
	}
	name, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return name
}

// Lookup finds a registered content type by its (possibly parameterized)
// header value
func Lookup(contentType string) (ContentType, bool) {
	ct, ok := registry[Normalize(contentType)]
	return ct, ok
}

// BinaryBody reports whether a request body with the given content type
// should be treated as binary. Unregistered types fall back on the top-level
// type: anything outside text/ is assumed binary, since guessing textual and
// being wrong corrupts the payload.
func BinaryBody(contentType string) bool {
	name := Normalize(contentType)
	if ct, ok := registry[name]; ok {
		return ct.Binary
	}
	return !strings.HasPrefix(name, "text/")
}
