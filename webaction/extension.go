package webaction

import (
	"encoding/json"
	"sort"
	"strings"
)

// Transcoder renders a projected activation result as an HTTP response
type Transcoder func(v json.RawMessage, variant Variant) (*Response, error)

// MediaExtension describes one recognized URL extension: where projection
// may descend, where it lands by default, and how the result is rendered.
type MediaExtension struct {
	Extension         string
	DefaultProjection []string
	ProjectionAllowed bool
	Transcode         Transcoder
}

// The extension table is process-wide read-only. The .http entry keeps the
// URL suffix as the path reserved property instead of projecting with it.
var extensions = map[string]*MediaExtension{
	".http": {Extension: ".http", Transcode: resultAsHTTP},
	".json": {Extension: ".json", ProjectionAllowed: true, Transcode: resultAsJSON},
	".html": {Extension: ".html", DefaultProjection: []string{"html"}, ProjectionAllowed: true, Transcode: resultAsHTML},
	".svg":  {Extension: ".svg", DefaultProjection: []string{"svg"}, ProjectionAllowed: true, Transcode: resultAsSVG},
	".text": {Extension: ".text", DefaultProjection: []string{"text"}, ProjectionAllowed: true, Transcode: resultAsText},
}

// extensionSuffixes lists extensions longest first for suffix matching
var extensionSuffixes = func() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// splitExtension separates an action segment into its base name and media
// extension. The match is case-insensitive; the table is keyed lowercase.
func splitExtension(segment string) (base string, ext *MediaExtension, ok bool) {
	lower := strings.ToLower(segment)
	for _, suffix := range extensionSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return segment[:len(segment)-len(suffix)], extensions[suffix], true
		}
	}
	return segment, nil, false
}

func defaultExtension() *MediaExtension {
	return extensions[".http"]
}

// ExtensionByName finds a recognized media extension, e.g. ".json"
func ExtensionByName(name string) (*MediaExtension, bool) {
	ext, ok := extensions[strings.ToLower(name)]
	return ext, ok
}
