package webaction

// Variant describes one of the two web API surfaces. The main surface
// defaults unextended action segments to .http; the experimental surface
// requires an explicit extension and uses its own reserved key names.
type Variant struct {
	Name             string
	EnforceExtension bool

	KeyMethod  string
	KeyHeaders string
	KeyPath    string
	KeyUser    string

	// Raw envelope keys. Empty when the surface has no raw envelope.
	KeyQuery string
	KeyBody  string

	// Field consulted first when an http result names its status
	StatusField string
}

// MainVariant is the /api/v1/web surface
func MainVariant() Variant {
	return Variant{
		Name:        "main",
		KeyMethod:   "__ow_method",
		KeyHeaders:  "__ow_headers",
		KeyPath:     "__ow_path",
		KeyUser:     "__ow_user",
		KeyQuery:    "__ow_query",
		KeyBody:     "__ow_body",
		StatusField: "statusCode",
	}
}

// ExperimentalVariant is the /experimental/web surface
func ExperimentalVariant() Variant {
	return Variant{
		Name:             "experimental",
		EnforceExtension: true,
		KeyMethod:        "__ow_meta_verb",
		KeyHeaders:       "__ow_meta_headers",
		KeyPath:          "__ow_meta_path",
		KeyUser:          "__ow_meta_namespace",
		StatusField:      "code",
	}
}

// Reserved returns the payload keys the surface injects. Clients may not
// supply any of these.
func (v Variant) Reserved() []string {
	keys := []string{v.KeyMethod, v.KeyHeaders, v.KeyPath, v.KeyUser}
	if v.KeyQuery != "" {
		keys = append(keys, v.KeyQuery)
	}
	if v.KeyBody != "" {
		keys = append(keys, v.KeyBody)
	}
	return keys
}

func (v Variant) isReserved(name string) bool {
	for _, k := range v.Reserved() {
		if name == k {
			return true
		}
	}
	return false
}
