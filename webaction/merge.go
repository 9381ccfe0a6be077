package webaction

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/mediatype"
)

func rejectParamsNotAllowed(offenders []string) error {
	sort.Strings(offenders)
	return errors.Reject(http.StatusBadRequest,
		"Request defines parameters that are not allowed (e.g., reserved properties): "+
			strings.Join(offenders, ", ")+".")
}

func rejectMalformedContent() error {
	return errors.Reject(http.StatusBadRequest, "The request content was malformed.")
}

// BuildPayload assembles the invocation payload: bound parameters under
// caller inputs under reserved metadata, with the immutability veto applied
// before anything is sent anywhere.
func BuildPayload(ctx *Context, pkg *entity.Package, action *entity.Action, variant Variant) (map[string]json.RawMessage, error) {
	bound := action
	if pkg != nil {
		bound = pkg.MergeInto(action)
	}
	payload := bound.Parameters.ToMap()

	if action.RawHTTP() {
		injectRawEnvelope(payload, ctx, variant)
	} else {
		bodyFields, err := decodeBodyObject(ctx)
		if err != nil {
			return nil, err
		}

		if err := vetoOffenders(ctx, bodyFields, action, variant); err != nil {
			return nil, err
		}

		for key, values := range ctx.Query {
			if len(values) > 0 {
				payload[key] = jsonString(values[0])
			}
		}
		for key, value := range bodyFields {
			payload[key] = value
		}
	}

	injectReserved(payload, ctx, variant)
	return payload, nil
}

// vetoOffenders rejects caller inputs that collide with reserved properties
// or parameters the action marked final
func vetoOffenders(ctx *Context, bodyFields map[string]json.RawMessage, action *entity.Action, variant Variant) error {
	immutable := action.ImmutableParameters()

	var offenders []string
	seen := map[string]struct{}{}
	flag := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		_, final := immutable[name]
		if final || variant.isReserved(name) {
			seen[name] = struct{}{}
			offenders = append(offenders, name)
		}
	}

	for key := range ctx.Query {
		flag(key)
	}
	for key := range bodyFields {
		flag(key)
	}

	if len(offenders) > 0 {
		return rejectParamsNotAllowed(offenders)
	}
	return nil
}

// decodeBodyObject folds the request entity into mergeable fields. JSON
// objects and form bodies contribute keys; a JSON body that is not an
// object is rejected as malformed; other content types contribute none.
func decodeBodyObject(ctx *Context) (map[string]json.RawMessage, error) {
	if len(ctx.RawBody) == 0 {
		return nil, nil
	}

	switch mediatype.Normalize(ctx.ContentType) {
	case mediatype.JSON, "":
		var value json.RawMessage
		if err := json.Unmarshal(ctx.RawBody, &value); err != nil {
			return nil, rejectMalformedContent()
		}
		if kindOf(value) != kindObject {
			return nil, rejectMalformedContent()
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(value, &fields); err != nil {
			return nil, rejectMalformedContent()
		}
		return fields, nil

	case mediatype.FormURLEncoded:
		form, err := url.ParseQuery(string(ctx.RawBody))
		if err != nil {
			return nil, rejectMalformedContent()
		}
		fields := make(map[string]json.RawMessage, len(form))
		for key, values := range form {
			if len(values) > 0 {
				fields[key] = jsonString(values[0])
			}
		}
		return fields, nil

	default:
		return nil, nil
	}
}

// injectRawEnvelope hands the unparsed request to the action: the query as
// one encoded string and the body as-is, base64 when binary
func injectRawEnvelope(payload map[string]json.RawMessage, ctx *Context, variant Variant) {
	if variant.KeyQuery != "" {
		payload[variant.KeyQuery] = jsonString(ctx.RawQuery)
	}
	if variant.KeyBody != "" {
		body := string(ctx.RawBody)
		if len(ctx.RawBody) > 0 && mediatype.BinaryBody(ctx.ContentType) {
			body = base64.StdEncoding.EncodeToString(ctx.RawBody)
		}
		payload[variant.KeyBody] = jsonString(body)
	}
}

// injectReserved overwrites the reserved metadata properties last so no
// earlier layer can shadow them
func injectReserved(payload map[string]json.RawMessage, ctx *Context, variant Variant) {
	payload[variant.KeyMethod] = jsonString(strings.ToLower(ctx.Method))
	payload[variant.KeyHeaders] = headerObject(ctx.Headers)
	payload[variant.KeyPath] = jsonString(ctx.ProjectionPath)
	payload[variant.KeyUser] = jsonString(ctx.Namespace)
}

func headerObject(headers http.Header) json.RawMessage {
	fields := make(map[string]string, len(headers))
	for name, values := range headers {
		fields[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}

func jsonString(s string) json.RawMessage {
	encoded, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return encoded
}
