package webaction

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/mediatype"
)

func errPropertyNotFound() error {
	return errors.Reject(http.StatusNotFound, "The requested property does not exist.")
}

func errProcessingRequest() error {
	return errors.Reject(http.StatusBadRequest, "There was an error processing your request.")
}

func errNotRenderable(contentType string) error {
	return errors.Reject(http.StatusBadRequest,
		fmt.Sprintf("The action result could not be rendered as %s.", contentType))
}

// jsonKind classifies a raw JSON value by its leading byte
type jsonKind int

const (
	kindInvalid jsonKind = iota
	kindObject
	kindArray
	kindString
	kindNumber
	kindBool
	kindNull
)

func kindOf(v json.RawMessage) jsonKind {
	trimmed := bytes.TrimLeft(v, " \t\r\n")
	if len(trimmed) == 0 {
		return kindInvalid
	}
	switch trimmed[0] {
	case '{':
		return kindObject
	case '[':
		return kindArray
	case '"':
		return kindString
	case 't', 'f':
		return kindBool
	case 'n':
		return kindNull
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return kindNumber
	}
	return kindInvalid
}

// TranscodeActivation folds the activation outcome into the extension's
// rendering. Application errors swap the requested projection for the error
// field; developer and system errors never reach a transcoder.
func TranscodeActivation(act *entity.Activation, ext *MediaExtension, projectionPath string, variant Variant) (*Response, error) {
	result := act.Response.Result
	if len(result) == 0 {
		result = json.RawMessage(`{}`)
	}

	var fields []string
	switch act.Response.Status {
	case entity.StatusSuccess:
		fields = projectionFields(ext, projectionPath)
	case entity.StatusApplicationError:
		fields = []string{entity.ErrorField}
	default:
		return nil, errProcessingRequest()
	}

	projected, err := project(result, fields)
	if err != nil {
		return nil, err
	}
	return ext.Transcode(projected, variant)
}

// projectionFields picks the field path to descend into the result
func projectionFields(ext *MediaExtension, projectionPath string) []string {
	if ext.ProjectionAllowed {
		if fields := splitProjection(projectionPath); len(fields) > 0 {
			return fields
		}
	}
	return ext.DefaultProjection
}

// splitProjection breaks "/a/b/c" into its non-empty segments
func splitProjection(path string) []string {
	var fields []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			fields = append(fields, seg)
		}
	}
	return fields
}

// project descends left-associatively through nested objects
func project(result json.RawMessage, fields []string) (json.RawMessage, error) {
	current := result
	for _, field := range fields {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(current, &obj); err != nil {
			return nil, errPropertyNotFound()
		}
		next, ok := obj[field]
		if !ok {
			return nil, errPropertyNotFound()
		}
		current = next
	}
	return current, nil
}

func resultAsJSON(v json.RawMessage, _ Variant) (*Response, error) {
	switch kindOf(v) {
	case kindObject, kindArray:
		return newResponse(http.StatusOK, mediatype.JSON, v), nil
	}
	return nil, errNotRenderable(mediatype.JSON)
}

func resultAsText(v json.RawMessage, _ Variant) (*Response, error) {
	contentType := mediatype.TextPlain + "; charset=utf-8"
	switch kindOf(v) {
	case kindString:
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, errNotRenderable(mediatype.TextPlain)
		}
		return newResponse(http.StatusOK, contentType, []byte(s)), nil
	case kindBool, kindNumber, kindNull:
		// null renders as the literal string "null"
		return newResponse(http.StatusOK, contentType, bytes.TrimSpace(v)), nil
	case kindObject, kindArray:
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, v, "", "  "); err != nil {
			return nil, errNotRenderable(mediatype.TextPlain)
		}
		return newResponse(http.StatusOK, contentType, pretty.Bytes()), nil
	}
	return nil, errNotRenderable(mediatype.TextPlain)
}

func resultAsHTML(v json.RawMessage, _ Variant) (*Response, error) {
	return resultAsMarkup(v, mediatype.TextHTML)
}

func resultAsSVG(v json.RawMessage, _ Variant) (*Response, error) {
	return resultAsMarkup(v, mediatype.SVG)
}

func resultAsMarkup(v json.RawMessage, contentType string) (*Response, error) {
	if kindOf(v) != kindString {
		return nil, errNotRenderable(contentType)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, errNotRenderable(contentType)
	}
	return newResponse(http.StatusOK, contentType+"; charset=utf-8", []byte(s)), nil
}

// resultAsHTTP lets the action author the full response: status, headers,
// and body, with base64 bodies for binary content types
func resultAsHTTP(v json.RawMessage, variant Variant) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(v, &fields); err != nil || fields == nil {
		return nil, errNotRenderable("http")
	}

	status, err := httpStatus(fields, variant)
	if err != nil {
		return nil, err
	}

	header, err := httpHeaders(fields)
	if err != nil {
		return nil, err
	}

	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = mediatype.TextHTML
		header.Set("Content-Type", contentType)
	}
	registered, known := mediatype.Lookup(contentType)
	if !known {
		return nil, errors.Reject(http.StatusBadRequest,
			"The content type specified in the response is not a known media type.")
	}

	body, err := httpBody(fields, registered.Binary)
	if err != nil {
		return nil, err
	}

	return &Response{Status: status, Header: header, Body: body}, nil
}

// httpStatus reads the status code, trying the surface's field name first
// and falling back to the other spelling
func httpStatus(fields map[string]json.RawMessage, variant Variant) (int, error) {
	names := []string{variant.StatusField, "statusCode", "code"}
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var code int
		if err := json.Unmarshal(raw, &code); err != nil {
			return 0, errors.Reject(http.StatusBadRequest,
				"The status code specified in the response is not a valid integer.")
		}
		if code < 100 || code > 599 {
			return 0, errors.Reject(http.StatusBadRequest,
				"The status code specified in the response is out of range.")
		}
		return code, nil
	}
	return http.StatusOK, nil
}

// httpHeaders accepts string, boolean, and number header values and
// stringifies them; anything else fails the synthesis
func httpHeaders(fields map[string]json.RawMessage) (http.Header, error) {
	header := http.Header{}
	raw, ok := fields["headers"]
	if !ok {
		return header, nil
	}

	var pairs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, errors.Reject(http.StatusBadRequest,
			"The headers specified in the response are not valid.")
	}

	for name, value := range pairs {
		switch kindOf(value) {
		case kindString:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, errors.Reject(http.StatusBadRequest,
					"The headers specified in the response are not valid.")
			}
			header.Add(name, s)
		case kindBool, kindNumber:
			header.Add(name, string(bytes.TrimSpace(value)))
		default:
			return nil, errors.Reject(http.StatusBadRequest,
				"The headers specified in the response are not valid.")
		}
	}
	return header, nil
}

func httpBody(fields map[string]json.RawMessage, binary bool) ([]byte, error) {
	raw, ok := fields["body"]
	if !ok {
		return nil, nil
	}

	var body string
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.Reject(http.StatusBadRequest,
			"The body specified in the response is not a string.")
	}

	if binary {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, errors.Reject(http.StatusBadRequest,
				"The body specified in the response could not be decoded as base64.")
		}
		return decoded, nil
	}
	return []byte(body), nil
}
