package webaction_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/webaction"
)

func ext(t *testing.T, name string) *webaction.MediaExtension {
	t.Helper()
	e, ok := webaction.ExtensionByName(name)
	require.True(t, ok)
	return e
}

func successActivation(result string) *entity.Activation {
	return &entity.Activation{
		ActivationID: "act-1",
		Response: entity.ActivationResponse{
			Status: entity.StatusSuccess,
			Result: json.RawMessage(result),
		},
	}
}

func transcode(t *testing.T, act *entity.Activation, extName, projection string) (*webaction.Response, error) {
	t.Helper()
	return webaction.TranscodeActivation(act, ext(t, extName), projection, webaction.MainVariant())
}

func requireRejection(t *testing.T, err error, status int) *errors.Rejection {
	t.Helper()
	require.Error(t, err)
	rej, ok := errors.AsRejection(err)
	require.True(t, ok, "expected rejection, got %v", err)
	require.Equal(t, status, rej.Status)
	return rej
}

func TestJSONTranscoder(t *testing.T) {
	resp, err := transcode(t, successActivation(`{"msg":"hi"}`), ".json", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"msg":"hi"}`, string(resp.Body))
}

func TestJSONTranscoderAcceptsArrays(t *testing.T) {
	resp, err := transcode(t, successActivation(`{"items":[1,2,3]}`), ".json", "/items")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(resp.Body))
}

func TestJSONTranscoderRejectsScalars(t *testing.T) {
	_, err := transcode(t, successActivation(`{"msg":"hi"}`), ".json", "/msg")
	requireRejection(t, err, http.StatusBadRequest)
}

func TestTextTranscoder(t *testing.T) {
	tests := []struct {
		name       string
		result     string
		projection string
		wantBody   string
	}{
		{"default projection on text field", `{"text":"X"}`, "", "X"},
		{"explicit projection", `{"msg":"hi"}`, "/msg", "hi"},
		{"number renders literally", `{"n":42}`, "/n", "42"},
		{"boolean renders literally", `{"b":true}`, "/b", "true"},
		{"null renders as the word null", `{"v":null}`, "/v", "null"},
		{"nested descent", `{"a":{"b":{"c":"deep"}}}`, "/a/b/c", "deep"},
		{"empty segments dropped", `{"a":{"b":"x"}}`, "//a//b/", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := transcode(t, successActivation(tt.result), ".text", tt.projection)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
			assert.Equal(t, tt.wantBody, string(resp.Body))
		})
	}
}

func TestTextTranscoderPrettyPrintsObjects(t *testing.T) {
	resp, err := transcode(t, successActivation(`{"obj":{"a":1}}`), ".text", "/obj")
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "\n")
	assert.JSONEq(t, `{"a":1}`, string(resp.Body))
}

func TestTextWithoutDefaultFieldIs404(t *testing.T) {
	// No explicit projection and no "text" field: the default projection
	// misses, which is a 404, not a root render.
	_, err := transcode(t, successActivation(`{"msg":"hi"}`), ".text", "")
	requireRejection(t, err, http.StatusNotFound)
}

func TestHTMLTranscoder(t *testing.T) {
	resp, err := transcode(t, successActivation(`{"html":"<h1>hi</h1>"}`), ".html", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, "<h1>hi</h1>", string(resp.Body))

	_, err = transcode(t, successActivation(`{"html":42}`), ".html", "")
	requireRejection(t, err, http.StatusBadRequest)
}

func TestSVGTranscoder(t *testing.T) {
	resp, err := transcode(t, successActivation(`{"svg":"<svg/>"}`), ".svg", "")
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Type"), "image/svg+xml")
	assert.Equal(t, "<svg/>", string(resp.Body))
}

func TestProjectionMiss(t *testing.T) {
	_, err := transcode(t, successActivation(`{"a":{"b":1}}`), ".json", "/a/missing")
	rej := requireRejection(t, err, http.StatusNotFound)
	assert.Contains(t, rej.Message, "property")
}

func TestProjectionThroughNonObject(t *testing.T) {
	_, err := transcode(t, successActivation(`{"a":"leaf"}`), ".json", "/a/b")
	requireRejection(t, err, http.StatusNotFound)
}

func TestApplicationErrorFoldsToErrorField(t *testing.T) {
	act := &entity.Activation{
		Response: entity.ActivationResponse{
			Status: entity.StatusApplicationError,
			Result: json.RawMessage(`{"error":{"reason":"no such user"}}`),
		},
	}

	// The requested projection is ignored in favor of the error field.
	resp, err := webaction.TranscodeActivation(act, ext(t, ".json"), "/whatever", webaction.MainVariant())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"reason":"no such user"}`, string(resp.Body))
}

func TestDeveloperAndSystemErrorsAreBadRequests(t *testing.T) {
	for _, status := range []string{entity.StatusDeveloperError, entity.StatusInternalError} {
		t.Run(status, func(t *testing.T) {
			act := &entity.Activation{
				Response: entity.ActivationResponse{
					Status: status,
					Result: json.RawMessage(`{"error":"boom"}`),
				},
			}
			_, err := webaction.TranscodeActivation(act, ext(t, ".json"), "", webaction.MainVariant())
			requireRejection(t, err, http.StatusBadRequest)
		})
	}
}

func TestHTTPTranscoderRedirect(t *testing.T) {
	resp, err := transcode(t,
		successActivation(`{"code":302,"headers":{"location":"https://e.example"}}`), ".http", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, "https://e.example", resp.Header.Get("Location"))
	assert.Empty(t, resp.Body)
}

func TestHTTPTranscoderStatusCodeField(t *testing.T) {
	resp, err := transcode(t,
		successActivation(`{"statusCode":201,"body":"made"}`), ".http", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "made", string(resp.Body))
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
}

func TestHTTPTranscoderDefaultStatus(t *testing.T) {
	resp, err := transcode(t, successActivation(`{"body":"ok"}`), ".http", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestHTTPTranscoderBadStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{"negative", `{"statusCode":-1}`},
		{"non-integer", `{"statusCode":"teapot"}`},
		{"fractional", `{"statusCode":1.5}`},
		{"out of range", `{"statusCode":99}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transcode(t, successActivation(tt.result), ".http", "")
			requireRejection(t, err, http.StatusBadRequest)
		})
	}
}

func TestHTTPTranscoderHeaderValues(t *testing.T) {
	resp, err := transcode(t,
		successActivation(`{"headers":{"x-str":"v","x-num":7,"x-bool":true}}`), ".http", "")
	require.NoError(t, err)
	assert.Equal(t, "v", resp.Header.Get("X-Str"))
	assert.Equal(t, "7", resp.Header.Get("X-Num"))
	assert.Equal(t, "true", resp.Header.Get("X-Bool"))

	_, err = transcode(t, successActivation(`{"headers":{"x-bad":{"nested":1}}}`), ".http", "")
	requireRejection(t, err, http.StatusBadRequest)
}

func TestHTTPTranscoderUnknownContentType(t *testing.T) {
	_, err := transcode(t,
		successActivation(`{"headers":{"content-type":"xyz/bar"},"body":"x"}`), ".http", "")
	rej := requireRejection(t, err, http.StatusBadRequest)
	assert.Contains(t, rej.Message, "content type")
}

func TestHTTPTranscoderBinaryBody(t *testing.T) {
	// "aGk=" is "hi"
	resp, err := transcode(t,
		successActivation(`{"headers":{"content-type":"image/png"},"body":"aGk="}`), ".http", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), resp.Body)

	_, err = transcode(t,
		successActivation(`{"headers":{"content-type":"image/png"},"body":"%%%"}`), ".http", "")
	requireRejection(t, err, http.StatusBadRequest)
}

func TestHTTPTranscoderNonObjectResult(t *testing.T) {
	_, err := transcode(t, successActivation(`{"v":"plain"}`), ".http", "")
	// .http does not project, so the root object is used; a result whose
	// shape is valid JSON object always reaches synthesis.
	require.NoError(t, err)

	act := successActivation(`[1,2]`)
	_, err = webaction.TranscodeActivation(act, ext(t, ".http"), "", webaction.MainVariant())
	requireRejection(t, err, http.StatusBadRequest)
}

func TestEmptyResultTreatedAsEmptyObject(t *testing.T) {
	act := &entity.Activation{
		Response: entity.ActivationResponse{Status: entity.StatusSuccess},
	}
	resp, err := webaction.TranscodeActivation(act, ext(t, ".json"), "", webaction.MainVariant())
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp.Body))
}
