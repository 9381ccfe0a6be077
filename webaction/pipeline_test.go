package webaction_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actiongate/entitlement"
	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/invoke"
	"github.com/c360/actiongate/store"
	"github.com/c360/actiongate/webaction"
)

type nopLogger struct{}

func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

// fakeInvoker answers invocations from a callback and records the last
// payload it saw
type fakeInvoker struct {
	calls       int
	lastPayload map[string]json.RawMessage
	respond     func(payload map[string]json.RawMessage) (*entity.Activation, error)
}

func (f *fakeInvoker) Invoke(_ context.Context, _ *entity.Identity, _ *entity.Action,
	payload map[string]json.RawMessage, _ string) (*entity.Activation, error) {
	f.calls++
	f.lastPayload = payload
	return f.respond(payload)
}

func respondWith(result string) func(map[string]json.RawMessage) (*entity.Activation, error) {
	return func(map[string]json.RawMessage) (*entity.Activation, error) {
		return &entity.Activation{
			ActivationID: "act-42",
			Response: entity.ActivationResponse{
				Status: entity.StatusSuccess,
				Result: json.RawMessage(result),
			},
		}, nil
	}
}

type fixture struct {
	pipeline *webaction.Pipeline
	store    *store.MemoryStore
	invoker  *fakeInvoker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	mem.PutIdentity(&entity.Identity{
		Subject:   "ns",
		Namespace: "ns",
		AuthKey:   entity.AuthKey{UUID: "uuid-ns", Key: "key-ns"},
	})

	inv := &fakeInvoker{respond: respondWith(`{}`)}
	return &fixture{
		pipeline: &webaction.Pipeline{
			Variant:     webaction.MainVariant(),
			Auth:        mem,
			Entities:    mem,
			Throttle:    entitlement.NewLocalProvider(entitlement.DefaultLimits()),
			Invoker:     inv,
			MaxBodySize: 1 << 20,
			Logger:      nopLogger{},
		},
		store:   mem,
		invoker: inv,
	}
}

func (f *fixture) putAction(path string, act *entity.Action) {
	if act.Annotations == nil {
		act.Annotations = entity.ParameterList{}
	}
	f.store.PutAction("ns", path, act)
}

func exportedAction(name string, extra ...entity.Parameter) *entity.Action {
	annotations := entity.ParameterList{
		{Key: entity.AnnotationWebExport, Value: json.RawMessage("true")},
	}
	annotations = append(annotations, extra...)
	return &entity.Action{Namespace: "ns", Name: name, Annotations: annotations}
}

func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.pipeline.ServeHTTP(w, r)
	return w
}

func errorEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var envelope map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope["code"], "error envelope carries the transaction id")
	return envelope
}

func TestScenarioHelloJSON(t *testing.T) {
	f := newFixture(t)
	f.putAction("hello", exportedAction("hello"))
	f.invoker.respond = respondWith(`{"msg":"hi"}`)

	w := f.do(http.MethodGet, "/ns/default/hello.json", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"msg":"hi"}`, w.Body.String())
	assert.Equal(t, "act-42", w.Header().Get("X-Openwhisk-Activation-Id"))
}

func TestScenarioHelloTextProjection(t *testing.T) {
	f := newFixture(t)
	f.putAction("hello", exportedAction("hello"))
	f.invoker.respond = respondWith(`{"msg":"hi"}`)

	w := f.do(http.MethodGet, "/ns/default/hello.text/msg", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "hi", w.Body.String())
}

func TestScenarioBodyWinsMerge(t *testing.T) {
	f := newFixture(t)
	f.store.PutPackage("ns", &entity.Package{
		Name:       "pkg",
		Parameters: entity.ParameterList{{Key: "x", Value: json.RawMessage("0")}},
	})
	act := exportedAction("echo")
	act.Namespace = "ns/pkg"
	f.putAction("pkg/echo", act)
	f.invoker.respond = func(payload map[string]json.RawMessage) (*entity.Activation, error) {
		result, _ := json.Marshal(map[string]json.RawMessage{"x": payload["x"]})
		return &entity.Activation{
			ActivationID: "act-42",
			Response:     entity.ActivationResponse{Status: entity.StatusSuccess, Result: result},
		}, nil
	}

	w := f.do(http.MethodPost, "/ns/pkg/echo.json?x=1", "application/json", `{"x":2}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"x":2}`, w.Body.String())
}

func TestScenarioImmutableParameterNeverInvoked(t *testing.T) {
	f := newFixture(t)
	act := exportedAction("echo")
	act.Namespace = "ns/pkg"
	act.Parameters = entity.ParameterList{{Key: "x", Value: json.RawMessage("0"), Final: true}}
	f.putAction("pkg/echo", act)
	f.store.PutPackage("ns", &entity.Package{Name: "pkg"})

	w := f.do(http.MethodPost, "/ns/pkg/echo.json?x=1", "application/json", `{"x":2}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := errorEnvelope(t, w)
	assert.Contains(t, envelope["error"], "not allowed")
	assert.Zero(t, f.invoker.calls, "vetoed requests never reach the invoker")
}

func TestScenarioHTTPRedirect(t *testing.T) {
	f := newFixture(t)
	f.store.PutPackage("ns", &entity.Package{Name: "pkg"})
	act := exportedAction("redir")
	act.Namespace = "ns/pkg"
	f.putAction("pkg/redir", act)
	f.invoker.respond = respondWith(`{"code":302,"headers":{"location":"https://e.example"}}`)

	w := f.do(http.MethodGet, "/ns/pkg/redir.http", "", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://e.example", w.Header().Get("Location"))
	assert.Empty(t, w.Body.String())
}

func TestScenarioHTTPUnknownContentType(t *testing.T) {
	f := newFixture(t)
	f.store.PutPackage("ns", &entity.Package{Name: "pkg"})
	act := exportedAction("proxy")
	act.Namespace = "ns/pkg"
	f.putAction("pkg/proxy", act)
	f.invoker.respond = respondWith(`{"headers":{"content-type":"xyz/bar"},"body":"x"}`)

	w := f.do(http.MethodGet, "/ns/pkg/proxy.http", "", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	envelope := errorEnvelope(t, w)
	assert.Contains(t, envelope["error"], "content type")
}

func TestMissingActionIs404(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/ns/default/ghost.json", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	errorEnvelope(t, w)
}

func TestUnexportedActionIs404(t *testing.T) {
	f := newFixture(t)
	f.putAction("hidden", &entity.Action{Namespace: "ns", Name: "hidden"})

	w := f.do(http.MethodGet, "/ns/default/hidden.json", "", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, f.invoker.calls)
}

func TestBindingPackageIs404(t *testing.T) {
	f := newFixture(t)
	f.store.PutPackage("ns", &entity.Package{
		Name:    "bound",
		Binding: &entity.Binding{Namespace: "other", Name: "origin"},
	})
	f.putAction("bound/act", exportedAction("act"))

	w := f.do(http.MethodGet, "/ns/bound/act.json", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireAuthAnonymousIs401(t *testing.T) {
	f := newFixture(t)
	f.putAction("secure", exportedAction("secure",
		entity.Parameter{Key: entity.AnnotationRequireAuth, Value: json.RawMessage("true")}))

	w := f.do(http.MethodGet, "/ns/default/secure.json", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, f.invoker.calls)
}

func TestRequireAuthAuthenticatedPasses(t *testing.T) {
	f := newFixture(t)
	f.putAction("secure", exportedAction("secure",
		entity.Parameter{Key: entity.AnnotationRequireAuth, Value: json.RawMessage("true")}))
	f.invoker.respond = respondWith(`{"ok":true}`)

	r := httptest.NewRequest(http.MethodGet, "/ns/default/secure.json", nil)
	r.SetBasicAuth("uuid-ns", "key-ns")
	w := httptest.NewRecorder()
	f.pipeline.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthSecretHeader(t *testing.T) {
	f := newFixture(t)
	f.putAction("hook", exportedAction("hook",
		entity.Parameter{Key: entity.AnnotationRequireAuth, Value: json.RawMessage(`"s3cret"`)}))
	f.invoker.respond = respondWith(`{"ok":true}`)

	r := httptest.NewRequest(http.MethodPost, "/ns/default/hook.json", nil)
	r.Header.Set("X-Require-Whisk-Auth", "s3cret")
	w := httptest.NewRecorder()
	f.pipeline.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code, "matching secret passes anonymously")

	r = httptest.NewRequest(http.MethodPost, "/ns/default/hook.json", nil)
	r.Header.Set("X-Require-Whisk-Auth", "wrong")
	w = httptest.NewRecorder()
	f.pipeline.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBadCredentialsAre401(t *testing.T) {
	f := newFixture(t)
	f.putAction("hello", exportedAction("hello"))

	r := httptest.NewRequest(http.MethodGet, "/ns/default/hello.json", nil)
	r.SetBasicAuth("uuid-ns", "wrong-key")
	w := httptest.NewRecorder()
	f.pipeline.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestThrottleRejectionIs429(t *testing.T) {
	f := newFixture(t)
	f.store.PutIdentity(&entity.Identity{
		Subject:   "ns",
		Namespace: "ns",
		Limits:    entity.Limits{InvocationsPerMinute: 1},
	})
	f.putAction("hello", exportedAction("hello"))

	first := f.do(http.MethodGet, "/ns/default/hello.json", "", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := f.do(http.MethodGet, "/ns/default/hello.json", "", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	envelope := errorEnvelope(t, second)
	assert.Contains(t, envelope["error"], "Too many requests")
}

func TestBlockingTimeoutIs202(t *testing.T) {
	f := newFixture(t)
	f.putAction("slow", exportedAction("slow"))
	f.invoker.respond = func(map[string]json.RawMessage) (*entity.Activation, error) {
		return nil, &invoke.TimeoutError{ActivationID: "act-slow"}
	}

	w := f.do(http.MethodGet, "/ns/default/slow.json", "", "")

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "act-slow", w.Header().Get("X-Openwhisk-Activation-Id"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "act-slow", body["activationId"])
}

func TestInvokerFailureIs500(t *testing.T) {
	f := newFixture(t)
	f.putAction("boom", exportedAction("boom"))
	f.invoker.respond = func(map[string]json.RawMessage) (*entity.Activation, error) {
		return nil, context.DeadlineExceeded
	}

	w := f.do(http.MethodGet, "/ns/default/boom.json", "", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	envelope := errorEnvelope(t, w)
	assert.NotContains(t, envelope["error"], "deadline", "internal detail never leaks")
}

func TestHeadRequestHasNoBody(t *testing.T) {
	f := newFixture(t)
	f.putAction("hello", exportedAction("hello"))
	f.invoker.respond = respondWith(`{"msg":"hi"}`)

	w := f.do(http.MethodHead, "/ns/default/hello.json", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestTransactionIDEchoed(t *testing.T) {
	f := newFixture(t)
	f.putAction("hello", exportedAction("hello"))

	r := httptest.NewRequest(http.MethodGet, "/ns/default/hello.json", nil)
	r.Header.Set("X-Request-ID", "txn-given")
	w := httptest.NewRecorder()
	f.pipeline.ServeHTTP(w, r)

	assert.Equal(t, "txn-given", w.Header().Get("X-Request-ID"))
}

func TestReservedPayloadInjectedExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.putAction("hello", exportedAction("hello"))

	w := f.do(http.MethodPost, "/ns/default/hello.json", "application/json", `{"a":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	variant := webaction.MainVariant()
	payload := f.invoker.lastPayload
	for _, key := range []string{variant.KeyMethod, variant.KeyHeaders, variant.KeyPath, variant.KeyUser} {
		_, present := payload[key]
		assert.True(t, present, "reserved key %s missing", key)
	}
}
