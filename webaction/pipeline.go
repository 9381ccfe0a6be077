package webaction

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/actiongate/entitlement"
	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
	"github.com/c360/actiongate/invoke"
	"github.com/c360/actiongate/store"
)

// ActivationIDHeader surfaces the activation behind a response
const ActivationIDHeader = "X-Openwhisk-Activation-Id"

// TransactionIDHeader carries the request's transaction id in and out
const TransactionIDHeader = "X-Request-ID"

// Invoker is the slice of the invoke client the pipeline needs
type Invoker interface {
	Invoke(ctx context.Context, owner *entity.Identity, action *entity.Action,
		payload map[string]json.RawMessage, transactionID string) (*entity.Activation, error)
}

// Logger matches the process logger surface the pipeline needs
type Logger interface {
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// Metrics receives one observation per finished invocation attempt
type Metrics interface {
	ObserveInvocation(namespace, outcome string, seconds float64)
}

// Pipeline is the web route handler: decode, authorize, throttle, merge,
// invoke, transcode. Mounted once per variant.
type Pipeline struct {
	Variant     Variant
	Auth        store.AuthStore
	Entities    store.EntityStore
	Throttle    entitlement.Provider
	Invoker     Invoker
	MaxBodySize int64
	Logger      Logger
	Metrics     Metrics
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	txnID := r.Header.Get(TransactionIDHeader)
	if txnID == "" {
		txnID = uuid.NewString()
	}
	w.Header().Set(TransactionIDHeader, txnID)

	resp, err := p.handle(w, r, txnID)
	if err != nil {
		p.writeRejection(w, r, err, txnID)
		return
	}
	resp.Write(w, r.Method)
}

func (p *Pipeline) handle(w http.ResponseWriter, r *http.Request, txnID string) (*Response, error) {
	ctx, err := DecodeRequest(r, r.URL.Path, p.Variant, p.MaxBodySize)
	if err != nil {
		return nil, err
	}

	caller, err := authenticate(r.Context(), r, p.Auth)
	if err != nil {
		return nil, err
	}
	ctx.Caller = caller

	owner, pkg, action, err := p.lookup(r, ctx)
	if err != nil {
		return nil, err
	}

	if err := checkExportGate(action, ctx.Caller, ctx.AuthSecret); err != nil {
		return nil, err
	}

	if err := p.Throttle.CheckRate(r.Context(), owner); err != nil {
		return nil, err
	}
	release, err := p.Throttle.AcquireSlot(r.Context(), owner)
	if err != nil {
		return nil, err
	}
	defer release()

	payload, err := BuildPayload(ctx, pkg, action, p.Variant)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	activation, err := p.Invoker.Invoke(r.Context(), owner, action, payload, txnID)
	if err != nil {
		var timeout *invoke.TimeoutError
		if stderrors.As(err, &timeout) {
			p.observe(owner.Namespace, "not_ready", started)
			return p.notReady(timeout.ActivationID), nil
		}
		p.observe(owner.Namespace, "failed", started)
		return nil, err
	}
	p.observe(owner.Namespace, activation.Response.Status, started)

	w.Header().Set(ActivationIDHeader, activation.ActivationID)
	return TranscodeActivation(activation, ctx.Extension, ctx.ProjectionPath, p.Variant)
}

// lookup resolves the owner identity in parallel with the package and
// action records
func (p *Pipeline) lookup(r *http.Request, ctx *Context) (*entity.Identity, *entity.Package, *entity.Action, error) {
	var (
		owner  *entity.Identity
		pkg    *entity.Package
		action *entity.Action
	)

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		owner, err = p.Auth.IdentityByNamespace(gctx, ctx.Namespace)
		return err
	})
	g.Go(func() error {
		var err error
		if ctx.PackageName != entity.DefaultPackage {
			pkg, err = p.Entities.GetPackage(gctx, ctx.Namespace, ctx.PackageName)
			if err != nil {
				return err
			}
		}
		action, err = p.Entities.GetAction(gctx, ctx.Namespace, ctx.ActionPath())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return owner, pkg, action, nil
}

// notReady is the accepted-but-not-finished response: the activation id
// points at the still-running invocation
func (p *Pipeline) notReady(activationID string) *Response {
	body, _ := json.Marshal(map[string]string{"activationId": activationID})
	resp := newResponse(http.StatusAccepted, "application/json", body)
	resp.Header.Set(ActivationIDHeader, activationID)
	return resp
}

// writeRejection renders the error envelope. Internal faults collapse to a
// single 500 so store and invoker details never leak.
func (p *Pipeline) writeRejection(w http.ResponseWriter, r *http.Request, err error, txnID string) {
	rej, ok := errors.AsRejection(err)
	if !ok {
		if p.Logger != nil {
			p.Logger.Errorf("request failed txn=%s: %v", txnID, err)
		}
		rej = errors.Reject(http.StatusInternalServerError, "There was an internal server error.")
	} else if rej.Err != nil && p.Logger != nil {
		p.Logger.Debugf("request rejected txn=%s status=%d: %v", txnID, rej.Status, rej.Err)
	}

	body, _ := json.Marshal(map[string]string{
		"error": rej.Message,
		"code":  txnID,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rej.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

func (p *Pipeline) observe(namespace, outcome string, started time.Time) {
	if p.Metrics != nil {
		p.Metrics.ObserveInvocation(namespace, outcome, time.Since(started).Seconds())
	}
}
