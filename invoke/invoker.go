package invoke

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/c360/actiongate/entity"
	"github.com/c360/actiongate/errors"
)

// Requester is the slice of the NATS client the invoker needs
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Logger matches the process logger surface the invoker needs
type Logger interface {
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// Options configures the invoker client
type Options struct {
	// Subject all invoke requests are published to. Invoker replicas
	// subscribe in a queue group.
	Subject string

	// MaxBlockingWait caps the per-request wait bound
	MaxBlockingWait time.Duration
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		Subject:         "invoker.activations",
		MaxBlockingWait: 60 * time.Second,
	}
}

// Request is the wire shape sent to the invoker
type Request struct {
	ActivationID  string                     `json:"activationId"`
	TransactionID string                     `json:"transactionId,omitempty"`
	Namespace     string                     `json:"namespace"`
	ActionPath    string                     `json:"actionPath"`
	Kind          string                     `json:"kind,omitempty"`
	Parameters    map[string]json.RawMessage `json:"parameters"`
	Blocking      bool                       `json:"blocking"`
	WaitMillis    int64                      `json:"waitMillis"`
}

// Reply is the wire shape the invoker answers with. A reply without an
// activation means the invocation did not finish within the wait.
type Reply struct {
	Activation *entity.Activation `json:"activation,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// TimeoutError reports a blocking wait that elapsed before the activation
// completed. The activation id identifies the still-running invocation.
type TimeoutError struct {
	ActivationID string
}

func (e *TimeoutError) Error() string {
	return "invoke: activation " + e.ActivationID + " not ready within wait"
}

func (e *TimeoutError) Unwrap() error { return errors.ErrBlockingTimeout }

// Invoker submits blocking activations over NATS
type Invoker struct {
	nc      Requester
	options Options
	logger  Logger
}

// New creates an invoker client
func New(nc Requester, options Options, logger Logger) *Invoker {
	if options.Subject == "" {
		options.Subject = DefaultOptions().Subject
	}
	if options.MaxBlockingWait <= 0 {
		options.MaxBlockingWait = DefaultOptions().MaxBlockingWait
	}
	return &Invoker{nc: nc, options: options, logger: logger}
}

// Invoke runs the action to completion or to the wait bound, whichever comes
// first. The wait bound is independent of ctx cancellation so a dropped
// client connection does not abandon the reply.
func (i *Invoker) Invoke(ctx context.Context, owner *entity.Identity, action *entity.Action,
	payload map[string]json.RawMessage, transactionID string) (*entity.Activation, error) {

	activationID := uuid.NewString()

	req := Request{
		ActivationID:  activationID,
		TransactionID: transactionID,
		Namespace:     owner.Namespace,
		ActionPath:    action.Path(),
		Kind:          action.Exec.Kind,
		Parameters:    payload,
		Blocking:      true,
		WaitMillis:    i.options.MaxBlockingWait.Milliseconds(),
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.WrapFatal(err, "invoke", "invoke", "request marshal failed")
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.options.MaxBlockingWait)
	defer cancel()

	i.logger.Debugf("invoking %s/%s activation=%s wait=%s",
		owner.Namespace, action.Path(), activationID, i.options.MaxBlockingWait)

	raw, err := i.nc.Request(waitCtx, i.options.Subject, data)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{ActivationID: activationID}
		}
		return nil, errors.WrapTransient(err, "invoke", "invoke", "invoker request failed")
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, errors.WrapTransient(err, "invoke", "invoke", "invoker reply decode failed")
	}

	if reply.Error != "" {
		return nil, errors.WrapTransient(stderrors.New(reply.Error), "invoke", "invoke", "invoker reported failure")
	}

	// A reply with no activation means the invoker accepted the work but
	// could not finish it within the wait.
	if reply.Activation == nil {
		return nil, &TimeoutError{ActivationID: activationID}
	}

	if reply.Activation.ActivationID == "" {
		reply.Activation.ActivationID = activationID
	}
	return reply.Activation, nil
}
