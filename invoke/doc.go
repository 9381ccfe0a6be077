// Package invoke submits blocking activations to the invoker over NATS
// request/reply.
//
// The activation id is minted gateway-side so a timed-out wait can still
// point the caller at the activation record. The wait bound is the only long
// timer on the request path; when it elapses the invocation keeps running on
// the invoker and the caller gets the id back with a not-ready result.
package invoke
