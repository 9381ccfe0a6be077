// Package natsclient manages the gateway's NATS connection.
//
// The connection carries two kinds of traffic: bounded-wait request/reply to
// the invoker (Client.Request), and JetStream KV reads against the identity
// and entity buckets (KVStore). A single Client is shared process-wide and is
// safe for concurrent use; the gateway adds no locks of its own on top.
package natsclient
