// Package actiongate is a web action gateway. It exposes actions stored
// in NATS JetStream KV as HTTP endpoints, decoding URLs into
// namespace/package/action coordinates, authorizing and throttling
// callers, merging bound and caller parameters into an invocation
// payload, bridging the request to invokers over NATS request/reply,
// and transcoding the activation result per the URL's media extension.
//
// Layout:
//   - entity: records shared with the rest of the platform (identities,
//     packages, actions, activations, parameter lists)
//   - errors: classified errors plus the HTTP rejection type
//   - natsclient: NATS connection and JetStream KV access
//   - store: identity and entity lookups over KV with caching
//   - entitlement: per-namespace rate and concurrency limits, Redis
//     backed with a process-local fallback
//   - invoke: blocking invocation bridge over NATS request/reply
//   - mediatype: content type registry for body handling
//   - webaction: the request pipeline (decode, gate, merge, invoke,
//     transcode) mounted once per surface variant
//   - gateway: HTTP server mounting the main and experimental surfaces
//   - metric, config, cmd/actiongate: operations and wiring
package actiongate
