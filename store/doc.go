// Package store resolves identities, packages, and actions from the
// gateway's JetStream KV buckets.
//
// Lookups collapse every failure shape a caller could probe with (missing
// record, undecodable record, package binding) into a single 404 rejection,
// so the web path never confirms whether an entity exists. Transient bucket
// errors stay classified as transient and surface as 500s at the top of the
// request pipeline. Identity-by-namespace lookups are memoized behind a
// short TTL cache; entity lookups go to the bucket every time.
package store
