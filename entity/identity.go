package entity

// AuthKey is the credential pair that identifies a namespace owner
type AuthKey struct {
	UUID string `json:"uuid"`
	Key  string `json:"key"`
}

// Limits carries the quota handle consulted by the entitlement provider
type Limits struct {
	// InvocationsPerMinute caps activations per minute; 0 means the
	// platform default applies.
	InvocationsPerMinute int `json:"invocationsPerMinute,omitempty"`

	// ConcurrentInvocations caps in-flight activations; 0 means the
	// platform default applies.
	ConcurrentInvocations int `json:"concurrentInvocations,omitempty"`
}

// Identity is the resolved owner of a namespace. Identity records are
// immutable once loaded; the auth store hands out shared copies.
type Identity struct {
	Subject   string  `json:"subject"`
	Namespace string  `json:"namespace"`
	AuthKey   AuthKey `json:"authkey"`
	Limits    Limits  `json:"limits"`
}
