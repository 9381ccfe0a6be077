// Package entity defines the data model the gateway reads from its backing
// stores: identities, packages, actions, and activations, together with the
// parameter and annotation representation shared by all of them.
//
// All records are owned by their originating store. The gateway holds only
// transient copies for the duration of a single request.
package entity
