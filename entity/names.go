package entity

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPackage is the path segment that addresses actions outside any package.
const DefaultPackage = "default"

// MaxNameLength bounds namespace, package, and action name segments.
const MaxNameLength = 256

// entityName validates a single namespace, package, or action name segment.
// A name starts with an alphanumeric or underscore and may continue with
// alphanumerics, underscores, spaces, at-signs, dots, and dashes.
var entityName = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9_@ .-]*[a-zA-Z0-9_@.-])?$`)

// ValidName reports whether s is an acceptable entity name segment
func ValidName(s string) bool {
	if s == "" || len(s) > MaxNameLength {
		return false
	}
	return entityName.MatchString(s)
}

// FullyQualifiedName addresses an action as /namespace/package/action.
// Package is DefaultPackage for actions outside any package.
type FullyQualifiedName struct {
	Namespace string
	Package   string
	Action    string
}

// String renders the canonical /namespace/package/action form. The package
// segment is omitted for default-package actions, matching the path form
// stored in action records.
func (f FullyQualifiedName) String() string {
	if f.Package == "" || f.Package == DefaultPackage {
		return fmt.Sprintf("/%s/%s", f.Namespace, f.Action)
	}
	return fmt.Sprintf("/%s/%s/%s", f.Namespace, f.Package, f.Action)
}

// ActionPath returns the namespace-relative path of the action record,
// i.e. "action" or "package/action".
func (f FullyQualifiedName) ActionPath() string {
	if f.Package == "" || f.Package == DefaultPackage {
		return f.Action
	}
	return f.Package + "/" + f.Action
}

// InDefaultPackage reports whether the name addresses the default package
func (f FullyQualifiedName) InDefaultPackage() bool {
	return f.Package == "" || f.Package == DefaultPackage
}

// Validate checks every segment of the name
func (f FullyQualifiedName) Validate() error {
	if !ValidName(f.Namespace) {
		return fmt.Errorf("invalid namespace %q", f.Namespace)
	}
	if !f.InDefaultPackage() && !ValidName(f.Package) {
		return fmt.Errorf("invalid package %q", f.Package)
	}
	if !ValidName(f.Action) {
		return fmt.Errorf("invalid action %q", f.Action)
	}
	return nil
}

// ParseFullyQualifiedName parses a /namespace/package/action or
// /namespace/action path into its segments.
func ParseFullyQualifiedName(path string) (FullyQualifiedName, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	var fqn FullyQualifiedName
	switch len(parts) {
	case 2:
		fqn = FullyQualifiedName{Namespace: parts[0], Package: DefaultPackage, Action: parts[1]}
	case 3:
		fqn = FullyQualifiedName{Namespace: parts[0], Package: parts[1], Action: parts[2]}
	default:
		return FullyQualifiedName{}, fmt.Errorf("malformed fully qualified name %q", path)
	}
	if err := fqn.Validate(); err != nil {
		return FullyQualifiedName{}, err
	}
	return fqn, nil
}
