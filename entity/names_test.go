package entity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actiongate/entity"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"plain", "hello", true},
		{"with digits", "fn2", true},
		{"leading underscore", "_private", true},
		{"dotted", "my.action", true},
		{"spaced", "my action", true},
		{"at sign", "user@example", true},
		{"dashed", "my-action", true},
		{"empty", "", false},
		{"leading dash", "-bad", false},
		{"leading dot", ".bad", false},
		{"slash", "a/b", false},
		{"trailing space", "bad ", false},
		{"too long", strings.Repeat("a", entity.MaxNameLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, entity.ValidName(tt.input))
		})
	}
}

func TestFullyQualifiedName_String(t *testing.T) {
	tests := []struct {
		name string
		fqn  entity.FullyQualifiedName
		want string
	}{
		{
			name: "packaged action",
			fqn:  entity.FullyQualifiedName{Namespace: "ns", Package: "pkg", Action: "act"},
			want: "/ns/pkg/act",
		},
		{
			name: "default package elided",
			fqn:  entity.FullyQualifiedName{Namespace: "ns", Package: entity.DefaultPackage, Action: "act"},
			want: "/ns/act",
		},
		{
			name: "empty package elided",
			fqn:  entity.FullyQualifiedName{Namespace: "ns", Action: "act"},
			want: "/ns/act",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fqn.String())
		})
	}
}

func TestFullyQualifiedName_ActionPath(t *testing.T) {
	packaged := entity.FullyQualifiedName{Namespace: "ns", Package: "pkg", Action: "act"}
	assert.Equal(t, "pkg/act", packaged.ActionPath())

	plain := entity.FullyQualifiedName{Namespace: "ns", Package: entity.DefaultPackage, Action: "act"}
	assert.Equal(t, "act", plain.ActionPath())
}

func TestParseFullyQualifiedName(t *testing.T) {
	fqn, err := entity.ParseFullyQualifiedName("/ns/pkg/act")
	require.NoError(t, err)
	assert.Equal(t, "ns", fqn.Namespace)
	assert.Equal(t, "pkg", fqn.Package)
	assert.Equal(t, "act", fqn.Action)

	fqn, err = entity.ParseFullyQualifiedName("/ns/act")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultPackage, fqn.Package)

	_, err = entity.ParseFullyQualifiedName("/ns")
	assert.Error(t, err)

	_, err = entity.ParseFullyQualifiedName("/ns/-bad/act")
	assert.Error(t, err)
}
