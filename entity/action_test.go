package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actiongate/entity"
)

func TestAction_Annotations(t *testing.T) {
	tests := []struct {
		name        string
		annotations entity.ParameterList
		webExported bool
		rawHTTP     bool
	}{
		{
			name:        "no annotations",
			annotations: nil,
		},
		{
			name: "web exported",
			annotations: entity.ParameterList{
				{Key: entity.AnnotationWebExport, Value: raw(`true`)},
			},
			webExported: true,
		},
		{
			name: "web export false",
			annotations: entity.ParameterList{
				{Key: entity.AnnotationWebExport, Value: raw(`false`)},
			},
		},
		{
			name: "raw http",
			annotations: entity.ParameterList{
				{Key: entity.AnnotationWebExport, Value: raw(`true`)},
				{Key: entity.AnnotationRawHTTP, Value: raw(`true`)},
			},
			webExported: true,
			rawHTTP:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &entity.Action{Name: "a", Annotations: tt.annotations}
			assert.Equal(t, tt.webExported, a.WebExported())
			assert.Equal(t, tt.rawHTTP, a.RawHTTP())
		})
	}
}

func TestAction_RequireAuth(t *testing.T) {
	a := &entity.Action{
		Name: "a",
		Annotations: entity.ParameterList{
			{Key: entity.AnnotationRequireAuth, Value: raw(`"s3cret"`)},
		},
	}

	v, ok := a.RequireAuth()
	require.True(t, ok)
	assert.JSONEq(t, `"s3cret"`, string(v))

	b := &entity.Action{Name: "b"}
	_, ok = b.RequireAuth()
	assert.False(t, ok)
}

func TestAction_ImmutableParameters(t *testing.T) {
	a := &entity.Action{
		Name: "a",
		Parameters: entity.ParameterList{
			{Key: "free", Value: raw(`1`)},
			{Key: "fixed", Value: raw(`2`), Final: true},
		},
	}

	im := a.ImmutableParameters()
	assert.Contains(t, im, "fixed")
	assert.NotContains(t, im, "free")
}

func TestPackage_IsBinding(t *testing.T) {
	concrete := &entity.Package{Namespace: "ns", Name: "pkg"}
	assert.False(t, concrete.IsBinding())

	bound := &entity.Package{
		Namespace: "ns",
		Name:      "alias",
		Binding:   &entity.Binding{Namespace: "other", Name: "pkg"},
	}
	assert.True(t, bound.IsBinding())
}

func TestActivationResponse_Status(t *testing.T) {
	success := &entity.ActivationResponse{Status: entity.StatusSuccess}
	assert.True(t, success.Success())
	assert.False(t, success.ApplicationError())

	appErr := &entity.ActivationResponse{Status: entity.StatusApplicationError}
	assert.False(t, appErr.Success())
	assert.True(t, appErr.ApplicationError())
}
