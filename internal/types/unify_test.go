package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyPrimitives(t *testing.T) {
	u := NewUnifier(nil)

	require.NoError(t, u.Unify(TypeInt, TypeInt))
	require.NoError(t, u.Unify(TypeStr, TypeStr))

	err := u.Unify(TypeInt, TypeStr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Int")
	assert.Contains(t, err.Error(), "Str")
}

func TestUnifyVariableBinding(t *testing.T) {
	u := NewUnifier(nil)
	v := &Var{ID: 0}

	require.NoError(t, u.Unify(v, TypeInt))
	assert.Equal(t, TypeInt, u.Sub.Apply(v))

	// Already bound: unifying against the binding succeeds, against
	// anything else fails.
	require.NoError(t, u.Unify(v, TypeInt))
	require.Error(t, u.Unify(v, TypeBool))
}

func TestUnifyFunctions(t *testing.T) {
	u := NewUnifier(nil)
	a, b := &Var{ID: 0}, &Var{ID: 1}

	f1 := &Function{Params: []Type{a}, Return: b}
	f2 := &Function{Params: []Type{TypeInt}, Return: TypeStr}

	require.NoError(t, u.Unify(f1, f2))
	assert.Equal(t, TypeInt, u.Sub.Apply(a))
	assert.Equal(t, TypeStr, u.Sub.Apply(b))
}

func TestUnifyArityMismatch(t *testing.T) {
	u := NewUnifier(nil)

	f1 := &Function{Params: []Type{TypeInt}, Return: TypeInt}
	f2 := &Function{Params: []Type{TypeInt, TypeInt}, Return: TypeInt}

	require.Error(t, u.Unify(f1, f2))
}

func TestUnifyArrays(t *testing.T) {
	u := NewUnifier(nil)
	v := &Var{ID: 0}

	require.NoError(t, u.Unify(&Array{Elem: v}, &Array{Elem: TypeBool}))
	assert.Equal(t, TypeBool, u.Sub.Apply(v))
}

func TestOccursCheck(t *testing.T) {
	u := NewUnifier(nil)
	v := &Var{ID: 0}

	err := u.Unify(v, &Array{Elem: v})
	require.Error(t, err)

	ue, ok := err.(*UnifyError)
	require.True(t, ok)
	assert.True(t, ue.Infinite)
}

func TestOccursCheckThroughChain(t *testing.T) {
	u := NewUnifier(nil)
	a, b := &Var{ID: 0}, &Var{ID: 1}

	// a := [b], then b := fn(a) would close the loop.
	require.NoError(t, u.Unify(a, &Array{Elem: b}))
	err := u.Unify(b, &Function{Params: []Type{a}, Return: TypeUnit})

	require.Error(t, err)
	ue, ok := err.(*UnifyError)
	require.True(t, ok)
	assert.True(t, ue.Infinite)
}

func TestUnifyNamedResolution(t *testing.T) {
	point := &Struct{Name: "Point", Fields: []Field{{Name: "x", Type: TypeInt}}}
	u := NewUnifier(func(name string) (Type, bool) {
		if name == "Point" {
			return point, true
		}
		return nil, false
	})

	require.NoError(t, u.Unify(&Named{Name: "Point"}, point))
	require.NoError(t, u.Unify(&Named{Name: "Point"}, &Named{Name: "Point"}))
	require.Error(t, u.Unify(&Named{Name: "Point"}, TypeInt))
}

func TestSubstitutionApplyIsDeep(t *testing.T) {
	sub := NewSubstitution()
	a, b := &Var{ID: 0}, &Var{ID: 1}
	sub.Bind(0, b)
	sub.Bind(1, TypeInt)

	// Chains resolve fully, including inside composites.
	assert.Equal(t, TypeInt, sub.Apply(a))
	got := sub.Apply(&Function{Params: []Type{a}, Return: &Array{Elem: b}})
	fn, ok := got.(*Function)
	require.True(t, ok)
	assert.Equal(t, TypeInt, fn.Params[0])
	assert.Equal(t, &Array{Elem: TypeInt}, fn.Return)
}
