package types

import "fmt"

// UnifyError describes why two types could not be made equal.
type UnifyError struct {
	Left     Type
	Right    Type
	Infinite bool // occurs check failure
}

func (e *UnifyError) Error() string {
	if e.Infinite {
		return fmt.Sprintf("cannot construct infinite type %s = %s", e.Left, e.Right)
	}
	return fmt.Sprintf("type mismatch: %s vs %s", e.Left, e.Right)
}

// Unifier solves type equations against a shared substitution. Named
// references resolve through the lookup callback so recursive declarations
// never force a cyclic Type graph.
type Unifier struct {
	Sub    Substitution
	Lookup func(name string) (Type, bool)
}

// NewUnifier creates a unifier over a fresh substitution.
func NewUnifier(lookup func(string) (Type, bool)) *Unifier {
	return &Unifier{Sub: NewSubstitution(), Lookup: lookup}
}

func (u *Unifier) resolve(t Type) Type {
	t = u.Sub.Apply(t)
	if n, ok := t.(*Named); ok && u.Lookup != nil {
		if resolved, found := u.Lookup(n.Name); found {
			return resolved
		}
	}
	return t
}

// Unify makes a and b equal under the substitution, binding variables as
// needed. On mismatch the substitution keeps any bindings made before the
// failure; the checker reports the error and keeps going.
func (u *Unifier) Unify(a, b Type) error {
	a = u.resolve(a)
	b = u.resolve(b)

	if av, ok := a.(*Var); ok {
		return u.bindVar(av, b)
	}
	if bv, ok := b.(*Var); ok {
		return u.bindVar(bv, a)
	}

	switch at := a.(type) {
	case *Primitive:
		if bt, ok := b.(*Primitive); ok && at.Kind == bt.Kind {
			return nil
		}

	case *Function:
		bt, ok := b.(*Function)
		if !ok || len(at.Params) != len(bt.Params) {
			break
		}
		for i := range at.Params {
			if err := u.Unify(at.Params[i], bt.Params[i]); err != nil {
				return err
			}
		}
		return u.Unify(returnOf(at), returnOf(bt))

	case *Array:
		if bt, ok := b.(*Array); ok {
			return u.Unify(at.Elem, bt.Elem)
		}

	case *Struct:
		if bt, ok := b.(*Struct); ok && at.Name == bt.Name {
			return nil
		}

	case *Enum:
		if bt, ok := b.(*Enum); ok && at.Name == bt.Name {
			return nil
		}
	}

	return &UnifyError{Left: a, Right: b}
}

func (u *Unifier) bindVar(v *Var, t Type) error {
	if tv, ok := t.(*Var); ok && tv.ID == v.ID {
		return nil
	}
	if u.Sub.Occurs(v.ID, t) {
		return &UnifyError{Left: v, Right: t, Infinite: true}
	}
	u.Sub.Bind(v.ID, t)
	return nil
}

func returnOf(f *Function) Type {
	if f.Return == nil {
		return TypeUnit
	}
	return f.Return
}
