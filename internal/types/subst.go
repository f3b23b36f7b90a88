package types

// Substitution maps type variable IDs to types. Bindings may chain through
// other variables; Apply resolves the chain fully, so the observable result
// is always in solved form.
type Substitution map[int]Type

// NewSubstitution creates an empty substitution.
func NewSubstitution() Substitution {
	return make(Substitution)
}

// Bind records var id := t. The caller must have run the occurs check
// first; Bind itself never fails.
func (s Substitution) Bind(id int, t Type) {
	s[id] = t
}

// Apply resolves t under the substitution. Composite types are rebuilt only
// when a component actually changed, so fully resolved types pass through
// unallocated.
func (s Substitution) Apply(t Type) Type {
	switch tt := t.(type) {
	case *Var:
		if bound, ok := s[tt.ID]; ok {
			return s.Apply(bound)
		}
		return tt

	case *Function:
		params := make([]Type, len(tt.Params))
		changed := false
		for i, p := range tt.Params {
			params[i] = s.Apply(p)
			if params[i] != p {
				changed = true
			}
		}
		ret := tt.Return
		if ret != nil {
			ret = s.Apply(ret)
		}
		if !changed && ret == tt.Return {
			return tt
		}
		return &Function{Params: params, Return: ret}

	case *Array:
		elem := s.Apply(tt.Elem)
		if elem == tt.Elem {
			return tt
		}
		return &Array{Elem: elem}

	default:
		return t
	}
}

// Occurs reports whether var id occurs in t under the substitution. A
// positive answer means binding id to t would build an infinite type.
func (s Substitution) Occurs(id int, t Type) bool {
	switch tt := s.Apply(t).(type) {
	case *Var:
		return tt.ID == id
	case *Function:
		for _, p := range tt.Params {
			if s.Occurs(id, p) {
				return true
			}
		}
		return tt.Return != nil && s.Occurs(id, tt.Return)
	case *Array:
		return s.Occurs(id, tt.Elem)
	default:
		return false
	}
}
