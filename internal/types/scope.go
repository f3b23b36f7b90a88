package types

// Symbol is one named binding visible in a scope.
type Symbol struct {
	Name    string
	Scheme  *Forall
	Mutable bool
}

// Scope is a lexical symbol table with a pointer to its parent. Lookups
// walk outward; definitions shadow.
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
}

// NewScope creates a scope nested inside parent. A nil parent makes a root
// scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// Define binds name in this scope, shadowing any outer binding.
func (s *Scope) Define(name string, scheme *Forall, mutable bool) *Symbol {
	sym := &Symbol{Name: name, Scheme: scheme, Mutable: mutable}
	s.symbols[name] = sym
	return sym
}

// Lookup resolves name through this scope and its ancestors.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal resolves name in this scope only.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// each calls fn for every symbol in this scope and its ancestors. Shadowed
// symbols are still visited; callers that care filter themselves.
func (s *Scope) each(fn func(*Symbol)) {
	for sc := s; sc != nil; sc = sc.parent {
		for _, sym := range sc.symbols {
			fn(sym)
		}
	}
}
