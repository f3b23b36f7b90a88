package interp

// Env is a lexical environment: a frame of bindings plus a pointer to the
// enclosing frame. Closures hold the frame they were built in, which is all
// the capture machinery the interpreter needs.
type Env struct {
	parent *Env
	vars   map[string]Value
}

// NewEnv creates an environment nested in parent.
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, vars: make(map[string]Value)}
}

// Define introduces a binding in this frame.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

// Get resolves a name through the frame chain.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Set assigns the nearest existing binding. Lowering guarantees the
// binding exists.
func (e *Env) Set(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return true
		}
	}
	return false
}
