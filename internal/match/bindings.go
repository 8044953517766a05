package match

import "sort"

// Bindings is an immutable variable environment. With returns a new value;
// the receiver is never modified, so a failed match attempt cannot leak
// partial definitions.
type Bindings struct {
	vars map[string]string
}

// NewBindings copies init into a new environment.
func NewBindings(init map[string]string) Bindings {
	if len(init) == 0 {
		return Bindings{}
	}
	vars := make(map[string]string, len(init))
	for k, v := range init {
		vars[k] = v
	}
	return Bindings{vars: vars}
}

// Get looks up a variable.
func (b Bindings) Get(name string) (string, bool) {
	v, ok := b.vars[name]
	return v, ok
}

// Has reports whether name is bound.
func (b Bindings) Has(name string) bool {
	_, ok := b.vars[name]
	return ok
}

// With returns a copy of b with name bound to value.
func (b Bindings) With(name, value string) Bindings {
	vars := make(map[string]string, len(b.vars)+1)
	for k, v := range b.vars {
		vars[k] = v
	}
	vars[name] = value
	return Bindings{vars: vars}
}

// Len returns the number of bound variables.
func (b Bindings) Len() int {
	return len(b.vars)
}

// Names returns the bound names in sorted order.
func (b Bindings) Names() []string {
	names := make([]string, 0, len(b.vars))
	for k := range b.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the bindings.
func (b Bindings) Map() map[string]string {
	out := make(map[string]string, len(b.vars))
	for k, v := range b.vars {
		out[k] = v
	}
	return out
}
