package variance

// environment accumulates the combined observation per type parameter name
// within one declaration. Never shared across declarations and never
// mutated concurrently; каждый checker держит свой экземпляр.
type environment map[string]Value

// record merges a fresh observation into the parameter's accumulated value.
func (e environment) record(name string, obs Value) {
	e[name] = merge(e.lookup(name), obs)
}

// lookup treats absent entries as bivariant: an unused parameter is
// vacuously compatible with any declared mark.
func (e environment) lookup(name string) Value {
	if v, ok := e[name]; ok {
		return v
	}
	return bivariant()
}

func (e environment) drop(name string) {
	delete(e, name)
}
