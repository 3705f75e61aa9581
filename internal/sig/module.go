package sig

// Module is the decoded contents of one signature snapshot: a shared type
// node container plus the declarations published by that compilation unit.
type Module struct {
	Name     string // module name recorded by the front end
	Path     string // snapshot file the module was decoded from, "" for tests
	Types    *Types
	Classes  []*Class
	Typedefs []*Typedef

	classIdx   map[string]int
	typedefIdx map[string]int
}

func NewModule(name string) *Module {
	return &Module{
		Name:       name,
		Types:      NewTypes(),
		classIdx:   make(map[string]int),
		typedefIdx: make(map[string]int),
	}
}

// AddClass publishes a class in the module and wires its Types container.
// A repeated name replaces the index entry; cross-snapshot duplicates are
// the registry's concern.
func (m *Module) AddClass(c *Class) *Class {
	c.Types = m.Types
	m.classIdx[c.Name] = len(m.Classes)
	m.Classes = append(m.Classes, c)
	return c
}

// AddTypedef publishes a type alias in the module.
func (m *Module) AddTypedef(td *Typedef) *Typedef {
	td.Types = m.Types
	m.typedefIdx[td.Name] = len(m.Typedefs)
	m.Typedefs = append(m.Typedefs, td)
	return td
}

func (m *Module) Class(name string) (*Class, bool) {
	if i, ok := m.classIdx[name]; ok {
		return m.Classes[i], true
	}
	return nil, false
}

func (m *Module) Typedef(name string) (*Typedef, bool) {
	if i, ok := m.typedefIdx[name]; ok {
		return m.Typedefs[i], true
	}
	return nil, false
}

// DeclCount returns the number of declarations the module publishes.
func (m *Module) DeclCount() int {
	return len(m.Classes) + len(m.Typedefs)
}
