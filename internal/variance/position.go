package variance

import "fmt"

// MethodKind distinguishes instance scope from static scope in witness
// prose. Nested function types always render as instance positions.
type MethodKind uint8

const (
	MethodInstance MethodKind = iota
	MethodStatic
)

func (k MethodKind) String() string {
	if k == MethodStatic {
		return "static"
	}
	return "instance"
}

// PosKind names the syntactic context that justified an observation.
type PosKind uint8

const (
	PosTypedefBody PosKind = iota
	PosInstanceMember
	PosTypeParamDecl
	PosFnParam
	PosFnReturn
	PosTypeArgument
	PosConstraintAs
	PosConstraintEq
	PosConstraintSuper
)

// Position is purely descriptive. It renders the explanation attached to a
// witness and never participates in the algebra itself.
type Position struct {
	Kind   PosKind
	Method MethodKind // PosFnParam, PosFnReturn
	Class  string     // PosTypeArgument
	Param  string     // PosTypeArgument, empty when the parameter is unresolved
}

// describe renders one witness as the note text shown under a mismatch.
func (w Witness) describe() string {
	switch w.Pos.Kind {
	case PosTypedefBody:
		return "alias bodies are covariant positions"
	case PosInstanceMember:
		return "non-private members are invariant positions"
	case PosTypeParamDecl:
		return fmt.Sprintf("declared %s here", w.Mark)
	case PosFnParam:
		return fmt.Sprintf("parameters of %s methods are contravariant positions", w.Pos.Method)
	case PosFnReturn:
		return fmt.Sprintf("return types of %s methods are covariant positions", w.Pos.Method)
	case PosTypeArgument:
		if w.Pos.Param != "" {
			return fmt.Sprintf("type argument `%s` of `%s` is declared %s", w.Pos.Param, w.Pos.Class, w.Mark)
		}
		return fmt.Sprintf("type arguments of `%s` are %s here", w.Pos.Class, w.Mark)
	case PosConstraintAs:
		return "`as` constraints are contravariant positions"
	case PosConstraintEq:
		return "`=` constraints are invariant positions"
	case PosConstraintSuper:
		return "`super` constraints are covariant positions"
	}
	return "used here"
}
