package sig

import (
	"tarn/internal/source"
)

// Kind discriminates the closed set of type shapes the checker traverses.
// The walker switches exhaustively over it; adding a kind here is a
// compile-time obligation to handle it there.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindAny
	KindMixed
	KindPrim
	KindConstAccess // opaque `C::CONST` type projection, never traversed
	KindThis
	KindArray
	KindOption
	KindTuple
	KindShape
	KindFn
	KindApply    // named class/alias instantiation `C<...>`
	KindParamRef // reference to a generic type parameter
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindMixed:
		return "mixed"
	case KindPrim:
		return "prim"
	case KindConstAccess:
		return "const"
	case KindThis:
		return "this"
	case KindArray:
		return "array"
	case KindOption:
		return "option"
	case KindTuple:
		return "tuple"
	case KindShape:
		return "shape"
	case KindFn:
		return "fn"
	case KindApply:
		return "apply"
	case KindParamRef:
		return "param"
	}
	return "invalid"
}

// TypeNode is the central node record: a kind, the source span of the type
// expression, and an index into the payload arena for that kind.
type TypeNode struct {
	Kind    Kind
	Span    source.Span
	Payload uint32
}

type PrimPayload struct {
	Name string // "int", "string", …
}

type ConstAccessPayload struct {
	Class  string
	Member string
}

type ArrayPayload struct {
	Key   TypeID // NoTypeID for `array<_, V>` and bare `array`
	Value TypeID // NoTypeID for bare `array`
}

type OptionPayload struct {
	Inner TypeID
}

type TuplePayload struct {
	Elems []TypeID
}

type ShapeField struct {
	Name string
	Type TypeID
}

type ShapePayload struct {
	Fields []ShapeField
}

type FnPayload struct {
	Params []TypeID
	Result TypeID // NoTypeID for void
}

type ApplyPayload struct {
	Class string
	Args  []TypeID
}

// ParamRefPayload references a generic parameter by name; Bounds carries
// use-site constraints elaborated onto the reference.
type ParamRefPayload struct {
	Name   string
	Bounds []Bound
}

// Types owns the node arena plus one payload arena per kind. All TypeIDs of
// one module resolve through the same container.
type Types struct {
	nodes   arena[TypeNode]
	prims   arena[PrimPayload]
	consts  arena[ConstAccessPayload]
	arrays  arena[ArrayPayload]
	options arena[OptionPayload]
	tuples  arena[TuplePayload]
	shapes  arena[ShapePayload]
	fns     arena[FnPayload]
	applies arena[ApplyPayload]
	refs    arena[ParamRefPayload]
}

func NewTypes() *Types {
	return &Types{}
}

// Len returns the number of allocated type nodes.
func (t *Types) Len() uint32 {
	return t.nodes.len()
}

// Node returns the node record for id, or nil for NoTypeID and dangling IDs.
func (t *Types) Node(id TypeID) *TypeNode {
	return t.nodes.get(uint32(id))
}

// Span returns the node's span, or the zero span for invalid IDs.
func (t *Types) Span(id TypeID) source.Span {
	if node := t.Node(id); node != nil {
		return node.Span
	}
	return source.Span{}
}

func (t *Types) new(kind Kind, span source.Span, payload uint32) TypeID {
	return TypeID(t.nodes.allocate(TypeNode{Kind: kind, Span: span, Payload: payload}))
}

func (t *Types) NewAny(span source.Span) TypeID {
	return t.new(KindAny, span, 0)
}

func (t *Types) NewMixed(span source.Span) TypeID {
	return t.new(KindMixed, span, 0)
}

func (t *Types) NewThis(span source.Span) TypeID {
	return t.new(KindThis, span, 0)
}

func (t *Types) NewPrim(span source.Span, name string) TypeID {
	return t.new(KindPrim, span, t.prims.allocate(PrimPayload{Name: name}))
}

func (t *Types) NewConstAccess(span source.Span, class, member string) TypeID {
	return t.new(KindConstAccess, span, t.consts.allocate(ConstAccessPayload{Class: class, Member: member}))
}

func (t *Types) NewArray(span source.Span, key, value TypeID) TypeID {
	return t.new(KindArray, span, t.arrays.allocate(ArrayPayload{Key: key, Value: value}))
}

func (t *Types) NewOption(span source.Span, inner TypeID) TypeID {
	return t.new(KindOption, span, t.options.allocate(OptionPayload{Inner: inner}))
}

func (t *Types) NewTuple(span source.Span, elems ...TypeID) TypeID {
	return t.new(KindTuple, span, t.tuples.allocate(TuplePayload{Elems: elems}))
}

func (t *Types) NewShape(span source.Span, fields ...ShapeField) TypeID {
	return t.new(KindShape, span, t.shapes.allocate(ShapePayload{Fields: fields}))
}

func (t *Types) NewFn(span source.Span, params []TypeID, result TypeID) TypeID {
	return t.new(KindFn, span, t.fns.allocate(FnPayload{Params: params, Result: result}))
}

func (t *Types) NewApply(span source.Span, class string, args ...TypeID) TypeID {
	return t.new(KindApply, span, t.applies.allocate(ApplyPayload{Class: class, Args: args}))
}

func (t *Types) NewParamRef(span source.Span, name string, bounds ...Bound) TypeID {
	return t.new(KindParamRef, span, t.refs.allocate(ParamRefPayload{Name: name, Bounds: bounds}))
}

// Prim returns the payload for a KindPrim node, or nil when the id does not
// point at one. The remaining accessors follow the same contract.
func (t *Types) Prim(id TypeID) *PrimPayload {
	if node := t.Node(id); node != nil && node.Kind == KindPrim {
		return t.prims.get(node.Payload)
	}
	return nil
}

func (t *Types) ConstAccess(id TypeID) *ConstAccessPayload {
	if node := t.Node(id); node != nil && node.Kind == KindConstAccess {
		return t.consts.get(node.Payload)
	}
	return nil
}

func (t *Types) Array(id TypeID) *ArrayPayload {
	if node := t.Node(id); node != nil && node.Kind == KindArray {
		return t.arrays.get(node.Payload)
	}
	return nil
}

func (t *Types) Option(id TypeID) *OptionPayload {
	if node := t.Node(id); node != nil && node.Kind == KindOption {
		return t.options.get(node.Payload)
	}
	return nil
}

func (t *Types) Tuple(id TypeID) *TuplePayload {
	if node := t.Node(id); node != nil && node.Kind == KindTuple {
		return t.tuples.get(node.Payload)
	}
	return nil
}

func (t *Types) Shape(id TypeID) *ShapePayload {
	if node := t.Node(id); node != nil && node.Kind == KindShape {
		return t.shapes.get(node.Payload)
	}
	return nil
}

func (t *Types) Fn(id TypeID) *FnPayload {
	if node := t.Node(id); node != nil && node.Kind == KindFn {
		return t.fns.get(node.Payload)
	}
	return nil
}

func (t *Types) Apply(id TypeID) *ApplyPayload {
	if node := t.Node(id); node != nil && node.Kind == KindApply {
		return t.applies.get(node.Payload)
	}
	return nil
}

func (t *Types) ParamRef(id TypeID) *ParamRefPayload {
	if node := t.Node(id); node != nil && node.Kind == KindParamRef {
		return t.refs.get(node.Payload)
	}
	return nil
}
