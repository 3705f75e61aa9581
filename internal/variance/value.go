package variance

import (
	"fmt"

	"tarn/internal/sig"
	"tarn/internal/source"
)

// Kind is the inferred usage state of a type parameter. The declared
// alphabet is only {covariant, contravariant, invariant}; Bivariant arises
// when no constraining usage was observed.
type Kind uint8

const (
	Bivariant Kind = iota
	Covariant
	Contravariant
	Invariant
)

func (k Kind) String() string {
	switch k {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	case Invariant:
		return "invariant"
	}
	return "bivariant"
}

// Witness is one variance observation: where it happened, in which syntactic
// position, and the polarity that position contributes.
type Witness struct {
	Span source.Span
	Pos  Position
	Mark sig.Polarity
}

// trail is a persistent, innermost-first witness list. Pushing shares the
// tail, so sibling walk frames never see each other's witnesses.
type trail struct {
	w    Witness
	next *trail
}

func (t *trail) push(w Witness) *trail {
	return &trail{w: w, next: t}
}

func (t *trail) head() (Witness, bool) {
	if t == nil {
		return Witness{}, false
	}
	return t.w, true
}

func (t *trail) witnesses() []Witness {
	var out []Witness
	for cur := t; cur != nil; cur = cur.next {
		out = append(out, cur.w)
	}
	return out
}

// Value is the variance of one type parameter accumulated so far, together
// with the provenance justifying it. Covariant and Contravariant values
// carry one chain; Invariant keeps one chain per direction; Bivariant
// carries none because no error can ever cite it.
type Value struct {
	kind   Kind
	co     *trail
	contra *trail
}

func bivariant() Value { return Value{kind: Bivariant} }

func (v Value) Kind() Kind { return v.kind }

// Witnesses returns the chain justifying a Covariant or Contravariant value,
// innermost cause first. Invariant values expose both directions through
// CoWitnesses and ContraWitnesses.
func (v Value) Witnesses() []Witness {
	switch v.kind {
	case Covariant:
		return v.co.witnesses()
	case Contravariant:
		return v.contra.witnesses()
	}
	return nil
}

func (v Value) CoWitnesses() []Witness { return v.co.witnesses() }

func (v Value) ContraWitnesses() []Witness { return v.contra.witnesses() }

// fromAnnotation seeds a single-witness value from a declared polarity.
// Invariant annotations justify both directions from the same site. Marks
// outside the declared alphabet violate the host contract.
func fromAnnotation(pos Position, span source.Span, mark sig.Polarity) Value {
	t := (*trail)(nil).push(Witness{Span: span, Pos: pos, Mark: mark})
	switch mark {
	case sig.Covariant:
		return Value{kind: Covariant, co: t}
	case sig.Contravariant:
		return Value{kind: Contravariant, contra: t}
	case sig.Invariant:
		return Value{kind: Invariant, co: t, contra: t}
	}
	panic(fmt.Sprintf("variance: declared polarity out of range: %d", mark))
}

// merge accumulates a new observation into the value recorded so far.
// Invariant absorbs, Bivariant is the identity, and conflicting directions
// meet in an Invariant that keeps both original chains intact.
func merge(existing, incoming Value) Value {
	switch {
	case incoming.kind == Bivariant:
		return existing
	case existing.kind == Bivariant:
		return incoming
	case existing.kind == Invariant:
		return existing
	case incoming.kind == Invariant:
		return incoming
	case existing.kind == incoming.kind:
		return existing
	case existing.kind == Covariant:
		return Value{kind: Invariant, co: existing.co, contra: incoming.contra}
	default:
		return Value{kind: Invariant, co: incoming.co, contra: existing.contra}
	}
}

// compose combines the context surrounding `C<…>` with the declared variance
// of C's parameter to produce the context for one argument slot. Two
// contravariant layers cancel out. An invariant side forces a freshly
// witnessed invariant; a bivariant side yields the other side unchanged.
func compose(pos Position, span source.Span, outer, ref Value) Value {
	if outer.kind == Invariant || ref.kind == Invariant {
		t := (*trail)(nil).push(Witness{Span: span, Pos: pos, Mark: sig.Invariant})
		return Value{kind: Invariant, co: t, contra: t}
	}
	if outer.kind == Bivariant {
		return ref
	}
	if ref.kind == Bivariant {
		return outer
	}

	mark := sig.Covariant
	if ref.kind == Contravariant {
		mark = sig.Contravariant
	}
	base := outer.co
	if outer.kind == Contravariant {
		base = outer.contra
	}
	t := base.push(Witness{Span: span, Pos: pos, Mark: mark})
	if outer.kind == ref.kind {
		return Value{kind: Covariant, co: t}
	}
	return Value{kind: Contravariant, contra: t}
}

// flip reverses the ambient variance when descending into a function
// parameter. Invariant and Bivariant contexts pass through unchanged.
func flip(pos Position, span source.Span, ctx Value) Value {
	w := Witness{Span: span, Pos: pos, Mark: sig.Contravariant}
	switch ctx.kind {
	case Covariant:
		return Value{kind: Contravariant, contra: ctx.co.push(w)}
	case Contravariant:
		return Value{kind: Covariant, co: ctx.contra.push(w)}
	}
	return ctx
}

// coShift pushes a covariant frame onto whichever chain the context carries.
// Return positions contribute covariance without changing direction.
func coShift(pos Position, span source.Span, ctx Value) Value {
	w := Witness{Span: span, Pos: pos, Mark: sig.Covariant}
	switch ctx.kind {
	case Covariant:
		return Value{kind: Covariant, co: ctx.co.push(w)}
	case Contravariant:
		return Value{kind: Contravariant, contra: ctx.contra.push(w)}
	}
	return ctx
}

// refine repoints the innermost witness at the reference that finally names
// the parameter, keeping the rest of the chain shared. Only directed values
// are refined; invariant chains keep their original sites.
func refine(ctx Value, span source.Span) Value {
	switch ctx.kind {
	case Covariant:
		if w, ok := ctx.co.head(); ok && w.Span != span {
			w.Span = span
			return Value{kind: Covariant, co: ctx.co.next.push(w)}
		}
	case Contravariant:
		if w, ok := ctx.contra.head(); ok && w.Span != span {
			w.Span = span
			return Value{kind: Contravariant, contra: ctx.contra.next.push(w)}
		}
	}
	return ctx
}
