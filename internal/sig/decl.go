package sig

import (
	"tarn/internal/source"
)

// Polarity is a declared variance mark on a type parameter. An unmarked
// parameter is invariant; `+` marks covariant, `-` contravariant.
type Polarity uint8

const (
	Invariant Polarity = iota
	Covariant
	Contravariant
)

func (p Polarity) String() string {
	switch p {
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	}
	return "invariant"
}

// Marker returns the source marker for the polarity: "+", "-" or "".
func (p Polarity) Marker() string {
	switch p {
	case Covariant:
		return "+"
	case Contravariant:
		return "-"
	}
	return ""
}

type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "public"
}

// BoundKind is the constraint form on a method-level type parameter.
type BoundKind uint8

const (
	BoundAs    BoundKind = iota // upper bound
	BoundSuper                  // lower bound
	BoundEq                     // equality bound
)

func (k BoundKind) String() string {
	switch k {
	case BoundSuper:
		return "super"
	case BoundEq:
		return "="
	}
	return "as"
}

// Bound is one (kind, type) constraint pair.
type Bound struct {
	Kind BoundKind
	Type TypeID
}

// TypeParam is a declared generic parameter. Class-level parameters carry a
// variance mark and no bounds; method-level parameters are never marked and
// may carry bounds.
type TypeParam struct {
	Name     string
	Span     source.Span // marker + name, the site mismatch errors point at
	NameSpan source.Span
	Variance Polarity
	Bounds   []Bound
}

// Param is a method parameter.
type Param struct {
	Name string
	Type TypeID
}

// Member is a non-static property of a class.
type Member struct {
	Name       string
	Span       source.Span
	Visibility Visibility
	Type       TypeID
}

// Method is an instance or static method signature.
type Method struct {
	Name       string
	Span       source.Span
	Visibility Visibility
	Final      bool
	TypeParams []TypeParam
	Params     []Param
	Result     TypeID // NoTypeID for void
}

// Class is the published signature of one class declaration. TypeIDs resolve
// through Types, which AddClass wires to the owning module's container.
type Class struct {
	Name       string
	Span       source.Span // name at the declaration site
	Final      bool
	TypeParams []TypeParam
	Extends    []TypeID
	Implements []TypeID
	Members    []Member
	Methods    []Method
	Statics    []Method

	Types *Types
}

// Typedef is the published signature of one type alias.
type Typedef struct {
	Name       string
	Span       source.Span
	TypeParams []TypeParam
	Body       TypeID

	Types *Types
}
