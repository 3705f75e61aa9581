// Package snapshot reads and writes `.tsig` signature snapshots: the
// msgpack-encoded output of the Tarn front end that this tool checks.
//
// Формат плоский: таблица строк, таблица файлов и аренa узлов типов,
// индексы вместо указателей. Schema идёт первым полем, чтобы старые
// инструменты отказывались от новых снапшотов до разбора остального.
package snapshot

// SchemaVersion is bumped whenever the payload layout changes. Decoders
// reject any other version instead of guessing.
const SchemaVersion uint16 = 1

// Ext is the snapshot file extension produced by the front end.
const Ext = ".tsig"

// payload is the top-level msgpack document.
//
// String references are indexes into Strings (0 is always the empty
// string). Type references are 1-based indexes into Types, 0 meaning
// "no type" (void results, bare arrays). Span file references are
// 1-based indexes into Files, 0 meaning "no file".
type payload struct {
	Schema   uint16
	Module   string
	Strings  []string
	Files    []fileDTO
	Types    []typeDTO
	Classes  []classDTO
	Typedefs []typedefDTO
}

// fileDTO records a source file the snapshot's spans point into. Hash is
// the sha256 of the normalized content at export time; the tool uses it
// to detect drift before rendering excerpts.
type fileDTO struct {
	Path string
	Hash []byte
}

type spanDTO struct {
	File  uint32
	Start uint32
	End   uint32
}

// typeDTO is one node of the type arena. Which fields are meaningful
// depends on Kind:
//
//	prim      Name
//	const     Name (class), Member
//	array     Key, Value
//	option    Value
//	tuple     Elems
//	shape     Names + Elems (parallel: field names, field types)
//	fn        Elems (params), Value (result)
//	apply     Name (class), Elems (arguments)
//	param     Name, Bounds
//
// any/mixed/this carry nothing beyond the span.
type typeDTO struct {
	Kind   uint8
	Span   spanDTO
	Name   uint32
	Member uint32
	Key    uint32
	Value  uint32
	Elems  []uint32
	Names  []uint32
	Bounds []boundDTO
}

type boundDTO struct {
	Kind uint8
	Type uint32
}

type typeParamDTO struct {
	Name     uint32
	Span     spanDTO
	NameSpan spanDTO
	Variance uint8
	Bounds   []boundDTO
}

type paramDTO struct {
	Name uint32
	Type uint32
}

type memberDTO struct {
	Name       uint32
	Span       spanDTO
	Visibility uint8
	Type       uint32
}

type methodDTO struct {
	Name       uint32
	Span       spanDTO
	Visibility uint8
	Final      bool
	TypeParams []typeParamDTO
	Params     []paramDTO
	Result     uint32
}

type classDTO struct {
	Name       uint32
	Span       spanDTO
	Final      bool
	TypeParams []typeParamDTO
	Extends    []uint32
	Implements []uint32
	Members    []memberDTO
	Methods    []methodDTO
	Statics    []methodDTO
}

type typedefDTO struct {
	Name       uint32
	Span       spanDTO
	TypeParams []typeParamDTO
	Body       uint32
}
