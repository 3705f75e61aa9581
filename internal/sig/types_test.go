package sig

import (
	"testing"

	"tarn/internal/source"
)

func span(start, end uint32) source.Span {
	return source.Span{File: 1, Start: start, End: end}
}

func TestTypesAllocateAndAccess(t *testing.T) {
	types := NewTypes()

	anyID := types.NewAny(span(0, 3))
	if !anyID.IsValid() {
		t.Fatal("NewAny returned invalid id")
	}
	if node := types.Node(anyID); node == nil || node.Kind != KindAny {
		t.Fatalf("Node(%d) = %+v", anyID, types.Node(anyID))
	}

	prim := types.NewPrim(span(4, 7), "int")
	if p := types.Prim(prim); p == nil || p.Name != "int" {
		t.Errorf("Prim payload = %+v", types.Prim(prim))
	}

	fn := types.NewFn(span(0, 20), []TypeID{anyID, prim}, prim)
	payload := types.Fn(fn)
	if payload == nil || len(payload.Params) != 2 || payload.Result != prim {
		t.Errorf("Fn payload = %+v", payload)
	}

	// Доступ не по своему kind — nil.
	if types.Fn(prim) != nil {
		t.Error("Fn accessor on a prim node should return nil")
	}
	if types.Prim(fn) != nil {
		t.Error("Prim accessor on a fn node should return nil")
	}
}

func TestTypesInvalidIDs(t *testing.T) {
	types := NewTypes()
	types.NewThis(span(0, 4))

	if types.Node(NoTypeID) != nil {
		t.Error("Node(NoTypeID) should be nil")
	}
	if types.Node(TypeID(99)) != nil {
		t.Error("Node of dangling id should be nil")
	}
	if !types.Span(TypeID(99)).Empty() {
		t.Error("Span of dangling id should be empty")
	}
}

func TestTypesComposite(t *testing.T) {
	types := NewTypes()

	ref := types.NewParamRef(span(10, 11), "T")
	opt := types.NewOption(span(9, 11), ref)
	arr := types.NewArray(span(0, 12), NoTypeID, opt)
	tup := types.NewTuple(span(0, 20), ref, arr)
	shape := types.NewShape(span(0, 30), ShapeField{Name: "x", Type: ref})
	apply := types.NewApply(span(0, 8), "Box", ref)

	if p := types.Option(opt); p == nil || p.Inner != ref {
		t.Errorf("Option payload = %+v", p)
	}
	if p := types.Array(arr); p == nil || p.Key.IsValid() || p.Value != opt {
		t.Errorf("Array payload = %+v", p)
	}
	if p := types.Tuple(tup); p == nil || len(p.Elems) != 2 {
		t.Errorf("Tuple payload = %+v", p)
	}
	if p := types.Shape(shape); p == nil || p.Fields[0].Name != "x" {
		t.Errorf("Shape payload = %+v", p)
	}
	if p := types.Apply(apply); p == nil || p.Class != "Box" || len(p.Args) != 1 {
		t.Errorf("Apply payload = %+v", p)
	}
	if p := types.ParamRef(ref); p == nil || p.Name != "T" || len(p.Bounds) != 0 {
		t.Errorf("ParamRef payload = %+v", p)
	}

	if types.Len() != 6 {
		t.Errorf("Len = %d, want 6", types.Len())
	}
}

func TestModuleLookup(t *testing.T) {
	m := NewModule("demo")

	box := m.AddClass(&Class{Name: "Box", Span: span(0, 3)})
	if box.Types != m.Types {
		t.Error("AddClass should wire the module's Types container")
	}

	alias := m.AddTypedef(&Typedef{Name: "Id", Span: span(10, 12)})
	if alias.Types != m.Types {
		t.Error("AddTypedef should wire the module's Types container")
	}

	if got, ok := m.Class("Box"); !ok || got != box {
		t.Error("Class lookup failed")
	}
	if _, ok := m.Class("Nope"); ok {
		t.Error("Class lookup of unknown name should fail")
	}
	if got, ok := m.Typedef("Id"); !ok || got != alias {
		t.Error("Typedef lookup failed")
	}
	if m.DeclCount() != 2 {
		t.Errorf("DeclCount = %d, want 2", m.DeclCount())
	}
}

func TestPolarityStrings(t *testing.T) {
	tests := []struct {
		p      Polarity
		str    string
		marker string
	}{
		{Invariant, "invariant", ""},
		{Covariant, "covariant", "+"},
		{Contravariant, "contravariant", "-"},
	}
	for _, tt := range tests {
		if tt.p.String() != tt.str || tt.p.Marker() != tt.marker {
			t.Errorf("Polarity %d = %q/%q, want %q/%q", tt.p, tt.p.String(), tt.p.Marker(), tt.str, tt.marker)
		}
	}
}

func TestBoundKindStrings(t *testing.T) {
	if BoundAs.String() != "as" || BoundSuper.String() != "super" || BoundEq.String() != "=" {
		t.Errorf("BoundKind strings = %q/%q/%q", BoundAs, BoundSuper, BoundEq)
	}
}
