package sigdb

import (
	"sync"
	"testing"

	"tarn/internal/diag"
	"tarn/internal/sig"
	"tarn/internal/source"
)

func span(start uint32) source.Span {
	return source.Span{File: 1, Start: start, End: start + 4}
}

func buildModule(name string, classes, typedefs []string) *sig.Module {
	m := sig.NewModule(name)
	var off uint32
	for _, c := range classes {
		off += 16
		m.AddClass(&sig.Class{Name: c, Span: span(off)})
	}
	for _, td := range typedefs {
		off += 16
		m.AddTypedef(&sig.Typedef{Name: td, Span: span(off), Body: m.Types.NewPrim(span(off+8), "int")})
	}
	return m
}

func TestLookupAndStats(t *testing.T) {
	db := New()
	db.AddModule(buildModule("lib", []string{"Box", "Sink"}, []string{"Alias"}), diag.NopReporter{})

	if got := db.DeclCount(); got != 3 {
		t.Fatalf("DeclCount = %d, want 3", got)
	}
	if _, ok := db.ClassSignature("Box"); !ok {
		t.Fatalf("Box not found")
	}
	if _, ok := db.TypedefSignature("Alias"); !ok {
		t.Fatalf("Alias not found")
	}
	if _, ok := db.ClassSignature("Ghost"); ok {
		t.Fatalf("Ghost must not resolve")
	}
	st := db.Stats()
	if st.Hits != 2 || st.Misses != 1 {
		t.Fatalf("stats = %+v, want 2 hits / 1 miss", st)
	}
	if st.Decls != 3 {
		t.Fatalf("stats decls = %d", st.Decls)
	}

	if !db.Has("Sink") || db.Has("Ghost") {
		t.Fatalf("Has is wrong")
	}
	// Has не трогает счётчики
	if st2 := db.Stats(); st2.Hits != st.Hits || st2.Misses != st.Misses {
		t.Fatalf("Has must not count: %+v", st2)
	}
}

func TestDuplicateAcrossModules(t *testing.T) {
	db := New()
	bag := diag.NewBag(16)
	r := diag.BagReporter{Bag: bag}

	first := buildModule("a", []string{"Box"}, nil)
	db.AddModule(first, r)
	db.AddModule(buildModule("b", []string{"Box"}, nil), r)

	if bag.Len() != 1 {
		t.Fatalf("diagnostics = %d, want 1", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.ProjDuplicateDecl {
		t.Fatalf("code = %s", d.Code.ID())
	}
	if len(d.Notes) != 1 || d.Notes[0].Span != first.Classes[0].Span {
		t.Fatalf("note must point at the first declaration: %+v", d.Notes)
	}

	// первый владелец сохраняется
	got, ok := db.ClassSignature("Box")
	if !ok || got != first.Classes[0] {
		t.Fatalf("first declaration must win")
	}
	if db.DeclCount() != 1 {
		t.Fatalf("DeclCount = %d", db.DeclCount())
	}
}

func TestDuplicateAcrossKinds(t *testing.T) {
	db := New()
	bag := diag.NewBag(16)
	r := diag.BagReporter{Bag: bag}

	db.AddModule(buildModule("a", []string{"Thing"}, nil), r)
	db.AddModule(buildModule("b", nil, []string{"Thing"}), r)

	if bag.Len() != 1 {
		t.Fatalf("diagnostics = %d, want 1:\n%v", bag.Len(), bag.Items())
	}
	if _, ok := db.TypedefSignature("Thing"); ok {
		t.Fatalf("clashing typedef must not be indexed")
	}
}

func TestNames(t *testing.T) {
	db := New()
	db.AddModule(buildModule("a", []string{"Zed", "Ape"}, []string{"Mid"}), diag.NopReporter{})

	classes := db.ClassNames()
	if len(classes) != 2 || classes[0] != "Ape" || classes[1] != "Zed" {
		t.Fatalf("ClassNames = %v", classes)
	}
	typedefs := db.TypedefNames()
	if len(typedefs) != 1 || typedefs[0] != "Mid" {
		t.Fatalf("TypedefNames = %v", typedefs)
	}
	if mods := db.Modules(); len(mods) != 1 || mods[0].Name != "a" {
		t.Fatalf("Modules = %v", mods)
	}
}

func TestConcurrentReaders(t *testing.T) {
	db := New()
	db.AddModule(buildModule("lib", []string{"Box"}, nil), diag.NopReporter{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := db.ClassSignature("Box"); !ok {
					t.Error("Box lost")
					return
				}
				db.ClassSignature("Ghost")
			}
		}()
	}
	wg.Wait()

	st := db.Stats()
	if st.Hits != 800 || st.Misses != 800 {
		t.Fatalf("stats = %+v", st)
	}
}
