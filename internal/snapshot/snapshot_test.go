package snapshot

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"tarn/internal/diag"
	"tarn/internal/sig"
	"tarn/internal/source"
	"tarn/internal/testkit"
	"tarn/internal/variance"
)

// buildSample собирает модуль со всеми видами узлов и одним файлом,
// чтобы round-trip покрывал каждую ветку кодека.
func buildSample(tb testing.TB) (*sig.Module, *source.FileSet, []byte) {
	tb.Helper()
	content := []byte("class Box<+T> {\n  fn push(t: T) {}\n  fn pop(): T? {}\n}\n")
	fs := source.NewFileSet()
	fid := fs.Add("src/box.tarn", content, 0)

	sp := func(start, end uint32) source.Span {
		return source.Span{File: fid, Start: start, End: end}
	}

	m := sig.NewModule("box")
	t := m.Types

	prim := t.NewPrim(sp(0, 3), "int")
	ref := t.NewParamRef(sp(30, 31), "T")
	arr := t.NewArray(sp(4, 10), prim, ref)
	opt := t.NewOption(sp(44, 46), ref)
	tup := t.NewTuple(sp(4, 12), prim, opt)
	shape := t.NewShape(sp(4, 20),
		sig.ShapeField{Name: "head", Type: ref},
		sig.ShapeField{Name: "rest", Type: arr},
	)
	_ = t.NewFn(sp(4, 24), []sig.TypeID{prim}, shape)
	apply := t.NewApply(sp(4, 16), "Task", ref)
	ca := t.NewConstAccess(sp(4, 14), "Box", "LIMIT")
	this := t.NewThis(sp(4, 8))
	anyT := t.NewAny(sp(4, 7))
	mixed := t.NewMixed(sp(4, 9))
	boundRef := t.NewParamRef(sp(50, 51), "U", sig.Bound{Kind: sig.BoundAs, Type: prim})

	m.AddClass(&sig.Class{
		Name:  "Box",
		Span:  sp(6, 9),
		Final: true,
		TypeParams: []sig.TypeParam{
			{Name: "T", Span: sp(10, 12), NameSpan: sp(11, 12), Variance: sig.Covariant},
		},
		Extends:    []sig.TypeID{apply},
		Implements: []sig.TypeID{mixed},
		Members: []sig.Member{
			{Name: "size", Span: sp(16, 20), Visibility: sig.Private, Type: prim},
		},
		Methods: []sig.Method{
			{
				Name:       "push",
				Span:       sp(21, 25),
				Visibility: sig.Public,
				TypeParams: []sig.TypeParam{
					{Name: "U", Span: sp(26, 27), NameSpan: sp(26, 27), Bounds: []sig.Bound{{Kind: sig.BoundAs, Type: ref}}},
				},
				Params: []sig.Param{{Name: "t", Type: boundRef}},
				Result: opt,
			},
		},
		Statics: []sig.Method{
			{Name: "of", Span: sp(33, 35), Visibility: sig.Public, Final: true, Params: []sig.Param{{Name: "v", Type: anyT}}, Result: this},
		},
	})
	m.AddTypedef(&sig.Typedef{
		Name:       "Row",
		Span:       sp(40, 43),
		TypeParams: []sig.TypeParam{{Name: "V", Span: sp(44, 45), NameSpan: sp(44, 45)}},
		Body:       tup,
	})
	m.AddTypedef(&sig.Typedef{Name: "Pin", Span: sp(47, 50), Body: ca})

	return m, fs, content
}

func decodeInto(tb testing.TB, data []byte, path string) (*sig.Module, *source.FileSet, *diag.Bag) {
	tb.Helper()
	fs := source.NewFileSet()
	bag := diag.NewBag(16)
	m, err := Decode(bytes.NewReader(data), path, fs, diag.BagReporter{Bag: bag})
	if err != nil {
		tb.Fatalf("Decode: %v (bag: %v)", err, bag.Items())
	}
	return m, fs, bag
}

func TestRoundTripIsByteStable(t *testing.T) {
	m, fs, _ := buildSample(t)

	var first bytes.Buffer
	if err := Encode(&first, m, fs); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, fs2, bag := decodeInto(t, first.Bytes(), "box.tsig")
	if bag.Len() != 0 {
		t.Fatalf("clean decode produced diagnostics: %v", bag.Items())
	}

	var second bytes.Buffer
	if err := Encode(&second, decoded, fs2); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("re-encoded snapshot differs: %d bytes vs %d", first.Len(), second.Len())
	}
}

func TestRoundTripPreservesDecls(t *testing.T) {
	m, fs, content := buildSample(t)

	var buf bytes.Buffer
	if err := Encode(&buf, m, fs); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, fs2, _ := decodeInto(t, buf.Bytes(), "box.tsig")

	if err := testkit.CheckModuleInvariants(decoded, fs2); err != nil {
		t.Fatalf("decoded module breaks invariants: %v", err)
	}
	if decoded.Name != "box" || decoded.Path != "box.tsig" {
		t.Fatalf("module identity lost: name=%q path=%q", decoded.Name, decoded.Path)
	}
	if decoded.DeclCount() != 3 {
		t.Fatalf("DeclCount = %d, want 3", decoded.DeclCount())
	}

	box, ok := decoded.Class("Box")
	if !ok {
		t.Fatal("class Box missing after decode")
	}
	if !box.Final || len(box.TypeParams) != 1 || box.TypeParams[0].Variance != sig.Covariant {
		t.Fatalf("class header mangled: %+v", box)
	}
	if len(box.Methods) != 1 || len(box.Statics) != 1 || len(box.Members) != 1 {
		t.Fatalf("class body mangled: %d methods, %d statics, %d members", len(box.Methods), len(box.Statics), len(box.Members))
	}
	if !box.Statics[0].Final {
		t.Fatal("static method lost Final")
	}
	push := box.Methods[0]
	if len(push.TypeParams) != 1 || len(push.TypeParams[0].Bounds) != 1 || push.TypeParams[0].Bounds[0].Kind != sig.BoundAs {
		t.Fatalf("method type params mangled: %+v", push.TypeParams)
	}
	if pr := box.Types.ParamRef(push.Params[0].Type); pr == nil || pr.Name != "U" || len(pr.Bounds) != 1 {
		t.Fatalf("param ref mangled: %+v", pr)
	}

	row, ok := decoded.Typedef("Row")
	if !ok {
		t.Fatal("typedef Row missing after decode")
	}
	if body := decoded.Types.Node(row.Body); body == nil || body.Kind != sig.KindTuple {
		t.Fatalf("typedef body is not the tuple: %+v", body)
	}

	// Файл из таблицы должен попасть в общий набор: без контента, но с хешем.
	f, ok := fs2.GetByPath("src/box.tarn")
	if !ok {
		t.Fatal("snapshot file not registered")
	}
	if f.HasContent() {
		t.Fatal("registered file should start without content")
	}
	if f.Flags&source.FileFromSnapshot == 0 {
		t.Fatal("registered file lost FileFromSnapshot flag")
	}
	if f.Hash != sha256.Sum256(content) {
		t.Fatal("registered file hash does not match the original content")
	}
	if !fs2.AttachContent(f.ID, content) {
		t.Fatal("AttachContent rejected the original content")
	}

	if box.Span.File != f.ID {
		t.Fatalf("class span was not remapped: file %d, want %d", box.Span.File, f.ID)
	}
}

func TestDecodedModuleIsCheckable(t *testing.T) {
	content := []byte("class Sink<+T> {\n  fn put(t: T) {}\n}\n")
	fs := source.NewFileSet()
	fid := fs.Add("sink.tarn", content, 0)
	sp := func(start, end uint32) source.Span {
		return source.Span{File: fid, Start: start, End: end}
	}

	m := sig.NewModule("sink")
	ref := m.Types.NewParamRef(sp(29, 30), "T")
	m.AddClass(&sig.Class{
		Name:       "Sink",
		Span:       sp(6, 10),
		TypeParams: []sig.TypeParam{{Name: "T", Span: sp(11, 13), NameSpan: sp(12, 13), Variance: sig.Covariant}},
		Methods: []sig.Method{
			{Name: "put", Span: sp(22, 25), Params: []sig.Param{{Name: "t", Type: ref}}},
		},
	})

	var buf bytes.Buffer
	if err := Encode(&buf, m, fs); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, fs2, _ := decodeInto(t, buf.Bytes(), "sink.tsig")

	bag := diag.NewBag(16)
	sink, _ := decoded.Class("Sink")
	variance.CheckClass(variance.Options{Reporter: diag.BagReporter{Bag: bag}}, sink)

	if bag.Len() != 1 {
		t.Fatalf("expected one variance error, got %v", bag.Items())
	}
	got := bag.Items()[0]
	if got.Code != diag.VarDeclaredCovariant {
		t.Fatalf("code = %v, want VarDeclaredCovariant", got.Code)
	}
	f, _ := fs2.GetByPath("sink.tarn")
	if got.Primary.File != f.ID {
		t.Fatalf("diagnostic span not remapped into the shared file set: %+v", got.Primary)
	}
}

func TestSaveAndLoad(t *testing.T) {
	m, fs, _ := buildSample(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "box"+Ext)

	if err := Save(path, m, fs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "tsig-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the snapshot in %s, got %d entries", dir, len(entries))
	}

	fs2 := source.NewFileSet()
	bag := diag.NewBag(16)
	decoded, err := Load(path, fs2, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Load: %v (bag: %v)", err, bag.Items())
	}
	if decoded.Name != "box" || decoded.DeclCount() != 3 {
		t.Fatalf("loaded module mangled: %q with %d decls", decoded.Name, decoded.DeclCount())
	}
	if decoded.Path != path {
		t.Fatalf("module path = %q, want %q", decoded.Path, path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(16)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.tsig"), fs, diag.BagReporter{Bag: bag}); err == nil {
		t.Fatal("expected error for a missing file")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.IOLoadFileError {
		t.Fatalf("expected IOLoadFileError, got %v", bag.Items())
	}
}

func TestDecodeGarbage(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(16)
	_, err := Decode(bytes.NewReader([]byte("这不是 msgpack")), "junk.tsig", fs, diag.BagReporter{Bag: bag})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SnapDecodeError {
		t.Fatalf("expected SnapDecodeError, got %v", bag.Items())
	}
}

func TestSchemaMismatch(t *testing.T) {
	raw, err := msgpack.Marshal(&payload{Schema: SchemaVersion + 7, Module: "future"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fs := source.NewFileSet()
	bag := diag.NewBag(16)
	if _, err := Decode(bytes.NewReader(raw), "future.tsig", fs, diag.BagReporter{Bag: bag}); err == nil {
		t.Fatal("expected schema error")
	}
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %v", bag.Items())
	}
	got := bag.Items()[0]
	if got.Code != diag.SnapSchemaMismatch {
		t.Fatalf("code = %v, want SnapSchemaMismatch", got.Code)
	}
	if !strings.Contains(got.Message, "v8") {
		t.Fatalf("message should name the foreign schema: %q", got.Message)
	}
}

func TestMalformedPayloads(t *testing.T) {
	hash := make([]byte, sha256.Size)
	cases := []struct {
		name string
		p    payload
	}{
		{"string out of range", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types:   []typeDTO{{Kind: uint8(sig.KindPrim), Name: 5}},
		}},
		{"type ref out of range", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types:   []typeDTO{{Kind: uint8(sig.KindOption), Value: 9}},
		}},
		{"span file out of range", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types:   []typeDTO{{Kind: uint8(sig.KindAny), Span: spanDTO{File: 3}}},
		}},
		{"short file hash", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Files:   []fileDTO{{Path: "a.tarn", Hash: []byte{1, 2, 3}}},
		}},
		{"shape arity mismatch", payload{
			Schema:  SchemaVersion,
			Strings: []string{"", "x"},
			Types:   []typeDTO{{Kind: uint8(sig.KindShape), Names: []uint32{1}, Elems: nil}},
		}},
		{"invalid node kind", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types:   []typeDTO{{Kind: uint8(sig.KindInvalid)}},
		}},
		{"unknown node kind", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types:   []typeDTO{{Kind: 99}},
		}},
		{"unknown variance mark", payload{
			Schema:   SchemaVersion,
			Strings:  []string{"", "Bad", "T"},
			Classes:  []classDTO{{Name: 1, TypeParams: []typeParamDTO{{Name: 2, Variance: 7}}}},
			Files:    []fileDTO{{Path: "a.tarn", Hash: hash}},
			Typedefs: nil,
		}},
		{"unknown visibility", payload{
			Schema:  SchemaVersion,
			Strings: []string{"", "Bad", "m"},
			Classes: []classDTO{{Name: 1, Members: []memberDTO{{Name: 2, Visibility: 9}}}},
		}},
		{"unknown bound kind", payload{
			Schema:  SchemaVersion,
			Strings: []string{"", "T"},
			Types:   []typeDTO{{Kind: uint8(sig.KindParamRef), Name: 1, Bounds: []boundDTO{{Kind: 5}}}},
		}},
		{"typedef body out of range", payload{
			Schema:   SchemaVersion,
			Strings:  []string{"", "Row"},
			Typedefs: []typedefDTO{{Name: 1, Body: 14}},
		}},
		{"self-referential node", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types:   []typeDTO{{Kind: uint8(sig.KindOption), Value: 1}},
		}},
		{"two-node reference cycle", payload{
			Schema:  SchemaVersion,
			Strings: []string{""},
			Types: []typeDTO{
				{Kind: uint8(sig.KindOption), Value: 2},
				{Kind: uint8(sig.KindTuple), Elems: []uint32{1}},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := msgpack.Marshal(&tc.p)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			fs := source.NewFileSet()
			bag := diag.NewBag(16)
			m, err := Decode(bytes.NewReader(raw), "bad.tsig", fs, diag.BagReporter{Bag: bag})
			if err == nil {
				t.Fatal("expected decode to fail")
			}
			if m != nil {
				t.Fatal("failed decode must not return a module")
			}
			if bag.Len() != 1 || bag.Items()[0].Code != diag.SnapBadReference {
				t.Fatalf("expected SnapBadReference, got %v", bag.Items())
			}
		})
	}
}

func TestForwardReferenceDecodes(t *testing.T) {
	// Узел #1 ссылается вперёд на #2: допустимо, пока граф остаётся лесом.
	p := payload{
		Schema:  SchemaVersion,
		Module:  "fwd",
		Strings: []string{"", "int"},
		Types: []typeDTO{
			{Kind: uint8(sig.KindOption), Value: 2},
			{Kind: uint8(sig.KindPrim), Name: 1},
		},
	}
	raw, err := msgpack.Marshal(&p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	m, fs, bag := decodeInto(t, raw, "fwd.tsig")
	if bag.Len() != 0 {
		t.Fatalf("forward reference produced diagnostics: %v", bag.Items())
	}
	opt := m.Types.Option(sig.TypeID(1))
	if opt == nil || opt.Inner != sig.TypeID(2) {
		t.Fatalf("option payload mangled: %+v", opt)
	}
	if prim := m.Types.Prim(opt.Inner); prim == nil || prim.Name != "int" {
		t.Fatalf("forward target mangled: %+v", prim)
	}
	if err := testkit.CheckModuleInvariants(m, fs); err != nil {
		t.Fatalf("decoded module breaks invariants: %v", err)
	}
}

func TestInspect(t *testing.T) {
	m, fs, _ := buildSample(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "box"+Ext)
	if err := Save(path, m, fs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if s.Module != "box" || s.Schema != SchemaVersion {
		t.Fatalf("header mangled: %+v", s)
	}
	if s.Classes != 1 || s.Typedefs != 2 {
		t.Fatalf("decl counts: %+v", s)
	}
	if s.TypeParams != 2 {
		t.Fatalf("TypeParams = %d, want 2 (class T + typedef V)", s.TypeParams)
	}
	if s.TypeNodes != 13 {
		t.Fatalf("TypeNodes = %d, want 13", s.TypeNodes)
	}
	if len(s.Files) != 1 || s.Files[0] != "src/box.tarn" {
		t.Fatalf("files: %v", s.Files)
	}
}
