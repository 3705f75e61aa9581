package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"tarn/internal/sig"
	"tarn/internal/source"
)

// Encode serializes a module into the snapshot wire format. The FileSet
// supplies paths and hashes for the files the module's spans point into;
// spans whose file the set does not know degrade to file-less spans.
func Encode(w io.Writer, m *sig.Module, fs *source.FileSet) error {
	if m == nil || m.Types == nil {
		return errors.New("snapshot: nothing to encode")
	}
	p, err := newEncoder(m, fs).build()
	if err != nil {
		return err
	}
	return msgpack.NewEncoder(w).Encode(p)
}

// Save writes the snapshot to path atomically: temp file in the target
// directory, then rename.
func Save(path string, m *sig.Module, fs *source.FileSet) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tsig-*")
	if err != nil {
		return err
	}
	defer func() {
		// После успешного Rename файла уже нет.
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "snapshot: cannot remove temp file: %v\n", err)
		}
	}()

	if err := Encode(f, m, fs); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// encoder собирает payload, параллельно наполняя таблицы строк и файлов.
type encoder struct {
	m       *sig.Module
	fs      *source.FileSet
	strings *source.Interner
	files   []fileDTO
	fileIdx map[source.FileID]uint32
}

func newEncoder(m *sig.Module, fs *source.FileSet) *encoder {
	return &encoder{
		m:       m,
		fs:      fs,
		strings: source.NewInterner(),
		fileIdx: make(map[source.FileID]uint32),
	}
}

func (e *encoder) build() (*payload, error) {
	p := &payload{Schema: SchemaVersion, Module: e.m.Name}

	n := e.m.Types.Len()
	p.Types = make([]typeDTO, 0, n)
	for id := sig.TypeID(1); uint32(id) <= n; id++ {
		dto, err := e.node(id)
		if err != nil {
			return nil, err
		}
		p.Types = append(p.Types, dto)
	}

	for _, c := range e.m.Classes {
		p.Classes = append(p.Classes, e.class(c))
	}
	for _, td := range e.m.Typedefs {
		p.Typedefs = append(p.Typedefs, e.typedef(td))
	}

	// Таблицы заполняются по ходу обхода, снимаем их последними.
	p.Strings = e.strings.Snapshot()
	p.Files = e.files
	return p, nil
}

func (e *encoder) str(s string) uint32 {
	return uint32(e.strings.Intern(s))
}

func (e *encoder) span(sp source.Span) spanDTO {
	return spanDTO{File: e.fileRef(sp.File), Start: sp.Start, End: sp.End}
}

// fileRef maps a FileID to its 1-based index in the snapshot file table,
// appending a new entry on first sight.
func (e *encoder) fileRef(id source.FileID) uint32 {
	if !id.IsValid() || e.fs == nil {
		return 0
	}
	if idx, ok := e.fileIdx[id]; ok {
		return idx
	}
	f := e.fs.Get(id)
	if f == nil {
		return 0
	}
	e.files = append(e.files, fileDTO{
		Path: f.Path,
		Hash: append([]byte(nil), f.Hash[:]...),
	})
	idx := uint32(len(e.files))
	e.fileIdx[id] = idx
	return idx
}

func (e *encoder) refs(ids []sig.TypeID) []uint32 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func (e *encoder) node(id sig.TypeID) (typeDTO, error) {
	t := e.m.Types
	node := t.Node(id)
	dto := typeDTO{Kind: uint8(node.Kind), Span: e.span(node.Span)}
	switch node.Kind {
	case sig.KindAny, sig.KindMixed, sig.KindThis:
	case sig.KindPrim:
		dto.Name = e.str(t.Prim(id).Name)
	case sig.KindConstAccess:
		ca := t.ConstAccess(id)
		dto.Name = e.str(ca.Class)
		dto.Member = e.str(ca.Member)
	case sig.KindArray:
		ar := t.Array(id)
		dto.Key = uint32(ar.Key)
		dto.Value = uint32(ar.Value)
	case sig.KindOption:
		dto.Value = uint32(t.Option(id).Inner)
	case sig.KindTuple:
		dto.Elems = e.refs(t.Tuple(id).Elems)
	case sig.KindShape:
		for _, f := range t.Shape(id).Fields {
			dto.Names = append(dto.Names, e.str(f.Name))
			dto.Elems = append(dto.Elems, uint32(f.Type))
		}
	case sig.KindFn:
		fn := t.Fn(id)
		dto.Elems = e.refs(fn.Params)
		dto.Value = uint32(fn.Result)
	case sig.KindApply:
		ap := t.Apply(id)
		dto.Name = e.str(ap.Class)
		dto.Elems = e.refs(ap.Args)
	case sig.KindParamRef:
		ref := t.ParamRef(id)
		dto.Name = e.str(ref.Name)
		dto.Bounds = e.bounds(ref.Bounds)
	default:
		return typeDTO{}, fmt.Errorf("snapshot: type node #%d has kind %d, refusing to encode", id, node.Kind)
	}
	return dto, nil
}

func (e *encoder) bounds(bs []sig.Bound) []boundDTO {
	if len(bs) == 0 {
		return nil
	}
	out := make([]boundDTO, len(bs))
	for i, b := range bs {
		out[i] = boundDTO{Kind: uint8(b.Kind), Type: uint32(b.Type)}
	}
	return out
}

func (e *encoder) typeParams(tps []sig.TypeParam) []typeParamDTO {
	if len(tps) == 0 {
		return nil
	}
	out := make([]typeParamDTO, len(tps))
	for i, tp := range tps {
		out[i] = typeParamDTO{
			Name:     e.str(tp.Name),
			Span:     e.span(tp.Span),
			NameSpan: e.span(tp.NameSpan),
			Variance: uint8(tp.Variance),
			Bounds:   e.bounds(tp.Bounds),
		}
	}
	return out
}

func (e *encoder) params(ps []sig.Param) []paramDTO {
	if len(ps) == 0 {
		return nil
	}
	out := make([]paramDTO, len(ps))
	for i, p := range ps {
		out[i] = paramDTO{Name: e.str(p.Name), Type: uint32(p.Type)}
	}
	return out
}

func (e *encoder) members(ms []sig.Member) []memberDTO {
	if len(ms) == 0 {
		return nil
	}
	out := make([]memberDTO, len(ms))
	for i, m := range ms {
		out[i] = memberDTO{
			Name:       e.str(m.Name),
			Span:       e.span(m.Span),
			Visibility: uint8(m.Visibility),
			Type:       uint32(m.Type),
		}
	}
	return out
}

func (e *encoder) methods(ms []sig.Method) []methodDTO {
	if len(ms) == 0 {
		return nil
	}
	out := make([]methodDTO, len(ms))
	for i, m := range ms {
		out[i] = methodDTO{
			Name:       e.str(m.Name),
			Span:       e.span(m.Span),
			Visibility: uint8(m.Visibility),
			Final:      m.Final,
			TypeParams: e.typeParams(m.TypeParams),
			Params:     e.params(m.Params),
			Result:     uint32(m.Result),
		}
	}
	return out
}

func (e *encoder) class(c *sig.Class) classDTO {
	return classDTO{
		Name:       e.str(c.Name),
		Span:       e.span(c.Span),
		Final:      c.Final,
		TypeParams: e.typeParams(c.TypeParams),
		Extends:    e.refs(c.Extends),
		Implements: e.refs(c.Implements),
		Members:    e.members(c.Members),
		Methods:    e.methods(c.Methods),
		Statics:    e.methods(c.Statics),
	}
}

func (e *encoder) typedef(td *sig.Typedef) typedefDTO {
	return typedefDTO{
		Name:       e.str(td.Name),
		Span:       e.span(td.Span),
		TypeParams: e.typeParams(td.TypeParams),
		Body:       uint32(td.Body),
	}
}
