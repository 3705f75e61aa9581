package snapshot

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"tarn/internal/diag"
	"tarn/internal/sig"
	"tarn/internal/source"
)

// Decode reads one snapshot and rebuilds its module. Files from the
// snapshot's file table are registered into fs, so spans of every decoded
// module resolve through the one shared FileSet. Failures are reported as
// diagnostics and returned as errors; callers skip the module and go on.
func Decode(r io.Reader, path string, fs *source.FileSet, rep diag.Reporter) (*sig.Module, error) {
	if fs == nil {
		return nil, errors.New("snapshot: nil file set")
	}

	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		diag.ReportError(rep, diag.SnapDecodeError, source.Span{},
			fmt.Sprintf("cannot decode `%s`: %v", path, err)).Emit()
		return nil, fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	if p.Schema != SchemaVersion {
		diag.ReportError(rep, diag.SnapSchemaMismatch, source.Span{},
			fmt.Sprintf("`%s` uses snapshot schema v%d, this build of tarn reads v%d", path, p.Schema, SchemaVersion)).
			WithNote(source.Span{}, "re-export the snapshot with a matching front end").
			Emit()
		return nil, fmt.Errorf("snapshot: %s: schema v%d, want v%d", path, p.Schema, SchemaVersion)
	}

	d := &decoder{p: &p, fs: fs}
	m, err := d.decode(path)
	if err != nil {
		diag.ReportError(rep, diag.SnapBadReference, source.Span{},
			fmt.Sprintf("`%s`: %v", path, err)).Emit()
		return nil, fmt.Errorf("snapshot: %s: %w", path, err)
	}
	return m, nil
}

// Load opens and decodes a snapshot file.
func Load(path string, fs *source.FileSet, rep diag.Reporter) (*sig.Module, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the manifest or argv
	if err != nil {
		diag.ReportError(rep, diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot open `%s`: %v", path, err)).Emit()
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, path, fs, rep)
}

// decoder проверяет индексы payload и собирает из него sig.Module.
// Любая висячая ссылка прерывает декодирование всего снапшота.
type decoder struct {
	p     *payload
	fs    *source.FileSet
	files []source.FileID // локальный индекс файла -> FileID общего набора
	m     *sig.Module
}

func (d *decoder) decode(path string) (*sig.Module, error) {
	d.files = make([]source.FileID, 0, len(d.p.Files))
	for i, f := range d.p.Files {
		if len(f.Hash) != sha256.Size {
			return nil, fmt.Errorf("file entry #%d (`%s`) carries a %d-byte hash, want %d", i+1, f.Path, len(f.Hash), sha256.Size)
		}
		var hash [32]byte
		copy(hash[:], f.Hash)
		d.files = append(d.files, d.fs.Register(f.Path, hash))
	}

	d.m = sig.NewModule(d.p.Module)
	d.m.Path = path

	// Узлы восстанавливаются по порядку, поэтому арена выдаёт те же ID,
	// что записаны в снапшоте. Ссылки вперёд допустимы.
	for i, dto := range d.p.Types {
		if err := d.node(i, dto); err != nil {
			return nil, err
		}
	}
	if err := d.checkAcyclic(); err != nil {
		return nil, err
	}

	for _, dto := range d.p.Classes {
		c, err := d.class(dto)
		if err != nil {
			return nil, err
		}
		d.m.AddClass(c)
	}
	for _, dto := range d.p.Typedefs {
		td, err := d.typedef(dto)
		if err != nil {
			return nil, err
		}
		d.m.AddTypedef(td)
	}
	return d.m, nil
}

func (d *decoder) str(idx uint32) (string, error) {
	if int(idx) >= len(d.p.Strings) {
		return "", fmt.Errorf("string #%d is outside the table (%d entries)", idx, len(d.p.Strings))
	}
	return d.p.Strings[idx], nil
}

func (d *decoder) span(sp spanDTO) (source.Span, error) {
	if sp.File == 0 {
		return source.Span{Start: sp.Start, End: sp.End}, nil
	}
	if int(sp.File) > len(d.files) {
		return source.Span{}, fmt.Errorf("span points at file #%d, table has %d entries", sp.File, len(d.files))
	}
	return source.Span{File: d.files[sp.File-1], Start: sp.Start, End: sp.End}, nil
}

// ref allows 0: absent types (void results, bare arrays) stay NoTypeID.
func (d *decoder) ref(idx uint32) (sig.TypeID, error) {
	if int(idx) > len(d.p.Types) {
		return sig.NoTypeID, fmt.Errorf("type reference #%d is outside the arena (%d nodes)", idx, len(d.p.Types))
	}
	return sig.TypeID(idx), nil
}

func (d *decoder) refList(idxs []uint32) ([]sig.TypeID, error) {
	if len(idxs) == 0 {
		return nil, nil
	}
	out := make([]sig.TypeID, len(idxs))
	for i, idx := range idxs {
		id, err := d.ref(idx)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (d *decoder) bounds(dtos []boundDTO) ([]sig.Bound, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	out := make([]sig.Bound, len(dtos))
	for i, b := range dtos {
		if b.Kind > uint8(sig.BoundEq) {
			return nil, fmt.Errorf("bound #%d has unknown kind %d", i+1, b.Kind)
		}
		id, err := d.ref(b.Type)
		if err != nil {
			return nil, err
		}
		out[i] = sig.Bound{Kind: sig.BoundKind(b.Kind), Type: id}
	}
	return out, nil
}

func (d *decoder) node(i int, dto typeDTO) error {
	span, err := d.span(dto.Span)
	if err != nil {
		return fmt.Errorf("type node #%d: %w", i+1, err)
	}
	t := d.m.Types
	switch sig.Kind(dto.Kind) {
	case sig.KindAny:
		t.NewAny(span)
	case sig.KindMixed:
		t.NewMixed(span)
	case sig.KindThis:
		t.NewThis(span)
	case sig.KindPrim:
		name, err := d.str(dto.Name)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewPrim(span, name)
	case sig.KindConstAccess:
		class, err := d.str(dto.Name)
		if err == nil {
			var member string
			member, err = d.str(dto.Member)
			if err == nil {
				t.NewConstAccess(span, class, member)
			}
		}
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
	case sig.KindArray:
		key, err := d.ref(dto.Key)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		value, err := d.ref(dto.Value)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewArray(span, key, value)
	case sig.KindOption:
		inner, err := d.ref(dto.Value)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewOption(span, inner)
	case sig.KindTuple:
		elems, err := d.refList(dto.Elems)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewTuple(span, elems...)
	case sig.KindShape:
		if len(dto.Names) != len(dto.Elems) {
			return fmt.Errorf("shape node #%d has %d names for %d field types", i+1, len(dto.Names), len(dto.Elems))
		}
		fields := make([]sig.ShapeField, len(dto.Names))
		for j := range dto.Names {
			name, err := d.str(dto.Names[j])
			if err != nil {
				return fmt.Errorf("type node #%d: %w", i+1, err)
			}
			ft, err := d.ref(dto.Elems[j])
			if err != nil {
				return fmt.Errorf("type node #%d: %w", i+1, err)
			}
			fields[j] = sig.ShapeField{Name: name, Type: ft}
		}
		t.NewShape(span, fields...)
	case sig.KindFn:
		params, err := d.refList(dto.Elems)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		result, err := d.ref(dto.Value)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewFn(span, params, result)
	case sig.KindApply:
		class, err := d.str(dto.Name)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		args, err := d.refList(dto.Elems)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewApply(span, class, args...)
	case sig.KindParamRef:
		name, err := d.str(dto.Name)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		bounds, err := d.bounds(dto.Bounds)
		if err != nil {
			return fmt.Errorf("type node #%d: %w", i+1, err)
		}
		t.NewParamRef(span, name, bounds...)
	default:
		return fmt.Errorf("type node #%d has unknown kind %d", i+1, dto.Kind)
	}
	return nil
}

// Тип-выражения конечны, поэтому граф узлов обязан быть лесом: цикл в нём
// означает испорченный payload, который загнал бы обход проверки в
// бесконечную рекурсию.
func (d *decoder) checkAcyclic() error {
	const (
		unseen uint8 = iota
		onPath
		done
	)
	n := d.m.Types.Len()
	state := make([]uint8, n+1)
	stack := make([]sig.TypeID, 0, 16)
	scratch := make([]sig.TypeID, 0, 8)
	for root := uint32(1); root <= n; root++ {
		if state[root] != unseen {
			continue
		}
		stack = append(stack[:0], sig.TypeID(root))
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			switch state[id] {
			case unseen:
				state[id] = onPath
				scratch = d.nodeRefs(id, scratch[:0])
				for _, ch := range scratch {
					if !ch.IsValid() {
						continue
					}
					if state[ch] == onPath {
						return fmt.Errorf("type node #%d participates in a reference cycle", ch)
					}
					if state[ch] == unseen {
						stack = append(stack, ch)
					}
				}
			case onPath:
				state[id] = done
				stack = stack[:len(stack)-1]
			default:
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

// nodeRefs собирает структурные ссылки узла, по которым спускаются обходы.
func (d *decoder) nodeRefs(id sig.TypeID, buf []sig.TypeID) []sig.TypeID {
	t := d.m.Types
	switch t.Node(id).Kind {
	case sig.KindArray:
		p := t.Array(id)
		buf = append(buf, p.Key, p.Value)
	case sig.KindOption:
		buf = append(buf, t.Option(id).Inner)
	case sig.KindTuple:
		buf = append(buf, t.Tuple(id).Elems...)
	case sig.KindShape:
		for _, f := range t.Shape(id).Fields {
			buf = append(buf, f.Type)
		}
	case sig.KindFn:
		p := t.Fn(id)
		buf = append(buf, p.Params...)
		buf = append(buf, p.Result)
	case sig.KindApply:
		buf = append(buf, t.Apply(id).Args...)
	case sig.KindParamRef:
		for _, b := range t.ParamRef(id).Bounds {
			buf = append(buf, b.Type)
		}
	}
	return buf
}

func (d *decoder) typeParams(dtos []typeParamDTO) ([]sig.TypeParam, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	out := make([]sig.TypeParam, len(dtos))
	for i, tp := range dtos {
		name, err := d.str(tp.Name)
		if err != nil {
			return nil, err
		}
		span, err := d.span(tp.Span)
		if err != nil {
			return nil, err
		}
		nameSpan, err := d.span(tp.NameSpan)
		if err != nil {
			return nil, err
		}
		if tp.Variance > uint8(sig.Contravariant) {
			return nil, fmt.Errorf("type parameter `%s` has unknown variance mark %d", name, tp.Variance)
		}
		bounds, err := d.bounds(tp.Bounds)
		if err != nil {
			return nil, err
		}
		out[i] = sig.TypeParam{
			Name:     name,
			Span:     span,
			NameSpan: nameSpan,
			Variance: sig.Polarity(tp.Variance),
			Bounds:   bounds,
		}
	}
	return out, nil
}

func (d *decoder) visibility(v uint8) (sig.Visibility, error) {
	if v > uint8(sig.Private) {
		return sig.Public, fmt.Errorf("unknown visibility %d", v)
	}
	return sig.Visibility(v), nil
}

func (d *decoder) members(dtos []memberDTO) ([]sig.Member, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	out := make([]sig.Member, len(dtos))
	for i, m := range dtos {
		name, err := d.str(m.Name)
		if err != nil {
			return nil, err
		}
		span, err := d.span(m.Span)
		if err != nil {
			return nil, err
		}
		vis, err := d.visibility(m.Visibility)
		if err != nil {
			return nil, fmt.Errorf("member `%s`: %w", name, err)
		}
		ty, err := d.ref(m.Type)
		if err != nil {
			return nil, err
		}
		out[i] = sig.Member{Name: name, Span: span, Visibility: vis, Type: ty}
	}
	return out, nil
}

func (d *decoder) methods(dtos []methodDTO) ([]sig.Method, error) {
	if len(dtos) == 0 {
		return nil, nil
	}
	out := make([]sig.Method, len(dtos))
	for i, m := range dtos {
		name, err := d.str(m.Name)
		if err != nil {
			return nil, err
		}
		span, err := d.span(m.Span)
		if err != nil {
			return nil, err
		}
		vis, err := d.visibility(m.Visibility)
		if err != nil {
			return nil, fmt.Errorf("method `%s`: %w", name, err)
		}
		tps, err := d.typeParams(m.TypeParams)
		if err != nil {
			return nil, fmt.Errorf("method `%s`: %w", name, err)
		}
		params := make([]sig.Param, 0, len(m.Params))
		for _, p := range m.Params {
			pname, err := d.str(p.Name)
			if err != nil {
				return nil, err
			}
			pt, err := d.ref(p.Type)
			if err != nil {
				return nil, err
			}
			params = append(params, sig.Param{Name: pname, Type: pt})
		}
		result, err := d.ref(m.Result)
		if err != nil {
			return nil, err
		}
		out[i] = sig.Method{
			Name:       name,
			Span:       span,
			Visibility: vis,
			Final:      m.Final,
			TypeParams: tps,
			Params:     params,
			Result:     result,
		}
	}
	return out, nil
}

func (d *decoder) class(dto classDTO) (*sig.Class, error) {
	name, err := d.str(dto.Name)
	if err != nil {
		return nil, err
	}
	span, err := d.span(dto.Span)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	tps, err := d.typeParams(dto.TypeParams)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	extends, err := d.refList(dto.Extends)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	implements, err := d.refList(dto.Implements)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	members, err := d.members(dto.Members)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	methods, err := d.methods(dto.Methods)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	statics, err := d.methods(dto.Statics)
	if err != nil {
		return nil, fmt.Errorf("class `%s`: %w", name, err)
	}
	return &sig.Class{
		Name:       name,
		Span:       span,
		Final:      dto.Final,
		TypeParams: tps,
		Extends:    extends,
		Implements: implements,
		Members:    members,
		Methods:    methods,
		Statics:    statics,
	}, nil
}

func (d *decoder) typedef(dto typedefDTO) (*sig.Typedef, error) {
	name, err := d.str(dto.Name)
	if err != nil {
		return nil, err
	}
	span, err := d.span(dto.Span)
	if err != nil {
		return nil, fmt.Errorf("typedef `%s`: %w", name, err)
	}
	tps, err := d.typeParams(dto.TypeParams)
	if err != nil {
		return nil, fmt.Errorf("typedef `%s`: %w", name, err)
	}
	body, err := d.ref(dto.Body)
	if err != nil {
		return nil, fmt.Errorf("typedef `%s`: %w", name, err)
	}
	return &sig.Typedef{Name: name, Span: span, TypeParams: tps, Body: body}, nil
}
