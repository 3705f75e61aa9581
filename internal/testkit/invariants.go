package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"tarn/internal/sig"
	"tarn/internal/source"
)

// CheckModuleInvariants runs a minimal set of consistency invariants on a
// decoded module:
// 1) every published declaration resolves back through the module index
// 2) every type node's payload agrees with its kind
// 3) every TypeID held by nodes and declarations resolves in the arena
// 4) spans point at files registered in fs; when the file carries content,
//    the span stays within its bounds
//
// Эти инварианты обязан обеспечивать декодер снапшотов: нарушение здесь
// значит баг кодека, а не плохой вход.
func CheckModuleInvariants(m *sig.Module, fs *source.FileSet) error {
	if m == nil || m.Types == nil || fs == nil {
		return fmt.Errorf("nil module or file set")
	}
	c := moduleChecker{m: m, fs: fs}

	for i := uint32(1); i <= m.Types.Len(); i++ {
		if err := c.node(sig.TypeID(i)); err != nil {
			return fmt.Errorf("type node #%d: %w", i, err)
		}
	}
	for _, cl := range m.Classes {
		if err := c.class(cl); err != nil {
			return fmt.Errorf("class `%s`: %w", cl.Name, err)
		}
	}
	for _, td := range m.Typedefs {
		if err := c.typedef(td); err != nil {
			return fmt.Errorf("typedef `%s`: %w", td.Name, err)
		}
	}
	return nil
}

type moduleChecker struct {
	m  *sig.Module
	fs *source.FileSet
}

func (c *moduleChecker) span(sp source.Span) error {
	if sp.File == source.NoFileID {
		return nil
	}
	f := c.fs.Get(sp.File)
	if f == nil {
		return fmt.Errorf("span %v points at an unregistered file", sp)
	}
	if !f.HasContent() {
		return nil
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if sp.End > lenContent {
		return fmt.Errorf("span %v ends beyond content of `%s` (%d bytes)", sp, f.Path, lenContent)
	}
	return nil
}

func (c *moduleChecker) ref(id sig.TypeID) error {
	if !id.IsValid() {
		return nil
	}
	if c.m.Types.Node(id) == nil {
		return fmt.Errorf("type reference #%d does not resolve", id)
	}
	return nil
}

func (c *moduleChecker) refs(ids []sig.TypeID) error {
	for _, id := range ids {
		if err := c.ref(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *moduleChecker) bounds(bs []sig.Bound) error {
	for _, b := range bs {
		if err := c.ref(b.Type); err != nil {
			return fmt.Errorf("`%s` bound: %w", b.Kind, err)
		}
	}
	return nil
}

func (c *moduleChecker) typeParams(tps []sig.TypeParam) error {
	for _, tp := range tps {
		if err := c.span(tp.Span); err != nil {
			return fmt.Errorf("type parameter `%s`: %w", tp.Name, err)
		}
		if err := c.span(tp.NameSpan); err != nil {
			return fmt.Errorf("type parameter `%s`: %w", tp.Name, err)
		}
		if err := c.bounds(tp.Bounds); err != nil {
			return fmt.Errorf("type parameter `%s`: %w", tp.Name, err)
		}
	}
	return nil
}

func (c *moduleChecker) node(id sig.TypeID) error {
	t := c.m.Types
	node := t.Node(id)
	if node == nil {
		return fmt.Errorf("node does not resolve")
	}
	if err := c.span(node.Span); err != nil {
		return err
	}
	switch node.Kind {
	case sig.KindAny, sig.KindMixed, sig.KindThis:
		// без payload
	case sig.KindPrim:
		if t.Prim(id) == nil {
			return fmt.Errorf("prim payload missing")
		}
	case sig.KindConstAccess:
		if t.ConstAccess(id) == nil {
			return fmt.Errorf("const payload missing")
		}
	case sig.KindArray:
		p := t.Array(id)
		if p == nil {
			return fmt.Errorf("array payload missing")
		}
		if err := c.ref(p.Key); err != nil {
			return err
		}
		return c.ref(p.Value)
	case sig.KindOption:
		p := t.Option(id)
		if p == nil {
			return fmt.Errorf("option payload missing")
		}
		return c.ref(p.Inner)
	case sig.KindTuple:
		p := t.Tuple(id)
		if p == nil {
			return fmt.Errorf("tuple payload missing")
		}
		return c.refs(p.Elems)
	case sig.KindShape:
		p := t.Shape(id)
		if p == nil {
			return fmt.Errorf("shape payload missing")
		}
		for _, f := range p.Fields {
			if err := c.ref(f.Type); err != nil {
				return fmt.Errorf("field `%s`: %w", f.Name, err)
			}
		}
	case sig.KindFn:
		p := t.Fn(id)
		if p == nil {
			return fmt.Errorf("fn payload missing")
		}
		if err := c.refs(p.Params); err != nil {
			return err
		}
		return c.ref(p.Result)
	case sig.KindApply:
		p := t.Apply(id)
		if p == nil {
			return fmt.Errorf("apply payload missing")
		}
		return c.refs(p.Args)
	case sig.KindParamRef:
		p := t.ParamRef(id)
		if p == nil {
			return fmt.Errorf("param ref payload missing")
		}
		return c.bounds(p.Bounds)
	default:
		return fmt.Errorf("unknown kind %d", node.Kind)
	}
	return nil
}

func (c *moduleChecker) class(cl *sig.Class) error {
	if got, ok := c.m.Class(cl.Name); !ok || got == nil {
		return fmt.Errorf("not indexed by the module")
	}
	if cl.Types != c.m.Types {
		return fmt.Errorf("declaration does not share the module arena")
	}
	if err := c.span(cl.Span); err != nil {
		return err
	}
	if err := c.typeParams(cl.TypeParams); err != nil {
		return err
	}
	if err := c.refs(cl.Extends); err != nil {
		return fmt.Errorf("extends: %w", err)
	}
	if err := c.refs(cl.Implements); err != nil {
		return fmt.Errorf("implements: %w", err)
	}
	for _, mb := range cl.Members {
		if err := c.span(mb.Span); err != nil {
			return fmt.Errorf("member `%s`: %w", mb.Name, err)
		}
		if err := c.ref(mb.Type); err != nil {
			return fmt.Errorf("member `%s`: %w", mb.Name, err)
		}
	}
	for _, mt := range cl.Methods {
		if err := c.method(mt); err != nil {
			return fmt.Errorf("method `%s`: %w", mt.Name, err)
		}
	}
	for _, mt := range cl.Statics {
		if err := c.method(mt); err != nil {
			return fmt.Errorf("static `%s`: %w", mt.Name, err)
		}
	}
	return nil
}

func (c *moduleChecker) method(mt sig.Method) error {
	if err := c.span(mt.Span); err != nil {
		return err
	}
	if err := c.typeParams(mt.TypeParams); err != nil {
		return err
	}
	for _, p := range mt.Params {
		if err := c.ref(p.Type); err != nil {
			return fmt.Errorf("parameter `%s`: %w", p.Name, err)
		}
	}
	return c.ref(mt.Result)
}

func (c *moduleChecker) typedef(td *sig.Typedef) error {
	if got, ok := c.m.Typedef(td.Name); !ok || got == nil {
		return fmt.Errorf("not indexed by the module")
	}
	if td.Types != c.m.Types {
		return fmt.Errorf("declaration does not share the module arena")
	}
	if err := c.span(td.Span); err != nil {
		return err
	}
	if err := c.typeParams(td.TypeParams); err != nil {
		return err
	}
	return c.ref(td.Body)
}
