package variance

import "tarn/internal/sig"

// walk dispatches on the node kind, recording an observation whenever it
// reaches a generic parameter reference. Container shells are transparent:
// arrays, options, tuples and shapes forward the ambient context as is.
func (c *checker) walk(ctx Value, id sig.TypeID) {
	node := c.types.Node(id)
	if node == nil {
		return
	}
	switch node.Kind {
	case sig.KindAny, sig.KindMixed, sig.KindPrim, sig.KindConstAccess:
		// непрозрачны для вариантности
	case sig.KindThis:
		if ctx.Kind() == Contravariant {
			c.reportContravariantThis(node.Span)
		}
	case sig.KindArray:
		arr := c.types.Array(id)
		c.walk(ctx, arr.Key)
		c.walk(ctx, arr.Value)
	case sig.KindOption:
		c.walk(ctx, c.types.Option(id).Inner)
	case sig.KindTuple:
		for _, el := range c.types.Tuple(id).Elems {
			c.walk(ctx, el)
		}
	case sig.KindShape:
		for _, f := range c.types.Shape(id).Fields {
			c.walk(ctx, f.Type)
		}
	case sig.KindFn:
		c.walkFn(ctx, id)
	case sig.KindApply:
		c.walkApply(ctx, id)
	case sig.KindParamRef:
		c.walkParamRef(ctx, id)
	case sig.KindInvalid:
		// snapshot decode отбрасывает такие узлы раньше
	}
}

func (c *checker) walkFn(ctx Value, id sig.TypeID) {
	fn := c.types.Fn(id)
	for _, p := range fn.Params {
		pos := Position{Kind: PosFnParam, Method: MethodInstance}
		c.walk(flip(pos, c.types.Span(p), ctx), p)
	}
	if fn.Result.IsValid() {
		pos := Position{Kind: PosFnReturn, Method: MethodInstance}
		c.walk(coShift(pos, c.types.Span(fn.Result), ctx), fn.Result)
	}
}

// walkParamRef records the reference itself and screens its bounds for a
// bare `this`: a constraint pinned to `this` inherits the contravariant
// trouble of the slot it appears in.
func (c *checker) walkParamRef(ctx Value, id sig.TypeID) {
	ref := c.types.ParamRef(id)
	if ctx.Kind() == Contravariant {
		for _, b := range ref.Bounds {
			if bn := c.types.Node(b.Type); bn != nil && bn.Kind == sig.KindThis {
				c.reportContravariantThis(bn.Span)
			}
		}
	}
	c.env.record(ref.Name, refine(ctx, c.types.Span(id)))
}

// walkApply resolves the referenced declaration, composes each argument
// slot with the parameter's declared mark and descends. The intrinsic
// awaitable wrapper never consults the registry: its parameter is covariant
// by definition. Every other reference records a dependency edge first, so
// unknown names still invalidate correctly once they appear.
func (c *checker) walkApply(ctx Value, id sig.TypeID) {
	ap := c.types.Apply(id)
	if ap.Class == c.taskClass {
		c.walkTask(ctx, ap)
		return
	}
	c.depend(ap.Class)
	if len(ap.Args) == 0 {
		return
	}
	params := c.resolveParams(ap.Class)
	n := min(len(ap.Args), len(params))
	for i := 0; i < n; i++ {
		arg := ap.Args[i]
		p := &params[i]
		pos := Position{Kind: PosTypeArgument, Class: ap.Class, Param: p.Name}
		ref := fromAnnotation(Position{Kind: PosTypeParamDecl}, p.Span, p.Variance)
		c.walk(compose(pos, c.types.Span(arg), ctx, ref), arg)
	}
}

func (c *checker) walkTask(ctx Value, ap *sig.ApplyPayload) {
	if len(ap.Args) == 0 {
		return
	}
	arg := ap.Args[0]
	span := c.types.Span(arg)
	pos := Position{Kind: PosTypeArgument, Class: ap.Class}
	ref := fromAnnotation(pos, span, sig.Covariant)
	c.walk(compose(pos, span, ctx, ref), arg)
}

// resolveParams fetches the referenced declaration's parameters. Classes
// shadow typedefs; a name that resolves to nothing yields no parameters,
// so its arguments are not walked at all.
func (c *checker) resolveParams(name string) []sig.TypeParam {
	if c.opts.Registry == nil {
		return nil
	}
	if cls, ok := c.opts.Registry.ClassSignature(name); ok && cls != nil {
		return cls.TypeParams
	}
	if td, ok := c.opts.Registry.TypedefSignature(name); ok && td != nil {
		return td.TypeParams
	}
	return nil
}
