// Package variance проверяет объявленные маркеры вариантности (`+`, `-`,
// без маркера) параметров классов и тайпдефов против их фактического
// использования в сигнатуре. Каждое несоответствие объясняется цепочкой
// свидетелей: от самой внутренней причины к внешнему контексту.
package variance

import (
	"fmt"
	"sort"

	"tarn/internal/diag"
	"tarn/internal/sig"
	"tarn/internal/source"
)

// DefaultTaskClass is the intrinsic awaitable wrapper. Its single parameter
// is covariant by definition and its uses never consult the registry.
const DefaultTaskClass = "Task"

// Registry resolves published signatures by name. Implementations must be
// safe for concurrent readers; checks of unrelated declarations run in
// parallel over the same registry.
type Registry interface {
	ClassSignature(name string) (*sig.Class, bool)
	TypedefSignature(name string) (*sig.Typedef, bool)
}

// DepSink receives "from depended on to" edges as they are discovered.
type DepSink interface {
	Depend(from, to string)
}

// Options configure one declaration check.
type Options struct {
	Registry  Registry
	Reporter  diag.Reporter
	Deps      DepSink // optional, edges are also returned in Result
	TaskClass string  // intrinsic wrapper name, DefaultTaskClass when empty
}

// Result reports what one declaration check touched.
type Result struct {
	Params int      // type parameters compared against their marks
	Deps   []string // signatures consulted, sorted and deduplicated
}

type checker struct {
	opts      Options
	taskClass string
	types     *sig.Types
	class     *sig.Class // nil when checking a typedef
	from      string
	env       environment
	deps      map[string]struct{}
}

func newChecker(opts Options, types *sig.Types, class *sig.Class, from string) *checker {
	task := opts.TaskClass
	if task == "" {
		task = DefaultTaskClass
	}
	return &checker{
		opts:      opts,
		taskClass: task,
		types:     types,
		class:     class,
		from:      from,
		env:       make(environment),
		deps:      make(map[string]struct{}),
	}
}

// CheckClass verifies every declared variance mark of a class against the
// usage inferred from its published signature. Extends and implements
// clauses are walked in a bivariant context: сами по себе они ничего не
// требуют, ограничения возникают только через composition с чужими марками.
func CheckClass(opts Options, class *sig.Class) Result {
	if class == nil || class.Types == nil {
		return Result{}
	}
	c := newChecker(opts, class.Types, class, class.Name)

	for _, sup := range class.Extends {
		c.walk(bivariant(), sup)
	}
	for _, impl := range class.Implements {
		c.walk(bivariant(), impl)
	}

	for i := range class.Members {
		m := &class.Members[i]
		if m.Visibility == sig.Private {
			continue
		}
		ctx := fromAnnotation(Position{Kind: PosInstanceMember}, m.Span, sig.Invariant)
		c.walk(ctx, m.Type)
	}

	for i := range class.Methods {
		m := &class.Methods[i]
		if m.Visibility == sig.Private {
			continue
		}
		c.method(m, MethodInstance)
	}
	// статики финального класса не переопределяются и не ограничивают
	if !class.Final {
		for i := range class.Statics {
			m := &class.Statics[i]
			if m.Visibility == sig.Private {
				continue
			}
			c.method(m, MethodStatic)
		}
	}

	for i := range class.TypeParams {
		c.checkParam(&class.TypeParams[i])
	}
	return c.result(len(class.TypeParams))
}

// CheckTypedef fetches the alias from the registry and verifies its marks.
// Unknown names are a no-op: the declaration pass reports them separately.
func CheckTypedef(opts Options, name string) Result {
	if opts.Registry == nil {
		return Result{}
	}
	td, ok := opts.Registry.TypedefSignature(name)
	if !ok || td == nil || td.Types == nil {
		return Result{}
	}
	c := newChecker(opts, td.Types, nil, name)
	if td.Body.IsValid() {
		ctx := fromAnnotation(Position{Kind: PosTypedefBody}, c.types.Span(td.Body), sig.Covariant)
		c.walk(ctx, td.Body)
	}
	for i := range td.TypeParams {
		c.checkParam(&td.TypeParams[i])
	}
	return c.result(len(td.TypeParams))
}

// method walks one method signature: parameters are contravariant seeds,
// constraint bounds follow their kind, the return type is covariant. The
// method's own type parameters are fresh per call site, so any accumulated
// entries under their names are dropped before the walk. Final static
// methods cannot be overridden and are skipped entirely.
func (c *checker) method(m *sig.Method, kind MethodKind) {
	if m.Final && kind == MethodStatic {
		return
	}
	for i := range m.TypeParams {
		c.env.drop(m.TypeParams[i].Name)
	}
	for _, p := range m.Params {
		if !p.Type.IsValid() {
			continue
		}
		pos := Position{Kind: PosFnParam, Method: kind}
		c.walk(fromAnnotation(pos, c.types.Span(p.Type), sig.Contravariant), p.Type)
	}
	for i := range m.TypeParams {
		for _, b := range m.TypeParams[i].Bounds {
			if b.Type.IsValid() {
				c.walkBound(b)
			}
		}
	}
	if m.Result.IsValid() {
		pos := Position{Kind: PosFnReturn, Method: kind}
		c.walk(fromAnnotation(pos, c.types.Span(m.Result), sig.Covariant), m.Result)
	}
}

func (c *checker) walkBound(b sig.Bound) {
	span := c.types.Span(b.Type)
	var ctx Value
	switch b.Kind {
	case sig.BoundAs:
		ctx = fromAnnotation(Position{Kind: PosConstraintAs}, span, sig.Contravariant)
	case sig.BoundSuper:
		ctx = fromAnnotation(Position{Kind: PosConstraintSuper}, span, sig.Covariant)
	case sig.BoundEq:
		ctx = fromAnnotation(Position{Kind: PosConstraintEq}, span, sig.Invariant)
	}
	c.walk(ctx, b.Type)
}

// checkParam compares a declared mark against the inferred usage. Inferred
// bivariance passes any mark and a declared invariant accepts any usage.
// Parameters are judged independently, so one declaration can produce
// several mismatches.
func (c *checker) checkParam(tp *sig.TypeParam) {
	inferred := c.env.lookup(tp.Name)
	if inferred.Kind() == Bivariant {
		return
	}
	switch tp.Variance {
	case sig.Invariant:
		return
	case sig.Covariant:
		if inferred.Kind() == Covariant {
			return
		}
		c.reportMismatch(tp, inferred, diag.VarDeclaredCovariant, inferred.ContraWitnesses())
	case sig.Contravariant:
		if inferred.Kind() == Contravariant {
			return
		}
		c.reportMismatch(tp, inferred, diag.VarDeclaredContravariant, inferred.CoWitnesses())
	default:
		panic(fmt.Sprintf("variance: declared polarity out of range: %d", tp.Variance))
	}
}

func (c *checker) reportMismatch(tp *sig.TypeParam, inferred Value, code diag.Code, chain []Witness) {
	msg := fmt.Sprintf("%s type parameter `%s` occurs in %s position",
		tp.Variance, tp.Name, usageArticle(inferred.Kind()))
	b := diag.ReportError(c.opts.Reporter, code, tp.Span, msg)
	for _, w := range chain {
		b.WithNote(w.Span, w.describe())
	}
	b.WithFix(fmt.Sprintf("drop the `%s` marker from `%s`", tp.Variance.Marker(), tp.Name),
		diag.FixEdit{Span: tp.Span, NewText: tp.Name})
	b.Emit()
}

// reportContravariantThis fires when `this` sits in a contravariant slot of
// a final class. Finality pins `this` to the class itself, so each variant
// parameter makes the occurrence unsound and gets its own error. Non-final
// classes handle `this` structurally and are not checked here.
func (c *checker) reportContravariantThis(span source.Span) {
	if c.class == nil || !c.class.Final {
		return
	}
	for i := range c.class.TypeParams {
		tp := &c.class.TypeParams[i]
		if tp.Variance == sig.Invariant {
			continue
		}
		msg := fmt.Sprintf("`this` in a contravariant position conflicts with %s type parameter `%s` of final class `%s`",
			tp.Variance, tp.Name, c.class.Name)
		diag.ReportError(c.opts.Reporter, diag.VarContravariantThis, span, msg).
			WithNote(tp.Span, fmt.Sprintf("`%s` is declared %s here", tp.Name, tp.Variance)).
			Emit()
	}
}

func (c *checker) depend(name string) {
	if _, ok := c.deps[name]; ok {
		return
	}
	c.deps[name] = struct{}{}
	if c.opts.Deps != nil {
		c.opts.Deps.Depend(c.from, name)
	}
}

func (c *checker) result(params int) Result {
	deps := make([]string, 0, len(c.deps))
	for name := range c.deps {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return Result{Params: params, Deps: deps}
}

func usageArticle(k Kind) string {
	switch k {
	case Covariant:
		return "a covariant"
	case Contravariant:
		return "a contravariant"
	case Invariant:
		return "an invariant"
	}
	return "an unconstrained"
}
