// Package lower implements component D: the statement/expression lowerer
// (spec.md §4.D), the single largest subsystem. It is a recursive,
// context-threaded tree transformer dispatched by Go type switches over
// csrc's sum-type AST (spec.md's DESIGN NOTES: "a strong engineer will
// naturally encode the Target AST as a sum type and pattern-match").
package lower

import (
	"fmt"
	"io"

	"github.com/anvil-lang/c2z/internal/coerce"
	"github.com/anvil-lang/c2z/internal/csrc"
	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/scope"
	"github.com/anvil-lang/c2z/internal/target"
	"github.com/anvil-lang/c2z/internal/typetrans"
	"github.com/anvil-lang/c2z/internal/xerr"
)

// Lowerer carries the pieces of Context the lowerer needs beyond the
// scope chain threaded explicitly through every call (spec.md's DESIGN
// NOTES: "keep this explicit; do not introduce ambient/global state").
type Lowerer struct {
	Resolver *scope.Resolver
	Types    *typetrans.Translator
	Diag     io.Writer

	// GlobalName resolves a top-level declaration's canonical id to its
	// already-assigned Target name (the decl-table proper, owned by
	// xlate.Context). Returns ok=false for an id with no assigned name
	// (a local, or a declaration not translated yet); the lowerer then
	// uses the scope alias of the C source name.
	GlobalName func(ctypes.DeclID) (string, bool)

	blockLabels int
	switchNames int
}

func New(resolver *scope.Resolver, types *typetrans.Translator, diag io.Writer, globalName func(ctypes.DeclID) (string, bool)) *Lowerer {
	return &Lowerer{Resolver: resolver, Types: types, Diag: diag, GlobalName: globalName}
}

func (l *Lowerer) freshLabel(prefix string) string {
	l.blockLabels++
	return fmt.Sprintf("%s%d", prefix, l.blockLabels)
}

// --- Statements ---

// LowerBlock lowers a compound statement into a *target.BlockStmt inside
// its own fresh Block scope.
func (l *Lowerer) LowerBlock(parent scope.Scope, cs *csrc.CompoundStmt) (*target.BlockStmt, error) {
	blk := scope.NewBlockScope(parent)
	for _, item := range cs.Items {
		if err := l.lowerInto(blk, item); err != nil {
			return nil, err
		}
	}
	return &target.BlockStmt{Stmts: blk.Stmts}, nil
}

// lowerInto lowers stmt and appends the result(s) to blk directly,
// flattening a DeclStmt's multiple declarations.
func (l *Lowerer) lowerInto(blk *scope.BlockScope, stmt csrc.Stmt) error {
	if ds, ok := stmt.(csrc.DeclStmt); ok {
		for _, d := range ds.Decls {
			vd, ok := d.(csrc.VarDecl)
			if !ok {
				return fmt.Errorf("%w: block-scope decl kind %T", xerr.ErrUnsupportedTranslation, d)
			}
			local, err := l.lowerLocalVar(blk, vd)
			if err != nil {
				return err
			}
			if local != nil {
				blk.Stmts = append(blk.Stmts, local)
			}
		}
		return nil
	}

	out, err := l.LowerStmt(blk, stmt)
	if err != nil {
		return err
	}
	if out != nil {
		blk.Stmts = append(blk.Stmts, out)
	}
	return nil
}

func (l *Lowerer) lowerLocalVar(blk *scope.BlockScope, vd csrc.VarDecl) (target.Stmt, error) {
	typ, err := l.Types.Translate(vd.Type)
	if err != nil {
		return nil, err
	}

	if vd.Storage == csrc.StorageStatic {
		return l.lowerStaticLocalVar(blk, vd, typ)
	}

	mangled := l.Resolver.MakeMangledName(blk, vd.Name)
	var value target.Expr
	if vd.Init != nil {
		value, err = l.LowerExpr(blk, vd.Init, true)
		if err != nil {
			return nil, err
		}
	}
	return target.LocalDecl{Name: mangled, Typ: typ, Value: value, Mutable: true}, nil
}

// lowerStaticLocalVar hoists a static function-local variable to a
// top-level declaration named static_<name> (mangled further on a
// collision), since Target block scopes cannot own persistent storage, and
// aliases the local name to it for the rest of the enclosing block (the
// same mechanism VisitFunction uses to shadow mutated parameters).
func (l *Lowerer) lowerStaticLocalVar(blk *scope.BlockScope, vd csrc.VarDecl, typ target.TypeExpr) (target.Stmt, error) {
	mangled := l.Resolver.MakeMangledName(l.Resolver.Root, "static_"+vd.Name)
	blk.Aliases[vd.Name] = mangled

	value := ZeroValue(typ)
	if vd.Init != nil {
		v, err := l.LowerExpr(l.Resolver.Root, vd.Init, true)
		if err != nil {
			return nil, err
		}
		value = v
	}
	l.Resolver.Root.Nodes = append(l.Resolver.Root.Nodes, target.VarDecl{Name: mangled, Typ: typ, Value: value})
	return nil, nil
}

// LowerStmt lowers a single C statement, dispatched on its concrete type
// (spec.md §4.D: "driven by a single recursive function dispatched on
// statement class"). Returns nil, nil for a statement that lowers to
// nothing observable (NullStmt).
func (l *Lowerer) LowerStmt(s scope.Scope, stmt csrc.Stmt) (target.Stmt, error) {
	switch st := stmt.(type) {
	case *csrc.CompoundStmt:
		return l.LowerBlock(s, st)
	case csrc.CompoundStmt:
		return l.LowerBlock(s, &st)

	case csrc.ExprStmt:
		return l.lowerExprStmt(s, st.Expr)

	case csrc.DeclStmt:
		blk := scope.NewBlockScope(s)
		if err := l.lowerInto(blk, st); err != nil {
			return nil, err
		}
		return &target.BlockStmt{Stmts: blk.Stmts}, nil

	case csrc.IfStmt:
		return l.lowerIf(s, st)

	case csrc.WhileStmt:
		return l.lowerWhile(s, st)

	case csrc.DoStmt:
		return l.lowerDoWhile(s, st)

	case csrc.ForStmt:
		return l.lowerFor(s, st)

	case csrc.SwitchStmt:
		return l.lowerSwitch(s, st)

	case csrc.BreakStmt:
		breakable := scope.GetBreakableScope(s)
		if sw, ok := breakable.(*scope.SwitchScope); ok {
			if sw.Label == "" {
				sw.Label = l.freshLabel("switch_")
			}
			return target.BreakStmt{Label: sw.Label}, nil
		}
		return target.BreakStmt{}, nil

	case csrc.ContinueStmt:
		return target.ContinueStmt{}, nil

	case csrc.ReturnStmt:
		if st.Value == nil {
			return target.ReturnStmt{}, nil
		}
		v, err := l.LowerExpr(s, st.Value, true)
		if err != nil {
			return nil, err
		}
		return target.ReturnStmt{Value: v}, nil

	case csrc.LabelStmt, csrc.GotoStmt:
		return nil, fmt.Errorf("%w: labeled goto is not expressible in Target", xerr.ErrUnsupportedTranslation)

	case csrc.NullStmt:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: statement kind %T", xerr.ErrUnsupportedTranslation, stmt)
	}
}

func (l *Lowerer) lowerExprStmt(s scope.Scope, e csrc.Expr) (target.Stmt, error) {
	switch v := e.(type) {
	case csrc.Assign:
		return l.lowerAssignUnused(s, v)
	case csrc.Unary:
		if v.Op.IsIncDec() {
			return l.lowerIncDecUnused(s, v)
		}
	case csrc.Comma:
		lhs, err := l.lowerExprStmt(s, v.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := l.lowerExprStmt(s, v.RHS)
		if err != nil {
			return nil, err
		}
		stmts := make([]target.Stmt, 0, 2)
		if lhs != nil {
			stmts = append(stmts, lhs)
		}
		if rhs != nil {
			stmts = append(stmts, rhs)
		}
		return &target.BlockStmt{Stmts: stmts}, nil
	}

	expr, err := l.LowerExpr(s, e, false)
	if err != nil {
		return nil, err
	}
	return target.ExprStmt{Expr: expr}, nil
}

func (l *Lowerer) lowerAssignUnused(s scope.Scope, a csrc.Assign) (target.Stmt, error) {
	lhs, err := l.LowerExpr(s, a.LHS, true)
	if err != nil {
		return nil, err
	}
	rhs, err := l.lowerAssignRHS(s, a)
	if err != nil {
		return nil, err
	}
	if a.Op == csrc.AssignPlain {
		return target.AssignStmt{LHS: lhs, RHS: rhs}, nil
	}
	if kind, ok := divModIntrinsic(a.Op); ok {
		return target.AssignStmt{LHS: lhs, RHS: target.Intrinsic{Kind: kind, Args: []target.Expr{lhs, rhs}}}, nil
	}
	return target.CompoundAssignStmt{Op: binOp(a.Op.BinaryOp()), LHS: lhs, RHS: rhs}, nil
}

func (l *Lowerer) lowerAssignRHS(s scope.Scope, a csrc.Assign) (target.Expr, error) {
	return l.LowerExpr(s, a.RHS, true)
}

func (l *Lowerer) lowerIncDecUnused(s scope.Scope, u csrc.Unary) (target.Stmt, error) {
	arg, err := l.LowerExpr(s, u.Arg, true)
	if err != nil {
		return nil, err
	}
	op := target.BAdd
	if u.Op == csrc.OpPreDec || u.Op == csrc.OpPostDec {
		op = target.BSub
	}
	return target.CompoundAssignStmt{Op: op, LHS: arg, RHS: target.IntLit{Value: 1}}, nil
}

func (l *Lowerer) lowerIf(s scope.Scope, st csrc.IfStmt) (target.Stmt, error) {
	cond, err := l.lowerCondition(s, st.Cond)
	if err != nil {
		return nil, err
	}
	then, err := l.lowerAsBlock(s, st.Then)
	if err != nil {
		return nil, err
	}
	out := target.IfStmt{Cond: cond, Then: then}
	if st.Else != nil {
		els, err := l.LowerStmt(s, st.Else)
		if err != nil {
			return nil, err
		}
		out.Else = els
	}
	return out, nil
}

func (l *Lowerer) lowerAsBlock(s scope.Scope, stmt csrc.Stmt) (*target.BlockStmt, error) {
	if cs, ok := stmt.(*csrc.CompoundStmt); ok {
		return l.LowerBlock(s, cs)
	}
	if cs, ok := stmt.(csrc.CompoundStmt); ok {
		return l.LowerBlock(s, &cs)
	}
	inner, err := l.LowerStmt(s, stmt)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return &target.BlockStmt{}, nil
	}
	return &target.BlockStmt{Stmts: []target.Stmt{inner}}, nil
}

// lowerCondition lowers a controlling expression through a Condition
// scope so the comma operator can lazily materialize a block (spec.md
// §3's Condition scope, §4.D "Condition-scope for proper bool conversion").
func (l *Lowerer) lowerCondition(s scope.Scope, e csrc.Expr) (target.Expr, error) {
	cond := &scope.ConditionScope{Parent: s}
	v, err := l.LowerExpr(cond, e, true)
	if err != nil {
		return nil, err
	}
	converted := coerce.ToBool(e.Type(), v)
	if cond.Lazy == nil {
		return converted, nil
	}
	return target.BlockExpr{Label: l.freshLabel("cond_"), Stmts: cond.Lazy.Stmts, Value: converted}, nil
}

func (l *Lowerer) lowerWhile(s scope.Scope, st csrc.WhileStmt) (target.Stmt, error) {
	cond, err := l.lowerCondition(s, st.Cond)
	if err != nil {
		return nil, err
	}
	loop := &scope.LoopScope{Parent: s}
	body, err := l.lowerAsBlock(loop, st.Body)
	if err != nil {
		return nil, err
	}
	return target.WhileStmt{Cond: cond, Body: body}, nil
}

func (l *Lowerer) lowerDoWhile(s scope.Scope, st csrc.DoStmt) (target.Stmt, error) {
	loop := &scope.LoopScope{Parent: s}
	body, err := l.lowerAsBlock(loop, st.Body)
	if err != nil {
		return nil, err
	}
	cond, err := l.lowerCondition(loop, st.Cond)
	if err != nil {
		return nil, err
	}
	body.Stmts = append(body.Stmts, target.IfStmt{
		Cond: target.Unary{Op: target.UNot, Arg: cond},
		Then: &target.BlockStmt{Stmts: []target.Stmt{target.BreakStmt{}}},
	})
	return target.WhileStmt{Cond: target.BoolLit{Value: true}, Body: body}, nil
}

func (l *Lowerer) lowerFor(s scope.Scope, st csrc.ForStmt) (target.Stmt, error) {
	outer := scope.NewBlockScope(s)
	if st.Init != nil {
		if err := l.lowerInto(outer, st.Init); err != nil {
			return nil, err
		}
	}

	var cond target.Expr = target.BoolLit{Value: true}
	if st.Cond != nil {
		c, err := l.lowerCondition(outer, st.Cond)
		if err != nil {
			return nil, err
		}
		cond = c
	}

	var inc target.Expr
	if st.Inc != nil {
		incStmt, err := l.lowerExprStmt(outer, st.Inc)
		if err != nil {
			return nil, err
		}
		inc = target.BlockExpr{Stmts: []target.Stmt{incStmt}, Value: target.BoolLit{Value: true}}
	}

	loop := &scope.LoopScope{Parent: outer}
	body, err := l.lowerAsBlock(loop, st.Body)
	if err != nil {
		return nil, err
	}

	outer.Stmts = append(outer.Stmts, target.WhileStmt{Cond: cond, Continue: inc, Body: body})
	return &target.BlockStmt{Stmts: outer.Stmts}, nil
}

func (l *Lowerer) lowerSwitch(s scope.Scope, st csrc.SwitchStmt) (target.Stmt, error) {
	sw := scope.NewSwitchScope(s)

	body, ok := st.Body.(*csrc.CompoundStmt)
	if !ok {
		if v, ok2 := st.Body.(csrc.CompoundStmt); ok2 {
			body = &v
		} else {
			return nil, fmt.Errorf("%w: switch body must be a compound statement", xerr.ErrUnsupportedTranslation)
		}
	}

	flushPending := func() *target.BlockStmt {
		blk := &target.BlockStmt{Stmts: sw.Pending.Stmts}
		sw.Pending = scope.NewBlockScope(sw)
		return blk
	}

	var curValues []int64
	haveOpenProng := false
	elseBody := (*target.BlockStmt)(nil)
	inElse := false

	closeProng := func() {
		if !haveOpenProng {
			return
		}
		blk := flushPending()
		if inElse {
			elseBody = blk
		} else {
			sw.Cases = append(sw.Cases, target.SwitchProng{Values: curValues, Body: blk})
		}
		curValues = nil
		haveOpenProng = false
		inElse = false
	}

	cond, err := l.LowerExpr(s, st.Cond, true)
	if err != nil {
		return nil, err
	}

	var walk func(stmt csrc.Stmt) error
	walk = func(stmt csrc.Stmt) error {
		switch v := stmt.(type) {
		case csrc.CaseStmt:
			closeProng()
			curValues = []int64{v.Value}
			haveOpenProng = true
			return walk(v.Body)
		case csrc.DefaultStmt:
			closeProng()
			inElse = true
			haveOpenProng = true
			return walk(v.Body)
		default:
			return l.lowerInto(sw.Pending, stmt)
		}
	}

	for _, item := range body.Items {
		if err := walk(item); err != nil {
			return nil, err
		}
	}
	closeProng()

	if elseBody == nil {
		elseBody = &target.BlockStmt{}
	}

	out := target.SwitchStmt{Cond: cond, Prongs: sw.Cases, Else: elseBody}
	if sw.Label == "" {
		return out, nil
	}
	return &target.BlockStmt{Label: sw.Label, Stmts: []target.Stmt{out}}, nil
}

// --- Expressions ---

// LowerExpr lowers a single C expression, dispatched on its concrete
// type. resultUsed tells inc/dec and assignment whether the caller needs
// the produced value or is discarding it (spec.md §4.D).
func (l *Lowerer) LowerExpr(s scope.Scope, e csrc.Expr, resultUsed bool) (target.Expr, error) {
	switch v := e.(type) {
	case csrc.IntLiteral:
		typ, err := l.Types.Translate(v.Typ)
		if err != nil {
			return nil, err
		}
		return coerce.IntLiteral(typ, v.Value, 0, false), nil

	case csrc.FloatLiteral:
		return target.FloatLit{Value: v.Value}, nil

	case csrc.StringLiteral:
		return l.lowerStringLiteral(v)

	case csrc.DeclRef:
		return l.lowerDeclRef(s, v)

	case csrc.Member:
		return l.lowerMember(s, v)

	case csrc.Index:
		return l.lowerIndex(s, v)

	case csrc.Call:
		return l.lowerCall(s, v)

	case csrc.Unary:
		return l.lowerUnary(s, v, resultUsed)

	case csrc.Binary:
		return l.lowerBinary(s, v)

	case csrc.Assign:
		return l.lowerAssignUsed(s, v)

	case csrc.Conditional:
		return l.lowerConditional(s, v)

	case csrc.GNUConditional:
		return l.lowerGNUConditional(s, v)

	case csrc.Comma:
		return l.lowerCommaExpr(s, v)

	case csrc.Cast:
		return l.lowerCast(s, v.Arg, v.Typ)

	case csrc.ImplicitCast:
		return l.lowerCast(s, v.Arg, v.Typ)

	case csrc.Paren:
		return l.LowerExpr(s, v.Inner, resultUsed)

	case csrc.InitList:
		return l.lowerInitList(s, v)

	case csrc.CompoundLiteral:
		return l.lowerInitList(s, v.Init)

	case csrc.SizeOfExpr:
		return l.lowerSizeAlign(s, target.ISizeOf, v.ArgType, v.ArgExpr)

	case csrc.AlignOfExpr:
		return l.lowerSizeAlign(s, target.IAlignOf, v.ArgType, v.ArgExpr)

	case csrc.StmtExpr:
		return l.lowerStmtExpr(s, v)

	default:
		return nil, fmt.Errorf("%w: expression kind %T", xerr.ErrUnsupportedTranslation, e)
	}
}

func (l *Lowerer) lowerStringLiteral(v csrc.StringLiteral) (target.Expr, error) {
	if v.Kind != csrc.StringNarrow {
		name := l.Resolver.MakeMangledName(l.Resolver.Root, "wide_str")
		elems := make([]target.Expr, len(v.Value))
		for i, b := range v.Value {
			elems[i] = target.IntLit{Value: int64(b)}
		}
		l.Resolver.Root.Nodes = append(l.Resolver.Root.Nodes, target.ConstDecl{
			Name: name, Typ: nil, Value: target.ArrayLit{Elem: target.Ident{Name: "u32"}, Elems: elems},
		})
		return target.Ident{Name: name}, nil
	}
	return target.StringLit{Escaped: escapeString(v.Value)}, nil
}

func escapeString(b []byte) string {
	out := make([]byte, 0, len(b)+2)
	for _, c := range b {
		switch c {
		case '\\':
			out = append(out, '\\', '\\')
		case '"':
			out = append(out, '\\', '"')
		case '\n':
			out = append(out, '\\', 'n')
		case '\t':
			out = append(out, '\\', 't')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

func (l *Lowerer) lowerDeclRef(s scope.Scope, ref csrc.DeclRef) (target.Expr, error) {
	if name, ok := l.GlobalName(ref.Decl); ok {
		return target.Ident{Name: name}, nil
	}
	return target.Ident{Name: scope.GetAlias(s, ref.Name)}, nil
}

func (l *Lowerer) lowerMember(s scope.Scope, m csrc.Member) (target.Expr, error) {
	base, err := l.LowerExpr(s, m.Base, true)
	if err != nil {
		return nil, err
	}
	name := m.FieldName
	if name == "" {
		resolved, ok := l.Types.AnonFieldName(m.FieldID)
		if !ok {
			return nil, fmt.Errorf("%w: anonymous field access with no resolved identity (FieldID=%q)", xerr.ErrUnsupportedTranslation, m.FieldID)
		}
		name = resolved
	}
	if m.Arrow {
		return target.Field{Base: target.Deref{Ptr: base}, Name: name}, nil
	}
	return target.Field{Base: base, Name: name}, nil
}

func (l *Lowerer) lowerIndex(s scope.Scope, ix csrc.Index) (target.Expr, error) {
	base, err := l.LowerExpr(s, ix.Base, true)
	if err != nil {
		return nil, err
	}
	idx, err := l.LowerExpr(s, ix.Idx, true)
	if err != nil {
		return nil, err
	}
	if isWideIndex(ix.Idx.Type()) {
		idx = target.Intrinsic{Kind: target.IIntCast, TypeArg: target.Ident{Name: "usize"}, Args: []target.Expr{idx}}
	}
	return target.IndexExpr{Base: base, Idx: idx}, nil
}

func isWideIndex(qt ctypes.QualType) bool {
	u := ctypes.Unwrap(qt)
	b, ok := u.Type.(ctypes.Builtin)
	if !ok {
		return false
	}
	switch b.Kind {
	case ctypes.Long, ctypes.UnsignedLong, ctypes.LongLong, ctypes.UnsignedLongLong, ctypes.Int128, ctypes.UInt128:
		return true
	}
	return false
}

func (l *Lowerer) lowerCall(s scope.Scope, c csrc.Call) (target.Expr, error) {
	callee, err := l.LowerExpr(s, c.Callee, true)
	if err != nil {
		return nil, err
	}
	if isFunctionPointerValue(c.Callee) {
		callee = target.OptionalUnwrap{Ptr: callee}
	}

	fn, _ := ctypes.Unwrap(c.Callee.Type()).Type.(ctypes.Function)
	if p, ok := ctypes.Unwrap(c.Callee.Type()).Type.(ctypes.Pointer); ok {
		fn, _ = ctypes.Unwrap(p.Pointee).Type.(ctypes.Function)
	}

	args := make([]target.Expr, len(c.Args))
	for i, a := range c.Args {
		lowered, err := l.LowerExpr(s, a, true)
		if err != nil {
			return nil, err
		}
		if i < len(fn.Params) && coerce.IsBoolResult(lowered) {
			if paramWantsInt(fn.Params[i].Type) {
				lowered = coerce.ToInt(lowered)
			}
		}
		args[i] = lowered
	}
	return target.CallExpr{Callee: callee, Args: args}, nil
}

func paramWantsInt(qt ctypes.QualType) bool {
	u := ctypes.Unwrap(qt)
	b, ok := u.Type.(ctypes.Builtin)
	return ok && b.Kind != ctypes.Bool
}

// isFunctionPointerValue reports whether callee has function-pointer type
// and is not itself a direct reference to a function declaration (spec.md
// §4.D: "If the callee expression has function-pointer type and is not
// itself a function-declaration reference, unwrap the optional").
func isFunctionPointerValue(callee csrc.Expr) bool {
	p, ok := ctypes.Unwrap(callee.Type()).Type.(ctypes.Pointer)
	if !ok {
		return false
	}
	if _, ok := ctypes.Unwrap(p.Pointee).Type.(ctypes.Function); !ok {
		return false
	}
	_, isDirectRef := callee.(csrc.DeclRef)
	return !isDirectRef
}

func (l *Lowerer) lowerUnary(s scope.Scope, u csrc.Unary, resultUsed bool) (target.Expr, error) {
	if u.Op.IsIncDec() {
		return l.lowerIncDecUsed(s, u)
	}
	arg, err := l.LowerExpr(s, u.Arg, true)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case csrc.OpNot:
		return target.Unary{Op: target.UNot, Arg: coerce.ToBool(u.Arg.Type(), arg)}, nil
	case csrc.OpBitNot:
		return target.Unary{Op: target.UBitNot, Arg: arg}, nil
	case csrc.OpNeg:
		return target.Unary{Op: target.UNeg, Arg: arg}, nil
	case csrc.OpPlus:
		return arg, nil
	case csrc.OpDeref:
		return target.Deref{Ptr: arg}, nil
	case csrc.OpAddrOf:
		return target.AddressOf{Arg: arg}, nil
	default:
		return nil, fmt.Errorf("%w: unary operator %v", xerr.ErrUnsupportedTranslation, u.Op)
	}
}

// lowerIncDecUsed implements the two "used" table rows of spec.md §4.D:
// pre-inc/dec return the incremented value; post-inc/dec return the value
// captured before the increment.
func (l *Lowerer) lowerIncDecUsed(s scope.Scope, u csrc.Unary) (target.Expr, error) {
	arg, err := l.LowerExpr(s, u.Arg, true)
	if err != nil {
		return nil, err
	}
	op := target.BAdd
	if u.Op == csrc.OpPreDec || u.Op == csrc.OpPostDec {
		op = target.BSub
	}
	label := l.freshLabel("blk")
	ref := "ref"

	if u.Op.IsPostfix() {
		return target.BlockExpr{
			Label: label,
			Stmts: []target.Stmt{
				target.LocalDecl{Name: ref, Value: target.AddressOf{Arg: arg}},
				target.LocalDecl{Name: "tmp", Value: target.Deref{Ptr: target.Ident{Name: ref}}},
				target.CompoundAssignStmt{Op: op, LHS: target.Deref{Ptr: target.Ident{Name: ref}}, RHS: target.IntLit{Value: 1}},
			},
			Value: target.Ident{Name: "tmp"},
		}, nil
	}
	return target.BlockExpr{
		Label: label,
		Stmts: []target.Stmt{
			target.LocalDecl{Name: ref, Value: target.AddressOf{Arg: arg}},
			target.CompoundAssignStmt{Op: op, LHS: target.Deref{Ptr: target.Ident{Name: ref}}, RHS: target.IntLit{Value: 1}},
		},
		Value: target.Deref{Ptr: target.Ident{Name: ref}},
	}, nil
}

func (l *Lowerer) lowerBinary(s scope.Scope, b csrc.Binary) (target.Expr, error) {
	if b.Op.IsLogical() {
		lhs, err := l.LowerExpr(s, b.LHS, true)
		if err != nil {
			return nil, err
		}
		rhs, err := l.LowerExpr(s, b.RHS, true)
		if err != nil {
			return nil, err
		}
		op := target.BLogAnd
		if b.Op == csrc.OpLogOr {
			op = target.BLogOr
		}
		return target.Binary{Op: op, LHS: coerce.ToBool(b.LHS.Type(), lhs), RHS: coerce.ToBool(b.RHS.Type(), rhs)}, nil
	}

	lhs, err := l.LowerExpr(s, b.LHS, true)
	if err != nil {
		return nil, err
	}
	rhs, err := l.LowerExpr(s, b.RHS, true)
	if err != nil {
		return nil, err
	}

	if b.Op.IsComparison() {
		return target.Binary{Op: comparisonOp(b.Op), LHS: lhs, RHS: rhs}, nil
	}

	unsigned := isUnsignedResult(b.Typ)

	switch b.Op {
	case csrc.OpDiv:
		// Target's "/" panics on inexact integer division regardless of
		// signedness, so both signed and unsigned division always route
		// through the explicit truncating intrinsic.
		return target.Intrinsic{Kind: target.IDivTrunc, Args: []target.Expr{lhs, rhs}}, nil
	case csrc.OpMod:
		return target.Intrinsic{Kind: target.IRem, Args: []target.Expr{lhs, rhs}}, nil
	case csrc.OpAdd:
		return target.Binary{Op: pickWrap(unsigned, target.BAdd, target.BAddWrap), LHS: lhs, RHS: rhs}, nil
	case csrc.OpSub:
		return target.Binary{Op: pickWrap(unsigned, target.BSub, target.BSubWrap), LHS: lhs, RHS: rhs}, nil
	case csrc.OpMul:
		return target.Binary{Op: pickWrap(unsigned, target.BMul, target.BMulWrap), LHS: lhs, RHS: rhs}, nil
	case csrc.OpShl:
		return target.Binary{Op: target.BShl, LHS: lhs, RHS: shiftAmount(rhs, b.LHS.Type())}, nil
	case csrc.OpShr:
		return target.Binary{Op: target.BShr, LHS: lhs, RHS: shiftAmount(rhs, b.LHS.Type())}, nil
	case csrc.OpBitAnd:
		return target.Binary{Op: target.BBitAnd, LHS: lhs, RHS: rhs}, nil
	case csrc.OpBitOr:
		return target.Binary{Op: target.BBitOr, LHS: lhs, RHS: rhs}, nil
	case csrc.OpBitXor:
		return target.Binary{Op: target.BBitXor, LHS: lhs, RHS: rhs}, nil
	default:
		return nil, fmt.Errorf("%w: binary operator %v", xerr.ErrUnsupportedTranslation, b.Op)
	}
}

func pickWrap(unsigned bool, plain, wrap target.BinOp) target.BinOp {
	if unsigned {
		return wrap
	}
	return plain
}

// shiftAmount casts rhs to the log2-width integer type Target's shift
// operators require (spec.md §4.D: "RHS cast to log2-int-of(LHS width)").
func shiftAmount(rhs target.Expr, lhsType ctypes.QualType) target.Expr {
	width := 32
	if u := ctypes.Unwrap(lhsType); u.Type != nil {
		if b, ok := u.Type.(ctypes.Builtin); ok {
			width = builtinBits(b.Kind)
		}
	}
	log2Type := target.Ident{Name: fmt.Sprintf("std.math.Log2Int(%s)", widthTypeName(width))}
	return target.Intrinsic{Kind: target.IIntCast, TypeArg: log2Type, Args: []target.Expr{rhs}}
}

func widthTypeName(bits int) string {
	switch bits {
	case 8:
		return "u8"
	case 16:
		return "u16"
	case 64:
		return "u64"
	case 128:
		return "u128"
	default:
		return "u32"
	}
}

func builtinBits(k ctypes.BuiltinKind) int {
	switch k {
	case ctypes.Char, ctypes.SignedChar, ctypes.UnsignedChar, ctypes.Bool:
		return 8
	case ctypes.Short, ctypes.UnsignedShort:
		return 16
	case ctypes.Int, ctypes.UnsignedInt:
		return 32
	case ctypes.Long, ctypes.UnsignedLong, ctypes.LongLong, ctypes.UnsignedLongLong:
		return 64
	case ctypes.Int128, ctypes.UInt128:
		return 128
	default:
		return 32
	}
}

func isUnsignedResult(qt ctypes.QualType) bool {
	u := ctypes.Unwrap(qt)
	b, ok := u.Type.(ctypes.Builtin)
	if !ok {
		return false
	}
	switch b.Kind {
	case ctypes.UnsignedChar, ctypes.UnsignedShort, ctypes.UnsignedInt, ctypes.UnsignedLong, ctypes.UnsignedLongLong, ctypes.UInt128, ctypes.Bool:
		return true
	}
	return false
}

func comparisonOp(op csrc.BinaryOp) target.BinOp {
	switch op {
	case csrc.OpEq:
		return target.BEq
	case csrc.OpNe:
		return target.BNe
	case csrc.OpLt:
		return target.BLt
	case csrc.OpLe:
		return target.BLe
	case csrc.OpGt:
		return target.BGt
	case csrc.OpGe:
		return target.BGe
	}
	return target.BEq
}

func binOp(op csrc.BinaryOp) target.BinOp {
	switch op {
	case csrc.OpAdd:
		return target.BAdd
	case csrc.OpSub:
		return target.BSub
	case csrc.OpMul:
		return target.BMul
	case csrc.OpBitAnd:
		return target.BBitAnd
	case csrc.OpBitOr:
		return target.BBitOr
	case csrc.OpBitXor:
		return target.BBitXor
	case csrc.OpShl:
		return target.BShl
	case csrc.OpShr:
		return target.BShr
	}
	return target.BAdd
}

// divModIntrinsic reports the intrinsic a compound division/modulo
// assignment must expand to, since Target has no `/=`/`%=` spelling (its
// "/" and "%" operators panic on inexact integer division, so even the
// plain binary form always routes through @divTrunc/@rem — see
// lowerBinary). ok is false for every other compound-assignment operator,
// which does have a direct op= spelling.
func divModIntrinsic(op csrc.AssignOp) (target.IntrinsicKind, bool) {
	switch op {
	case csrc.AssignDiv:
		return target.IDivTrunc, true
	case csrc.AssignMod:
		return target.IRem, true
	}
	return 0, false
}

func (l *Lowerer) lowerAssignUsed(s scope.Scope, a csrc.Assign) (target.Expr, error) {
	lhs, err := l.LowerExpr(s, a.LHS, true)
	if err != nil {
		return nil, err
	}
	rhs, err := l.LowerExpr(s, a.RHS, true)
	if err != nil {
		return nil, err
	}

	label := l.freshLabel("blk")
	var storeStmt target.Stmt
	switch {
	case a.Op == csrc.AssignPlain:
		storeStmt = target.AssignStmt{LHS: lhs, RHS: target.Ident{Name: "t"}}
	default:
		if kind, ok := divModIntrinsic(a.Op); ok {
			storeStmt = target.AssignStmt{LHS: lhs, RHS: target.Intrinsic{Kind: kind, Args: []target.Expr{lhs, target.Ident{Name: "t"}}}}
		} else {
			storeStmt = target.CompoundAssignStmt{Op: binOp(a.Op.BinaryOp()), LHS: lhs, RHS: target.Ident{Name: "t"}}
		}
	}
	return target.BlockExpr{
		Label: label,
		Stmts: []target.Stmt{
			target.LocalDecl{Name: "t", Value: rhs},
			storeStmt,
		},
		Value: target.Ident{Name: "t"},
	}, nil
}

func (l *Lowerer) lowerConditional(s scope.Scope, c csrc.Conditional) (target.Expr, error) {
	cond, err := l.lowerCondition(s, c.Cond)
	if err != nil {
		return nil, err
	}
	then, err := l.LowerExpr(s, c.Then, true)
	if err != nil {
		return nil, err
	}
	els, err := l.LowerExpr(s, c.Else, true)
	if err != nil {
		return nil, err
	}
	return target.IfExpr{Cond: cond, Then: then, Else: els}, nil
}

func (l *Lowerer) lowerGNUConditional(s scope.Scope, c csrc.GNUConditional) (target.Expr, error) {
	cond, err := l.LowerExpr(s, c.Cond, true)
	if err != nil {
		return nil, err
	}
	els, err := l.LowerExpr(s, c.Else, true)
	if err != nil {
		return nil, err
	}
	label := l.freshLabel("blk")
	return target.BlockExpr{
		Label: label,
		Stmts: []target.Stmt{target.LocalDecl{Name: "t", Value: cond}},
		Value: target.IfExpr{
			Cond: coerce.ToBool(c.Cond.Type(), target.Ident{Name: "t"}),
			Then: target.Ident{Name: "t"},
			Else: els,
		},
	}, nil
}

func (l *Lowerer) lowerCommaExpr(s scope.Scope, c csrc.Comma) (target.Expr, error) {
	lhsStmt, err := l.lowerExprStmt(s, c.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := l.LowerExpr(s, c.RHS, true)
	if err != nil {
		return nil, err
	}
	stmts := []target.Stmt{}
	if lhsStmt != nil {
		stmts = append(stmts, lhsStmt)
	}
	return target.BlockExpr{Label: l.freshLabel("blk"), Stmts: stmts, Value: rhs}, nil
}

func (l *Lowerer) lowerCast(s scope.Scope, arg csrc.Expr, dst ctypes.QualType) (target.Expr, error) {
	v, err := l.LowerExpr(s, arg, true)
	if err != nil {
		return nil, err
	}
	dstType, err := l.Types.Translate(dst)
	if err != nil {
		return nil, err
	}
	if sameType(arg.Type(), dst) {
		return v, nil
	}
	return coerce.Cast(arg.Type(), dst, dstType, v), nil
}

func sameType(a, b ctypes.QualType) bool {
	au, bu := ctypes.Unwrap(a), ctypes.Unwrap(b)
	ab, aok := au.Type.(ctypes.Builtin)
	bb, bok := bu.Type.(ctypes.Builtin)
	return aok && bok && ab.Kind == bb.Kind
}

func (l *Lowerer) lowerInitList(s scope.Scope, il csrc.InitList) (target.Expr, error) {
	u := ctypes.Unwrap(il.Typ)

	if arr, ok := u.Type.(ctypes.ConstantArray); ok {
		elems := make([]target.Expr, 0, len(il.Elems))
		for _, e := range il.Elems {
			v, err := l.LowerExpr(s, e.Value, true)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		elemType, err := l.Types.Translate(arr.Elem)
		if err != nil {
			return nil, err
		}
		lit := target.Expr(target.ArrayLit{Elem: elemType, Elems: elems})
		if int64(len(elems)) < arr.Length {
			filler := target.ArrayRepeat{
				Value: target.ArrayLit{Elem: elemType, Elems: []target.Expr{zeroValue(elemType)}},
				Count: arr.Length - int64(len(elems)),
			}
			return target.Binary{Op: target.BConcat, LHS: lit, RHS: filler}, nil
		}
		return lit, nil
	}

	typ, err := l.Types.Translate(il.Typ)
	if err != nil {
		return nil, err
	}
	fields := make([]target.FieldInit, 0, len(il.Elems))
	for i, e := range il.Elems {
		v, err := l.LowerExpr(s, e.Value, true)
		if err != nil {
			return nil, err
		}
		name := e.Field
		if name == "" {
			name = fmt.Sprintf("field_%d", i)
		}
		fields = append(fields, target.FieldInit{Name: name, Value: v})
	}
	return target.StructLit{Typ: typ, Fields: fields}, nil
}

// ZeroValue is zeroValue exported for the declaration visitor's
// fall-off-the-end return synthesis (spec.md §4.C).
func ZeroValue(t target.TypeExpr) target.Expr { return zeroValue(t) }

func zeroValue(t target.TypeExpr) target.Expr {
	switch v := t.(type) {
	case target.Ident:
		if v.Name == "bool" {
			return target.BoolLit{Value: false}
		}
		return target.IntLit{Value: 0}
	default:
		return target.IntLit{Value: 0}
	}
}

func (l *Lowerer) lowerSizeAlign(s scope.Scope, kind target.IntrinsicKind, argType *ctypes.QualType, argExpr csrc.Expr) (target.Expr, error) {
	if argType != nil {
		t, err := l.Types.Translate(*argType)
		if err != nil {
			return nil, err
		}
		return target.Intrinsic{Kind: kind, TypeArg: t}, nil
	}
	t, err := l.Types.Translate(argExpr.Type())
	if err != nil {
		return nil, err
	}
	return target.Intrinsic{Kind: kind, TypeArg: t}, nil
}

func (l *Lowerer) lowerStmtExpr(s scope.Scope, se csrc.StmtExpr) (target.Expr, error) {
	if len(se.Body.Items) == 0 {
		return target.NullLit{}, nil
	}
	last := se.Body.Items[len(se.Body.Items)-1]
	lastExpr, ok := last.(csrc.ExprStmt)
	if !ok {
		return nil, fmt.Errorf("%w: statement expression must end in an expression statement", xerr.ErrUnsupportedTranslation)
	}

	blk := scope.NewBlockScope(s)
	for _, item := range se.Body.Items[:len(se.Body.Items)-1] {
		if err := l.lowerInto(blk, item); err != nil {
			return nil, err
		}
	}
	value, err := l.LowerExpr(blk, lastExpr.Expr, true)
	if err != nil {
		return nil, err
	}
	return target.BlockExpr{Label: l.freshLabel("blk"), Stmts: blk.Stmts, Value: value}, nil
}
