package lower

import (
	"io"
	"testing"

	"github.com/anvil-lang/c2z/internal/coerce"
	"github.com/anvil-lang/c2z/internal/csrc"
	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/scope"
	"github.com/anvil-lang/c2z/internal/target"
	"github.com/anvil-lang/c2z/internal/typetrans"
)

func primitiveNames() map[string]bool {
	names := map[string]bool{}
	for _, n := range []string{"c_int", "c_uint", "c_short", "c_ushort", "c_long", "c_ulong",
		"c_longlong", "c_ulonglong", "c_void", "bool", "i8", "u8", "i32", "u32", "usize", "isize"} {
		names[n] = true
	}
	return names
}

func newLowerer() (*Lowerer, *scope.RootScope) {
	root := scope.NewRootScope()
	resolver := scope.NewResolver(root, primitiveNames())
	types := typetrans.New(root, resolver, io.Discard)
	l := New(resolver, types, io.Discard, func(ctypes.DeclID) (string, bool) { return "", false })
	return l, root
}

func intQT() ctypes.QualType { return ctypes.QualType{Type: ctypes.Builtin{Kind: ctypes.Int}} }

func TestLowerSignedModUsesRemIntrinsic(t *testing.T) {
	l, root := newLowerer()
	blk := scope.NewBlockScope(root)
	bin := csrc.Binary{
		Op:  csrc.OpMod,
		LHS: csrc.DeclRef{Name: "a", Typ: intQT()},
		RHS: csrc.DeclRef{Name: "b", Typ: intQT()},
		Typ: intQT(),
	}
	got, err := l.LowerExpr(blk, bin, true)
	if err != nil {
		t.Fatal(err)
	}
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IRem {
		t.Fatalf("expected @rem, got %#v", got)
	}
}

func TestLowerSignedDivUsesDivTruncIntrinsic(t *testing.T) {
	l, root := newLowerer()
	blk := scope.NewBlockScope(root)
	bin := csrc.Binary{
		Op:  csrc.OpDiv,
		LHS: csrc.DeclRef{Name: "a", Typ: intQT()},
		RHS: csrc.DeclRef{Name: "b", Typ: intQT()},
		Typ: intQT(),
	}
	got, err := l.LowerExpr(blk, bin, true)
	if err != nil {
		t.Fatal(err)
	}
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IDivTrunc {
		t.Fatalf("expected @divTrunc, got %#v", got)
	}
}

func TestLowerPostIncrementUsedProducesLabeledBlock(t *testing.T) {
	l, root := newLowerer()
	blk := scope.NewBlockScope(root)
	u := csrc.Unary{Op: csrc.OpPostInc, Arg: csrc.DeclRef{Name: "x", Typ: intQT()}, Typ: intQT()}
	got, err := l.LowerExpr(blk, u, true)
	if err != nil {
		t.Fatal(err)
	}
	be, ok := got.(target.BlockExpr)
	if !ok {
		t.Fatalf("expected BlockExpr, got %#v", got)
	}
	if len(be.Stmts) != 3 {
		t.Fatalf("expected ref+tmp decls plus the increment, got %d stmts", len(be.Stmts))
	}
	if id, ok := be.Value.(target.Ident); !ok || id.Name != "tmp" {
		t.Fatalf("expected the block to break with the captured tmp, got %#v", be.Value)
	}
}

func TestLowerPostIncrementUnusedIsDirectCompoundAssign(t *testing.T) {
	l, root := newLowerer()
	blk := scope.NewBlockScope(root)
	u := csrc.Unary{Op: csrc.OpPostInc, Arg: csrc.DeclRef{Name: "x", Typ: intQT()}, Typ: intQT()}
	got, err := l.lowerExprStmt(blk, u)
	if err != nil {
		t.Fatal(err)
	}
	ca, ok := got.(target.CompoundAssignStmt)
	if !ok || ca.Op != target.BAdd {
		t.Fatalf("expected a direct += 1, got %#v", got)
	}
}

func TestLowerDoWhileSynthesizesBreakOnFalseCondition(t *testing.T) {
	l, root := newLowerer()
	do := csrc.DoStmt{
		Body: csrc.CompoundStmt{},
		Cond: csrc.DeclRef{Name: "cond", Typ: intQT()},
	}
	got, err := l.LowerStmt(root, do)
	if err != nil {
		t.Fatal(err)
	}
	ws, ok := got.(target.WhileStmt)
	if !ok {
		t.Fatalf("expected WhileStmt, got %#v", got)
	}
	if b, ok := ws.Cond.(target.BoolLit); !ok || !b.Value {
		t.Fatalf("expected while(true), got %#v", ws.Cond)
	}
	last := ws.Body.Stmts[len(ws.Body.Stmts)-1]
	ifs, ok := last.(target.IfStmt)
	if !ok {
		t.Fatalf("expected trailing if(!cond) break, got %#v", last)
	}
	if _, ok := ifs.Cond.(target.Unary); !ok {
		t.Fatalf("expected negated condition, got %#v", ifs.Cond)
	}
}

func TestLowerLogicalAndConvertsBothOperandsToBool(t *testing.T) {
	l, root := newLowerer()
	blk := scope.NewBlockScope(root)
	bin := csrc.Binary{
		Op:  csrc.OpLogAnd,
		LHS: csrc.DeclRef{Name: "a", Typ: intQT()},
		RHS: csrc.DeclRef{Name: "b", Typ: intQT()},
		Typ: ctypes.QualType{Type: ctypes.Builtin{Kind: ctypes.Int}},
	}
	got, err := l.LowerExpr(blk, bin, true)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := got.(target.Binary)
	if !ok || b.Op != target.BLogAnd {
		t.Fatalf("expected 'and', got %#v", got)
	}
	if !coerce.IsBoolResult(b.LHS) || !coerce.IsBoolResult(b.RHS) {
		t.Fatalf("expected both operands converted to bool, got %#v / %#v", b.LHS, b.RHS)
	}
}

func TestLowerUnsignedAddUsesWrappingOperator(t *testing.T) {
	l, root := newLowerer()
	blk := scope.NewBlockScope(root)
	uintQT := ctypes.QualType{Type: ctypes.Builtin{Kind: ctypes.UnsignedInt}}
	bin := csrc.Binary{
		Op:  csrc.OpAdd,
		LHS: csrc.DeclRef{Name: "a", Typ: uintQT},
		RHS: csrc.DeclRef{Name: "b", Typ: uintQT},
		Typ: uintQT,
	}
	got, err := l.LowerExpr(blk, bin, true)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := got.(target.Binary)
	if !ok || b.Op != target.BAddWrap {
		t.Fatalf("expected +%%, got %#v", got)
	}
}

func TestLowerBreakInsideSwitchGetsSwitchLabel(t *testing.T) {
	l, root := newLowerer()
	sw := csrc.SwitchStmt{
		Cond: csrc.DeclRef{Name: "n", Typ: intQT()},
		Body: &csrc.CompoundStmt{Items: []csrc.Stmt{
			csrc.CaseStmt{Value: 1, Body: csrc.BreakStmt{}},
			csrc.DefaultStmt{Body: csrc.NullStmt{}},
		}},
	}
	got, err := l.LowerStmt(root, sw)
	if err != nil {
		t.Fatal(err)
	}
	labeled, ok := got.(*target.BlockStmt)
	if !ok || labeled.Label == "" {
		t.Fatalf("expected a labeled wrapper block, got %#v", got)
	}
}

func TestLowerLocalVarDeclInsideBlock(t *testing.T) {
	l, root := newLowerer()
	cs := &csrc.CompoundStmt{Items: []csrc.Stmt{
		csrc.DeclStmt{Decls: []csrc.Decl{
			csrc.VarDecl{Name: "n", Type: intQT(), Init: csrc.IntLiteral{Value: 0, Typ: intQT()}},
		}},
	}}
	got, err := l.LowerBlock(root, cs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Stmts) != 1 {
		t.Fatalf("expected one lowered local decl, got %d", len(got.Stmts))
	}
	if _, ok := got.Stmts[0].(target.LocalDecl); !ok {
		t.Fatalf("expected target.LocalDecl, got %#v", got.Stmts[0])
	}
}

func TestLowerStaticLocalVarHoistsToTopLevel(t *testing.T) {
	l, root := newLowerer()
	cs := &csrc.CompoundStmt{Items: []csrc.Stmt{
		csrc.DeclStmt{Decls: []csrc.Decl{
			csrc.VarDecl{Name: "count", Type: intQT(), Storage: csrc.StorageStatic, Init: csrc.IntLiteral{Value: 0, Typ: intQT()}},
		}},
		csrc.ExprStmt{Expr: csrc.DeclRef{Name: "count", Typ: intQT()}},
	}}
	got, err := l.LowerBlock(root, cs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Stmts) != 1 {
		t.Fatalf("expected the static decl to emit no block statement, got %d: %#v", len(got.Stmts), got.Stmts)
	}
	if len(root.Nodes) != 1 {
		t.Fatalf("expected the static local to be hoisted to the root, got %d nodes", len(root.Nodes))
	}
	vd, ok := root.Nodes[0].(target.VarDecl)
	if !ok || vd.Name == "count" {
		t.Fatalf("expected a mangled top-level VarDecl distinct from the source name, got %#v", root.Nodes[0])
	}
	ref, ok := got.Stmts[0].(target.ExprStmt)
	if !ok {
		t.Fatalf("expected an ExprStmt referencing the hoisted variable, got %#v", got.Stmts[0])
	}
	id, ok := ref.Expr.(target.Ident)
	if !ok || id.Name != vd.Name {
		t.Fatalf("expected the reference to resolve to the hoisted name %q, got %#v", vd.Name, ref.Expr)
	}
}
