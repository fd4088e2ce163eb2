package target

import (
	"strings"
	"testing"
)

func TestPrintIdentityTypedef(t *testing.T) {
	tree := &Tree{Decls: []Decl{
		TypeAliasDecl{Name: "my_int", Pub: true, Typ: Ident{Name: "c_int"}},
	}}
	got := String(tree)
	if !strings.Contains(got, "pub const my_int = c_int;") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestPrintOpaqueDemotion(t *testing.T) {
	tree := &Tree{Decls: []Decl{
		Comment{Text: "struct S demoted to opaque: bit-field member"},
		TypeAliasDecl{Name: "struct_S", Pub: true, Typ: OpaqueType{}},
	}}
	got := String(tree)
	if !strings.Contains(got, "demoted to opaque") {
		t.Fatalf("expected warning comment substring, got:\n%s", got)
	}
	if !strings.Contains(got, "pub const struct_S = opaque {};") {
		t.Fatalf("expected opaque alias, got:\n%s", got)
	}
}

func TestPrintSignedModulus(t *testing.T) {
	body := Seq(ReturnStmt{Value: Intrinsic{Kind: IRem, Args: []Expr{Ident{Name: "a"}, Ident{Name: "b"}}}})
	fn := FuncDecl{
		Name:   "r",
		Pub:    true,
		Params: []Param{{Name: "a", Typ: Ident{Name: "c_int"}}, {Name: "b", Typ: Ident{Name: "c_int"}}},
		Return: Ident{Name: "c_int"},
		Body:   body,
	}
	got := String(&Tree{Decls: []Decl{fn}})
	if !strings.Contains(got, "return @rem(a, b);") {
		t.Fatalf("expected @rem call, got:\n%s", got)
	}
}

func TestPrintOctalLiteralNormalization(t *testing.T) {
	tree := &Tree{Decls: []Decl{
		ConstDecl{Name: "MODE", Pub: true, Value: IntLit{Value: 0o755, Radix: 8}},
	}}
	got := String(tree)
	if !strings.Contains(got, "pub const MODE = 0o755;") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestPrintFunctionLikeMacroAsInlineFn(t *testing.T) {
	body := Seq(ReturnStmt{Value: Binary{Op: BMul, LHS: Ident{Name: "x"}, RHS: Ident{Name: "x"}}})
	fn := FuncDecl{
		Name:   "SQ",
		Pub:    true,
		Inline: true,
		Params: []Param{{Name: "x", Typ: AnyType{}}},
		Return: TypeOfExpr{Expr: Binary{Op: BMul, LHS: Ident{Name: "x"}, RHS: Ident{Name: "x"}}},
		Body:   body,
	}
	got := String(&Tree{Decls: []Decl{fn}})
	if !strings.Contains(got, "pub inline fn SQ(x: anytype) @TypeOf(x * x)") {
		t.Fatalf("unexpected signature, got:\n%s", got)
	}
	if !strings.Contains(got, "return x * x;") {
		t.Fatalf("unexpected body, got:\n%s", got)
	}
}

func TestPrintPostIncrementBlock(t *testing.T) {
	blk := BlockExpr{
		Label: "blk",
		Stmts: []Stmt{
			LocalDecl{Name: "ref", Value: AddressOf{Arg: Deref{Ptr: Ident{Name: "p"}}}},
			LocalDecl{Name: "tmp", Value: Deref{Ptr: Ident{Name: "ref"}}},
			CompoundAssignStmt{Op: BAdd, LHS: Deref{Ptr: Ident{Name: "ref"}}, RHS: IntLit{Value: 1}},
		},
		Value: Ident{Name: "tmp"},
	}
	var b strings.Builder
	NewPrinter(&b).printExpr(blk)
	got := b.String()
	for _, want := range []string{"const ref = &p.*;", "const tmp = ref.*;", "ref.* += 1;", "break :blk tmp;"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
}
