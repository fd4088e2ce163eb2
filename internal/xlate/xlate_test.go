package xlate

import (
	"testing"

	"github.com/anvil-lang/c2z/internal/frontend"
	"github.com/anvil-lang/c2z/internal/target"
)

const resourcesPath = "../../resources/builtins.yaml"

func mustLoad(t *testing.T, yamlSrc string) frontend.Unit {
	t.Helper()
	unit, err := frontend.LoadFixtureBytes([]byte(yamlSrc))
	if err != nil {
		t.Fatal(err)
	}
	return unit
}

func findDecl[T any](t *testing.T, tree *target.Tree) T {
	t.Helper()
	for _, n := range tree.Decls {
		if d, ok := n.(T); ok {
			return d
		}
	}
	t.Fatalf("no decl of the requested type found among %d nodes", len(tree.Decls))
	var zero T
	return zero
}

func TestTranslateEmptyUnitOnlyPreamble(t *testing.T) {
	unit := mustLoad(t, `decls: []`)
	tree, errs, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors_out, got %v", errs)
	}
	if len(tree.Decls) != 1 {
		t.Fatalf("expected only the preamble, got %d decls", len(tree.Decls))
	}
	if _, ok := tree.Decls[0].(target.UsingNamespaceDecl); !ok {
		t.Fatalf("expected UsingNamespaceDecl preamble, got %#v", tree.Decls[0])
	}
}

func TestTranslateIdentityTypedef(t *testing.T) {
	unit := mustLoad(t, `
decls:
  - kind: typedef
    name: my_int
    underlying: {kind: builtin, builtin: int}
`)
	tree, _, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	alias := findDecl[target.TypeAliasDecl](t, tree)
	if alias.Name != "my_int" {
		t.Fatalf("expected my_int, got %#v", alias)
	}
	if id, ok := alias.Typ.(target.Ident); !ok || id.Name != "c_int" {
		t.Fatalf("expected underlying c_int, got %#v", alias.Typ)
	}
}

func TestTranslateBitfieldRecordDemotesToOpaque(t *testing.T) {
	unit := mustLoad(t, `
decls:
  - kind: record
    name: S
    complete: true
    fields:
      - name: a
        type: {kind: builtin, builtin: int}
        is_bit: true
        bit_width: 3
`)
	tree, _, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	alias := findDecl[target.TypeAliasDecl](t, tree)
	if _, ok := alias.Typ.(target.OpaqueType); !ok {
		t.Fatalf("expected opaque demotion, got %#v", alias.Typ)
	}
}

func TestTranslateModulusFunctionBody(t *testing.T) {
	unit := mustLoad(t, `
decls:
  - kind: function
    name: r
    is_definition: true
    returns: {kind: builtin, builtin: int}
    params:
      - {name: a, type: {kind: builtin, builtin: int}}
      - {name: b, type: {kind: builtin, builtin: int}}
    body:
      - kind: return
        expr: {kind: binary, op: "%", lhs: {kind: decl_ref, name: a}, rhs: {kind: decl_ref, name: b}}
`)
	tree, _, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	fn := findDecl[target.FuncDecl](t, tree)
	// The non-const parameters a and b each get a shadow local ahead of the
	// body, so the return is the third statement.
	if fn.Name != "r" || fn.Body == nil || len(fn.Body.Stmts) != 3 {
		t.Fatalf("unexpected function shape: %#v", fn)
	}
	ret := fn.Body.Stmts[2].(target.ReturnStmt)
	in, ok := ret.Value.(target.Intrinsic)
	if !ok || in.Kind != target.IRem {
		t.Fatalf("expected @rem(a, b), got %#v", ret.Value)
	}
}

func TestTranslateAnonymousFieldMemberAccessGetsSynthesizedName(t *testing.T) {
	unit := mustLoad(t, `
decls:
  - kind: record
    name: S
    complete: true
    fields:
      - name: ""
        type: {kind: builtin, builtin: int}
  - kind: function
    name: get
    is_definition: true
    returns: {kind: builtin, builtin: int}
    params:
      - name: p
        type: {kind: pointer, pointee: {kind: named, name: S}}
    body:
      - kind: return
        expr:
          kind: member
          arrow: true
          field_index: 0
          base: {kind: decl_ref, name: p, type: {kind: pointer, pointee: {kind: named, name: S}}}
`)
	tree, errs, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors_out, got %v", errs)
	}
	fn := findDecl[target.FuncDecl](t, tree)
	last := fn.Body.Stmts[len(fn.Body.Stmts)-1]
	ret, ok := last.(target.ReturnStmt)
	if !ok {
		t.Fatalf("expected ReturnStmt, got %#v", last)
	}
	field, ok := ret.Value.(target.Field)
	if !ok {
		t.Fatalf("expected target.Field, got %#v", ret.Value)
	}
	if field.Name != "unnamed_0" {
		t.Fatalf("expected the anonymous field's synthesized name unnamed_0, got %q", field.Name)
	}
	if _, ok := field.Base.(target.Deref); !ok {
		t.Fatalf("expected an arrow access to deref the base, got %#v", field.Base)
	}
}

func TestTranslateFunctionLikeMacro(t *testing.T) {
	unit := mustLoad(t, `
decls: []
macros:
  - name: SQ
    function_like: true
    params: ["x"]
    body: "((x)*(x))"
`)
	tree, _, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	fn := findDecl[target.FuncDecl](t, tree)
	if fn.Name != "SQ" || !fn.Inline || len(fn.Params) != 1 {
		t.Fatalf("expected inline single-param SQ, got %#v", fn)
	}
}

func TestTranslateOctalLiteralMacro(t *testing.T) {
	unit := mustLoad(t, `
decls: []
macros:
  - name: MODE
    body: "0755"
`)
	tree, _, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	c := findDecl[target.ConstDecl](t, tree)
	if c.Name != "MODE" {
		t.Fatalf("expected MODE, got %#v", c)
	}
	lit, ok := c.Value.(target.IntLit)
	if !ok || lit.Radix != 8 || lit.Value != 0o755 {
		t.Fatalf("expected octal 0o755, got %#v", c.Value)
	}
}

func TestTranslatePropagatesDiagnosticsFromFrontEnd(t *testing.T) {
	unit := mustLoad(t, `
diagnostics:
  - "error: something went wrong upstream"
decls: []
`)
	_, errs, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected the front end's diagnostic to pass through, got %v", errs)
	}
}

func TestTranslatePrivateExternProducesCompileError(t *testing.T) {
	unit := mustLoad(t, `
decls:
  - kind: variable
    name: g
    storage: private_extern
    type: {kind: builtin, builtin: int}
`)
	tree, _, err := Translate(Config{ResourcesPath: resourcesPath}, unit)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, n := range tree.Decls {
		if _, ok := n.(target.CompileErrorDecl); ok {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a CompileErrorDecl for private_extern storage")
	}
}
