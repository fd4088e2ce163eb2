// Package decl implements component C: the declaration visitor
// (spec.md §4.C). For each top-level C declaration it drives the type
// translator (component B) and the statement/expression lowerer
// (component D) and appends the resulting top-level Target declaration
// to the root scope's node list.
package decl

import (
	"fmt"
	"io"

	"github.com/anvil-lang/c2z/internal/coerce"
	"github.com/anvil-lang/c2z/internal/csrc"
	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/lower"
	"github.com/anvil-lang/c2z/internal/scope"
	"github.com/anvil-lang/c2z/internal/target"
	"github.com/anvil-lang/c2z/internal/typetrans"
)

// Visitor is component C's stateful driver.
type Visitor struct {
	Resolver *scope.Resolver
	Types    *typetrans.Translator
	Lower    *lower.Lowerer
	Diag     io.Writer

	// DeclNames is the decl-table proper (spec.md §3's "mapping from
	// canonical C decl identity to the Target name assigned to it"):
	// every function and file-scope variable this Visitor translates
	// records its mangled name here, keyed by DeclID, for the lowerer's
	// GlobalName callback to resolve cross-declaration references.
	DeclNames map[ctypes.DeclID]string

	definitions map[ctypes.DeclID]csrc.FunctionDecl
	translated  map[ctypes.DeclID]bool
}

func New(resolver *scope.Resolver, types *typetrans.Translator, lowerer *lower.Lowerer, diag io.Writer) *Visitor {
	return &Visitor{
		Resolver:    resolver,
		Types:       types,
		Lower:       lowerer,
		Diag:        diag,
		DeclNames:   make(map[ctypes.DeclID]string),
		definitions: make(map[ctypes.DeclID]csrc.FunctionDecl),
		translated:  make(map[ctypes.DeclID]bool),
	}
}

// IndexFunctions scans a translation unit's whole decl list once up front
// so VisitFunction can recurse from a bare prototype to its definition
// regardless of which one the front end visits first.
func (v *Visitor) IndexFunctions(decls []csrc.Decl) {
	for _, d := range decls {
		if fn, ok := d.(csrc.FunctionDecl); ok && fn.IsDefinition {
			v.definitions[fn.ID] = fn
		}
	}
}

// Visit dispatches on d's concrete kind.
func (v *Visitor) Visit(d csrc.Decl) error {
	switch dd := d.(type) {
	case csrc.FunctionDecl:
		return v.VisitFunction(dd)
	case csrc.TypedefDecl:
		return v.VisitTypedef(dd)
	case csrc.RecordDecl:
		return v.VisitRecord(dd)
	case csrc.EnumDecl:
		return v.VisitEnum(dd)
	case csrc.VarDecl:
		return v.VisitVariable(dd)
	default:
		return fmt.Errorf("decl: unknown top-level declaration kind %T", d)
	}
}

// VisitFunction translates a function prototype or definition (spec.md
// §4.C "Function").
func (v *Visitor) VisitFunction(d csrc.FunctionDecl) error {
	if v.translated[d.ID] {
		return nil
	}
	if !d.IsDefinition {
		if def, ok := v.definitions[d.ID]; ok {
			d = def
		}
	}
	v.translated[d.ID] = true

	if d.Storage == csrc.StoragePrivateExtern {
		v.emitUnsupported(d.Name, "__private_extern__ storage class has no Target equivalent")
		return nil
	}

	variadicWithBody := d.Type.IsVariadic && d.Body != nil
	hasBody := d.Body != nil && !variadicWithBody
	if variadicWithBody {
		fmt.Fprintf(v.Diag, "%s: warning: %s: variadic function body is not expressible in Target, demoted to extern declaration\n", d.Loc, d.Name)
	}

	paramScope := scope.NewBlockScope(v.Resolver.Root)
	params := make([]target.Param, 0, len(d.Params))
	var shadows []target.LocalDecl
	for _, p := range d.Params {
		pt, err := v.Types.Translate(p.Type)
		if err != nil {
			return err
		}
		mangled := v.Resolver.MakeMangledName(paramScope, p.Name)
		params = append(params, target.Param{Name: mangled, Typ: pt})

		if hasBody && !p.IsConst && p.Name != "" {
			shadow := v.Resolver.MakeMangledName(paramScope, "arg_"+p.Name)
			paramScope.Aliases[p.Name] = shadow
			shadows = append(shadows, target.LocalDecl{Name: shadow, Typ: pt, Value: target.Ident{Name: mangled}, Mutable: true})
		}
	}

	ret, err := v.Types.Translate(d.Type.Return)
	if err != nil {
		return err
	}

	mangledName := v.Resolver.MakeMangledName(v.Resolver.Root, d.Name)
	v.DeclNames[d.ID] = mangledName
	fn := target.FuncDecl{
		Name:     mangledName,
		Pub:      d.Storage != csrc.StorageStatic,
		Extern:   !hasBody,
		Variadic: d.Type.IsVariadic,
		Params:   params,
		Return:   ret,
	}

	if hasBody {
		body, err := v.Lower.LowerBlock(paramScope, d.Body)
		if err != nil {
			return err
		}
		if len(shadows) > 0 {
			stmts := make([]target.Stmt, 0, len(shadows)+len(body.Stmts))
			for _, s := range shadows {
				stmts = append(stmts, s)
			}
			body.Stmts = append(stmts, body.Stmts...)
		}
		if needsFallOffReturn(ret, body.Stmts) {
			body.Stmts = append(body.Stmts, target.ReturnStmt{Value: lower.ZeroValue(ret)})
		}
		fn.Body = body
	}

	v.Resolver.Root.Nodes = append(v.Resolver.Root.Nodes, fn)
	return nil
}

func needsFallOffReturn(ret target.TypeExpr, stmts []target.Stmt) bool {
	if id, ok := ret.(target.Ident); ok && id.Name == "c_void" {
		return false
	}
	if len(stmts) == 0 {
		return true
	}
	_, ok := stmts[len(stmts)-1].(target.ReturnStmt)
	return !ok
}

// VisitTypedef translates a typedef (spec.md §4.C "Typedef"). typetrans
// already implements the fast path, the skip-if-cached check, and the
// primitive-name mangling; this just drives it with the right shape.
func (v *Visitor) VisitTypedef(d csrc.TypedefDecl) error {
	_, err := v.Types.Translate(ctypes.QualType{Type: ctypes.Typedef{
		ID:         d.ID,
		Name:       d.Name,
		Underlying: d.Underlying,
	}})
	return err
}

// VisitRecord translates a struct/union (spec.md §4.C "Record").
func (v *Visitor) VisitRecord(d csrc.RecordDecl) error {
	_, err := v.Types.TranslateRecord(&d.Record)
	return err
}

// VisitEnum translates an enum (spec.md §4.C "Enum").
func (v *Visitor) VisitEnum(d csrc.EnumDecl) error {
	_, err := v.Types.TranslateEnum(&d.Enum)
	return err
}

// VisitVariable translates a file-scope variable (spec.md §4.C "Variable").
func (v *Visitor) VisitVariable(d csrc.VarDecl) error {
	if d.Storage == csrc.StoragePrivateExtern {
		v.emitUnsupported(d.Name, "__private_extern__ storage class has no Target equivalent")
		return nil
	}

	hasInit := d.Init != nil
	extern := d.Storage == csrc.StorageExtern && !hasInit
	pub := d.Storage != csrc.StorageStatic
	export := pub && !extern

	declType, err := v.initializerAwareType(d.Type, d.Init)
	if err != nil {
		return err
	}
	typ, err := v.Types.Translate(declType)
	if err != nil {
		return err
	}

	mangled := v.Resolver.MakeMangledName(v.Resolver.Root, d.Name)
	v.DeclNames[d.ID] = mangled
	vd := target.VarDecl{Name: mangled, Pub: pub, Extern: extern, Export: export, Typ: typ}

	if !extern {
		var value target.Expr
		if hasInit {
			value, err = v.Lower.LowerExpr(v.Resolver.Root, d.Init, true)
			if err != nil {
				return err
			}
			if coerce.IsBoolResult(value) {
				if id, ok := typ.(target.Ident); !ok || id.Name != "bool" {
					value = coerce.ToInt(value)
				}
			}
		} else {
			value = lower.ZeroValue(typ)
		}
		vd.Value = value
	}

	v.Resolver.Root.Nodes = append(v.Resolver.Root.Nodes, vd)
	return nil
}

// initializerAwareType resolves an incomplete array's length from its
// initializer (spec.md §4.C "Variable"): a string literal contributes
// length+1 for the trailing NUL, an init list contributes its element
// count. Any other declared type passes through untouched.
func (v *Visitor) initializerAwareType(declared ctypes.QualType, init csrc.Expr) (ctypes.QualType, error) {
	unwrapped := ctypes.Unwrap(declared)
	arr, ok := unwrapped.Type.(ctypes.IncompleteArray)
	if !ok || init == nil {
		return declared, nil
	}

	var length int64
	switch in := init.(type) {
	case csrc.StringLiteral:
		length = int64(len(in.Value)) + 1
	case csrc.InitList:
		length = int64(len(in.Elems))
	default:
		return declared, nil
	}

	return ctypes.QualType{
		Type:  ctypes.ConstantArray{Elem: arr.Elem, Length: length},
		Quals: unwrapped.Quals,
	}, nil
}

func (v *Visitor) emitUnsupported(name, reason string) {
	mangled := v.Resolver.MakeMangledName(v.Resolver.Root, name)
	fmt.Fprintf(v.Diag, "warning: %s: %s\n", name, reason)
	v.Resolver.Root.Nodes = append(v.Resolver.Root.Nodes, target.CompileErrorDecl{
		Name: mangled, Pub: true, Message: reason,
	})
}
