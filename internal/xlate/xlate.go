// Package xlate implements the top-level translation session: Context,
// the spec.md §6 entry point Translate, and the component H finalizer
// (finalize.go). It is the only package that knows about every other
// component and wires them together in the ordering spec.md §5 requires.
package xlate

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anvil-lang/c2z/internal/csrc"
	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/decl"
	"github.com/anvil-lang/c2z/internal/frontend"
	"github.com/anvil-lang/c2z/internal/lower"
	"github.com/anvil-lang/c2z/internal/macro"
	"github.com/anvil-lang/c2z/internal/scope"
	"github.com/anvil-lang/c2z/internal/target"
	"github.com/anvil-lang/c2z/internal/typetrans"
	"github.com/anvil-lang/c2z/internal/xerr"
)

// Config bundles the pieces of spec.md §6's `translate(allocator,
// argv_begin, argv_end, &errors_out, resources_path)` that this Go
// rendition keeps explicit rather than threading through argv: the
// resources path and the diagnostic sink. The allocator and argv range
// have no Go equivalent (spec.md §3's DESIGN NOTES: the arena is a plain
// slice-backed builder here, and the CLI layer is what parses argv).
type Config struct {
	// ResourcesPath points at the builtins.yaml resource spec.md §6's
	// resources_path parameter names. Empty means resources/builtins.yaml
	// relative to the working directory.
	ResourcesPath string
	// Diag receives warning and compile-error diagnostic text. Defaults
	// to io.Discard when nil.
	Diag io.Writer
}

// Context is the single unit of mutable state for one translation
// (spec.md §5: "two concurrent translations require two Contexts with
// disjoint arenas"). It is not safe for concurrent use.
type Context struct {
	Resolver *scope.Resolver
	Types    *typetrans.Translator
	Lower    *lower.Lowerer
	Decls    *decl.Visitor
	Macros   *macro.Translator
	Diag     io.Writer
}

// builtinsFile is the YAML shape of resources/builtins.yaml.
type builtinsFile struct {
	Primitives    []string `yaml:"primitives"`
	ReservedWords []string `yaml:"reserved_words"`
}

func loadPrimitives(path string) (map[string]bool, error) {
	if path == "" {
		path = "resources/builtins.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlate: reading resources %s: %w", path, err)
	}
	var bf builtinsFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("xlate: parsing resources %s: %w", path, err)
	}
	names := make(map[string]bool, len(bf.Primitives)+len(bf.ReservedWords))
	for _, n := range bf.Primitives {
		names[n] = true
	}
	for _, n := range bf.ReservedWords {
		names[n] = true
	}
	return names, nil
}

// NewContext assembles every component with a shared Resolver, reading
// the primitive/reserved-word collision table from cfg.ResourcesPath.
func NewContext(cfg Config) (*Context, error) {
	primitives, err := loadPrimitives(cfg.ResourcesPath)
	if err != nil {
		return nil, err
	}
	diag := cfg.Diag
	if diag == nil {
		diag = io.Discard
	}

	root := scope.NewRootScope()
	resolver := scope.NewResolver(root, primitives)
	types := typetrans.New(root, resolver, diag)

	declTable := make(map[ctypes.DeclID]string)
	lowerer := lower.New(resolver, types, diag, func(id ctypes.DeclID) (string, bool) {
		name, ok := declTable[id]
		return name, ok
	})
	visitor := decl.New(resolver, types, lowerer, diag)
	visitor.DeclNames = declTable
	macroTranslator := macro.New(resolver)

	return &Context{
		Resolver: resolver,
		Types:    types,
		Lower:    lowerer,
		Decls:    visitor,
		Macros:   macroTranslator,
		Diag:     diag,
	}, nil
}

// Translate is the spec.md §6 entry point. argv/allocator are not
// threaded through (see Config); errors_out is the returned []string,
// populated on a front-end SemanticAnalyzeFail (unit.Diagnostics()
// non-empty) and left empty on a clean parse. OutOfMemory propagates as
// a wrapped xerr.ErrOutOfMemory error; every other decl-boundary failure
// is recovered locally per spec.md §7 and does not fail the call.
func Translate(cfg Config, unit frontend.Unit) (*target.Tree, []string, error) {
	ctx, err := NewContext(cfg)
	if err != nil {
		return nil, nil, err
	}
	return ctx.Translate(unit)
}

// Translate runs one translation through an already-built Context.
func (ctx *Context) Translate(unit frontend.Unit) (*target.Tree, []string, error) {
	decls := unit.Decls()
	macros := unit.Macros()

	populateGlobalNames(ctx.Resolver, decls, macros)

	ctx.Decls.IndexFunctions(decls)
	for _, d := range decls {
		if err := ctx.visitRecovering(d); err != nil {
			return nil, nil, err
		}
	}

	for _, m := range macros {
		if err := ctx.translateMacroRecovering(m); err != nil {
			return nil, nil, err
		}
	}

	finalize(ctx.Resolver.Root)

	return &target.Tree{Decls: ctx.Resolver.Root.Nodes}, unit.Diagnostics(), nil
}

// visitRecovering drives the declaration visitor for one top-level decl,
// converting an UnsupportedType/UnsupportedTranslation failure into a
// diagnostic declaration at the decl boundary (spec.md §7's "Propagation
// policy") instead of aborting the whole translation. OutOfMemory (never
// raised by this Go rendition, kept for interface fidelity) propagates.
func (ctx *Context) visitRecovering(d csrc.Decl) error {
	err := ctx.Decls.Visit(d)
	if err == nil {
		return nil
	}
	if errors.Is(err, xerr.ErrOutOfMemory) {
		return err
	}
	name := declName(d)
	fmt.Fprintf(ctx.Diag, "%s: warning: %s: %v\n", d.Location(), name, err)
	emitCompileError(ctx.Resolver, name, err.Error())
	return nil
}

func (ctx *Context) translateMacroRecovering(m csrc.MacroDef) error {
	def := macro.Def{
		Name:           m.Name,
		IsFunctionLike: m.IsFunctionLike,
		Params:         m.Params,
		IsVariadic:     m.IsVariadic,
		Body:           m.Body,
	}
	node, err := ctx.Macros.Translate(def)
	if err != nil {
		fmt.Fprintf(ctx.Diag, "%s: warning: macro %s: %v\n", m.Loc, m.Name, err)
		return nil
	}
	ctx.Resolver.Root.Nodes = append(ctx.Resolver.Root.Nodes, node)
	return nil
}

func emitCompileError(resolver *scope.Resolver, name, message string) {
	mangled := resolver.MakeMangledName(resolver.Root, name)
	resolver.Root.Nodes = append(resolver.Root.Nodes, target.CompileErrorDecl{
		Name: mangled, Pub: true, Message: message,
	})
}

func declName(d csrc.Decl) string {
	switch dd := d.(type) {
	case csrc.FunctionDecl:
		return dd.Name
	case csrc.TypedefDecl:
		return dd.Name
	case csrc.RecordDecl:
		return dd.Record.Name
	case csrc.EnumDecl:
		return dd.Enum.Name
	case csrc.VarDecl:
		return dd.Name
	default:
		return "decl"
	}
}

// populateGlobalNames is spec.md §5's ordering guarantee: "Before
// visiting any decl, a first pass populates the global-names set (so
// that mangling decisions made early do not conflict with names not yet
// visited)." Macro names are included too, since macros are translated
// last but must not collide with any decl mangled earlier.
func populateGlobalNames(resolver *scope.Resolver, decls []csrc.Decl, macros []csrc.MacroDef) {
	for _, d := range decls {
		if name := declName(d); name != "" {
			resolver.GlobalNames[name] = true
		}
	}
	for _, m := range macros {
		resolver.GlobalNames[m.Name] = true
	}
}
