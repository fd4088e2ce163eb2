// Package scope implements the name/scope stack: component A of the
// translator (spec.md §4.A). It is a hierarchical, typed, parent-linked
// chain that performs on-the-fly identifier mangling and answers
// containment queries across nested blocks, switches, and loops.
//
// Following spec.md's DESIGN NOTES, Scope is a sum type rather than a
// base-struct-and-downcast hierarchy: one interface, five concrete
// variants, walks done with type switches — the same shape the teacher
// uses for its own ASTs (clight.Node, csharpminor.Expr, ...).
package scope

import (
	"fmt"

	"github.com/anvil-lang/c2z/internal/target"
)

// Scope is implemented by every scope variant.
type Scope interface {
	implScope()
	ParentScope() Scope
}

// RootScope holds the symbol table of emitted top-level names, the macro
// table, and the ordered list of top-level Target nodes. Exactly one
// RootScope exists per translation and it has no parent.
type RootScope struct {
	Symbols map[string]bool
	Macros  map[string]bool
	Nodes   []target.Decl
}

func NewRootScope() *RootScope {
	return &RootScope{Symbols: make(map[string]bool), Macros: make(map[string]bool)}
}

func (*RootScope) implScope()          {}
func (*RootScope) ParentScope() Scope  { return nil }

// BlockScope holds a statement list, a local alias table (C name to
// mangled Target name), and a per-block mangle counter. Label is set only
// when the block is the result-consuming form of a compound statement.
type BlockScope struct {
	Parent        Scope
	Label         string
	Stmts         []target.Stmt
	Aliases       map[string]string
	MangleCounter int
}

func NewBlockScope(parent Scope) *BlockScope {
	return &BlockScope{Parent: parent, Aliases: make(map[string]string)}
}

func (*BlockScope) implScope()         {}
func (b *BlockScope) ParentScope() Scope { return b.Parent }

// SwitchScope accumulates cases as they are visited. Pending is the block
// that collects statements between successive case/default labels — the
// "pending block" of spec.md's glossary.
type SwitchScope struct {
	Parent       Scope
	Cases        []target.SwitchProng
	Pending      *BlockScope
	Label        string // synthesized lazily by the lowerer when a break targets this switch
	DefaultLabel string
	HasDefault   bool
}

func NewSwitchScope(parent Scope) *SwitchScope {
	s := &SwitchScope{Parent: parent}
	s.Pending = NewBlockScope(s)
	return s
}

func (*SwitchScope) implScope()          {}
func (s *SwitchScope) ParentScope() Scope { return s.Parent }

// LoopScope is a bare marker: break/continue walk outward until they find
// one (or a SwitchScope, for break).
type LoopScope struct {
	Parent Scope
}

func (*LoopScope) implScope()          {}
func (l *LoopScope) ParentScope() Scope { return l.Parent }

// ConditionScope is used while lowering the controlling expression of
// if/while/for/?:. It lazily materializes a Block if a comma operator is
// encountered mid-condition (spec.md §4.D).
type ConditionScope struct {
	Parent Scope
	Lazy   *BlockScope
}

func (*ConditionScope) implScope()          {}
func (c *ConditionScope) ParentScope() Scope { return c.Parent }

// Materialize returns c's lazily-created block, creating it on first use.
func (c *ConditionScope) Materialize() *BlockScope {
	if c.Lazy == nil {
		c.Lazy = NewBlockScope(c)
	}
	return c.Lazy
}

// Resolver carries the pieces of Context that name resolution needs:
// the root scope, the set of Target reserved words and primitive type
// names (always a collision, spec.md §4.A), and the global-names set
// populated by the first pass over all decls and macros before any
// translation begins (spec.md §5's ordering guarantee).
type Resolver struct {
	Root        *RootScope
	Primitives  map[string]bool
	GlobalNames map[string]bool
}

func NewResolver(root *RootScope, primitives map[string]bool) *Resolver {
	return &Resolver{Root: root, Primitives: primitives, GlobalNames: make(map[string]bool)}
}

// Contains reports whether name is bound in any scope enclosing cur, is a
// Target primitive type name, or appears in the global-names set of
// yet-to-be-translated decls (spec.md §4.A).
func (r *Resolver) Contains(cur Scope, name string) bool {
	if r.Primitives[name] {
		return true
	}
	if r.Root.Symbols[name] {
		return true
	}
	if r.GlobalNames[name] {
		return true
	}
	for s := cur; s != nil; s = s.ParentScope() {
		if blk, ok := s.(*BlockScope); ok {
			for _, mangled := range blk.Aliases {
				if mangled == name {
					return true
				}
			}
		}
	}
	return false
}

// ContainsNow reports whether name is bound right now at root — no
// lookahead into pending decls or macros. Used when mangling to avoid
// reserving a name a later pass would still need (spec.md §4.A).
func (r *Resolver) ContainsNow(name string) bool {
	return r.Primitives[name] || r.Root.Symbols[name]
}

// GetAlias walks to the innermost Block that has an entry name -> alias
// and returns alias; at Root it returns name unchanged.
func GetAlias(cur Scope, name string) string {
	for s := cur; s != nil; s = s.ParentScope() {
		if blk, ok := s.(*BlockScope); ok {
			if alias, ok := blk.Aliases[name]; ok {
				return alias
			}
		}
	}
	return name
}

// MakeMangledName records and returns desired if it does not collide;
// otherwise it tries desired_1, desired_2, ... until a free name is found,
// records the pair, and returns the fresh name. Inside a block the
// collision check is Contains, so a local never takes a name a pending
// global still needs. A mangling performed with no enclosing block (a
// top-level decl name) checks ContainsNow instead, so a declaration keeps
// its own name even though the global-names set already lists it, and
// records straight into the root symbol table instead of a block alias.
func (r *Resolver) MakeMangledName(cur Scope, desired string) string {
	blk := findBlockScopeNoMaterialize(cur)
	collides := func(name string) bool { return r.Contains(cur, name) }
	if blk == nil {
		collides = r.ContainsNow
	}

	if !collides(desired) {
		r.record(blk, desired, desired)
		return desired
	}

	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", desired, n)
		if blk != nil {
			blk.MangleCounter++
		}
		if !collides(candidate) {
			r.record(blk, desired, candidate)
			return candidate
		}
	}
}

func (r *Resolver) record(blk *BlockScope, desired, actual string) {
	if blk != nil {
		blk.Aliases[desired] = actual
		return
	}
	r.Root.Symbols[actual] = true
}

// findBlockScopeNoMaterialize walks outward for an enclosing Block
// without forcing a Condition's lazy block into existence — mangling a
// name does not by itself require a statement list to append to.
func findBlockScopeNoMaterialize(cur Scope) *BlockScope {
	for s := cur; s != nil; s = s.ParentScope() {
		if blk, ok := s.(*BlockScope); ok {
			return blk
		}
	}
	return nil
}

// FindBlockScope walks outward for the enclosing Block, materializing a
// Condition's lazy block if the search passes through one (spec.md §4.A).
func FindBlockScope(cur Scope) *BlockScope {
	for s := cur; s != nil; s = s.ParentScope() {
		switch v := s.(type) {
		case *BlockScope:
			return v
		case *ConditionScope:
			return v.Materialize()
		}
	}
	return nil
}

// AppendNode appends node to the statement list of the innermost Block
// found from cur (materializing a Condition's lazy block as needed), or
// to the root node list if no Block encloses cur at all (spec.md §4.A).
// node must be either a target.Stmt or, when appending at file scope, a
// target.Decl; anything else is a programmer error.
func AppendNode(cur Scope, root *RootScope, node target.Node) {
	if blk := FindBlockScope(cur); blk != nil {
		stmt, ok := node.(target.Stmt)
		if !ok {
			panic("scope: AppendNode called with a non-statement node inside a block")
		}
		blk.Stmts = append(blk.Stmts, stmt)
		return
	}
	decl, ok := node.(target.Decl)
	if !ok {
		panic("scope: AppendNode called with a non-decl node at file scope")
	}
	root.Nodes = append(root.Nodes, decl)
}

// GetBreakableScope walks to the nearest Switch or Loop scope. Reaching
// Root is a programmer error and panics: neither decl nor lower rejects a
// break with no enclosing loop or switch before calling this.
func GetBreakableScope(cur Scope) Scope {
	for s := cur; s != nil; s = s.ParentScope() {
		switch s.(type) {
		case *SwitchScope, *LoopScope:
			return s
		}
	}
	panic("scope: GetBreakableScope reached Root")
}
