// Package csrc defines the semantic C AST this translator consumes: the
// shape a typed, already-parsed C front end (Clang or equivalent) hands
// off once overload resolution, implicit conversions, and constant folding
// it is willing to do are finished. It mirrors Clang's AST closely enough
// that a real binding could populate it, but carries no parsing logic of
// its own — driving a front end is explicitly out of scope (spec.md §1).
package csrc

import "github.com/anvil-lang/c2z/internal/ctypes"

// SourceLocation is a front-end source-manager query result
// (spec.md §6: "source-manager queries (filename, line, column ...)").
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return l.File + ":" + itoa(l.Line) + ":" + itoa(l.Column)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Node is the base interface for every csrc AST node.
type Node interface {
	implCSrcNode()
}

// Expr is the interface for every C expression node. Every expression
// already carries its resolved type — this AST never requires inference.
type Expr interface {
	Node
	implCSrcExpr()
	Type() ctypes.QualType
}

// Stmt is the interface for every C statement node.
type Stmt interface {
	Node
	implCSrcStmt()
}

// Decl is the interface for every top-level or block-scope declaration.
type Decl interface {
	Node
	implCSrcDecl()
	DeclID() ctypes.DeclID
	Location() SourceLocation
}

// --- Operators ---

type UnaryOp int

const (
	OpNot     UnaryOp = iota // !
	OpBitNot                 // ~
	OpNeg                    // unary -
	OpPlus                   // unary +
	OpDeref                  // *p
	OpAddrOf                 // &x
	OpPreInc                 // ++x
	OpPreDec                 // --x
	OpPostInc                // x++
	OpPostDec                // x--
)

func (op UnaryOp) String() string {
	names := [...]string{"!", "~", "-", "+", "*", "&", "++", "--", "++", "--"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsIncDec reports whether op is one of the four increment/decrement forms.
func (op UnaryOp) IsIncDec() bool {
	return op == OpPreInc || op == OpPreDec || op == OpPostInc || op == OpPostDec
}

// IsPostfix reports whether op is the postfix form of inc/dec.
func (op UnaryOp) IsPostfix() bool {
	return op == OpPostInc || op == OpPostDec
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpLogAnd
	OpLogOr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op BinaryOp) String() string {
	names := [...]string{"+", "-", "*", "/", "%", "<<", ">>", "&", "|", "^", "&&", "||", "==", "!=", "<", "<=", ">", ">="}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// IsComparison reports whether op produces a boolean-typed result.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether op is && or ||.
func (op BinaryOp) IsLogical() bool {
	return op == OpLogAnd || op == OpLogOr
}

type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignAnd
	AssignOr
	AssignXor
	AssignShl
	AssignShr
)

// BinaryOp returns the underlying arithmetic/bitwise op a compound
// assignment performs before storing, panicking for AssignPlain (which
// has none).
func (op AssignOp) BinaryOp() BinaryOp {
	switch op {
	case AssignAdd:
		return OpAdd
	case AssignSub:
		return OpSub
	case AssignMul:
		return OpMul
	case AssignDiv:
		return OpDiv
	case AssignMod:
		return OpMod
	case AssignAnd:
		return OpBitAnd
	case AssignOr:
		return OpBitOr
	case AssignXor:
		return OpBitXor
	case AssignShl:
		return OpShl
	case AssignShr:
		return OpShr
	}
	panic("csrc: AssignPlain has no underlying binary operator")
}

// --- Expressions ---

type IntLiteral struct {
	Value int64
	Typ   ctypes.QualType
}

type FloatLiteral struct {
	Value float64
	Typ   ctypes.QualType
}

type StringKind int

const (
	StringNarrow StringKind = iota
	StringWide
	StringUTF16
	StringUTF32
)

type StringLiteral struct {
	Value []byte // raw bytes, unescaped, no trailing NUL
	Kind  StringKind
	Typ   ctypes.QualType
}

// DeclRef references a variable, function, or enumerator by the front
// end's canonical declaration identity.
type DeclRef struct {
	Decl ctypes.DeclID
	Name string
	Typ  ctypes.QualType
}

// Member represents p->f (Arrow true) or s.f (Arrow false).
// FieldID, when non-empty, is the canonical field identity the front end
// assigned — used to recover the mangled name of an anonymous field.
type Member struct {
	Base      Expr
	Arrow     bool
	FieldName string
	FieldID   string
	Typ       ctypes.QualType
}

type Index struct {
	Base  Expr
	Idx   Expr
	Typ   ctypes.QualType
}

type Call struct {
	Callee Expr
	Args   []Expr
	Typ    ctypes.QualType
}

type Unary struct {
	Op  UnaryOp
	Arg Expr
	Typ ctypes.QualType
}

type Binary struct {
	Op    BinaryOp
	LHS   Expr
	RHS   Expr
	Typ   ctypes.QualType
}

// Assign represents `a = b` or a compound assignment `a += b`.
type Assign struct {
	Op  AssignOp
	LHS Expr
	RHS Expr
	Typ ctypes.QualType
}

// Conditional is the ternary operator `cond ? then : else`.
type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
	Typ  ctypes.QualType
}

// GNUConditional is the GNU extension `cond ?: else`, which evaluates
// Cond once and uses it as both the condition and (if truthy) the result.
type GNUConditional struct {
	Cond Expr
	Else Expr
	Typ  ctypes.QualType
}

// Comma is the sequencing operator `lhs, rhs`; the result is rhs.
type Comma struct {
	LHS Expr
	RHS Expr
	Typ ctypes.QualType
}

// Cast is an explicit C-style cast `(T)e`.
type Cast struct {
	Arg Expr
	Typ ctypes.QualType
}

// ImplicitCast is a conversion the front end inserted without source
// syntax (integer promotion, array-to-pointer decay, etc). It is
// translated through the same cast engine as an explicit Cast.
type ImplicitCast struct {
	Arg Expr
	Typ ctypes.QualType
}

type Paren struct {
	Inner Expr
}

func (p Paren) Type() ctypes.QualType { return p.Inner.Type() }

// InitElem is one element of an InitList: Field is set for a designated
// record/union member initializer, empty for positional array elements.
type InitElem struct {
	Field string
	Value Expr
}

// InitList is a braced initializer `{ ... }`.
type InitList struct {
	Elems []InitElem
	Typ   ctypes.QualType
}

// CompoundLiteral is `(T){ ... }`.
type CompoundLiteral struct {
	Init InitList
	Typ  ctypes.QualType
}

// SizeOfExpr represents sizeof(type) when ArgType is set, or sizeof(expr)
// when ArgExpr is set (mutually exclusive).
type SizeOfExpr struct {
	ArgType *ctypes.QualType
	ArgExpr Expr
	Typ     ctypes.QualType
}

// AlignOfExpr represents _Alignof(type) or __alignof(expr).
type AlignOfExpr struct {
	ArgType *ctypes.QualType
	ArgExpr Expr
	Typ     ctypes.QualType
}

// StmtExpr is the common-case GNU statement expression `({ ...; expr; })`
// whose last statement is an expression statement supplying the value.
// Anything more exotic is rejected by the lowerer per spec.md's Non-goals.
type StmtExpr struct {
	Body *CompoundStmt
	Typ  ctypes.QualType
}

func (IntLiteral) implCSrcNode()       {}
func (FloatLiteral) implCSrcNode()     {}
func (StringLiteral) implCSrcNode()    {}
func (DeclRef) implCSrcNode()          {}
func (Member) implCSrcNode()           {}
func (Index) implCSrcNode()            {}
func (Call) implCSrcNode()             {}
func (Unary) implCSrcNode()            {}
func (Binary) implCSrcNode()           {}
func (Assign) implCSrcNode()           {}
func (Conditional) implCSrcNode()      {}
func (GNUConditional) implCSrcNode()   {}
func (Comma) implCSrcNode()            {}
func (Cast) implCSrcNode()             {}
func (ImplicitCast) implCSrcNode()     {}
func (Paren) implCSrcNode()            {}
func (InitList) implCSrcNode()         {}
func (CompoundLiteral) implCSrcNode()  {}
func (SizeOfExpr) implCSrcNode()       {}
func (AlignOfExpr) implCSrcNode()      {}
func (StmtExpr) implCSrcNode()         {}

func (IntLiteral) implCSrcExpr()       {}
func (FloatLiteral) implCSrcExpr()     {}
func (StringLiteral) implCSrcExpr()    {}
func (DeclRef) implCSrcExpr()          {}
func (Member) implCSrcExpr()           {}
func (Index) implCSrcExpr()            {}
func (Call) implCSrcExpr()             {}
func (Unary) implCSrcExpr()            {}
func (Binary) implCSrcExpr()           {}
func (Assign) implCSrcExpr()           {}
func (Conditional) implCSrcExpr()      {}
func (GNUConditional) implCSrcExpr()   {}
func (Comma) implCSrcExpr()            {}
func (Cast) implCSrcExpr()             {}
func (ImplicitCast) implCSrcExpr()     {}
func (Paren) implCSrcExpr()            {}
func (InitList) implCSrcExpr()         {}
func (CompoundLiteral) implCSrcExpr()  {}
func (SizeOfExpr) implCSrcExpr()       {}
func (AlignOfExpr) implCSrcExpr()      {}
func (StmtExpr) implCSrcExpr()         {}

func (e IntLiteral) Type() ctypes.QualType      { return e.Typ }
func (e FloatLiteral) Type() ctypes.QualType    { return e.Typ }
func (e StringLiteral) Type() ctypes.QualType   { return e.Typ }
func (e DeclRef) Type() ctypes.QualType         { return e.Typ }
func (e Member) Type() ctypes.QualType          { return e.Typ }
func (e Index) Type() ctypes.QualType           { return e.Typ }
func (e Call) Type() ctypes.QualType            { return e.Typ }
func (e Unary) Type() ctypes.QualType           { return e.Typ }
func (e Binary) Type() ctypes.QualType          { return e.Typ }
func (e Assign) Type() ctypes.QualType          { return e.Typ }
func (e Conditional) Type() ctypes.QualType     { return e.Typ }
func (e GNUConditional) Type() ctypes.QualType  { return e.Typ }
func (e Comma) Type() ctypes.QualType           { return e.Typ }
func (e Cast) Type() ctypes.QualType            { return e.Typ }
func (e ImplicitCast) Type() ctypes.QualType    { return e.Typ }
func (e InitList) Type() ctypes.QualType        { return e.Typ }
func (e CompoundLiteral) Type() ctypes.QualType { return e.Typ }
func (e SizeOfExpr) Type() ctypes.QualType      { return e.Typ }
func (e AlignOfExpr) Type() ctypes.QualType     { return e.Typ }
func (e StmtExpr) Type() ctypes.QualType        { return e.Typ }

// --- Statements ---

type CompoundStmt struct {
	Items []Stmt
}

type ExprStmt struct {
	Expr Expr
}

type DeclStmt struct {
	Decls []Decl
}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil for no else
}

type WhileStmt struct {
	Cond Expr
	Body Stmt
}

type DoStmt struct {
	Body Stmt
	Cond Expr
}

type ForStmt struct {
	Init Stmt // nil, DeclStmt, or ExprStmt
	Cond Expr // nil means "true"
	Inc  Expr // nil means no increment
	Body Stmt
}

type SwitchStmt struct {
	Cond Expr
	Body Stmt // typically a CompoundStmt containing CaseStmt/DefaultStmt
}

type CaseStmt struct {
	Value int64
	Body  Stmt
}

type DefaultStmt struct {
	Body Stmt
}

type BreakStmt struct{}

type ContinueStmt struct{}

type ReturnStmt struct {
	Value Expr // nil for a bare `return;`
}

type LabelStmt struct {
	Name string
	Body Stmt
}

type GotoStmt struct {
	Label string
}

type NullStmt struct{}

func (CompoundStmt) implCSrcNode() {}
func (ExprStmt) implCSrcNode()     {}
func (DeclStmt) implCSrcNode()     {}
func (IfStmt) implCSrcNode()       {}
func (WhileStmt) implCSrcNode()    {}
func (DoStmt) implCSrcNode()       {}
func (ForStmt) implCSrcNode()      {}
func (SwitchStmt) implCSrcNode()   {}
func (CaseStmt) implCSrcNode()     {}
func (DefaultStmt) implCSrcNode()  {}
func (BreakStmt) implCSrcNode()    {}
func (ContinueStmt) implCSrcNode() {}
func (ReturnStmt) implCSrcNode()   {}
func (LabelStmt) implCSrcNode()    {}
func (GotoStmt) implCSrcNode()     {}
func (NullStmt) implCSrcNode()     {}

func (CompoundStmt) implCSrcStmt() {}
func (ExprStmt) implCSrcStmt()     {}
func (DeclStmt) implCSrcStmt()     {}
func (IfStmt) implCSrcStmt()       {}
func (WhileStmt) implCSrcStmt()    {}
func (DoStmt) implCSrcStmt()       {}
func (ForStmt) implCSrcStmt()      {}
func (SwitchStmt) implCSrcStmt()   {}
func (CaseStmt) implCSrcStmt()     {}
func (DefaultStmt) implCSrcStmt()  {}
func (BreakStmt) implCSrcStmt()    {}
func (ContinueStmt) implCSrcStmt() {}
func (ReturnStmt) implCSrcStmt()   {}
func (LabelStmt) implCSrcStmt()    {}
func (GotoStmt) implCSrcStmt()     {}
func (NullStmt) implCSrcStmt()     {}

// --- Declarations ---

type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageExtern
	StorageStatic
	StorageRegister
	StoragePrivateExtern // unsupported calling-convention-adjacent storage, triggers a compile-error decl
)

type ParamDecl struct {
	ID      ctypes.DeclID
	Name    string
	Type    ctypes.QualType
	IsConst bool
}

// FunctionDecl is a function prototype or definition.
type FunctionDecl struct {
	ID           ctypes.DeclID
	Name         string
	Type         ctypes.Function
	Storage      StorageClass
	IsDefinition bool
	Params       []ParamDecl
	Body         *CompoundStmt // nil when this is a prototype only
	Loc          SourceLocation
}

type TypedefDecl struct {
	ID         ctypes.DeclID
	Name       string
	Underlying ctypes.QualType
	Loc        SourceLocation
}

type RecordDecl struct {
	ID     ctypes.DeclID
	Record ctypes.Record
	Loc    SourceLocation
}

type EnumDecl struct {
	ID   ctypes.DeclID
	Enum ctypes.Enum
	Loc  SourceLocation
}

type VarDecl struct {
	ID          ctypes.DeclID
	Name        string
	Type        ctypes.QualType
	Storage     StorageClass
	Init        Expr // nil when uninitialized
	IsFileScope bool
	Loc         SourceLocation
}

func (FunctionDecl) implCSrcNode() {}
func (TypedefDecl) implCSrcNode()  {}
func (RecordDecl) implCSrcNode()   {}
func (EnumDecl) implCSrcNode()     {}
func (VarDecl) implCSrcNode()      {}

func (FunctionDecl) implCSrcDecl() {}
func (TypedefDecl) implCSrcDecl()  {}
func (RecordDecl) implCSrcDecl()   {}
func (EnumDecl) implCSrcDecl()     {}
func (VarDecl) implCSrcDecl()      {}

func (d FunctionDecl) DeclID() ctypes.DeclID { return d.ID }
func (d TypedefDecl) DeclID() ctypes.DeclID  { return d.ID }
func (d RecordDecl) DeclID() ctypes.DeclID   { return d.Record.ID }
func (d EnumDecl) DeclID() ctypes.DeclID     { return d.Enum.ID }
func (d VarDecl) DeclID() ctypes.DeclID      { return d.ID }

func (d FunctionDecl) Location() SourceLocation { return d.Loc }
func (d TypedefDecl) Location() SourceLocation  { return d.Loc }
func (d RecordDecl) Location() SourceLocation   { return d.Loc }
func (d EnumDecl) Location() SourceLocation     { return d.Loc }
func (d VarDecl) Location() SourceLocation      { return d.Loc }

// MacroDef is one preprocessor macro-definition record
// (spec.md §6: "a visitor over preprocessing entities").
type MacroDef struct {
	Name           string
	IsFunctionLike bool
	Params         []string
	IsVariadic     bool
	Body           string // raw replacement-list source text, not yet tokenized
	Loc            SourceLocation
}

// TranslationUnit is the top-level front-end product: spec.md §6's
// "visitor over top-level decls" plus "a visitor over preprocessing
// entities", flattened into two slices in source order.
type TranslationUnit struct {
	Decls  []Decl
	Macros []MacroDef
}
