package frontend

import (
	"fmt"

	"github.com/anvil-lang/c2z/internal/csrc"
	"github.com/anvil-lang/c2z/internal/ctypes"
)

// Fixture is the YAML document shape LoadFixture deserializes, modeled
// after cmd/ralph-cc/integration_test.go's IntegrationTestFile: a plain
// struct with yaml tags, no schema validation beyond what yaml.Unmarshal
// and build() do. Names chosen in decl/type/expr fixtures are resolved
// against a running table, so a typedef or record can be declared once
// and referenced by name from every later field or parameter.
type Fixture struct {
	Diagnostics []string         `yaml:"diagnostics,omitempty"`
	Decls       []DeclFixture    `yaml:"decls"`
	Macros      []MacroFixture   `yaml:"macros,omitempty"`
}

// TypeFixture is a tagged union over ctypes.Type, discriminated by Kind.
type TypeFixture struct {
	Kind     string       `yaml:"kind"` // builtin|pointer|array|incomplete_array|named|function
	Builtin  string       `yaml:"builtin,omitempty"`
	Pointee  *TypeFixture `yaml:"pointee,omitempty"`
	Elem     *TypeFixture `yaml:"elem,omitempty"`
	Length   int64        `yaml:"length,omitempty"`
	Name     string       `yaml:"name,omitempty"` // named: typedef/record/enum tag already declared above
	Params   []TypeFixture `yaml:"params,omitempty"`
	Return   *TypeFixture `yaml:"return,omitempty"`
	Variadic bool         `yaml:"variadic,omitempty"`
	Const    bool         `yaml:"const,omitempty"`
	Volatile bool         `yaml:"volatile,omitempty"`
}

var builtinKinds = map[string]ctypes.BuiltinKind{
	"void": ctypes.Void, "bool": ctypes.Bool, "char": ctypes.Char,
	"signed char": ctypes.SignedChar, "unsigned char": ctypes.UnsignedChar,
	"short": ctypes.Short, "unsigned short": ctypes.UnsignedShort,
	"int": ctypes.Int, "unsigned int": ctypes.UnsignedInt,
	"long": ctypes.Long, "unsigned long": ctypes.UnsignedLong,
	"long long": ctypes.LongLong, "unsigned long long": ctypes.UnsignedLongLong,
	"__int128": ctypes.Int128, "unsigned __int128": ctypes.UInt128,
	"float": ctypes.Float, "double": ctypes.Double, "long double": ctypes.LongDouble,
	"__float128": ctypes.Float128, "_Float16": ctypes.Float16,
}

// typeTable accumulates typedef/record/enum definitions as the fixture's
// decl list is walked, so a later TypeFixture{Kind: "named"} can resolve
// by name regardless of which kind declared it.
type typeTable struct {
	typedefs map[string]ctypes.Typedef
	records  map[string]*ctypes.Record
	enums    map[string]*ctypes.Enum
	nextID   ctypes.DeclID
}

func newTypeTable() *typeTable {
	return &typeTable{
		typedefs: make(map[string]ctypes.Typedef),
		records:  make(map[string]*ctypes.Record),
		enums:    make(map[string]*ctypes.Enum),
	}
}

func (tt *typeTable) freshID() ctypes.DeclID {
	tt.nextID++
	return tt.nextID
}

func (tt *typeTable) resolveType(tf *TypeFixture) (ctypes.QualType, error) {
	if tf == nil {
		return ctypes.QualType{}, fmt.Errorf("frontend: nil type fixture")
	}
	quals := ctypes.Qualifiers{Const: tf.Const, Volatile: tf.Volatile}
	switch tf.Kind {
	case "builtin":
		k, ok := builtinKinds[tf.Builtin]
		if !ok {
			return ctypes.QualType{}, fmt.Errorf("frontend: unknown builtin %q", tf.Builtin)
		}
		return ctypes.QualType{Type: ctypes.Builtin{Kind: k}, Quals: quals}, nil
	case "pointer":
		pointee, err := tt.resolveType(tf.Pointee)
		if err != nil {
			return ctypes.QualType{}, err
		}
		return ctypes.QualType{Type: ctypes.Pointer{Pointee: pointee}, Quals: quals}, nil
	case "array":
		elem, err := tt.resolveType(tf.Elem)
		if err != nil {
			return ctypes.QualType{}, err
		}
		return ctypes.QualType{Type: ctypes.ConstantArray{Elem: elem, Length: tf.Length}, Quals: quals}, nil
	case "incomplete_array":
		elem, err := tt.resolveType(tf.Elem)
		if err != nil {
			return ctypes.QualType{}, err
		}
		return ctypes.QualType{Type: ctypes.IncompleteArray{Elem: elem}, Quals: quals}, nil
	case "function":
		params := make([]ctypes.Param, 0, len(tf.Params))
		for i := range tf.Params {
			pt, err := tt.resolveType(&tf.Params[i])
			if err != nil {
				return ctypes.QualType{}, err
			}
			params = append(params, ctypes.Param{Type: pt})
		}
		ret, err := tt.resolveType(tf.Return)
		if err != nil {
			return ctypes.QualType{}, err
		}
		return ctypes.QualType{Type: ctypes.Function{Params: params, Return: ret, IsVariadic: tf.Variadic}, Quals: quals}, nil
	case "named":
		if td, ok := tt.typedefs[tf.Name]; ok {
			return ctypes.QualType{Type: td, Quals: quals}, nil
		}
		if r, ok := tt.records[tf.Name]; ok {
			return ctypes.QualType{Type: *r, Quals: quals}, nil
		}
		if e, ok := tt.enums[tf.Name]; ok {
			return ctypes.QualType{Type: *e, Quals: quals}, nil
		}
		return ctypes.QualType{}, fmt.Errorf("frontend: undeclared named type %q", tf.Name)
	default:
		return ctypes.QualType{}, fmt.Errorf("frontend: unknown type fixture kind %q", tf.Kind)
	}
}

// resolveBaseRecord resolves a member-access base's declared type down to
// the ctypes.Record it names (unwrapping one pointer level for an arrow
// access), so an anonymous-field access can be keyed by the record's
// canonical identity rather than a field name that does not exist.
func (tt *typeTable) resolveBaseRecord(base *ExprFixture, arrow bool) (*ctypes.Record, error) {
	if base == nil || base.Type == nil {
		return nil, fmt.Errorf("frontend: anonymous field access requires the base expression's type to be given explicitly")
	}
	qt, err := tt.resolveType(base.Type)
	if err != nil {
		return nil, err
	}
	qt = ctypes.Unwrap(qt)
	if arrow {
		ptr, ok := qt.Type.(ctypes.Pointer)
		if !ok {
			return nil, fmt.Errorf("frontend: arrow member access on non-pointer base type %T", qt.Type)
		}
		qt = ctypes.Unwrap(ptr.Pointee)
	}
	rec, ok := qt.Type.(ctypes.Record)
	if !ok {
		return nil, fmt.Errorf("frontend: member access base does not resolve to a record, got %T", qt.Type)
	}
	return &rec, nil
}

// FieldFixture is one member of a record fixture.
type FieldFixture struct {
	Name     string      `yaml:"name"`
	Type     TypeFixture `yaml:"type"`
	BitWidth int         `yaml:"bit_width,omitempty"`
	IsBit    bool        `yaml:"is_bit,omitempty"`
	Flexible bool        `yaml:"flexible,omitempty"`
}

// EnumeratorFixture is one member of an enum fixture.
type EnumeratorFixture struct {
	Name          string `yaml:"name"`
	Value         int64  `yaml:"value"`
	ExplicitValue bool   `yaml:"explicit,omitempty"`
}

// ParamFixture is one function parameter fixture.
type ParamFixture struct {
	Name    string      `yaml:"name"`
	Type    TypeFixture `yaml:"type"`
	IsConst bool        `yaml:"is_const,omitempty"`
}

// DeclFixture is a tagged union over csrc.Decl, discriminated by Kind.
type DeclFixture struct {
	Kind string `yaml:"kind"` // function|typedef|record|enum|variable

	Name    string         `yaml:"name,omitempty"`
	Storage string         `yaml:"storage,omitempty"` // extern|static|register|private_extern
	Type    *TypeFixture   `yaml:"type,omitempty"`

	// function
	Params       []ParamFixture `yaml:"params,omitempty"`
	Return       *TypeFixture   `yaml:"returns,omitempty"`
	Variadic     bool           `yaml:"variadic,omitempty"`
	IsDefinition bool           `yaml:"is_definition,omitempty"`
	Body         []StmtFixture  `yaml:"body,omitempty"`

	// typedef
	Underlying *TypeFixture `yaml:"underlying,omitempty"`

	// record
	Union    bool           `yaml:"union,omitempty"`
	Fields   []FieldFixture `yaml:"fields,omitempty"`
	Complete bool           `yaml:"complete,omitempty"`
	Packed   bool           `yaml:"packed,omitempty"`

	// enum
	Enumerators []EnumeratorFixture `yaml:"enumerators,omitempty"`

	// variable
	Init *ExprFixture `yaml:"init,omitempty"`
}

// ExprFixture is a tagged union over csrc.Expr.
type ExprFixture struct {
	Kind string `yaml:"kind"`

	// literals
	Int    int64   `yaml:"int,omitempty"`
	Float  float64 `yaml:"float,omitempty"`
	String string  `yaml:"string,omitempty"`

	Type *TypeFixture `yaml:"type,omitempty"`

	// decl_ref
	Name string `yaml:"name,omitempty"`

	// member: FieldName names the field directly; FieldIndex instead
	// gives its position within the base record's field list, for an
	// anonymous field that has no name to give.
	Base       *ExprFixture `yaml:"base,omitempty"`
	Arrow      bool         `yaml:"arrow,omitempty"`
	FieldName  string       `yaml:"field,omitempty"`
	FieldIndex *int         `yaml:"field_index,omitempty"`

	// index
	Index *ExprFixture `yaml:"index,omitempty"`

	// call
	Callee *ExprFixture  `yaml:"callee,omitempty"`
	Args   []ExprFixture `yaml:"args,omitempty"`

	// unary/binary/assign
	Op  string       `yaml:"op,omitempty"`
	LHS *ExprFixture `yaml:"lhs,omitempty"`
	RHS *ExprFixture `yaml:"rhs,omitempty"`
	Arg *ExprFixture `yaml:"arg,omitempty"`

	// conditional / gnu_conditional
	Cond *ExprFixture `yaml:"cond,omitempty"`
	Then *ExprFixture `yaml:"then,omitempty"`
	Else *ExprFixture `yaml:"else,omitempty"`

	// paren (Inner); sizeof_type/alignof_type (ArgType). cast,
	// implicit_cast and sizeof_expr take their operand from Arg.
	Inner   *ExprFixture `yaml:"inner,omitempty"`
	ArgType *TypeFixture `yaml:"arg_type,omitempty"`

	// init_list
	Elems []InitElemFixture `yaml:"elems,omitempty"`
}

// InitElemFixture is one element of an init_list fixture.
type InitElemFixture struct {
	Field string      `yaml:"field,omitempty"`
	Value ExprFixture `yaml:"value"`
}

// StmtFixture is a tagged union over csrc.Stmt.
type StmtFixture struct {
	Kind string `yaml:"kind"`

	Expr  *ExprFixture  `yaml:"expr,omitempty"`
	Decls []DeclFixture `yaml:"decls,omitempty"`

	Cond *ExprFixture  `yaml:"cond,omitempty"`
	Then *StmtFixture  `yaml:"then,omitempty"`
	Else *StmtFixture  `yaml:"else,omitempty"`
	Body []StmtFixture `yaml:"body,omitempty"`

	Init *StmtFixture `yaml:"init,omitempty"`
	Inc  *ExprFixture `yaml:"inc,omitempty"`

	Value int64  `yaml:"value,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Label string `yaml:"label,omitempty"`
}

// MacroFixture is a preprocessor macro-definition fixture.
type MacroFixture struct {
	Name           string   `yaml:"name"`
	IsFunctionLike bool     `yaml:"function_like,omitempty"`
	Params         []string `yaml:"params,omitempty"`
	Variadic       bool     `yaml:"variadic,omitempty"`
	Body           string   `yaml:"body"`
}

// build converts the deserialized fixture into a csrc.TranslationUnit,
// resolving named-type references as it walks decls top to bottom (a
// record or typedef must be declared before anything references it by
// name — the same source-order assumption spec.md §5 makes of a real
// front end).
func (fx Fixture) build() (csrc.TranslationUnit, []string, error) {
	tt := newTypeTable()
	tu := csrc.TranslationUnit{}

	for _, df := range fx.Decls {
		d, err := tt.buildDecl(df)
		if err != nil {
			return csrc.TranslationUnit{}, nil, err
		}
		tu.Decls = append(tu.Decls, d)
	}
	for _, mf := range fx.Macros {
		tu.Macros = append(tu.Macros, csrc.MacroDef{
			Name:           mf.Name,
			IsFunctionLike: mf.IsFunctionLike,
			Params:         mf.Params,
			IsVariadic:     mf.Variadic,
			Body:           mf.Body,
		})
	}
	return tu, fx.Diagnostics, nil
}

var storageClasses = map[string]csrc.StorageClass{
	"":               csrc.StorageNone,
	"extern":         csrc.StorageExtern,
	"static":         csrc.StorageStatic,
	"register":       csrc.StorageRegister,
	"private_extern": csrc.StoragePrivateExtern,
}

func (tt *typeTable) buildDecl(df DeclFixture) (csrc.Decl, error) {
	storage, ok := storageClasses[df.Storage]
	if !ok {
		return nil, fmt.Errorf("frontend: unknown storage class %q", df.Storage)
	}

	switch df.Kind {
	case "function":
		id := tt.freshID()
		params := make([]csrc.ParamDecl, 0, len(df.Params))
		ftParams := make([]ctypes.Param, 0, len(df.Params))
		for _, pf := range df.Params {
			pt, err := tt.resolveType(&pf.Type)
			if err != nil {
				return nil, err
			}
			pid := tt.freshID()
			params = append(params, csrc.ParamDecl{ID: pid, Name: pf.Name, Type: pt, IsConst: pf.IsConst})
			ftParams = append(ftParams, ctypes.Param{Name: pf.Name, Type: pt})
		}
		ret, err := tt.resolveType(df.Return)
		if err != nil {
			return nil, err
		}
		var body *csrc.CompoundStmt
		if df.Body != nil {
			b, err := tt.buildCompound(df.Body)
			if err != nil {
				return nil, err
			}
			body = b
		}
		return csrc.FunctionDecl{
			ID:           id,
			Name:         df.Name,
			Type:         ctypes.Function{Params: ftParams, Return: ret, IsVariadic: df.Variadic},
			Storage:      storage,
			IsDefinition: df.IsDefinition || body != nil,
			Params:       params,
			Body:         body,
		}, nil

	case "typedef":
		id := tt.freshID()
		underlying, err := tt.resolveType(df.Underlying)
		if err != nil {
			return nil, err
		}
		tt.typedefs[df.Name] = ctypes.Typedef{ID: id, Name: df.Name, Underlying: underlying}
		return csrc.TypedefDecl{ID: id, Name: df.Name, Underlying: underlying}, nil

	case "record":
		id := tt.freshID()
		kind := ctypes.Struct
		if df.Union {
			kind = ctypes.Union
		}
		fields := make([]ctypes.Field, 0, len(df.Fields))
		for _, ff := range df.Fields {
			ft, err := tt.resolveType(&ff.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ctypes.Field{
				Name: ff.Name, Type: ft, BitWidth: ff.BitWidth, IsBit: ff.IsBit, Flexible: ff.Flexible,
			})
		}
		rec := ctypes.Record{
			ID: id, Name: df.Name, Kind: kind, Fields: fields,
			IsComplete: df.Complete || len(fields) > 0, IsPacked: df.Packed,
		}
		tt.records[df.Name] = &rec
		return csrc.RecordDecl{ID: id, Record: rec}, nil

	case "enum":
		id := tt.freshID()
		enumerators := make([]ctypes.Enumerator, 0, len(df.Enumerators))
		for _, ef := range df.Enumerators {
			enumerators = append(enumerators, ctypes.Enumerator{
				Name: ef.Name, Value: ef.Value, ExplicitValue: ef.ExplicitValue,
			})
		}
		en := ctypes.Enum{
			ID: id, Name: df.Name, Enumerators: enumerators,
			Underlying: ctypes.Builtin{Kind: ctypes.Int}, UnderlyingIsDefault: true,
		}
		tt.enums[df.Name] = &en
		return csrc.EnumDecl{ID: id, Enum: en}, nil

	case "variable":
		id := tt.freshID()
		typ, err := tt.resolveType(df.Type)
		if err != nil {
			return nil, err
		}
		var init csrc.Expr
		if df.Init != nil {
			init, err = tt.buildExpr(df.Init)
			if err != nil {
				return nil, err
			}
		}
		return csrc.VarDecl{
			ID: id, Name: df.Name, Type: typ, Storage: storage, Init: init, IsFileScope: true,
		}, nil

	default:
		return nil, fmt.Errorf("frontend: unknown decl fixture kind %q", df.Kind)
	}
}

func (tt *typeTable) buildCompound(items []StmtFixture) (*csrc.CompoundStmt, error) {
	stmts := make([]csrc.Stmt, 0, len(items))
	for _, sf := range items {
		s, err := tt.buildStmt(sf)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &csrc.CompoundStmt{Items: stmts}, nil
}

func (tt *typeTable) buildStmt(sf StmtFixture) (csrc.Stmt, error) {
	switch sf.Kind {
	case "compound":
		return tt.buildCompound(sf.Body)
	case "expr":
		e, err := tt.buildExpr(sf.Expr)
		if err != nil {
			return nil, err
		}
		return csrc.ExprStmt{Expr: e}, nil
	case "decl":
		decls := make([]csrc.Decl, 0, len(sf.Decls))
		for _, df := range sf.Decls {
			d, err := tt.buildDecl(df)
			if err != nil {
				return nil, err
			}
			decls = append(decls, d)
		}
		return csrc.DeclStmt{Decls: decls}, nil
	case "if":
		cond, err := tt.buildExpr(sf.Cond)
		if err != nil {
			return nil, err
		}
		then, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		var els csrc.Stmt
		if sf.Else != nil {
			els, err = tt.buildStmt(*sf.Else)
			if err != nil {
				return nil, err
			}
		}
		return csrc.IfStmt{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := tt.buildExpr(sf.Cond)
		if err != nil {
			return nil, err
		}
		body, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		return csrc.WhileStmt{Cond: cond, Body: body}, nil
	case "do":
		cond, err := tt.buildExpr(sf.Cond)
		if err != nil {
			return nil, err
		}
		body, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		return csrc.DoStmt{Body: body, Cond: cond}, nil
	case "for":
		var initStmt csrc.Stmt
		var err error
		if sf.Init != nil {
			initStmt, err = tt.buildStmt(*sf.Init)
			if err != nil {
				return nil, err
			}
		}
		var cond csrc.Expr
		if sf.Cond != nil {
			cond, err = tt.buildExpr(sf.Cond)
			if err != nil {
				return nil, err
			}
		}
		var inc csrc.Expr
		if sf.Inc != nil {
			inc, err = tt.buildExpr(sf.Inc)
			if err != nil {
				return nil, err
			}
		}
		body, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		return csrc.ForStmt{Init: initStmt, Cond: cond, Inc: inc, Body: body}, nil
	case "switch":
		cond, err := tt.buildExpr(sf.Cond)
		if err != nil {
			return nil, err
		}
		body, err := tt.buildCompound(sf.Body)
		if err != nil {
			return nil, err
		}
		return csrc.SwitchStmt{Cond: cond, Body: body}, nil
	case "case":
		body, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		return csrc.CaseStmt{Value: sf.Value, Body: body}, nil
	case "default":
		body, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		return csrc.DefaultStmt{Body: body}, nil
	case "break":
		return csrc.BreakStmt{}, nil
	case "continue":
		return csrc.ContinueStmt{}, nil
	case "return":
		var v csrc.Expr
		if sf.Expr != nil {
			var err error
			v, err = tt.buildExpr(sf.Expr)
			if err != nil {
				return nil, err
			}
		}
		return csrc.ReturnStmt{Value: v}, nil
	case "label":
		body, err := tt.buildStmt(*sf.Then)
		if err != nil {
			return nil, err
		}
		return csrc.LabelStmt{Name: sf.Label, Body: body}, nil
	case "goto":
		return csrc.GotoStmt{Label: sf.Label}, nil
	case "null":
		return csrc.NullStmt{}, nil
	default:
		return nil, fmt.Errorf("frontend: unknown stmt fixture kind %q", sf.Kind)
	}
}

var unaryOps = map[string]csrc.UnaryOp{
	"!": csrc.OpNot, "~": csrc.OpBitNot, "neg": csrc.OpNeg, "pos": csrc.OpPlus,
	"*": csrc.OpDeref, "&": csrc.OpAddrOf,
	"++pre": csrc.OpPreInc, "--pre": csrc.OpPreDec,
	"post++": csrc.OpPostInc, "post--": csrc.OpPostDec,
}

var binaryOps = map[string]csrc.BinaryOp{
	"+": csrc.OpAdd, "-": csrc.OpSub, "*": csrc.OpMul, "/": csrc.OpDiv, "%": csrc.OpMod,
	"<<": csrc.OpShl, ">>": csrc.OpShr,
	"&": csrc.OpBitAnd, "|": csrc.OpBitOr, "^": csrc.OpBitXor,
	"&&": csrc.OpLogAnd, "||": csrc.OpLogOr,
	"==": csrc.OpEq, "!=": csrc.OpNe,
	"<": csrc.OpLt, "<=": csrc.OpLe, ">": csrc.OpGt, ">=": csrc.OpGe,
}

var assignOps = map[string]csrc.AssignOp{
	"=": csrc.AssignPlain, "+=": csrc.AssignAdd, "-=": csrc.AssignSub,
	"*=": csrc.AssignMul, "/=": csrc.AssignDiv, "%=": csrc.AssignMod,
	"<<=": csrc.AssignShl, ">>=": csrc.AssignShr,
	"&=": csrc.AssignAnd, "|=": csrc.AssignOr, "^=": csrc.AssignXor,
}

func (tt *typeTable) exprType(ef *ExprFixture) (ctypes.QualType, error) {
	if ef.Type == nil {
		return ctypes.QualType{Type: ctypes.Builtin{Kind: ctypes.Int}}, nil
	}
	return tt.resolveType(ef.Type)
}

func (tt *typeTable) buildExpr(ef *ExprFixture) (csrc.Expr, error) {
	if ef == nil {
		return nil, fmt.Errorf("frontend: nil expr fixture")
	}
	typ, err := tt.exprType(ef)
	if err != nil {
		return nil, err
	}
	switch ef.Kind {
	case "int":
		return csrc.IntLiteral{Value: ef.Int, Typ: typ}, nil
	case "float":
		return csrc.FloatLiteral{Value: ef.Float, Typ: typ}, nil
	case "string":
		return csrc.StringLiteral{Value: []byte(ef.String), Typ: typ}, nil
	case "decl_ref":
		return csrc.DeclRef{Name: ef.Name, Typ: typ}, nil
	case "member":
		base, err := tt.buildExpr(ef.Base)
		if err != nil {
			return nil, err
		}
		fieldID := ""
		if ef.FieldName == "" && ef.FieldIndex != nil {
			rec, err := tt.resolveBaseRecord(ef.Base, ef.Arrow)
			if err != nil {
				return nil, err
			}
			fieldID = ctypes.FieldKey(rec.ID, *ef.FieldIndex)
		}
		return csrc.Member{Base: base, Arrow: ef.Arrow, FieldName: ef.FieldName, FieldID: fieldID, Typ: typ}, nil
	case "index":
		base, err := tt.buildExpr(ef.Base)
		if err != nil {
			return nil, err
		}
		idx, err := tt.buildExpr(ef.Index)
		if err != nil {
			return nil, err
		}
		return csrc.Index{Base: base, Idx: idx, Typ: typ}, nil
	case "call":
		callee, err := tt.buildExpr(ef.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]csrc.Expr, 0, len(ef.Args))
		for i := range ef.Args {
			a, err := tt.buildExpr(&ef.Args[i])
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return csrc.Call{Callee: callee, Args: args, Typ: typ}, nil
	case "unary":
		op, ok := unaryOps[ef.Op]
		if !ok {
			return nil, fmt.Errorf("frontend: unknown unary op %q", ef.Op)
		}
		arg, err := tt.buildExpr(ef.Arg)
		if err != nil {
			return nil, err
		}
		return csrc.Unary{Op: op, Arg: arg, Typ: typ}, nil
	case "binary":
		op, ok := binaryOps[ef.Op]
		if !ok {
			return nil, fmt.Errorf("frontend: unknown binary op %q", ef.Op)
		}
		lhs, err := tt.buildExpr(ef.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := tt.buildExpr(ef.RHS)
		if err != nil {
			return nil, err
		}
		return csrc.Binary{Op: op, LHS: lhs, RHS: rhs, Typ: typ}, nil
	case "assign":
		op, ok := assignOps[ef.Op]
		if !ok {
			return nil, fmt.Errorf("frontend: unknown assign op %q", ef.Op)
		}
		lhs, err := tt.buildExpr(ef.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := tt.buildExpr(ef.RHS)
		if err != nil {
			return nil, err
		}
		return csrc.Assign{Op: op, LHS: lhs, RHS: rhs, Typ: typ}, nil
	case "conditional":
		cond, err := tt.buildExpr(ef.Cond)
		if err != nil {
			return nil, err
		}
		then, err := tt.buildExpr(ef.Then)
		if err != nil {
			return nil, err
		}
		els, err := tt.buildExpr(ef.Else)
		if err != nil {
			return nil, err
		}
		return csrc.Conditional{Cond: cond, Then: then, Else: els, Typ: typ}, nil
	case "gnu_conditional":
		cond, err := tt.buildExpr(ef.Cond)
		if err != nil {
			return nil, err
		}
		els, err := tt.buildExpr(ef.Else)
		if err != nil {
			return nil, err
		}
		return csrc.GNUConditional{Cond: cond, Else: els, Typ: typ}, nil
	case "comma":
		lhs, err := tt.buildExpr(ef.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := tt.buildExpr(ef.RHS)
		if err != nil {
			return nil, err
		}
		return csrc.Comma{LHS: lhs, RHS: rhs, Typ: typ}, nil
	case "cast":
		arg, err := tt.buildExpr(ef.Arg)
		if err != nil {
			return nil, err
		}
		return csrc.Cast{Arg: arg, Typ: typ}, nil
	case "implicit_cast":
		arg, err := tt.buildExpr(ef.Arg)
		if err != nil {
			return nil, err
		}
		return csrc.ImplicitCast{Arg: arg, Typ: typ}, nil
	case "paren":
		inner, err := tt.buildExpr(ef.Inner)
		if err != nil {
			return nil, err
		}
		return csrc.Paren{Inner: inner}, nil
	case "init_list":
		elems := make([]csrc.InitElem, 0, len(ef.Elems))
		for _, ie := range ef.Elems {
			v, err := tt.buildExpr(&ie.Value)
			if err != nil {
				return nil, err
			}
			elems = append(elems, csrc.InitElem{Field: ie.Field, Value: v})
		}
		return csrc.InitList{Elems: elems, Typ: typ}, nil
	case "sizeof_type":
		argType, err := tt.resolveType(ef.ArgType)
		if err != nil {
			return nil, err
		}
		return csrc.SizeOfExpr{ArgType: &argType, Typ: typ}, nil
	case "sizeof_expr":
		arg, err := tt.buildExpr(ef.Arg)
		if err != nil {
			return nil, err
		}
		return csrc.SizeOfExpr{ArgExpr: arg, Typ: typ}, nil
	case "alignof_type":
		argType, err := tt.resolveType(ef.ArgType)
		if err != nil {
			return nil, err
		}
		return csrc.AlignOfExpr{ArgType: &argType, Typ: typ}, nil
	default:
		return nil, fmt.Errorf("frontend: unknown expr fixture kind %q", ef.Kind)
	}
}
