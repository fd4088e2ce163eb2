// Package ctypes defines the C type system on the input side of the
// translator: the type vocabulary a semantic C front end (Clang or
// equivalent) would hand us, already resolved — no name lookup, no
// incomplete-type placeholders left to fill in.
package ctypes

import "strconv"

// Type is the interface implemented by every C type expression.
type Type interface {
	implType()
	String() string
}

// Qualifiers carries the const/volatile/restrict bits a QualType attaches
// to any of the types below. Restrict has no Target-language equivalent
// and is tracked only so diagnostics can mention it; it never affects
// translation.
type Qualifiers struct {
	Const    bool
	Volatile bool
	Restrict bool
}

func (q Qualifiers) String() string {
	s := ""
	if q.Const {
		s += "const "
	}
	if q.Volatile {
		s += "volatile "
	}
	if q.Restrict {
		s += "restrict "
	}
	return s
}

// QualType pairs a bare type with its qualifiers, mirroring Clang's
// QualType. Most of this package's functions accept a Type directly and
// let the caller carry qualifiers alongside; QualType exists for the
// places (struct fields, parameters, pointees) where qualifiers must
// travel with the type as one value.
type QualType struct {
	Type  Type
	Quals Qualifiers
}

func (qt QualType) String() string {
	return qt.Quals.String() + qt.Type.String()
}

// BuiltinKind enumerates the fixed table of C builtin types spec.md §4.B
// names explicitly.
type BuiltinKind int

const (
	Void BuiltinKind = iota
	Bool
	Char        // plain char; signedness is target-ABI defined, treated as signed here
	SignedChar
	UnsignedChar
	Short
	UnsignedShort
	Int
	UnsignedInt
	Long
	UnsignedLong
	LongLong
	UnsignedLongLong
	Int128
	UInt128
	Float
	Double
	LongDouble
	Float128
	Float16
)

func (k BuiltinKind) String() string {
	names := [...]string{
		"void", "_Bool", "char", "signed char", "unsigned char",
		"short", "unsigned short", "int", "unsigned int",
		"long", "unsigned long", "long long", "unsigned long long",
		"__int128", "unsigned __int128",
		"float", "double", "long double", "__float128", "_Float16",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Builtin represents one of C's fixed set of scalar builtin types.
type Builtin struct {
	Kind BuiltinKind
}

func (Builtin) implType()        {}
func (b Builtin) String() string { return b.Kind.String() }

// Pointer represents a pointer type. Pointee carries its own qualifiers.
type Pointer struct {
	Pointee QualType
}

func (Pointer) implType()        {}
func (p Pointer) String() string { return p.Pointee.String() + " *" }

// ConstantArray represents an array with a known, fixed element count.
type ConstantArray struct {
	Elem   QualType
	Length int64
}

func (ConstantArray) implType() {}
func (a ConstantArray) String() string {
	return a.Elem.String() + "[N]"
}

// IncompleteArray represents `T x[]`, whose length is determined by an
// initializer (or is a true flexible array member — see Field.Flexible).
type IncompleteArray struct {
	Elem QualType
}

func (IncompleteArray) implType()   {}
func (IncompleteArray) String() string { return "T[]" }

// DeclID is the front end's canonical-declaration identity: stable across
// redeclarations, unique across the translation unit. The zero value is
// never a valid ID.
type DeclID uint64

// FieldKey is the canonical identity of one field of one record: stable
// across redeclarations the same way DeclID is, used to recover an
// anonymous field's synthesized name after the record has been
// translated (spec.md §4.C: "the canonical field identity is recorded so
// member-access lowering can retrieve it").
func FieldKey(recID DeclID, index int) string {
	return strconv.FormatUint(uint64(recID), 10) + "#" + strconv.Itoa(index)
}

// Typedef represents a reference to a typedef name; Underlying is resolved
// so translation can proceed without a symbol table lookup, but Name and
// ID are kept so the type translator can apply the builtin-typedef fast
// path (spec.md §4.B) and so the decl-table can key on the typedef itself.
type Typedef struct {
	ID         DeclID
	Name       string
	Underlying QualType
}

func (Typedef) implType()        {}
func (t Typedef) String() string { return t.Name }

// Field is one member of a Record.
type Field struct {
	Name     string // "" for an anonymous field; the visitor synthesizes unnamed_N
	Type     QualType
	BitWidth int  // > 0 for a bit-field; 0 otherwise
	IsBit    bool // distinguishes a zero-width bit-field from a non-bit-field
	Flexible bool // true for a trailing `T name[]` flexible array member
}

// RecordKind distinguishes struct from union.
type RecordKind int

const (
	Struct RecordKind = iota
	Union
)

// Record represents a struct or union type. Fields is nil for a
// forward-declared (incomplete) record, in which case IsComplete is false.
type Record struct {
	ID         DeclID
	Name       string // "" for an anonymous struct/union
	Kind       RecordKind
	Fields     []Field
	IsComplete bool
	IsPacked   bool
}

func (Record) implType() {}
func (r Record) String() string {
	if r.Kind == Union {
		return "union " + r.Name
	}
	return "struct " + r.Name
}

// HasBitfield reports whether any field of a complete record is a
// bit-field, one of the triggers for opaque demotion (spec.md §4.B).
func (r Record) HasBitfield() bool {
	for _, f := range r.Fields {
		if f.IsBit {
			return true
		}
	}
	return false
}

// HasFlexibleArrayMember reports whether the record's trailing member is a
// flexible array, another opaque-demotion trigger.
func (r Record) HasFlexibleArrayMember() bool {
	if len(r.Fields) == 0 {
		return false
	}
	return r.Fields[len(r.Fields)-1].Flexible
}

// Enumerator is one named constant of an Enum.
type Enumerator struct {
	Name          string
	Value         int64
	ExplicitValue bool // false if the value was implicit (previous + 1)
}

// Enum represents an enum type. UnderlyingIsDefault is true when the front
// end assigned the typical int/unsigned default rather than an
// explicitly-declared fixed underlying type.
type Enum struct {
	ID                  DeclID
	Name                string
	Enumerators         []Enumerator
	Underlying          Type // a Builtin, chosen by the front end
	UnderlyingIsDefault bool
}

func (Enum) implType()        {}
func (e Enum) String() string { return "enum " + e.Name }

// AnyExplicitValue reports whether at least one enumerator was given an
// explicit initializer, which spec.md §4.C uses to decide between a
// tag-only enum and a set of individually-valued constants.
func (e Enum) AnyExplicitValue() bool {
	for _, m := range e.Enumerators {
		if m.ExplicitValue {
			return true
		}
	}
	return false
}

// Param is one parameter of a Function type.
type Param struct {
	Name string // may be "" for an unnamed prototype parameter
	Type QualType
}

// Function represents a function type (a prototype, not a definition).
type Function struct {
	Params     []Param
	Return     QualType
	IsVariadic bool
}

func (Function) implType() {}
func (f Function) String() string {
	return f.Return.String() + "(...)"
}

// Elaborated wraps a type written with an elaborated-type specifier
// (`struct Foo` used as a type where `Foo` alone would also resolve). It
// is transparent: the type translator unwraps it and never emits it
// directly (spec.md §4.B).
type Elaborated struct {
	Named QualType
}

func (Elaborated) implType()        {}
func (e Elaborated) String() string { return e.Named.String() }

// Paren wraps a parenthesized type, e.g. inside a function-pointer
// declarator. Transparent like Elaborated.
type Paren struct {
	Inner QualType
}

func (Paren) implType()        {}
func (p Paren) String() string { return "(" + p.Inner.String() + ")" }

// Decayed wraps the pointer type an array or function type decays to in
// most expression contexts, while remembering the original array/function
// type for diagnostics. Transparent: translation follows Decayed.
type Decayed struct {
	Original QualType
	Decayed  QualType
}

func (Decayed) implType()        {}
func (d Decayed) String() string { return d.Decayed.String() }

// Attributed wraps a type carrying a GNU/Clang attribute
// (`__attribute__((...))`) that does not change translation. Transparent.
type Attributed struct {
	Inner QualType
}

func (Attributed) implType()        {}
func (a Attributed) String() string { return a.Inner.String() }

// MacroQualified wraps a type written through a macro that expands to a
// qualifier-like annotation (e.g. `_Nullable`). Transparent.
type MacroQualified struct {
	Inner QualType
}

func (MacroQualified) implType()        {}
func (m MacroQualified) String() string { return m.Inner.String() }

// Unwrap strips every transparent wrapper (Elaborated, Paren, Decayed,
// Attributed, MacroQualified) from t, returning the first "real" type
// underneath along with the qualifiers accumulated along the way.
func Unwrap(qt QualType) QualType {
	for {
		switch t := qt.Type.(type) {
		case Elaborated:
			qt = mergeQuals(qt.Quals, t.Named)
		case Paren:
			qt = mergeQuals(qt.Quals, t.Inner)
		case Decayed:
			qt = mergeQuals(qt.Quals, t.Decayed)
		case Attributed:
			qt = mergeQuals(qt.Quals, t.Inner)
		case MacroQualified:
			qt = mergeQuals(qt.Quals, t.Inner)
		default:
			return qt
		}
	}
}

func mergeQuals(outer Qualifiers, inner QualType) QualType {
	inner.Quals.Const = inner.Quals.Const || outer.Const
	inner.Quals.Volatile = inner.Quals.Volatile || outer.Volatile
	inner.Quals.Restrict = inner.Quals.Restrict || outer.Restrict
	return inner
}

// BuiltinTypedefFastPath is the fixed table of typedef names spec.md
// §4.B says short-circuit straight to a Target primitive without full
// record/typedef translation: uint8_t, ..., size_t, ssize_t, intptr_t,
// uintptr_t.
var BuiltinTypedefFastPath = map[string]string{
	"int8_t":    "i8",
	"uint8_t":   "u8",
	"int16_t":   "i16",
	"uint16_t":  "u16",
	"int32_t":   "i32",
	"uint32_t":  "u32",
	"int64_t":   "i64",
	"uint64_t":  "u64",
	"size_t":    "usize",
	"ssize_t":   "isize",
	"intptr_t":  "isize",
	"uintptr_t": "usize",
}
