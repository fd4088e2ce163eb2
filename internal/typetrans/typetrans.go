// Package typetrans implements component B: the type translator with
// opaque demotion (spec.md §4.B). It maps ctypes.QualType values to
// internal/target type expressions, deciding along the way which
// records/enums must be demoted to opaque and emitting their top-level
// declarations exactly once.
package typetrans

import (
	"fmt"
	"io"

	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/scope"
	"github.com/anvil-lang/c2z/internal/target"
	"github.com/anvil-lang/c2z/internal/xerr"
)

// builtinTable is the fixed C-builtin-to-Target mapping spec.md §4.B
// names explicitly.
var builtinTable = map[ctypes.BuiltinKind]string{
	ctypes.Void:              "c_void",
	ctypes.Bool:               "bool",
	ctypes.Char:               "i8",
	ctypes.SignedChar:         "i8",
	ctypes.UnsignedChar:       "u8",
	ctypes.Short:              "c_short",
	ctypes.UnsignedShort:      "c_ushort",
	ctypes.Int:                "c_int",
	ctypes.UnsignedInt:        "c_uint",
	ctypes.Long:               "c_long",
	ctypes.UnsignedLong:       "c_ulong",
	ctypes.LongLong:           "c_longlong",
	ctypes.UnsignedLongLong:   "c_ulonglong",
	ctypes.Int128:             "i128",
	ctypes.UInt128:            "u128",
	ctypes.Float:              "f32",
	ctypes.Double:             "f64",
	ctypes.LongDouble:         "c_longdouble",
	ctypes.Float128:           "f128",
	ctypes.Float16:            "f16",
}

// Translator is component B's stateful driver. A single Translator is
// shared across a whole translation so that a record or enum referenced
// from many places is translated (and emitted) at most once.
type Translator struct {
	Root       *scope.RootScope
	Resolver   *scope.Resolver
	Diag       io.Writer
	loc        func() string // current C source location, for diagnostics; may be nil

	// Names maps a record/enum/typedef canonical id to its already-
	// assigned Target name, i.e. the decl-table restricted to types.
	Names map[ctypes.DeclID]string

	// Opaque is the opaque-demotion set: canonical ids of records demoted
	// because of a bit-field, flexible-array member, or untranslatable
	// field.
	Opaque map[ctypes.DeclID]bool

	// AnonFieldNames maps a field's canonical identity (ctypes.FieldKey)
	// to the synthesized unnamed_N name TranslateRecord assigned it, so
	// a member access that only carries the field's identity (no source
	// name, because the field is anonymous) can recover the name the
	// struct literal actually declared.
	AnonFieldNames map[string]string

	// typedefCache avoids re-walking a typedef's underlying type once
	// resolved once (spec.md §4.B: "alias-table caching").
	typedefCache map[ctypes.DeclID]target.TypeExpr
}

// New builds a Translator. diag receives warning text (demotion notices);
// it may be io.Discard.
func New(root *scope.RootScope, resolver *scope.Resolver, diag io.Writer) *Translator {
	return &Translator{
		Root:           root,
		Resolver:       resolver,
		Diag:           diag,
		Names:          make(map[ctypes.DeclID]string),
		Opaque:         make(map[ctypes.DeclID]bool),
		AnonFieldNames: make(map[string]string),
		typedefCache:   make(map[ctypes.DeclID]target.TypeExpr),
	}
}

// AnonFieldName looks up the synthesized name assigned to the field
// identified by key (see AnonFieldNames).
func (t *Translator) AnonFieldName(key string) (string, bool) {
	name, ok := t.AnonFieldNames[key]
	return name, ok
}

// SetLocation installs a callback the translator consults when it emits a
// demotion warning comment, so the decl visitor can keep it pointed at
// whichever declaration is currently being translated.
func (t *Translator) SetLocation(f func() string) { t.loc = f }

func (t *Translator) location() string {
	if t.loc == nil {
		return "<unknown>"
	}
	return t.loc()
}

// Translate maps qt to a Target type expression (spec.md §4.B).
func (t *Translator) Translate(qt ctypes.QualType) (target.TypeExpr, error) {
	qt = ctypes.Unwrap(qt)

	switch c := qt.Type.(type) {
	case ctypes.Builtin:
		name, ok := builtinTable[c.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: unknown builtin kind %v", xerr.ErrUnsupportedType, c.Kind)
		}
		return target.Ident{Name: name}, nil

	case ctypes.Pointer:
		return t.translatePointer(c, qt.Quals)

	case ctypes.ConstantArray:
		elem, err := t.Translate(c.Elem)
		if err != nil {
			return nil, err
		}
		return target.ArrayType{Len: c.Length, Elem: elem}, nil

	case ctypes.IncompleteArray:
		elem, err := t.Translate(c.Elem)
		if err != nil {
			return nil, err
		}
		return target.CPointer{Elem: elem, Const: c.Elem.Quals.Const}, nil

	case ctypes.Typedef:
		return t.translateTypedef(c)

	case ctypes.Record:
		return t.TranslateRecord(&c)

	case ctypes.Enum:
		return t.TranslateEnum(&c)

	case ctypes.Function:
		return t.translateFunction(c)

	default:
		return nil, fmt.Errorf("%w: %T", xerr.ErrUnsupportedType, qt.Type)
	}
}

func (t *Translator) translatePointer(p ctypes.Pointer, outer ctypes.Qualifiers) (target.TypeExpr, error) {
	pointee := ctypes.Unwrap(p.Pointee)

	if fn, ok := pointee.Type.(ctypes.Function); ok {
		fnType, err := t.translateFunction(fn)
		if err != nil {
			return nil, err
		}
		return target.Optional{Elem: fnType}, nil
	}

	elem, err := t.Translate(p.Pointee)
	if err != nil {
		return nil, err
	}

	if t.WasDemotedToOpaque(p.Pointee) || t.isOpaqueType(pointee.Type) {
		return target.SinglePointer{Elem: elem, Const: p.Pointee.Quals.Const}, nil
	}
	return target.CPointer{Elem: elem, Const: p.Pointee.Quals.Const}, nil
}

// isOpaqueType reports whether a bare (already-unwrapped) type denotes an
// incomplete record, independent of the opaque-demotion set: a
// forward-declared struct with no body is pointed to with a single
// pointer the same as a demoted one, since neither has a known layout.
func (t *Translator) isOpaqueType(typ ctypes.Type) bool {
	rec, ok := typ.(ctypes.Record)
	return ok && !rec.IsComplete
}

func (t *Translator) translateFunction(fn ctypes.Function) (target.TypeExpr, error) {
	params := make([]target.TypeExpr, 0, len(fn.Params))
	for _, p := range fn.Params {
		pt, err := t.Translate(p.Type)
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	ret, err := t.Translate(fn.Return)
	if err != nil {
		return nil, err
	}
	return target.FnType{Params: params, Return: ret, Variadic: fn.IsVariadic}, nil
}

func (t *Translator) translateTypedef(td ctypes.Typedef) (target.TypeExpr, error) {
	if prim, ok := ctypes.BuiltinTypedefFastPath[td.Name]; ok {
		return target.Ident{Name: prim}, nil
	}

	if cached, ok := t.typedefCache[td.ID]; ok {
		return cached, nil
	}

	underlying, err := t.Translate(td.Underlying)
	if err != nil {
		return nil, err
	}

	if name, ok := t.Names[td.ID]; ok {
		result := target.Ident{Name: name}
		t.typedefCache[td.ID] = result
		return result, nil
	}

	mangled := t.Resolver.MakeMangledName(t.Root, td.Name)
	t.Names[td.ID] = mangled
	t.Root.Nodes = append(t.Root.Nodes, target.TypeAliasDecl{Name: mangled, Pub: true, Typ: underlying})

	result := target.Ident{Name: mangled}
	t.typedefCache[td.ID] = result
	return result, nil
}

// WasDemotedToOpaque recursively follows typedef/elaborated/attributed
// chains to decide whether qt ultimately names a record in the
// opaque-demotion set (spec.md §4.B).
func (t *Translator) WasDemotedToOpaque(qt ctypes.QualType) bool {
	qt = ctypes.Unwrap(qt)
	switch c := qt.Type.(type) {
	case ctypes.Record:
		return t.Opaque[c.ID]
	case ctypes.Typedef:
		return t.WasDemotedToOpaque(c.Underlying)
	default:
		return false
	}
}

// TranslateRecord translates (and, on first visit, emits) a struct or
// union, returning an identifier referencing its top-level decl. Called
// both from the declaration visitor (an explicit `struct Foo { ... };`)
// and recursively from Translate when a record is reached only through a
// pointer or typedef chain not yet emitted (spec.md §5's forced-emission
// ordering guarantee).
func (t *Translator) TranslateRecord(rec *ctypes.Record) (target.TypeExpr, error) {
	if name, ok := t.Names[rec.ID]; ok {
		return target.Ident{Name: name}, nil
	}

	desired := recordDesiredName(rec)
	mangled := t.Resolver.MakeMangledName(t.Root, desired)
	// Record the name before translating fields so a self-referential
	// pointer (struct Node *next inside struct Node) resolves instead of
	// recursing forever.
	t.Names[rec.ID] = mangled

	if !rec.IsComplete {
		t.Root.Nodes = append(t.Root.Nodes, target.TypeAliasDecl{Name: mangled, Pub: true, Typ: target.OpaqueType{}})
		t.Opaque[rec.ID] = true
		return target.Ident{Name: mangled}, nil
	}

	if reason, demote := t.demotionReason(rec); demote {
		t.emitOpaque(rec.ID, mangled, reason)
		return target.Ident{Name: mangled}, nil
	}

	fields := make([]target.StructField, 0, len(rec.Fields))
	anon := 0
	for i, f := range rec.Fields {
		ft, err := t.Translate(f.Type)
		if err != nil {
			t.emitOpaque(rec.ID, mangled, fmt.Sprintf("member %q: %v", f.Name, err))
			return target.Ident{Name: mangled}, nil
		}
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("unnamed_%d", anon)
			anon++
			t.AnonFieldNames[ctypes.FieldKey(rec.ID, i)] = name
		}
		fields = append(fields, target.StructField{Name: name, Typ: ft})
	}

	t.Root.Nodes = append(t.Root.Nodes, target.StructDecl{
		Name:   mangled,
		Pub:    true,
		Union:  rec.Kind == ctypes.Union,
		Fields: fields,
	})
	return target.Ident{Name: mangled}, nil
}

func (t *Translator) emitOpaque(id ctypes.DeclID, mangled, reason string) {
	fmt.Fprintf(t.Diag, "%s: warning: %s demoted to opaque: %s\n", t.location(), mangled, reason)
	t.Root.Nodes = append(t.Root.Nodes,
		target.Comment{Text: fmt.Sprintf("%s demoted to opaque: %s", mangled, reason)},
		target.TypeAliasDecl{Name: mangled, Pub: true, Typ: target.OpaqueType{}},
	)
	t.Opaque[id] = true
}

func (t *Translator) demotionReason(rec *ctypes.Record) (string, bool) {
	if rec.HasBitfield() {
		return "bit-field member", true
	}
	if rec.HasFlexibleArrayMember() {
		return "flexible array member", true
	}
	return "", false
}

func recordDesiredName(rec *ctypes.Record) string {
	if rec.Name == "" {
		return "anon_struct"
	}
	if rec.Kind == ctypes.Union {
		return "union_" + rec.Name
	}
	return "struct_" + rec.Name
}

// TranslateEnum translates (and, on first visit, emits) an enum,
// returning an identifier referencing its top-level decl (spec.md §4.C).
func (t *Translator) TranslateEnum(en *ctypes.Enum) (target.TypeExpr, error) {
	if name, ok := t.Names[en.ID]; ok {
		return target.Ident{Name: name}, nil
	}

	mangled := t.Resolver.MakeMangledName(t.Root, "enum_"+nonEmpty(en.Name, "anon"))
	t.Names[en.ID] = mangled

	underlying, err := t.Translate(ctypes.QualType{Type: defaultEnumUnderlying(en)})
	if err != nil {
		return nil, err
	}

	if !en.AnyExplicitValue() {
		names := make([]string, len(en.Enumerators))
		for i, m := range en.Enumerators {
			names[i] = m.Name
		}
		t.Root.Nodes = append(t.Root.Nodes, target.EnumTagDecl{Name: mangled, Pub: true, Underlying: underlying, Enumerators: names})
	} else {
		t.Root.Nodes = append(t.Root.Nodes, target.Comment{Text: fmt.Sprintf("enum %s has explicit values, emitted as individual constants", mangled)})
		for _, m := range en.Enumerators {
			t.Root.Nodes = append(t.Root.Nodes, target.ConstDecl{
				Name:  m.Name,
				Pub:   true,
				Typ:   underlying,
				Value: target.IntLit{Value: m.Value},
			})
		}
	}

	// Enumerators are also visible at the top level as aliases to the
	// tagged form, because C enumerators are globally visible (spec.md §4.C).
	if !en.AnyExplicitValue() {
		for _, m := range en.Enumerators {
			if t.Root.Symbols[m.Name] {
				continue
			}
			t.Root.Symbols[m.Name] = true
			t.Root.Nodes = append(t.Root.Nodes, target.ConstDecl{
				Name: m.Name, Pub: true,
				Value: target.Field{Base: target.Ident{Name: mangled}, Name: m.Name},
			})
		}
	}

	return target.Ident{Name: mangled}, nil
}

func defaultEnumUnderlying(en *ctypes.Enum) ctypes.Type {
	if en.Underlying != nil {
		return en.Underlying
	}
	return ctypes.Builtin{Kind: ctypes.Int}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
