// Package coerce implements component E: the cast and coercion engine
// (spec.md §4, "Cast engine (4.E)"). Given a source type, destination
// type, and an already-lowered Target expression, it produces the
// Target expression for the cast, choosing among @ptrCast/@intCast/
// @truncate/@bitCast/@floatCast/@intToFloat/@floatToInt/@boolToInt/
// @intToEnum/@enumToInt/@intToPtr/@ptrToInt/@as the same way the
// lowerer's literal-typing and the macro parser's operator hygiene both
// need to (spec.md's DESIGN NOTES: "keep the cast-engine and literal-
// normaliser as shared helpers rather than duplicating logic").
package coerce

import (
	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/target"
)

// intRank orders C's integer kinds on the width ladder spec.md §4.E
// names: char < short < int < long < long long < int128. Signedness is
// tracked separately by IsSigned.
var intRank = map[ctypes.BuiltinKind]int{
	ctypes.Bool:              0,
	ctypes.Char:               1,
	ctypes.SignedChar:         1,
	ctypes.UnsignedChar:       1,
	ctypes.Short:              2,
	ctypes.UnsignedShort:      2,
	ctypes.Int:                3,
	ctypes.UnsignedInt:        3,
	ctypes.Long:               4,
	ctypes.UnsignedLong:       4,
	ctypes.LongLong:           5,
	ctypes.UnsignedLongLong:   5,
	ctypes.Int128:             6,
	ctypes.UInt128:            6,
}

var unsignedKinds = map[ctypes.BuiltinKind]bool{
	ctypes.Bool:              true,
	ctypes.UnsignedChar:       true,
	ctypes.UnsignedShort:      true,
	ctypes.UnsignedInt:        true,
	ctypes.UnsignedLong:       true,
	ctypes.UnsignedLongLong:   true,
	ctypes.UInt128:            true,
}

// TargetPrimitive names an integer builtin kind's Target type (not a
// full typetrans.Translate: the cast engine only ever needs the bare
// ladder's own kinds, never a typedef/record/enum).
func TargetPrimitive(k ctypes.BuiltinKind) target.TypeExpr {
	names := map[ctypes.BuiltinKind]string{
		ctypes.Bool: "bool", ctypes.Char: "i8", ctypes.SignedChar: "i8", ctypes.UnsignedChar: "u8",
		ctypes.Short: "c_short", ctypes.UnsignedShort: "c_ushort",
		ctypes.Int: "c_int", ctypes.UnsignedInt: "c_uint",
		ctypes.Long: "c_long", ctypes.UnsignedLong: "c_ulong",
		ctypes.LongLong: "c_longlong", ctypes.UnsignedLongLong: "c_ulonglong",
		ctypes.Int128: "i128", ctypes.UInt128: "u128",
		ctypes.Float: "f32", ctypes.Double: "f64", ctypes.LongDouble: "c_longdouble",
		ctypes.Float128: "f128", ctypes.Float16: "f16",
		ctypes.Void: "c_void",
	}
	return target.Ident{Name: names[k]}
}

func isFloat(k ctypes.BuiltinKind) bool {
	switch k {
	case ctypes.Float, ctypes.Double, ctypes.LongDouble, ctypes.Float128, ctypes.Float16:
		return true
	}
	return false
}

// Cast lowers a C cast from src to dst applied to expr, following the
// seven-step dispatch spec.md's "Cast engine (4.E)" lists. dstType is the
// already-translated Target type expression for dst (the caller — the
// lowerer's cast-expression case — has typetrans available and passes it
// through rather than this package re-deriving it).
func Cast(src, dst ctypes.QualType, dstType target.TypeExpr, expr target.Expr) target.Expr {
	srcU, dstU := ctypes.Unwrap(src), ctypes.Unwrap(dst)

	// 1. Pointer-to-pointer.
	if sp, ok := srcU.Type.(ctypes.Pointer); ok {
		if dp, ok := dstU.Type.(ctypes.Pointer); ok {
			return castPointerToPointer(sp, dp, dstType, expr)
		}
	}

	srcBuiltin, srcIsBuiltin := asBuiltin(srcU)
	dstBuiltin, dstIsBuiltin := asBuiltin(dstU)

	// 6. Int -> enum.
	if _, ok := dstU.Type.(ctypes.Enum); ok {
		return target.Intrinsic{Kind: target.IIntToEnum, TypeArg: dstType, Args: []target.Expr{expr}}
	}

	// enum participates in integer conversion by first calling @enumToInt.
	if _, ok := srcU.Type.(ctypes.Enum); ok {
		expr = target.Intrinsic{Kind: target.IEnumToInt, Args: []target.Expr{expr}}
		srcBuiltin, srcIsBuiltin = ctypes.Int, true
	}

	// 3. Integer <-> pointer.
	if srcIsBuiltin && !isFloat(srcBuiltin) && srcBuiltin != ctypes.Bool {
		if _, ok := dstU.Type.(ctypes.Pointer); ok {
			return target.Intrinsic{Kind: target.IIntToPtr, TypeArg: dstType, Args: []target.Expr{expr}}
		}
	}
	if _, ok := srcU.Type.(ctypes.Pointer); ok {
		if dstIsBuiltin && !isFloat(dstBuiltin) && dstBuiltin != ctypes.Bool {
			ptrToInt := target.Intrinsic{Kind: target.IPtrToInt, Args: []target.Expr{expr}}
			return target.Intrinsic{Kind: target.IIntCast, TypeArg: dstType, Args: []target.Expr{ptrToInt}}
		}
	}

	if srcIsBuiltin && dstIsBuiltin {
		// 5. Bool -> int.
		if srcBuiltin == ctypes.Bool && !isFloat(dstBuiltin) && dstBuiltin != ctypes.Bool {
			return target.As{Typ: dstType, Value: target.Intrinsic{Kind: target.IBoolToInt, Args: []target.Expr{expr}}}
		}
		// 4. Float <-> float, float <-> int.
		if isFloat(srcBuiltin) && isFloat(dstBuiltin) {
			return target.Intrinsic{Kind: target.IFloatCast, TypeArg: dstType, Args: []target.Expr{expr}}
		}
		if isFloat(srcBuiltin) && !isFloat(dstBuiltin) {
			return target.Intrinsic{Kind: target.IFloatToInt, TypeArg: dstType, Args: []target.Expr{expr}}
		}
		if !isFloat(srcBuiltin) && isFloat(dstBuiltin) {
			return target.Intrinsic{Kind: target.IIntToFloat, TypeArg: dstType, Args: []target.Expr{expr}}
		}
		// 2. Integer -> integer.
		return castIntToInt(srcBuiltin, dstBuiltin, dstType, expr)
	}

	// 7. Default.
	return target.As{Typ: dstType, Value: expr}
}

func asBuiltin(qt ctypes.QualType) (ctypes.BuiltinKind, bool) {
	b, ok := qt.Type.(ctypes.Builtin)
	if !ok {
		return 0, false
	}
	return b.Kind, true
}

func castPointerToPointer(sp, dp ctypes.Pointer, dstType target.TypeExpr, expr target.Expr) target.Expr {
	if dropsQualifiers(sp.Pointee.Quals, dp.Pointee.Quals) {
		ptrToInt := target.Intrinsic{Kind: target.IPtrToInt, Args: []target.Expr{expr}}
		return target.Intrinsic{Kind: target.IIntToPtr, TypeArg: dstType, Args: []target.Expr{ptrToInt}}
	}
	if isVoidOrOpaquePointee(dp.Pointee) {
		return target.Intrinsic{Kind: target.IPtrCast, TypeArg: dstType, Args: []target.Expr{expr}}
	}
	child := dstType
	switch pt := dstType.(type) {
	case target.CPointer:
		child = pt.Elem
	case target.SinglePointer:
		child = pt.Elem
	}
	alignOf := target.Intrinsic{Kind: target.IAlignOf, TypeArg: child}
	aligned := target.Intrinsic{Kind: target.IAlignCast, Args: []target.Expr{alignOf, expr}}
	return target.Intrinsic{Kind: target.IPtrCast, TypeArg: dstType, Args: []target.Expr{aligned}}
}

func dropsQualifiers(src, dst ctypes.Qualifiers) bool {
	return (src.Const && !dst.Const) || (src.Volatile && !dst.Volatile)
}

func isVoidOrOpaquePointee(qt ctypes.QualType) bool {
	u := ctypes.Unwrap(qt)
	if b, ok := u.Type.(ctypes.Builtin); ok {
		return b.Kind == ctypes.Void
	}
	if rec, ok := u.Type.(ctypes.Record); ok {
		return !rec.IsComplete
	}
	return false
}

func castIntToInt(src, dst ctypes.BuiltinKind, dstType target.TypeExpr, expr target.Expr) target.Expr {
	srcRank, dstRank := intRank[src], intRank[dst]

	switch {
	case dstRank < srcRank:
		// Narrowing.
		return target.Intrinsic{Kind: target.ITruncate, TypeArg: dstType, Args: []target.Expr{expr}}
	case dstRank > srcRank:
		// Widening. Same signedness: @as is enough; different signedness
		// still needs the final @bitCast to pick up the new sign.
		widened := target.Expr(target.As{Typ: dstType, Value: expr})
		if unsignedKinds[src] != unsignedKinds[dst] {
			return target.Intrinsic{Kind: target.IBitCast, TypeArg: dstType, Args: []target.Expr{widened}}
		}
		return widened
	default:
		// Same width, signedness changes (or no-op): @bitCast.
		if unsignedKinds[src] != unsignedKinds[dst] {
			return target.Intrinsic{Kind: target.IBitCast, TypeArg: dstType, Args: []target.Expr{expr}}
		}
		return target.As{Typ: dstType, Value: expr}
	}
}

// IsBoolResult identifies Target nodes whose value is already a bool, so
// the boolean-conversion logic in the lowerer (spec.md §4.D) can skip a
// redundant `!= 0` / `!= null` wrap.
func IsBoolResult(e target.Expr) bool {
	switch v := e.(type) {
	case target.BoolLit:
		return true
	case target.Unary:
		return v.Op == target.UNot
	case target.Binary:
		switch v.Op {
		case target.BEq, target.BNe, target.BLt, target.BLe, target.BGt, target.BGe, target.BLogAnd, target.BLogOr:
			return true
		}
	}
	return false
}

// ToBool converts an arbitrary C scalar-result expression to a Target
// bool: integers via `!= 0`, pointers via `!= null`, booleans pass through.
// There is no separate null-pointer-constant case: ctypes has no nullptr
// type, so every non-pointer source takes the `!= 0` branch.
func ToBool(srcType ctypes.QualType, e target.Expr) target.Expr {
	if IsBoolResult(e) {
		return e
	}
	u := ctypes.Unwrap(srcType)
	if _, ok := u.Type.(ctypes.Pointer); ok {
		return target.Binary{Op: target.BNe, LHS: e, RHS: target.NullLit{}}
	}
	return target.Binary{Op: target.BNe, LHS: e, RHS: target.IntLit{Value: 0}}
}

// ToInt wraps a bool-typed expression in @boolToInt where C expects an
// integer (function argument, arithmetic operand), per spec.md §4.D.
func ToInt(e target.Expr) target.Expr {
	return target.Intrinsic{Kind: target.IBoolToInt, Args: []target.Expr{e}}
}

// IntLiteral builds the `@as(T, N)` wrapper spec.md §4.D requires for
// every integer literal; suppressAs lets a caller (an assignment or
// initializer whose destination already constrains the type) fold it
// away to a bare literal, matching the "ExprCoercing path" spec.md
// describes.
func IntLiteral(litType target.TypeExpr, value int64, radix int, suppressAs bool) target.Expr {
	lit := target.IntLit{Value: value, Radix: radix}
	if suppressAs {
		return lit
	}
	return target.As{Typ: litType, Value: lit}
}
