package coerce

import (
	"testing"

	"github.com/anvil-lang/c2z/internal/ctypes"
	"github.com/anvil-lang/c2z/internal/target"
)

func qt(k ctypes.BuiltinKind) ctypes.QualType {
	return ctypes.QualType{Type: ctypes.Builtin{Kind: k}}
}

func TestCastNarrowingUsesTruncate(t *testing.T) {
	e := target.Ident{Name: "x"}
	got := Cast(qt(ctypes.Long), qt(ctypes.Short), TargetPrimitive(ctypes.Short), e)
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.ITruncate {
		t.Fatalf("expected @truncate, got %#v", got)
	}
}

func TestCastWideningSameSignConvertsWithAs(t *testing.T) {
	e := target.Ident{Name: "x"}
	got := Cast(qt(ctypes.Int), qt(ctypes.Long), TargetPrimitive(ctypes.Long), e)
	as, ok := got.(target.As)
	if !ok {
		t.Fatalf("expected @as, got %#v", got)
	}
	if as.Value != e {
		t.Fatalf("expected value passthrough, got %#v", as.Value)
	}
}

func TestCastWideningDifferentSignBitCasts(t *testing.T) {
	e := target.Ident{Name: "x"}
	got := Cast(qt(ctypes.Int), qt(ctypes.UnsignedLong), TargetPrimitive(ctypes.UnsignedLong), e)
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IBitCast {
		t.Fatalf("expected @bitCast wrapping the widened value, got %#v", got)
	}
}

func TestCastSameWidthDifferentSignBitCasts(t *testing.T) {
	e := target.Ident{Name: "x"}
	got := Cast(qt(ctypes.Int), qt(ctypes.UnsignedInt), TargetPrimitive(ctypes.UnsignedInt), e)
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IBitCast {
		t.Fatalf("expected @bitCast, got %#v", got)
	}
}

func TestCastIntToPointer(t *testing.T) {
	e := target.Ident{Name: "n"}
	dst := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Void)}}
	got := Cast(qt(ctypes.Long), dst, target.SinglePointer{Elem: target.OpaqueType{}}, e)
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IIntToPtr {
		t.Fatalf("expected @intToPtr, got %#v", got)
	}
}

func TestCastPointerToInt(t *testing.T) {
	src := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Void)}}
	e := target.Ident{Name: "p"}
	got := Cast(src, qt(ctypes.Long), TargetPrimitive(ctypes.Long), e)
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IIntCast {
		t.Fatalf("expected outer @intCast wrapping @ptrToInt, got %#v", got)
	}
	inner, ok := in.Args[0].(target.Intrinsic)
	if !ok || inner.Kind != target.IPtrToInt {
		t.Fatalf("expected @ptrToInt inside, got %#v", in.Args[0])
	}
}

func TestCastBoolToInt(t *testing.T) {
	e := target.Ident{Name: "b"}
	got := Cast(qt(ctypes.Bool), qt(ctypes.Int), TargetPrimitive(ctypes.Int), e)
	as, ok := got.(target.As)
	if !ok {
		t.Fatalf("expected @as wrapper, got %#v", got)
	}
	if in, ok := as.Value.(target.Intrinsic); !ok || in.Kind != target.IBoolToInt {
		t.Fatalf("expected @boolToInt inside @as, got %#v", as.Value)
	}
}

func TestCastFloatToInt(t *testing.T) {
	got := Cast(qt(ctypes.Double), qt(ctypes.Int), TargetPrimitive(ctypes.Int), target.Ident{Name: "d"})
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IFloatToInt {
		t.Fatalf("expected @floatToInt, got %#v", got)
	}
}

func TestCastIntToFloat(t *testing.T) {
	got := Cast(qt(ctypes.Int), qt(ctypes.Double), TargetPrimitive(ctypes.Double), target.Ident{Name: "n"})
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IIntToFloat {
		t.Fatalf("expected @intToFloat, got %#v", got)
	}
}

func TestCastEnumParticipatesViaEnumToInt(t *testing.T) {
	src := ctypes.QualType{Type: ctypes.Enum{ID: 1, Name: "E", Underlying: ctypes.Builtin{Kind: ctypes.Int}}}
	got := Cast(src, qt(ctypes.Long), TargetPrimitive(ctypes.Long), target.Ident{Name: "e"})
	as, ok := got.(target.As)
	if !ok {
		t.Fatalf("expected widening @as, got %#v", got)
	}
	in, ok := as.Value.(target.Intrinsic)
	if !ok || in.Kind != target.IEnumToInt {
		t.Fatalf("expected @enumToInt applied first, got %#v", as.Value)
	}
}

func TestCastIntToEnum(t *testing.T) {
	dst := ctypes.QualType{Type: ctypes.Enum{ID: 2, Name: "E", Underlying: ctypes.Builtin{Kind: ctypes.Int}}}
	got := Cast(qt(ctypes.Int), dst, target.Ident{Name: "enum_E"}, target.Ident{Name: "n"})
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IIntToEnum {
		t.Fatalf("expected @intToEnum, got %#v", got)
	}
}

func TestCastPointerDroppingConstUsesIntRoundtrip(t *testing.T) {
	src := ctypes.QualType{Type: ctypes.Pointer{Pointee: ctypes.QualType{Type: ctypes.Builtin{Kind: ctypes.Int}, Quals: ctypes.Qualifiers{Const: true}}}}
	dst := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Int)}}
	got := Cast(src, dst, target.CPointer{Elem: TargetPrimitive(ctypes.Int)}, target.Ident{Name: "p"})
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IIntToPtr {
		t.Fatalf("expected const-dropping cast to route through @intToPtr(@ptrToInt), got %#v", got)
	}
	if inner, ok := in.Args[0].(target.Intrinsic); !ok || inner.Kind != target.IPtrToInt {
		t.Fatalf("expected @ptrToInt inside, got %#v", in.Args[0])
	}
}

func TestCastPointerToVoidPointerOmitsAlignCast(t *testing.T) {
	src := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Int)}}
	dst := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Void)}}
	got := Cast(src, dst, target.SinglePointer{Elem: target.OpaqueType{}}, target.Ident{Name: "p"})
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IPtrCast {
		t.Fatalf("expected @ptrCast, got %#v", got)
	}
	if len(in.Args) != 1 {
		t.Fatalf("expected @ptrCast to void pointee to skip align-cast, got args %#v", in.Args)
	}
}

func TestCastPointerToTypedPointerIncludesAlignCast(t *testing.T) {
	src := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Char)}}
	dst := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Int)}}
	got := Cast(src, dst, target.CPointer{Elem: TargetPrimitive(ctypes.Int)}, target.Ident{Name: "p"})
	in, ok := got.(target.Intrinsic)
	if !ok || in.Kind != target.IPtrCast {
		t.Fatalf("expected @ptrCast, got %#v", got)
	}
	aligned, ok := in.Args[0].(target.Intrinsic)
	if !ok || aligned.Kind != target.IAlignCast {
		t.Fatalf("expected @alignCast wrapping the pointer, got %#v", in.Args[0])
	}
}

func TestIsBoolResultRecognizesComparisons(t *testing.T) {
	if !IsBoolResult(target.Binary{Op: target.BEq}) {
		t.Fatal("expected == to be recognized as bool result")
	}
	if IsBoolResult(target.Binary{Op: target.BAdd}) {
		t.Fatal("+ is not a bool result")
	}
}

func TestToBoolWrapsIntegerWithNotEqualZero(t *testing.T) {
	got := ToBool(qt(ctypes.Int), target.Ident{Name: "n"})
	bin, ok := got.(target.Binary)
	if !ok || bin.Op != target.BNe || bin.RHS != (target.IntLit{Value: 0}) {
		t.Fatalf("expected n != 0, got %#v", got)
	}
}

func TestToBoolWrapsPointerWithNotEqualNull(t *testing.T) {
	src := ctypes.QualType{Type: ctypes.Pointer{Pointee: qt(ctypes.Void)}}
	got := ToBool(src, target.Ident{Name: "p"})
	bin, ok := got.(target.Binary)
	if !ok || bin.Op != target.BNe || bin.RHS != (target.NullLit{}) {
		t.Fatalf("expected p != null, got %#v", got)
	}
}

func TestToBoolPassesThroughExistingBool(t *testing.T) {
	e := target.Binary{Op: target.BEq}
	got := ToBool(qt(ctypes.Int), e)
	if got != target.Expr(e) {
		t.Fatalf("expected existing bool expression untouched, got %#v", got)
	}
}

func TestIntLiteralSuppressesAsWhenHinted(t *testing.T) {
	got := IntLiteral(TargetPrimitive(ctypes.Int), 5, 0, true)
	if _, ok := got.(target.As); ok {
		t.Fatal("expected suppressed @as wrapper")
	}
}

func TestIntLiteralWrapsWithAsByDefault(t *testing.T) {
	got := IntLiteral(TargetPrimitive(ctypes.Int), 5, 0, false)
	if _, ok := got.(target.As); !ok {
		t.Fatalf("expected @as wrapper, got %#v", got)
	}
}
