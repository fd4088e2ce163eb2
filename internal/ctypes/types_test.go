package ctypes

import "testing"

func TestRecordHasBitfield(t *testing.T) {
	r := Record{
		Name: "S",
		Fields: []Field{
			{Name: "a", Type: QualType{Type: Builtin{Kind: Int}}, IsBit: true, BitWidth: 3},
			{Name: "b", Type: QualType{Type: Builtin{Kind: Int}}},
		},
		IsComplete: true,
	}
	if !r.HasBitfield() {
		t.Fatal("expected bit-field detection")
	}
	if r.HasFlexibleArrayMember() {
		t.Fatal("did not expect a flexible array member")
	}
}

func TestRecordHasFlexibleArrayMember(t *testing.T) {
	r := Record{
		Name: "S",
		Fields: []Field{
			{Name: "len", Type: QualType{Type: Builtin{Kind: Int}}},
			{Name: "data", Type: QualType{Type: IncompleteArray{Elem: QualType{Type: Builtin{Kind: Char}}}}, Flexible: true},
		},
		IsComplete: true,
	}
	if !r.HasFlexibleArrayMember() {
		t.Fatal("expected flexible array member detection")
	}
	if r.HasBitfield() {
		t.Fatal("did not expect a bit-field")
	}
}

func TestEnumAnyExplicitValue(t *testing.T) {
	implicit := Enum{Enumerators: []Enumerator{{Name: "A", Value: 0}, {Name: "B", Value: 1}}}
	if implicit.AnyExplicitValue() {
		t.Fatal("expected no explicit values")
	}
	explicit := Enum{Enumerators: []Enumerator{{Name: "A", Value: 0}, {Name: "B", Value: 5, ExplicitValue: true}}}
	if !explicit.AnyExplicitValue() {
		t.Fatal("expected an explicit value")
	}
}

func TestUnwrapTransparentChain(t *testing.T) {
	base := QualType{Type: Record{Name: "Foo", IsComplete: true}, Quals: Qualifiers{}}
	wrapped := QualType{
		Type:  Attributed{Inner: QualType{Type: Elaborated{Named: base}, Quals: Qualifiers{Const: true}}},
		Quals: Qualifiers{Volatile: true},
	}
	got := Unwrap(wrapped)
	if _, ok := got.Type.(Record); !ok {
		t.Fatalf("expected Record after unwrap, got %T", got.Type)
	}
	if !got.Quals.Const || !got.Quals.Volatile {
		t.Fatalf("expected qualifiers to accumulate through the chain, got %+v", got.Quals)
	}
}

func TestBuiltinTypedefFastPath(t *testing.T) {
	if BuiltinTypedefFastPath["size_t"] != "usize" {
		t.Fatalf("expected size_t -> usize, got %q", BuiltinTypedefFastPath["size_t"])
	}
	if _, ok := BuiltinTypedefFastPath["not_a_typedef"]; ok {
		t.Fatal("unexpected fast-path entry")
	}
}
