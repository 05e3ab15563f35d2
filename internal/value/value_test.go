package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = Bool(true)
	var _ Value = Int32(1)
	var _ Value = Int64(1)
	var _ Value = Float64(1.5)
	var _ Value = String("s")
	var _ Value = List{Int32(1)}
	var _ Value = NewMap(E("k", String("v")))
}

func TestNewMapKeepsOrderAndReplacesDuplicates(t *testing.T) {
	m := NewMap(
		E("zebra", Int32(1)),
		E("apple", Int32(2)),
		E("zebra", Int32(3)),
	)

	require.Equal(t, 2, m.Len())
	entries := m.Entries()
	assert.Equal(t, String("zebra"), entries[0].Key)
	assert.Equal(t, Int32(3), entries[0].Value)
	assert.Equal(t, String("apple"), entries[1].Key)
}

func TestMapLookupTreatsNullAsMissing(t *testing.T) {
	m := NewMap(E("present", String("x")), E("nothing", Null{}))

	v, ok := m.Lookup("present")
	assert.True(t, ok)
	assert.Equal(t, String("x"), v)

	_, ok = m.Lookup("nothing")
	assert.False(t, ok)

	_, ok = m.Lookup("absent")
	assert.False(t, ok)

	v, ok = m.Get(String("nothing"))
	assert.True(t, ok)
	assert.Equal(t, Null{}, v)
}

func TestAccessorsRejectWrongVariant(t *testing.T) {
	_, err := AsString(Int32(5))
	require.Error(t, err)

	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, KindString, tm.Want)
	assert.Equal(t, KindInt32, tm.Got)
	assert.Equal(t, "type mismatch: want string, got int32", err.Error())

	_, err = AsInt64(Int32(5))
	assert.Error(t, err, "no implicit widening")

	_, err = AsBool(nil)
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, KindNull, tm.Got)
}

func TestAsInteger(t *testing.T) {
	n, err := AsInteger(Int32(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = AsInteger(Int64(1 << 40))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), n)

	_, err = AsInteger(Float64(1))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same int32", Int32(1), Int32(1), true},
		{"int widths differ", Int32(1), Int64(1), false},
		{"nan equals nan", Float64(math.NaN()), Float64(math.NaN()), true},
		{"nested list", List{List{String("a")}}, List{List{String("a")}}, true},
		{"list length", List{Int32(1)}, List{}, false},
		{"map order matters", NewMap(E("a", Null{}), E("b", Null{})), NewMap(E("b", Null{}), E("a", Null{})), false},
		{"map equal", NewMap(E("a", Bool(true))), NewMap(E("a", Bool(true))), true},
		{"null vs nil", Null{}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(Null{}))
	assert.True(t, IsEmpty(List{}))
	assert.True(t, IsEmpty(NewMap()))
	assert.False(t, IsEmpty(Int32(0)))
	assert.False(t, IsEmpty(String("")))
	assert.False(t, IsEmpty(List{Null{}}))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "map", KindMap.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
