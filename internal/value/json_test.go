package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPreservesKeyOrder(t *testing.T) {
	v, err := Unmarshal([]byte(`{"sql":"SELECT 1","id":3,"arguments":[1,"a",null]}`))
	require.NoError(t, err)

	m, err := AsMap(v)
	require.NoError(t, err)
	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, String("sql"), entries[0].Key)
	assert.Equal(t, String("id"), entries[1].Key)
	assert.Equal(t, String("arguments"), entries[2].Key)
	assert.Equal(t, List{Int32(1), String("a"), Null{}}, entries[2].Value)
}

func TestUnmarshalNumbers(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"0", Int32(0)},
		{"-2147483648", Int32(math.MinInt32)},
		{"2147483648", Int64(2147483648)},
		{"9007199254740993", Int64(9007199254740993)},
		{"1.5", Float64(1.5)},
		{"1e3", Float64(1000)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Unmarshal([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalRejectsTrailingData(t *testing.T) {
	_, err := Unmarshal([]byte(`{} {}`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`99999999999999999999`))
	assert.Error(t, err)
}

func TestMarshal(t *testing.T) {
	v := NewMap(
		E("columns", List{String("id"), String("name")}),
		E("rows", List{List{Int64(1), String("<tag>")}, List{Int64(2), Null{}}}),
		E("ratio", Float64(0.25)),
		E("ok", Bool(false)),
	)

	data, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"columns":["id","name"],"rows":[[1,"<tag>"],[2,null]],"ratio":0.25,"ok":false}`, string(data))
}

func TestMarshalErrors(t *testing.T) {
	_, err := Marshal(Float64(math.Inf(1)))
	assert.Error(t, err)

	_, err = Marshal(NewMap(Entry{Key: Int32(1), Value: Null{}}))
	assert.Error(t, err)
}

func TestMapParticipatesInEncodingJSON(t *testing.T) {
	type envelope struct {
		Args Map `json:"args"`
	}
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{"args":{"b":1,"a":2}}`), &env))
	assert.Equal(t, 2, env.Args.Len())

	out, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Equal(t, `{"args":{"b":1,"a":2}}`, string(out))
}
