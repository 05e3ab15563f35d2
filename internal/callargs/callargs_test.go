package callargs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/value"
)

func TestMap_NilIsEmpty(t *testing.T) {
	m, err := Map(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())

	_, err = Map(value.String("x"))
	require.Error(t, err)
	assert.True(t, IsError(err))
	assert.EqualError(t, err, "invalid arguments: want map, got string")
}

func TestRequiredString(t *testing.T) {
	m := value.NewMap(
		value.E("path", value.String("/a.db")),
		value.E("empty", value.String("")),
		value.E("num", value.Int32(1)),
	)

	s, err := RequiredString(m, "path")
	require.NoError(t, err)
	assert.Equal(t, "/a.db", s)

	_, err = RequiredString(m, "empty")
	assert.EqualError(t, err, `invalid argument "empty": required`)

	_, err = RequiredString(m, "absent")
	assert.EqualError(t, err, `invalid argument "absent": required`)

	_, err = RequiredString(m, "num")
	assert.EqualError(t, err, `invalid argument "num": want string, got int32`)
}

func TestSessionID(t *testing.T) {
	m := value.NewMap(
		value.E("small", value.Int32(3)),
		value.E("wide", value.Int64(1<<20)),
		value.E("negative", value.Int32(-1)),
		value.E("huge", value.Int64(1<<40)),
	)

	id, err := SessionID(m, "small")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)

	id, err = SessionID(m, "wide")
	require.NoError(t, err)
	assert.Equal(t, uint32(1<<20), id)

	_, err = SessionID(m, "negative")
	assert.True(t, IsError(err))
	_, err = SessionID(m, "huge")
	assert.True(t, IsError(err))
	_, err = SessionID(m, "absent")
	assert.True(t, IsError(err))
}

func TestFlag_AcceptsBoolOrInteger(t *testing.T) {
	m := value.NewMap(
		value.E("b", value.Bool(true)),
		value.E("one", value.Int32(1)),
		value.E("zero", value.Int64(0)),
		value.E("null", value.Null{}),
		value.E("text", value.String("yes")),
	)

	for key, want := range map[string]bool{"b": true, "one": true, "zero": false, "null": false, "absent": false} {
		got, err := Flag(m, key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	p, err := OptionalFlag(m, "absent")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = Flag(m, "text")
	assert.True(t, IsError(err))
}

func TestList(t *testing.T) {
	m := value.NewMap(
		value.E("args", value.List{value.Int32(1)}),
		value.E("bad", value.Int32(1)),
	)

	l, err := List(m, "args")
	require.NoError(t, err)
	assert.Len(t, l, 1)

	l, err = List(m, "absent")
	require.NoError(t, err)
	assert.Empty(t, l)

	_, err = List(m, "bad")
	assert.True(t, IsError(err))
}
