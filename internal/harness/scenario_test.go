package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/value"
)

func TestParseScenario_PreservesArgOrder(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: order
description: "args keep their order"
calls:
  - method: execute
    args: { sql: "SELECT 1", id: 1, arguments: [1, 2.5, true, null, big, 3000000000] }
`))
	require.NoError(t, err)

	args, err := nodeToValue(&s.Calls[0].Args)
	require.NoError(t, err)

	want := value.NewMap(
		value.E("sql", value.String("SELECT 1")),
		value.E("id", value.Int32(1)),
		value.E("arguments", value.List{
			value.Int32(1), value.Float64(2.5), value.Bool(true), value.Null{},
			value.String("big"), value.Int64(3000000000),
		}),
	)
	assert.True(t, value.Equal(want, args))
	data, err := value.Marshal(args)
	require.NoError(t, err)
	assert.Equal(t, `{"sql":"SELECT 1","id":1,"arguments":[1,2.5,true,null,"big",3000000000]}`, string(data))
}

func TestParseScenario_AbsentArgsAreNil(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bare
description: "no args"
calls:
  - method: getPlatformVersion
`))
	require.NoError(t, err)

	args, err := nodeToValue(&s.Calls[0].Args)
	require.NoError(t, err)
	assert.Nil(t, args)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "description: d\ncalls: [{method: m}]\n"},
		{"missing description", "name: n\ncalls: [{method: m}]\n"},
		{"no calls", "name: n\ndescription: d\n"},
		{"missing method", "name: n\ndescription: d\ncalls: [{args: {}}]\n"},
		{"unknown field", "name: n\ndescription: d\ncals: []\n"},
		{"unknown status", "name: n\ndescription: d\ncalls: [{method: m, expect: {status: ok}}]\n"},
		{"unknown assertion", "name: n\ndescription: d\ncalls: [{method: m}]\nassertions: [{type: table_rows}]\n"},
		{"file assertion without path", "name: n\ndescription: d\ncalls: [{method: m}]\nassertions: [{type: file_exists}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: s\ndescription: d\ncalls: [{method: getPlatformVersion}]\n"), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "s", s.Name)
	assert.Len(t, s.Calls, 1)
}
