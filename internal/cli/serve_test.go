package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/channel"
)

func TestServeRoundTrip(t *testing.T) {
	configFile, _ := testConfig(t)

	input := strings.Join([]string{
		`{"id":1,"method":"openDatabase","arguments":{"path":"serve.db"}}`,
		`{"id":2,"method":"execute","arguments":{"id":1,"sql":"CREATE TABLE t (x INTEGER)"}}`,
		`{"id":3,"method":"insert","arguments":{"id":1,"sql":"INSERT INTO t VALUES (?)","arguments":[5]}}`,
		`{"id":4,"method":"query","arguments":{"id":1,"sql":"SELECT x FROM t"}}`,
		`{"id":5,"method":"nope"}`,
		`{"id":6,"method":"closeDatabase","arguments":{"id":1}}`,
	}, "\n") + "\n"

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", configFile, "serve"})
	require.NoError(t, cmd.Execute())

	var responses []channel.Response
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var resp channel.Response
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	require.Len(t, responses, 6)

	assert.JSONEq(t, `{"id":1}`, string(responses[0].Result))
	assert.Equal(t, channel.StatusSuccess, responses[1].Status)
	assert.Empty(t, responses[1].Result)
	assert.JSONEq(t, `1`, string(responses[2].Result))
	assert.JSONEq(t, `{"columns":["x"],"rows":[[5]]}`, string(responses[3].Result))
	assert.Equal(t, channel.StatusNotImplemented, responses[4].Status)
	assert.JSONEq(t, `6`, string(responses[5].ID))
	assert.Equal(t, channel.StatusSuccess, responses[5].Status)
}

func TestServeRejectsArgs(t *testing.T) {
	configFile, _ := testConfig(t)
	_, _, err := execute(t, "--config", configFile, "serve", "extra")
	require.Error(t, err)
}
