package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/value"
)

// MarshalTranscript encodes a transcript as one JSON object per line:
//
//	{"seq":1,"method":"openDatabase","args":{...},"status":"success","result":{...}}
//	{"seq":2,"method":"query","args":{...},"status":"error","error":{"code":...,"message":...}}
//
// Absent args, results and error details are omitted.
func MarshalTranscript(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range entries {
		fields := []value.Entry{
			value.E("seq", value.Int64(e.Seq)),
			value.E("method", value.String(e.Method)),
		}
		if e.Args != nil {
			fields = append(fields, value.E("args", e.Args))
		}
		fields = append(fields, value.E("status", value.String(statusOf(e.Reply))))

		switch e.Reply.Kind {
		case plugin.ReplySuccess:
			if e.Reply.Value != nil {
				fields = append(fields, value.E("result", e.Reply.Value))
			}
		case plugin.ReplyError:
			errFields := []value.Entry{
				value.E("code", value.String(e.Reply.Code)),
				value.E("message", value.String(e.Reply.Message)),
			}
			if e.Reply.Details != nil {
				errFields = append(errFields, value.E("details", e.Reply.Details))
			}
			fields = append(fields, value.E("error", value.NewMap(errFields...)))
		}

		line, err := value.Marshal(value.NewMap(fields...))
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", e.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	transcript, err := MarshalTranscript(result.Transcript)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, transcript)
	return result, nil
}
