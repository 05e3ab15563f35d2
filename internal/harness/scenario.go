package harness

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlbridge/internal/value"
)

// Scenario is a sequence of calls with expectations.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Options seeds the global options before the first call.
	Options *ScenarioOptions `yaml:"options,omitempty"`

	// Calls run in order against one plugin.
	Calls []Call `yaml:"calls"`

	// Assertions are checked after the last call.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioOptions seeds the global options.
type ScenarioOptions struct {
	QueryAsMapList bool `yaml:"query_as_map_list"`
	LogLevel       int  `yaml:"log_level"`
}

// Call is one method call.
type Call struct {
	Method string `yaml:"method"`

	// Args is kept as a node so that map order survives into the transcript.
	Args yaml.Node `yaml:"args,omitempty"`

	// Expect is optional. Without it any reply is accepted.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the reply a call must produce.
type Expect struct {
	// Status is success, error or not_implemented.
	Status string `yaml:"status"`

	// Result is matched against a success value. The literal null expects
	// a success without a value.
	Result yaml.Node `yaml:"result,omitempty"`

	// Error is matched against an error reply.
	Error *ExpectError `yaml:"error,omitempty"`
}

// ExpectError matches an error reply. Empty fields are not checked.
type ExpectError struct {
	Code string `yaml:"code"`
	// Message matches when the reply message contains it.
	Message string `yaml:"message,omitempty"`
}

// Assertion validates state after the calls.
type Assertion struct {
	// Type is open_sessions, file_exists or file_absent.
	Type string `yaml:"type"`

	// Count is the expected number of open sessions.
	Count int `yaml:"count,omitempty"`

	// Path is the file checked by file_exists and file_absent.
	Path string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertOpenSessions = "open_sessions"
	AssertFileExists   = "file_exists"
	AssertFileAbsent   = "file_absent"
)

// Reply status constants.
const (
	StatusSuccess        = "success"
	StatusError          = "error"
	StatusNotImplemented = "not_implemented"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so that typos do not silently skip checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Calls) == 0 {
		return fmt.Errorf("calls list is required and must be non-empty")
	}

	for i, c := range s.Calls {
		if c.Method == "" {
			return fmt.Errorf("calls[%d]: method is required", i)
		}
		if _, err := nodeToValue(&c.Args); err != nil {
			return fmt.Errorf("calls[%d]: args: %w", i, err)
		}
		if c.Expect == nil {
			continue
		}
		switch c.Expect.Status {
		case StatusSuccess, StatusError, StatusNotImplemented:
		default:
			return fmt.Errorf("calls[%d]: unknown expect status %q", i, c.Expect.Status)
		}
		if _, err := nodeToValue(&c.Expect.Result); err != nil {
			return fmt.Errorf("calls[%d]: expect.result: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertOpenSessions:
		case AssertFileExists, AssertFileAbsent:
			if a.Path == "" {
				return fmt.Errorf("assertions[%d]: %s requires path", i, a.Type)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}

// nodeToValue converts a YAML node into a Value, preserving mapping order.
// An absent node converts to nil.
func nodeToValue(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeToValue(n.Content[0])
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	case yaml.SequenceNode:
		list := make(value.List, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := nodeToValue(child)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		entries := make([]value.Entry, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: map keys must be scalars", key.Line)
			}
			v, err := nodeToValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			entries = append(entries, value.E(key.Value, v))
		}
		return value.NewMap(entries...), nil
	case yaml.ScalarNode:
		return scalarToValue(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

func scalarToValue(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return value.Int32(int32(i)), nil
		}
		return value.Int64(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var d float64
			if derr := n.Decode(&d); derr != nil {
				return nil, derr
			}
			f = d
		}
		return value.Float64(f), nil
	default:
		return value.String(n.Value), nil
	}
}
