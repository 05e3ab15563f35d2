package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/value"
)

// Matches reports whether got satisfies want.
//
// Maps in want match as subsets of got. Lists must match element by element.
// Int32 and Int64 compare by value. A Null want matches a missing value.
func Matches(want, got value.Value) bool {
	switch w := want.(type) {
	case nil, value.Null:
		if got == nil {
			return true
		}
		_, ok := got.(value.Null)
		return ok
	case value.Int32, value.Int64:
		wn, _ := value.AsInteger(w)
		gn, err := value.AsInteger(got)
		return err == nil && wn == gn
	case value.List:
		g, ok := got.(value.List)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !Matches(w[i], g[i]) {
				return false
			}
		}
		return true
	case value.Map:
		g, ok := got.(value.Map)
		if !ok {
			return false
		}
		for _, e := range w.Entries() {
			gv, ok := g.Get(e.Key)
			if !ok || !Matches(e.Value, gv) {
				return false
			}
		}
		return true
	default:
		return value.Equal(want, got)
	}
}

func evaluateAssertions(p *plugin.Plugin, assertions []Assertion) []string {
	var problems []string
	for i, a := range assertions {
		if err := evaluateAssertion(p, a); err != nil {
			problems = append(problems, fmt.Sprintf("assertion %d (%s): %v", i+1, a.Type, err))
		}
	}
	return problems
}

func evaluateAssertion(p *plugin.Plugin, a Assertion) error {
	switch a.Type {
	case AssertOpenSessions:
		if got := p.Registry().Count(); got != a.Count {
			return fmt.Errorf("expected %d open sessions, got %d", a.Count, got)
		}
	case AssertFileExists, AssertFileAbsent:
		path := a.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.DatabasesDir(), path)
		}
		_, err := os.Stat(path)
		exists := err == nil
		if a.Type == AssertFileExists && !exists {
			return fmt.Errorf("expected %s to exist", a.Path)
		}
		if a.Type == AssertFileAbsent && exists {
			return fmt.Errorf("expected %s to be absent", a.Path)
		}
	default:
		return fmt.Errorf("unknown assertion type")
	}
	return nil
}
