package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbridge/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Transcript bool
}

// ScenarioReport is the JSON form of one scenario result.
type ScenarioReport struct {
	Name       string          `json:"name"`
	File       string          `json:"file"`
	Pass       bool            `json:"pass"`
	Errors     []string        `json:"errors,omitempty"`
	Transcript json.RawMessage `json:"transcript,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir>...",
		Short: "Replay call scenarios against a fresh router",
		Long: `Runs each scenario file against its own router with a temporary databases
directory and checks the recorded expectations and assertions.

Directories are searched for *.yaml and *.yml files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Transcript, "transcript", false, "print the call transcript of each scenario")

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *RunOptions, args []string) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	files, err := scenarioFiles(args)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	cfg, err := loadConfig(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	h := harness.New(harness.WithLogger(newLogger(cmd.ErrOrStderr(), cfg, opts.RootOptions)))

	var reports []ScenarioReport
	failed := 0
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
		}
		formatter.VerboseLog("running %s (%d calls)", scenario.Name, len(scenario.Calls))

		result, err := h.Run(cmd.Context(), scenario)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s", scenario.Name), err)
		}
		if !result.Pass {
			failed++
		}

		report := ScenarioReport{Name: scenario.Name, File: file, Pass: result.Pass, Errors: result.Errors}
		if opts.Transcript {
			transcript, err := harness.MarshalTranscript(result.Transcript)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to encode transcript", err)
			}
			report.Transcript = transcript
		}
		reports = append(reports, report)
	}

	if opts.Format == "json" {
		for i := range reports {
			reports[i].Transcript = transcriptArray(reports[i].Transcript)
		}
		if err := formatter.Success(reports); err != nil {
			return err
		}
	} else {
		printReports(formatter, reports)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failed, len(reports)))
	}
	return nil
}

func printReports(f *OutputFormatter, reports []ScenarioReport) {
	w := f.Writer
	for _, r := range reports {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s\n", status, r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
		if len(r.Transcript) > 0 {
			for _, line := range strings.Split(strings.TrimRight(string(r.Transcript), "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}

// transcriptArray turns JSON lines into a JSON array.
func transcriptArray(lines json.RawMessage) json.RawMessage {
	if len(lines) == 0 {
		return nil
	}
	parts := strings.Split(strings.TrimRight(string(lines), "\n"), "\n")
	return json.RawMessage("[" + strings.Join(parts, ",") + "]")
}

// scenarioFiles expands directories into their YAML files, sorted by name.
func scenarioFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
