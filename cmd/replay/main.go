package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/config"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/engine"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/replay"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/trace"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	tracePath := flag.String("trace", "", "path to msgpack trace (trace mode)")
	platformPath := flag.String("platform", "", "platform YAML for trace mode (empty uses the reference platform)")
	verbose := flag.Bool("v", false, "print every record in trace mode")
	flag.Parse()

	if (*tracePath == "" && *fixturePath == "") || (*tracePath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --trace path/to/trace.msgpack [--platform platform.yaml] [-v]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runTraceMode(*tracePath, *platformPath, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region trace-mode

func runTraceMode(path, platformPath string, verbose bool) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open trace: %v\n", err)
		return 2
	}
	defer f.Close()

	records, err := trace.ReadAll(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read trace: %v\n", err)
		return 2
	}

	cfg, err := replayConfig(platformPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load platform: %v\n", err)
		return 2
	}

	results, final := replay.Replay(records, cfg)
	if verbose {
		for _, r := range results {
			fmt.Printf("%-6d| %-11s| %-8s| %s\n", r.Seq, r.Kind, r.Action(), decisionNames(r))
		}
		fmt.Println()
	}
	printSummary(replay.Summarize(results, final), cfg.Engine)

	for _, r := range results {
		if r.Err != "" {
			return 1
		}
	}
	return 0
}

func replayConfig(platformPath string) (replay.ReplayConfig, error) {
	if platformPath == "" {
		return replay.DefaultReplayConfig()
	}
	p, err := config.Load(platformPath)
	if err != nil {
		return replay.ReplayConfig{}, err
	}
	cfg, err := engine.ConfigFromPlatform(p)
	if err != nil {
		return replay.ReplayConfig{}, err
	}
	return replay.ReplayConfig{Engine: cfg}, nil
}

func decisionNames(r replay.ReplayResult) string {
	if r.Err != "" {
		return "error: " + r.Err
	}
	s := ""
	for i, d := range r.Decisions {
		if i > 0 {
			s += ", "
		}
		s += d.Category + ":" + d.Name
	}
	return s
}

func printSummary(s replay.ReplaySummary, cfg engine.Config) {
	fmt.Printf("Records: %d | Frames: %d | Writes: %d | Errors: %d\n",
		s.TotalRecords, s.Frames, s.Writes, s.Errors)
	fmt.Printf("Select: %d | Hold: %d | Restore: %d | Skip: %d | Throttle: %d\n",
		s.Selects, s.Holds, s.Restores, s.Skips, s.Throttles)
	name := "none"
	if s.Final.Scenario.Valid() {
		name = cfg.Catalog.Name(s.Final.Scenario)
	}
	fmt.Printf("Final scenario: %s | limited fps: %d\n", name, s.Final.LimitedFPS)
}

// #endregion trace-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	cfg, err := f.ToReplayConfig(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load platform: %v\n", err)
		return 2
	}

	results, _ := replay.Replay(f.Records, cfg)
	return printComparison(results, f.ExpectedResults)
}

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult) int {
	failed := make(map[string]string)
	for _, m := range replay.Compare(results, expected) {
		failed[fmt.Sprintf("%d %s", m.Seq, m.Want)] = m.Got
	}

	fmt.Printf("%-6s| %-42s| %-42s| %s\n", "Seq", "Expected", "Replayed", "Match")
	fmt.Printf("%-6s+%-43s+%-43s+%s\n",
		"------", "-------------------------------------------", "-------------------------------------------", "------")

	for _, e := range expected {
		want := fmt.Sprintf("%s %s %s", e.Category, e.Action, e.Scenario)
		got, diff := failed[fmt.Sprintf("%d %s", e.Seq, want)]
		match := "OK"
		if diff {
			match = "DIFF"
		} else {
			got = want
		}
		fmt.Printf("%-6d| %-42s| %-42s| %s\n", e.Seq, want, got, match)
	}

	diverge := len(failed)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(expected), len(expected)-diverge, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion fixture-mode
