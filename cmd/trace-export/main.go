package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/engine"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/replay"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/trace"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "fixture JSON to encode as a msgpack trace")
	tracePath := flag.String("trace", "", "msgpack trace to export as a fixture")
	outPath := flag.String("out", "", "output path")
	desc := flag.String("desc", "", "fixture description (trace mode)")
	flag.Parse()

	if *outPath == "" || (*fixturePath == "") == (*tracePath == "") {
		fmt.Fprintln(os.Stderr, "usage: trace-export --fixture path/to/fixture.json --out path/to/trace.msgpack")
		fmt.Fprintln(os.Stderr, "       trace-export --trace path/to/trace.msgpack --out path/to/fixture.json [--desc text]")
		os.Exit(2)
	}

	var err error
	if *fixturePath != "" {
		err = encodeFixture(*fixturePath, *outPath)
	} else {
		err = exportTrace(*tracePath, *outPath, *desc)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region encode

func encodeFixture(fixturePath, outPath string) error {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	w := trace.NewWriter(out)
	for _, r := range f.Records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("Wrote trace to %s (%d records)\n", outPath, w.Count())
	return nil
}

// #endregion encode

// #region export

func exportTrace(tracePath, outPath, desc string) error {
	in, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", tracePath, err)
	}
	defer in.Close()

	records, err := trace.ReadAll(in)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records in %s", tracePath)
	}

	cfg, err := replay.DefaultReplayConfig()
	if err != nil {
		return err
	}
	results, _ := replay.Replay(records, cfg)

	if desc == "" {
		desc = fmt.Sprintf("Trace export: %d records from %s", len(records), filepath.Base(tracePath))
	}
	fixture := replay.Fixture{
		Description:     desc,
		Records:         records,
		ExpectedResults: expectedFrom(results),
	}
	return writeFixture(fixture, outPath)
}

// expectedFrom pins every decision the reference platform makes today,
// so later replays flag any drift.
func expectedFrom(results []replay.ReplayResult) []replay.FixtureExpectedResult {
	var out []replay.FixtureExpectedResult
	for _, r := range results {
		if r.Err != "" {
			continue
		}
		for _, d := range r.Decisions {
			if d.Action == engine.ActionError || d.Name == "" {
				continue
			}
			out = append(out, replay.FixtureExpectedResult{
				Seq:      r.Seq,
				Category: d.Category,
				Action:   d.Action,
				Scenario: d.Name,
			})
		}
	}
	return out
}

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d records, %d expected)\n",
		outPath, len(data), len(fixture.Records), len(fixture.ExpectedResults))
	return nil
}

// #endregion export
