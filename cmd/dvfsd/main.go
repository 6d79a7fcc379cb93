package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/applier"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/config"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/engine"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/health"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/replay"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/state"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/trace"
)

// #region main
func main() {
	platformPath := flag.String("platform", os.Getenv("DVFSD_PLATFORM"), "platform YAML (empty uses the reference platform)")
	dbPath := flag.String("db", envOr("DVFSD_DB", "dvfs_state.db"), "path to the state database")
	tracePath := flag.String("trace", "-", "msgpack trace to feed through the engine (- reads stdin)")
	addr := flag.String("addr", envOr("DVFSD_ADDR", "localhost:50061"), "health service listen address")
	stay := flag.Bool("stay", false, "keep serving health after the trace ends")
	verbose := flag.Bool("v", false, "log every decision")
	flag.Parse()

	if *verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := loadConfig(*platformPath)
	if err != nil {
		log.Fatalf("failed to load platform: %v", err)
	}
	cfg.Disabled = !enabled(os.Getenv("DVFS_ENABLED"))

	store, err := state.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	src, err := openTrace(*tracePath)
	if err != nil {
		log.Fatalf("failed to open trace: %v", err)
	}
	defer src.Close()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", *addr, err)
	}
	srv := health.NewServer()
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Printf("health server stopped: %v", err)
		}
	}()
	defer srv.Stop()

	rec := &applier.Recorder{}
	eng := engine.New(cfg, rec)
	eng.AttachStore(store)
	player := replay.NewPlayer(eng, rec)

	fmt.Println("DVFS engine ready.")
	fmt.Printf("  DB: %s | Health: %s | Trace: %s | Disabled: %v\n", *dbPath, *addr, *tracePath, cfg.Disabled)
	srv.SetServing(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := run(ctx, player, trace.NewReader(src), os.Stdout)
	if err != nil {
		log.Printf("trace stopped after %d records: %v", n, err)
	}
	fmt.Printf("Processed %d records.\n", n)

	if *stay && ctx.Err() == nil {
		<-ctx.Done()
	}
	srv.SetServing(false)
}

// #endregion main

// #region run
// run feeds records from r through player until EOF or cancellation, printing
// one line per record. It returns the number of records processed.
func run(ctx context.Context, player *replay.Player, r *trace.Reader, out io.Writer) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		printResult(out, player.Step(rec))
	}
}

func printResult(out io.Writer, res replay.ReplayResult) {
	line := fmt.Sprintf("[%d] %-11s inst=%d", res.Seq, res.Kind, res.Instance)
	for _, d := range res.Decisions {
		line += fmt.Sprintf(" %s:%s", d.Category, d.Action)
		if d.Name != "" {
			line += "=" + d.Name
		}
	}
	if len(res.Ops) > 0 {
		ops := make([]string, len(res.Ops))
		for i, op := range res.Ops {
			ops[i] = op.String()
		}
		line += " ops=" + strings.Join(ops, ",")
	}
	if res.Err != "" {
		line += " err=" + res.Err
	}
	fmt.Fprintln(out, line)
}

// #endregion run

// #region helpers
func loadConfig(path string) (engine.Config, error) {
	p := config.DefaultPlatform()
	if path != "" {
		var err error
		if p, err = config.Load(path); err != nil {
			return engine.Config{}, err
		}
	}
	return engine.ConfigFromPlatform(p)
}

func openTrace(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// enabled reads the DVFS_ENABLED kill switch. Unset means enabled.
func enabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "off", "no":
		return false
	}
	return true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
