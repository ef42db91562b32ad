// Command housecup-admin runs operator tasks against the configured store.
//
// Usage:
//
//	housecup-admin seed
//	housecup-admin diag
//	housecup-admin repair
//	housecup-admin export [--out=FILE]
//
// Configuration is read the same way as the server (HOUSECUP_* variables,
// .env and HOUSECUP_CONFIG).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/housecup/internal/adapters/backends"
	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/admin"
	"github.com/okian/housecup/internal/config"
	"github.com/okian/housecup/internal/domain/reconcile"
	"github.com/okian/housecup/pkg/logger"

	flag "github.com/spf13/pflag"
)

const usage = `usage: housecup-admin <command> [flags]

Commands:
  seed                   Insert demo data into empty collections
  diag                   Report store reachability and document counts
  repair                 Rewrite house ranks that disagree with scores
  export [--out=FILE]    Write every collection as JSON
`

const defaultExportPath = "housecup-export.json"

var (
	errUsage       = errors.New("missing command")
	errUnknown     = errors.New("unknown command")
	errUnreachable = errors.New("store unreachable")
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, errUnknown) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	if isHelp(args[0]) {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	b, err := backends.Open(ctx, cfg, logger.Get().Named("admin"))
	if err != nil {
		return err
	}
	defer b.Close()

	return dispatch(ctx, b, args, out)
}

func dispatch(ctx context.Context, b *backends.Backends, args []string, out io.Writer) error {
	switch args[0] {
	case "seed":
		return cmdSeed(ctx, b, out)
	case "diag":
		return cmdDiag(ctx, b, out)
	case "repair":
		return cmdRepair(ctx, b, out)
	case "export":
		return cmdExport(ctx, b, args[1:], out)
	default:
		return fmt.Errorf("%w: %q", errUnknown, args[0])
	}
}

func cmdSeed(ctx context.Context, b *backends.Backends, out io.Writer) error {
	report, err := admin.NewSeeder(b.Store, logger.Get().Named("seed")).SeedDemo(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, report)
}

func cmdDiag(ctx context.Context, b *backends.Backends, out io.Writer) error {
	diag := admin.NewDiagnostician(b.Store, b.StoreName).Diagnose(ctx)
	if err := printJSON(out, diag); err != nil {
		return err
	}
	if !diag.Reachable {
		return fmt.Errorf("%w: %s", errUnreachable, diag.Error)
	}
	return nil
}

func cmdRepair(ctx context.Context, b *backends.Backends, out io.Writer) error {
	l := logger.Get().Named("repair")
	opts := []repository.Option{repository.WithLogger(l)}
	engine := reconcile.New(
		repository.NewHouses(b.Store, opts...),
		repository.NewEvents(b.Store, opts...),
		reconcile.WithLogger(l),
	)
	moved, err := engine.Repair(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, map[string]int{"moved": moved})
}

func cmdExport(ctx context.Context, b *backends.Backends, args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("export", flag.ContinueOnError)
	flagSet.SetOutput(&strings.Builder{}) // discard
	path := flagSet.StringP("out", "o", defaultExportPath, "Output file")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("%w: export takes no arguments, got %q", errUsage, flagSet.Args())
	}

	dump, err := admin.Export(ctx, b.Store, *path)
	if err != nil {
		return err
	}
	counts := make(map[string]int, len(dump.Collections))
	for name, docs := range dump.Collections {
		counts[name] = len(docs)
	}
	return printJSON(out, map[string]any{"path": *path, "collections": counts})
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isHelp(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}
