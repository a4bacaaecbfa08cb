package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/tachikoma-agent/dashboard/src/config"
	"github.com/tachikoma-agent/dashboard/src/queries"
	"github.com/tachikoma-agent/dashboard/src/storage"
)

// CLI is the dashboard engine's command line surface.
type CLI struct {
	DB          string `help:"Path to the OpenCode database (default: XDG data dir)." type:"path" placeholder:"PATH"`
	Cwd         string `short:"c" help:"Filter sessions by working directory."`
	AllSessions bool   `short:"a" help:"Show sessions from every directory, not just the current one."`
	Interval    int    `short:"i" default:"2000" help:"Refresh interval in milliseconds."`
	Select      string `short:"s" help:"Session id to select on start."`
	JSON        bool   `short:"j" help:"One-shot JSON dump of sessions, bypassing the refresh loop."`
	LogLevel    string `default:"warn" help:"Log level."`
	LogFile     string `help:"Write logs to a file instead of stderr." type:"path"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tachikoma-dashboard"),
		kong.Description("Session activity engine for the Tachikoma agent harness"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	if err := run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}
}

func run(cli *CLI) error {
	logger, err := createLogger(cli.LogLevel, cli.LogFile)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if cli.DB != "" {
		cfg.DatabasePath = cli.DB
	}
	cfg.IntervalMS = cli.Interval

	cwd, err := resolveCwd(cli)
	if err != nil {
		return err
	}
	cfg.Cwd = cwd

	if err := cfg.Validate(); err != nil {
		return err
	}

	store := storage.NewStore(cfg.DatabasePath, nil, logger)
	svc := queries.NewService(store, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cli.JSON {
		return dumpJSON(ctx, svc, cfg)
	}
	return watch(ctx, svc, cfg, cli.Select, logger)
}

// resolveCwd picks the directory filter: an explicit --cwd wins, then
// --all-sessions disables filtering, otherwise the process working
// directory applies.
func resolveCwd(cli *CLI) (string, error) {
	if cli.Cwd != "" {
		return cli.Cwd, nil
	}
	if cli.AllSessions {
		return "", nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return wd, nil
}
