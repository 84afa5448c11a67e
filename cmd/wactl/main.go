package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moatasem-alhilali/wadash/internal/api"
	"github.com/moatasem-alhilali/wadash/internal/config"
	"github.com/moatasem-alhilali/wadash/internal/logging"
	"github.com/moatasem-alhilali/wadash/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	apiFlag := flag.String("api", "", "backend API URL (overrides config and env)")
	flag.Usage = printUsage
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Resolve(profile.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.APIURL = *apiFlag
	}

	logger, err := logging.NewFileOnly(filepath.Join(profile.LogDir(name), "wactl.log"), name, zapcore.InfoLevel)
	if err != nil {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	client, err := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.Timeouts.HTTP.Duration),
		api.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		out:        os.Stdout,
		jsonOut:    *jsonFlag,
		profile:    name,
		configPath: profile.ConfigPath(),
		cfg:        cfg,
		client:     client,
		logger:     logger,
	}
	if err := c.run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wactl [--profile <name>] [--json] [--api <url>] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  health                                 Check the backend")
	fmt.Fprintln(os.Stderr, "  sessions list                          List sessions")
	fmt.Fprintln(os.Stderr, "  sessions create [id]                   Create a session")
	fmt.Fprintln(os.Stderr, "  sessions status <id>                   Show one session (and its QR)")
	fmt.Fprintln(os.Stderr, "  sessions logout <id>                   Log a session out")
	fmt.Fprintln(os.Stderr, "  sessions destroy <id>                  Destroy a session")
	fmt.Fprintln(os.Stderr, "  sessions refresh-qr <id>               Request a new QR code")
	fmt.Fprintln(os.Stderr, "  sessions stats <id>                    Show session statistics")
	fmt.Fprintln(os.Stderr, "  sessions guidance <id>                 Show anti-ban guidance")
	fmt.Fprintln(os.Stderr, "  send <session> <to> <text> [--ws]      Send a text message")
	fmt.Fprintln(os.Stderr, "  send-media <session> <to> <file> [caption]")
	fmt.Fprintln(os.Stderr, "                                         Send a media file")
	fmt.Fprintln(os.Stderr, "  queue status                           Show queue counters")
	fmt.Fprintln(os.Stderr, "  queue list [page] [status]             List queued messages")
	fmt.Fprintln(os.Stderr, "  queue pause|resume                     Pause or resume the queue")
	fmt.Fprintln(os.Stderr, "  queue retry|cancel <id>                Retry or cancel a queued message")
	fmt.Fprintln(os.Stderr, "  watch [session...]                     Stream realtime events")
	fmt.Fprintln(os.Stderr, "  config show                            Print the resolved config and paths")
	fmt.Fprintln(os.Stderr, "  config init [--force]                  Write a default config file")
	fmt.Fprintln(os.Stderr, "  config use <profile>                   Set the default profile")
}
