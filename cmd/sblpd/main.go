package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bumpkit/sblp/internal/auth"
	"github.com/bumpkit/sblp/internal/authfile"
	"github.com/bumpkit/sblp/internal/bot"
	"github.com/bumpkit/sblp/internal/client"
	"github.com/bumpkit/sblp/internal/config"
	"github.com/bumpkit/sblp/internal/cooldown"
	"github.com/bumpkit/sblp/internal/dispatch"
	httpapp "github.com/bumpkit/sblp/internal/http"
	"github.com/bumpkit/sblp/internal/logger"
	"github.com/bumpkit/sblp/internal/metrics"
	"github.com/bumpkit/sblp/internal/model"
	"github.com/bumpkit/sblp/internal/rate"
	"github.com/bumpkit/sblp/internal/resolve"
	"github.com/bumpkit/sblp/internal/sblp"
	"github.com/bumpkit/sblp/internal/store"
	"github.com/bumpkit/sblp/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		runServer(nil)
		return
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "server", "serve":
		runServer(args)
	case "auth":
		cmdAuth(args)
	case "request":
		cmdRequest(args)
	case "version", "-v", "--version":
		fmt.Println("sblpd v" + sblp.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sblpd - standalone SBLP bump endpoint

Usage: sblpd <command> [options]

Commands:
  serve               Run the SBLP server (default)
  auth init           Create an empty auth token file
  auth add <slug> <token>
                      Authorize a peer bot
  auth list           List authorized peer slugs
  request             Send a bump request to peer bots
  version             Print the version

Configuration comes from sblp.yaml (or SBLP_CONFIG) with SBLP_* environment
overrides.`)
}

func runServer(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	tokens, err := authfile.LoadOrEmpty(cfg.AuthFile, logg)
	if err != nil {
		logg.Fatal("load auth file", "path", cfg.AuthFile, "err", err)
	}
	if tokens.Empty() && cfg.AuthRequired {
		logg.Warn("no peer tokens configured; all requests will be rejected until `sblpd auth add` is run",
			"path", cfg.AuthFile)
	}

	var history store.Store
	if cfg.DBPath != "" {
		history, err = sqlite.Open(cfg.DBPath)
		if err != nil {
			logg.Fatal("open bump history", "path", cfg.DBPath, "err", err)
		}
		defer history.Close()
	}

	// The standalone daemon has no live chat client behind it: it resolves
	// nothing and simply records dispatched events. Library consumers wire
	// their own bot.Bot here.
	b := bot.NewMemory("sblpd")
	b.SetReady(true)

	registry := dispatch.NewRegistry()
	registry.Register("bump", func(ctx context.Context, req *resolve.ResolvedRequest, _ bot.Bot) (any, error) {
		logg.Info("bump received", "guild", req.Guild.ID, "channel", req.Channel.ID, "user", req.User.ID)
		return nil, nil
	})

	tracker := cooldown.New()
	m := metrics.New(func() float64 { return float64(tracker.Active()) })
	authSvc := auth.NewService(tokens, cfg.AuthRequired, b, logg)
	dispatcher := dispatch.New(registry, logg)

	orch := sblp.New(sblp.Options{
		Bot:        b,
		Auth:       authSvc,
		Cooldowns:  tracker,
		Dispatcher: dispatcher,
		Handler:    dispatch.Ref{Command: "bump"},
		CooldownMs: cfg.CooldownMs,
		MaxWait:    cfg.MaxWait,
		History:    history,
		Metrics:    m,
		Logger:     logg,
	})

	limiter := rate.New(cfg.RateRPS, cfg.RateBurst)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	limiter.StartJanitor(ctx)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapp.NewServer(orch, limiter, m, logg),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logg.Info("sblp server listening", "addr", cfg.Addr, "auth_required", cfg.AuthRequired,
		"cooldown_ms", cfg.CooldownMs)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Fatal("server", "err", err)
	}
}

func cmdAuth(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: sblpd auth <init|add|list> [options]")
		os.Exit(1)
	}

	sub := args[0]
	fs := flag.NewFlagSet("auth "+sub, flag.ExitOnError)
	file := fs.String("file", "", "auth file path (default from config)")
	_ = fs.Parse(args[1:])

	path := *file
	if path == "" {
		cfg, err := config.Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		path = cfg.AuthFile
	}

	logg, _ := logger.New("info", "text")

	switch sub {
	case "init":
		if _, err := authfile.Load(path, logg); err == nil {
			fmt.Fprintf(os.Stderr, "auth file %s already exists\n", path)
			os.Exit(1)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create auth file: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "create auth file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created %s\n", path)
	case "add":
		rest := fs.Args()
		if len(rest) != 2 {
			fmt.Fprintln(os.Stderr, "usage: sblpd auth add <slug> <token>")
			os.Exit(1)
		}
		s, err := authfile.LoadOrEmpty(path, logg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load auth file: %v\n", err)
			os.Exit(1)
		}
		if err := s.AddAuth(rest[0], rest[1]); err != nil {
			fmt.Fprintf(os.Stderr, "add auth: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added %s to auth.\n", rest[0])
	case "list":
		s, err := authfile.Load(path, logg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load auth file: %v\n", err)
			os.Exit(1)
		}
		slugs := s.Slugs()
		sort.Strings(slugs)
		for _, slug := range slugs {
			fmt.Println(slug)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown auth subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func cmdRequest(args []string) {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	guild := fs.String("guild", "", "guild snowflake")
	channel := fs.String("channel", "", "channel snowflake")
	user := fs.String("user", "", "user snowflake")
	token := fs.String("token", "", "authorization token to present")
	botName := fs.String("bot", "sblpd", "bot identity for the User-Agent")
	slugs := fs.String("slugs", "", "comma-separated peer slugs (default: config, then the well-known bump bots)")
	scheme := fs.String("scheme", "https", "peer URL scheme")
	_ = fs.Parse(args)

	if *guild == "" || *channel == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "usage: sblpd request --guild <id> --channel <id> --user <id> [--token <t>]")
		os.Exit(1)
	}

	cfg, _ := config.Load("")

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = client.NewUserAgent(*botName, sblp.Version)
	}

	logg, _ := logger.New("info", "text")
	c := client.New(*token, userAgent, logg)
	c.Scheme = *scheme

	var targets []string
	if *slugs != "" {
		for _, s := range strings.Split(*slugs, ",") {
			if s = strings.TrimSpace(s); s != "" {
				targets = append(targets, s)
			}
		}
	} else {
		targets = cfg.Slugs
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	responses := c.Broadcast(ctx, targets, model.BumpRequest{
		Type:    model.TypeRequest,
		Guild:   *guild,
		Channel: *channel,
		User:    *user,
	}, nil)

	for _, resp := range responses {
		switch {
		case resp.Finished != nil:
			fmt.Printf("%s: FINISHED amount=%d nextBump=%s\n",
				resp.Slug, resp.Finished.Amount, resp.Finished.NextBumpTime().Format(time.RFC3339))
		case resp.Error != nil:
			fmt.Printf("%s: ERROR code=%s message=%q\n", resp.Slug, resp.Error.Code, resp.Error.Message)
		default:
			fmt.Printf("%s: status %d (unparseable body)\n", resp.Slug, resp.Status)
		}
	}
}
