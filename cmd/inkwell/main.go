// ABOUTME: CLI entrypoint for the inkwell pipeline runner with run, server, TUI, and one-shot modes.
// ABOUTME: Wires together the loom engine, stores, LLM client, HTTP server, and signal handling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/inkwell/llm"
	"github.com/2389-research/inkwell/loom"
	"github.com/2389-research/inkwell/nodes"
	"github.com/2389-research/inkwell/server"
	"github.com/2389-research/inkwell/store"
	"github.com/2389-research/inkwell/tui"
)

var version = "dev"

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	serverMode  bool
	port        int
	tuiMode     bool
	listRuns    bool
	storeKind   string
	dataDir     string
	configFile  string
	retryPolicy string
	model       string
	baseURL     string
	resumeID    string
	approve     bool
	reject      string
	arcs        string
	rollbackID  string
	point       string
	verbose     bool
	showVersion bool
	jobFile     string
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("inkwell %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	var cfg config

	fs := flag.NewFlagSet("inkwell", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.IntVar(&cfg.port, "port", 2389, "Server port (default: 2389)")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Run with interactive terminal UI")
	fs.BoolVar(&cfg.listRuns, "list", false, "List stored runs and exit")
	fs.StringVar(&cfg.storeKind, "store", "fs", "Run store backend: fs or sqlite")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for persistent state (default: $XDG_DATA_HOME/inkwell)")
	fs.StringVar(&cfg.configFile, "config", "", "YAML config file with rubric and cap overrides")
	fs.StringVar(&cfg.retryPolicy, "retry", "none", "Retry policy for generation steps: none, standard, patient")
	fs.StringVar(&cfg.model, "model", "", "Model name for the LLM provider")
	fs.StringVar(&cfg.baseURL, "base-url", "", "Custom API base URL for the LLM provider")
	fs.StringVar(&cfg.resumeID, "resume", "", "Resume a suspended run by ID (with -approve, -reject, or -arcs)")
	fs.BoolVar(&cfg.approve, "approve", false, "Approve the pending artifact when resuming")
	fs.StringVar(&cfg.reject, "reject", "", "Reject the pending artifact with this feedback when resuming")
	fs.StringVar(&cfg.arcs, "arcs", "", "Comma-separated arc IDs for arc selection when resuming")
	fs.StringVar(&cfg.rollbackID, "rollback", "", "Roll back a run by ID (with -point)")
	fs.StringVar(&cfg.point, "point", "", "Rollback point: arc_selection, outline_review, article_review")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Log engine events to stderr")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.jobFile = fs.Arg(0)
	}

	return cfg
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg config) int {
	switch {
	case cfg.listRuns:
		return runList(cfg)
	case cfg.serverMode:
		return runServer(cfg)
	case cfg.resumeID != "":
		return runResume(cfg)
	case cfg.rollbackID != "":
		return runRollback(cfg)
	}

	if cfg.jobFile == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	if cfg.tuiMode {
		return runJobWithTUI(cfg)
	}
	return runJob(cfg)
}

// buildEngine constructs the engine from CLI config: run store, LLM client,
// node registry, and optional YAML overrides.
func buildEngine(cfg config) (*loom.Engine, error) {
	runStore, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("no LLM API key found: set OPENAI_API_KEY")
	}

	var opts []llm.Option
	if cfg.model != "" {
		opts = append(opts, llm.WithModel(cfg.model))
	}
	if cfg.baseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.baseURL))
	}
	client := llm.NewClient(apiKey, opts...)

	runCfg := loom.RunConfig{Generator: client, Scorer: client}
	retry := loom.RetryPolicyByName(cfg.retryPolicy)

	if cfg.configFile != "" {
		fileCfg, err := loom.LoadFileConfig(cfg.configFile)
		if err != nil {
			return nil, err
		}
		runCfg = fileCfg.ApplyTo(runCfg)
		if fileCfg.Retry != "" {
			retry = fileCfg.RetryPolicy()
		}
	}

	registry := loom.NewNodeRegistry()
	nodes.Register(registry)

	engineCfg := loom.EngineConfig{
		Registry: registry,
		Store:    runStore,
		Run:      runCfg,
		Retry:    retry,
	}
	if cfg.verbose {
		engineCfg.EventHandler = func(ev loom.Event) {
			log.Printf("%s run=%s step=%s", ev.Type, ev.RunID, ev.Step)
		}
	}

	return loom.NewEngine(engineCfg), nil
}

// buildStore constructs the run store named by -store under the data directory.
func buildStore(cfg config) (loom.RunStore, error) {
	dataDir, err := resolveDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}

	switch cfg.storeKind {
	case "fs":
		return store.NewFSStore(filepath.Join(dataDir, "runs"))
	case "sqlite":
		return store.OpenSQLite(filepath.Join(dataDir, "inkwell.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q: want fs or sqlite", cfg.storeKind)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// runJob loads a job file and drives a new run until it finishes or suspends.
func runJob(cfg config) int {
	docs, err := loadJobFile(cfg.jobFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	run, err := engine.Start(ctx, docs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return reportRun(run)
}

// runJobWithTUI loads a job file and drives the run through the Bubble Tea
// watch TUI, prompting for approval decisions inline.
func runJobWithTUI(cfg config) int {
	docs, err := loadJobFile(cfg.jobFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Cancel the engine when the user quits the TUI.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := tui.NewWatchModel(ctx, engine, docs)
	p := tea.NewProgram(model, tea.WithAltScreen())

	// Wire the event bridge so engine events reach the TUI.
	bridge := tui.NewEventBridge(p.Send)
	engine.SetEventHandler(bridge.HandleEvent)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// runServer starts the HTTP API server with graceful shutdown.
func runServer(cfg config) int {
	engine, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.port)

	ctx, cancel := signalContext()
	defer cancel()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.New(engine),
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	fmt.Fprintf(os.Stderr, "listening on %s\n", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// runResume applies a one-shot approval decision to a suspended run.
func runResume(cfg config) int {
	engine, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	current, err := engine.Get(cfg.resumeID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	decision, err := decisionFromFlags(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	run, err := engine.Resume(ctx, cfg.resumeID, current.State.AwaitingApproval, decision)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return reportRun(run)
}

// decisionFromFlags builds the resume decision JSON from -approve, -reject,
// or -arcs. Exactly one of the three must be given.
func decisionFromFlags(cfg config) (json.RawMessage, error) {
	given := 0
	for _, set := range []bool{cfg.approve, cfg.reject != "", cfg.arcs != ""} {
		if set {
			given++
		}
	}
	if given != 1 {
		return nil, fmt.Errorf("resume needs exactly one of -approve, -reject, or -arcs")
	}

	decision := map[string]any{"decided_by": "cli"}
	switch {
	case cfg.arcs != "":
		var arcs []string
		for _, part := range strings.Split(cfg.arcs, ",") {
			if arc := strings.TrimSpace(part); arc != "" {
				arcs = append(arcs, arc)
			}
		}
		if len(arcs) == 0 {
			return nil, fmt.Errorf("-arcs has no arc IDs")
		}
		decision["selected_arcs"] = arcs
	case cfg.approve:
		decision["approved"] = true
	default:
		decision["approved"] = false
		decision["feedback"] = cfg.reject
	}
	return json.Marshal(decision)
}

// runRollback rewinds a run to an earlier approval point and re-drives it.
func runRollback(cfg config) int {
	if cfg.point == "" {
		fmt.Fprintln(os.Stderr, "error: -rollback needs -point")
		return 1
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext()
	defer cancel()

	run, err := engine.Rollback(ctx, cfg.rollbackID, loom.ApprovalType(cfg.point))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return reportRun(run)
}

// runList prints stored runs, newest first. Needs only the store, not the
// LLM client.
func runList(cfg config) int {
	runStore, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	metas, err := runStore.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if len(metas) == 0 {
		fmt.Println("No runs found.")
		return 0
	}

	for _, m := range metas {
		line := fmt.Sprintf("%s  %-10s %-14s", m.ID, m.Status, m.Phase)
		if m.Awaiting != "" {
			line += fmt.Sprintf("  awaiting %s", m.Awaiting)
		}
		fmt.Println(line)
	}
	return 0
}

// reportRun prints the outcome of a drive and maps it to an exit code.
// A suspension is a successful stop: the run waits for a human decision.
func reportRun(run *loom.Run) int {
	switch run.Status {
	case loom.RunSuspended:
		fmt.Printf("Run %s suspended at %s awaiting %s.\n", run.ID, run.State.Phase, run.State.AwaitingApproval)
		fmt.Printf("Resume with: inkwell -resume %s -approve (or -reject / -arcs)\n", run.ID)
		return 0
	case loom.RunCompleted:
		fmt.Printf("Run %s completed.\n", run.ID)
		if run.State.Bundle != nil {
			fmt.Printf("Article: %s (%d words)\n", run.State.Bundle.Title, run.State.Draft.WordCount)
		}
		return 0
	case loom.RunCancelled:
		fmt.Printf("Run %s cancelled.\n", run.ID)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Run %s failed: %s\n", run.ID, run.Error)
		return 1
	}
}
