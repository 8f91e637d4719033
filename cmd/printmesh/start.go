package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattjoyce/printmesh/internal/api"
	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/dispatch"
	"github.com/mattjoyce/printmesh/internal/events"
	"github.com/mattjoyce/printmesh/internal/lock"
	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/peer"
	"github.com/mattjoyce/printmesh/internal/printer"
	"github.com/mattjoyce/printmesh/internal/proc"
	"github.com/mattjoyce/printmesh/internal/scratch"
	"github.com/mattjoyce/printmesh/internal/sender"
	"github.com/mattjoyce/printmesh/internal/update"
)

// startupUpdateDelay keeps the first release check out of the way of the
// listener coming up.
const startupUpdateDelay = 5 * time.Second

// agent is the wired set of components behind one running instance.
type agent struct {
	scratch   *scratch.Manager
	documents *sender.DocumentSender
	updates   *update.Checker
	server    *api.Server
}

func newAgent(cfg *config.Config, agentVersion string, logger *slog.Logger) (*agent, error) {
	scratchMgr, err := scratch.NewManager(cfg.Printing.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("scratch directory: %w", err)
	}

	hub := events.NewHub(256)
	runner := proc.NewExecRunner()

	documents := sender.NewDocumentSender(
		scratchMgr,
		sender.BuildChain(cfg.Printing.PDF, sender.NewFSProber(), runner),
		cfg.Printing.PDF.CleanupDelay,
	)
	disp := dispatch.New(dispatch.Senders{
		Raw:      sender.NewRawSender(cfg.Printing.Raw.DocumentName),
		Socket:   sender.NewSocketSender(cfg.Printing.Socket.Timeout),
		Image:    sender.NewImageSender(documents, cfg.Printing.Image),
		Document: documents,
	}, hub, log.WithComponent("dispatch"))

	dir := printer.NewDirectory()
	updates := update.NewChecker(cfg.Update, agentVersion, scratchMgr, runner, hub, log.WithComponent("update"))

	server := api.New(api.Config{
		Listen:         cfg.API.ListenAddr(),
		Application:    cfg.Service.Name,
		Version:        agentVersion,
		NetworkMode:    cfg.API.NetworkMode,
		AllowedOrigins: cfg.API.AllowedOrigins,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
	}, api.Deps{
		Dispatcher: disp,
		Printers:   dir,
		Peers:      peer.NewClient(cfg.Peers.ForwardTimeout, cfg.Peers.InfoTimeout, hub, log.WithComponent("peer")),
		Local:      peer.NewLocalInfo(cfg.API.Port, agentVersion, dir),
		Updates:    updates,
		Events:     hub,
	}, logger)

	return &agent{
		scratch:   scratchMgr,
		documents: documents,
		updates:   updates,
		server:    server,
	}, nil
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, resolved, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	var sinks []io.Writer
	if cfg.Service.LogDir != "" {
		f, err := log.OpenFile(cfg.Service.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		sinks = append(sinks, f)
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat, sinks...)
	logger := log.WithComponent("main")

	agentVersion := cfg.ResolveVersion(currentVersionInfo().Version)
	if resolved == "" {
		logger.Info("no config file found, using built-in defaults")
	}
	logger.Info("printmesh starting", "version", agentVersion, "config", resolved, "listen", cfg.API.ListenAddr())

	pidLockPath := lock.PathFor(filepath.Dir(cfg.Printing.ScratchDir), cfg.API.Port)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	a, err := newAgent(cfg, agentVersion, log.WithComponent("api"))
	if err != nil {
		logger.Error("failed to initialize agent", "error", err)
		return 1
	}
	defer a.scratch.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if report, err := a.scratch.Cleanup(ctx, cfg.Printing.ScratchRetention); err != nil {
		logger.Warn("scratch sweep failed", "dir", a.scratch.Dir(), "error", err)
	} else if report.DeletedFiles > 0 {
		logger.Info("removed stale scratch files", "dir", a.scratch.Dir(), "count", report.DeletedFiles)
	}

	if _, exe, ok := a.documents.Select(); ok {
		logger.Info("PDF renderer available", "path", exe)
	} else {
		logger.Warn("no PDF renderer available; pdf and image jobs will fail")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	serverDone := make(chan struct{})

	go func() {
		defer close(serverDone)
		if err := a.server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	if cfg.Update.CheckURL != "" {
		go a.updates.StartupCheck(ctx, startupUpdateDelay)
	}

	logger.Info("printmesh running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		<-serverDone
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("printmesh stopped")
	return 0
}
