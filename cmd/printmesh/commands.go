package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattjoyce/printmesh/internal/config"
	"github.com/mattjoyce/printmesh/internal/doctor"
	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/peer"
	"github.com/mattjoyce/printmesh/internal/printer"
	"github.com/mattjoyce/printmesh/internal/printjob"
	"github.com/mattjoyce/printmesh/internal/proc"
	"github.com/mattjoyce/printmesh/internal/scratch"
	"github.com/mattjoyce/printmesh/internal/sender"
	"github.com/mattjoyce/printmesh/internal/update"
	"gopkg.in/yaml.v3"
)

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, resolved, err := config.LoadOrDefault(*configPath)
	if err != nil {
		if *jsonOut {
			out, _ := doctor.FormatJSON(&doctor.Result{
				Valid:  false,
				Errors: []doctor.Issue{{Category: "config", Message: err.Error()}},
			})
			fmt.Println(out)
		} else {
			fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		}
		return 1
	}

	result, code := validateConfig(context.Background(), cfg)

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(out)
		return code
	}

	if resolved == "" {
		fmt.Println("Config: built-in defaults (no config file found)")
	} else {
		fmt.Printf("Config: %s\n", resolved)
	}
	fmt.Print(doctor.FormatHuman(result))
	return code
}

// validateConfig returns the doctor result and the CLI exit code for it:
// 1 on errors, 2 on warnings only, 0 when clean.
func validateConfig(ctx context.Context, cfg *config.Config) (*doctor.Result, int) {
	documents := sender.NewDocumentSender(nil, sender.BuildChain(cfg.Printing.PDF, sender.NewFSProber(), proc.NewExecRunner()), 0)
	result := doctor.New(cfg, documents, printer.NewDirectory()).Validate(ctx)
	if !result.Valid {
		return result, 1
	}
	if len(result.Warnings) > 0 {
		return result, 2
	}
	return result, 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dryRun := fs.Bool("dry-run", false, "Compute hashes without writing .checksums")
	verbose := fs.Bool("v", false, "Print each hashed file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	target := *configPath
	if target == "" {
		discovered, err := config.DiscoverConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		target = discovered
	}
	resolved, err := config.ResolveConfigFile(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	report, err := config.Lock(filepath.Dir(resolved), *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lock failed: %v\n", err)
		return 1
	}

	if *verbose || *dryRun {
		names := make([]string, 0, len(report.Files))
		for name := range report.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s  %s\n", report.Files[name], name)
		}
	}
	if *dryRun {
		fmt.Printf("Dry run: %d file(s) hashed, %s not written\n", len(report.Files), report.ChecksumPath)
		return 0
	}
	fmt.Printf("Locked %d file(s) in %s\n", len(report.Files), report.ChecksumPath)
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(cfg, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(cfg)
		fmt.Print(string(data))
	}
	return 0
}

func runPrinterList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output printer summaries as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	summaries := printer.NewDirectory().Summaries(context.Background())

	if *jsonOut {
		data, _ := json.MarshalIndent(summaries, "", "  ")
		fmt.Println(string(data))
		return 0
	}
	if len(summaries) == 0 {
		fmt.Println("No printers installed.")
		return 0
	}
	for _, p := range summaries {
		fmt.Println(formatPrinter(p))
	}
	return 0
}

func formatPrinter(p printjob.PrinterSummary) string {
	var tags []string
	if p.IsDefault {
		tags = append(tags, "default")
	}
	if p.IsNetworkPrinter {
		tags = append(tags, "network")
	}
	if len(tags) == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, strings.Join(tags, ", "))
}

func runPeerInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	port := fs.Int("port", printjob.DefaultAgentPort, "Port of the remote agent")
	configPath := fs.String("config", "", "Path to configuration file or directory")

	flags, positionals := splitFlagsAndPositionals(args, map[string]bool{"--port": true, "-port": true, "--config": true, "-config": true})
	if err := fs.Parse(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if len(positionals) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: printmesh peer info <host> [--port N]")
		return 1
	}

	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	target := printjob.PeerTarget{Host: positionals[0], Port: *port}
	if err := target.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	client := peer.NewClient(cfg.Peers.ForwardTimeout, cfg.Peers.InfoTimeout, nil, log.WithComponent("peer"))
	info := client.QueryInfo(context.Background(), target)
	if info == nil {
		fmt.Fprintf(os.Stderr, "Could not connect to %s\n", target.Addr())
		return 1
	}

	data, _ := json.MarshalIndent(info, "", "  ")
	fmt.Println(string(data))
	return 0
}

func runUpdateCheck(args []string) int {
	checker, code := updateCheckerFromFlags("check", args)
	if checker == nil {
		return code
	}

	info, err := checker.Check(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
		return 1
	}
	if info == nil {
		fmt.Printf("printmesh %s is up to date\n", checker.CurrentVersion())
		return 0
	}
	fmt.Printf("Update available: %s -> %s\n", checker.CurrentVersion(), info.Version)
	if info.ReleaseNotes != "" {
		fmt.Printf("Release notes: %s\n", info.ReleaseNotes)
	}
	fmt.Println("Run 'printmesh update install' to install it.")
	return 0
}

func runUpdateInstall(args []string) int {
	checker, code := updateCheckerFromFlags("install", args)
	if checker == nil {
		return code
	}

	ctx := context.Background()
	info, err := checker.Check(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update check failed: %v\n", err)
		return 1
	}
	if info == nil {
		fmt.Printf("printmesh %s is up to date\n", checker.CurrentVersion())
		return 0
	}

	path, err := checker.Install(ctx, info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Update install failed: %v\n", err)
		return 1
	}
	fmt.Printf("Installer for %s launched from %s\n", info.Version, path)
	return 0
}

func updateCheckerFromFlags(action string, args []string) (*update.Checker, int) {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return nil, 1
	}

	cfg, _, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return nil, 1
	}
	if cfg.Update.CheckURL == "" {
		fmt.Fprintln(os.Stderr, "update.check_url is not configured")
		return nil, 1
	}

	store, err := scratch.NewManager(cfg.Printing.ScratchDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, 1
	}

	current := cfg.ResolveVersion(currentVersionInfo().Version)
	return update.NewChecker(cfg.Update, current, store, proc.NewExecRunner(), nil, log.WithComponent("update")), 0
}

func splitFlagsAndPositionals(args []string, takesValue map[string]bool) ([]string, []string) {
	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positionals = append(positionals, arg)
			continue
		}

		flags = append(flags, arg)
		if strings.Contains(arg, "=") {
			continue
		}
		if takesValue[arg] && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}

	return flags, positionals
}
