package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)
	case "printer":
		return runPrinterNoun(args)
	case "peer":
		return runPeerNoun(args)
	case "update":
		return runUpdateNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "doctor":
		return runConfigCheck(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: printmesh version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("printmesh %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalized, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalized
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`printmesh - local print agent and peer forwarder

Usage:
  printmesh <noun> <action> [flags]

Core Resources (Nouns):
  system    Agent lifecycle
  config    Configuration and integrity
  printer   Locally installed printers
  peer      Other agents on the network
  update    Release checks and installation

System Commands:
  system start          Start the agent in the foreground

Config Commands:
  config check          Validate configuration and probe the host
  config lock           Authorize current state (update integrity hashes)
  config show           Print the effective configuration

Printer Commands:
  printer list          List installed printers

Peer Commands:
  peer info <host>      Query another agent's /network/info

Update Commands:
  update check          Ask the release endpoint for a newer version
  update install        Download, verify and launch the newer version

General:
  --version             Show version information
  version               Show version information
  help                  Show this help message

Use 'printmesh <noun> help' for resource-specific flags.
`)
}

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "lock":
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigLock(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runPrinterNoun(args []string) int {
	if len(args) < 1 {
		printPrinterNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printPrinterNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "list":
		return runPrinterList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown printer action: %s\n", args[0])
		return 1
	}
}

func runPeerNoun(args []string) int {
	if len(args) < 1 {
		printPeerNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printPeerNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "info":
		if hasHelpFlag(args[1:]) {
			printPeerInfoHelp()
			return 0
		}
		return runPeerInfo(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown peer action: %s\n", args[0])
		return 1
	}
}

func runUpdateNoun(args []string) int {
	if len(args) < 1 {
		printUpdateNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printUpdateNounHelp(os.Stdout)
		return 0
	}

	switch args[0] {
	case "check":
		return runUpdateCheck(args[1:])
	case "install":
		return runUpdateInstall(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown update action: %s\n", args[0])
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: printmesh system <action>")
	fmt.Fprintln(w, "Actions: start")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: printmesh config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock, show")
}

func printPrinterNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: printmesh printer <action> [flags]")
	fmt.Fprintln(w, "Actions: list")
}

func printPeerNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: printmesh peer <action> [flags]")
	fmt.Fprintln(w, "Actions: info")
}

func printUpdateNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: printmesh update <action> [flags]")
	fmt.Fprintln(w, "Actions: check, install")
}

func printSystemStartHelp() {
	fmt.Println("Usage: printmesh system start [--config PATH]")
	fmt.Println("Start the agent in the foreground. Without --config the usual locations are searched")
	fmt.Println("and built-in defaults are used when nothing is found.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: printmesh config check [--config PATH] [--json]")
	fmt.Println("Validate configuration and report which PDF renderer and printers this host offers.")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  All checks passed")
	fmt.Println("  1  One or more errors")
	fmt.Println("  2  Passed with warnings")
}

func printConfigLockHelp() {
	fmt.Println("Usage: printmesh config lock [--config PATH] [--dry-run] [-v]")
	fmt.Println("Write BLAKE3 hashes of the config files to .checksums.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: printmesh config show [--config PATH] [--json]")
	fmt.Println("Print the effective configuration after defaults and ${VAR} interpolation.")
}

func printPeerInfoHelp() {
	fmt.Println("Usage: printmesh peer info <host> [--port N] [--config PATH]")
	fmt.Println("Query another agent and print its host, version and printers.")
}
