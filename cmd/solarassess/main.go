// Command solarassess runs the solar assessment workflow behind a web UI, a terminal UI,
// or as a one-shot headless assessment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"solarassess/pkg/config"
	"solarassess/pkg/logx"
	"solarassess/pkg/tui"
	"solarassess/pkg/version"
)

type options struct {
	projectDir  string
	address     string
	needs       string
	useTUI      bool
	savings     bool
	initSecrets bool
}

func main() {
	var (
		opts        options
		showVersion bool
	)
	flag.StringVar(&opts.projectDir, "projectdir", ".", "Project directory (config lives in <projectdir>/.solar)")
	flag.BoolVar(&opts.useTUI, "tui", false, "Run the terminal UI instead of the web UI")
	flag.StringVar(&opts.address, "address", "", "Run one headless assessment for this address")
	flag.StringVar(&opts.needs, "needs", "", "Energy needs for the headless assessment")
	flag.BoolVar(&opts.savings, "savings", false, "Also generate the savings infographic in headless mode")
	flag.BoolVar(&opts.initSecrets, "init-secrets", false, "Create the encrypted secrets file and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	os.Exit(run(opts))
}

// run contains the main application logic and returns an exit code.
// This allows defers to execute before os.Exit is called.
func run(opts options) int {
	if opts.projectDir == "." {
		logx.Warnf("-projectdir not set; using the current directory")
	}

	if err := config.LoadConfig(opts.projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get config: %v\n", err)
		return 1
	}
	if cfg.Debug != nil {
		logx.SetDebugConfig(cfg.Debug.Enabled, cfg.Debug.Domains)
	}

	if opts.initSecrets {
		if err := initSecrets(opts.projectDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create secrets file: %v\n", err)
			return 1
		}
		return 0
	}

	if err := unlockSecrets(opts.projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unlock secrets: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.useTUI {
		// The terminal belongs to the UI; send logs to a file.
		logFile, err := openLogFile(opts.projectDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			return 1
		}
		defer logFile.Close()
		logx.SetOutput(logFile)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer a.Close()

	switch {
	case opts.address != "" || opts.needs != "":
		err = runHeadless(ctx, a.workflow, os.Stdout, headlessRequest{
			Address:     opts.address,
			EnergyNeeds: opts.needs,
			Savings:     opts.savings,
			ExportDir:   a.exportDir,
		})
	case opts.useTUI:
		err = tui.Run(ctx, a.workflow, a.exportDir)
	default:
		err = runWeb(ctx, a, cfg, opts.projectDir)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func openLogFile(projectDir string) (*os.File, error) {
	dir := filepath.Join(projectDir, config.ProjectConfigDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	//nolint:gosec // path is derived from the project directory
	f, err := os.OpenFile(filepath.Join(dir, "solarassess.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
