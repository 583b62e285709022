package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/standings/internal/feedsim"
	"github.com/okian/standings/pkg/logger"
)

// Default configuration constants.
const (
	defaultAdvisors    = 25
	defaultTechnicians = 40
	defaultDrift       = 20 * time.Second
	defaultTimeout     = 10 * time.Second
)

func main() {
	var (
		addr        = flag.String("addr", ":9090", "Listen address")
		advisors    = flag.Int("advisors", defaultAdvisors, "Number of simulated advisors")
		technicians = flag.Int("technicians", defaultTechnicians, "Number of simulated technicians")
		drift       = flag.Duration("drift", defaultDrift, "How often work is added to the sheets, 0 disables")
		boardURL    = flag.String("board", "", "Base URL of a running board to verify, empty skips")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout for verification")
		messy       = flag.Bool("messy", false, "Add an unnamed row and an unparseable cell")
		logFile     = flag.String("log", "", "Log file (default: feedsim_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		feedsim.ShowHelp()
		return
	}

	// Setup logging
	closer, err := feedsim.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &feedsim.Config{
		Addr:          *addr,
		Advisors:      *advisors,
		Technicians:   *technicians,
		DriftInterval: *drift,
		BoardURL:      *boardURL,
		Timeout:       *timeout,
		Messy:         *messy,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if err := feedsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Feed simulator failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
