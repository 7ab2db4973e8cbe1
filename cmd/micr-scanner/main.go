package main

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/check-scanner/internal/checkread"
	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/device/mtxml"
	"github.com/zombor/check-scanner/internal/device/simulator"
	"github.com/zombor/check-scanner/internal/voucher"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func defaultLibrary() string {
	switch runtime.GOOS {
	case "windows":
		return "mtxmlmcr.dll"
	case "darwin":
		return "libmtxmlmcr.dylib"
	}
	return "libmtxmlmcr.so"
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("micr-scanner")
	var (
		port         = fs.IntLong("port", 5042, "HTTP server port")
		dbPath       = fs.StringLong("db", "vouchers.db", "Database file path")
		imagesPath   = fs.StringLong("images", "./ScannedImages", "Directory for audit copies of scanned images")
		logFile      = fs.StringLong("log-file", "debug.log", "Log file path, empty to log to stderr only")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		driverType   = fs.StringLong("driver", "mtxml", "Device driver: 'mtxml' or 'simulator'")
		driverLib    = fs.StringLong("driver-lib", defaultLibrary(), "Path to the vendor MICR library")
		preferred    = fs.StringLong("preferred-device", device.DefaultPreferredDevice, "Device picked first when several are attached")
		maxDevices   = fs.IntLong("max-devices", 20, "Highest device index probed during discovery")
		scanAttempts = fs.IntLong("scan-attempts", 3, "Scan attempts before giving up")
		scanDelay    = fs.DurationLong("scan-delay", 2*time.Second, "Delay between scan attempts")
		readerType   = fs.StringLong("reader", "none", "Check face reader: 'none', 'gemini' or 'ollama'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		corsOrigin   = fs.StringLong("cors-origin", "*", "Access-Control-Allow-Origin value")
		_            = fs.StringLong("config", "", "YAML config file (optional)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("MICR_SCANNER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(parseYAML),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	closeLog, err := setupLogging(*logFile, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	slog.Info("Starting micr-scanner", "version", version)

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := voucher.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database; is another instance running?", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing image storage...", "path", *imagesPath)
	store, err := voucher.NewLocalStorage(*imagesPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize device driver based on type
	var driver device.Driver
	switch *driverType {
	case "mtxml":
		slog.Info("Loading vendor driver...", "library", *driverLib)
		lib, err := mtxml.Open(*driverLib)
		if err != nil {
			slog.Error("Failed to load vendor driver", "error", err)
			os.Exit(1)
		}
		driver = lib
	case "simulator":
		slog.Warn("Using simulated scanner; no hardware will be used")
		driver = simulator.New()
	default:
		slog.Error("Invalid driver type", "type", *driverType, "valid", "mtxml or simulator")
		os.Exit(1)
	}

	reader, err := newReader(*readerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize check reader", "error", err)
		os.Exit(1)
	}
	if reader != nil {
		defer reader.Close()
	}

	dirCfg := device.DefaultDirectoryConfig()
	dirCfg.Preferred = *preferred
	dirCfg.MaxDevices = *maxDevices

	opts := voucher.DefaultOptions()
	opts.ScanRetry.Attempts = *scanAttempts
	opts.ScanRetry.Delay = *scanDelay

	service := voucher.NewService(
		driver,
		device.NewDirectory(driver, dirCfg),
		device.NewSession(driver),
		db,
		store,
		reader,
		opts,
	)
	defer service.Close()

	basicAuth, err := voucher.NewBasicAuth(*authUser, *authPass)
	if err != nil {
		slog.Error("Failed to set up basic auth", "error", err)
		os.Exit(1)
	}
	server := voucher.NewServer(service, basicAuth, *corsOrigin)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s/api/scanner", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// setupLogging installs a text handler writing to stderr and, if path is set, to that file
func setupLogging(path, level string) (func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { f.Close() }
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return closeFn, nil
}

// newReader returns nil when no reader is configured
func newReader(kind, geminiKey, geminiModel, ollamaURL, ollamaModel string) (checkread.Reader, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini check reader...", "model", geminiModel)
		return checkread.NewGemini(apiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama check reader...", "url", ollamaURL, "model", ollamaModel)
		return checkread.NewOllama(ollamaURL, ollamaModel), nil
	}
	return nil, fmt.Errorf("invalid reader type %q (valid: none, gemini or ollama)", kind)
}
