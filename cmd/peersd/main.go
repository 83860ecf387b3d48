package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"example.com/peersgate/internal/common"
	"example.com/peersgate/internal/report"
	"example.com/peersgate/internal/server"
	"example.com/peersgate/internal/store"
)

type options struct {
	ConfigFile   string        `short:"C" long:"configfile" description:"Path to configuration file" default:"config/config.yaml"`
	Listen       string        `long:"listen" description:"Listen address (overrides config port)"`
	ReadTimeout  time.Duration `long:"readtimeout" description:"HTTP read timeout" default:"60s"`
	WriteTimeout time.Duration `long:"writetimeout" description:"HTTP write timeout" default:"60s"`
	DebugLevel   string        `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}; overrides config"`
	Subsystems   bool          `long:"subsystems" description:"List the logging subsystems and exit"`
}

func fatalf(format string, args ...any) {
	pdsdLog.Criticalf(format, args...)
	common.CloseLogging()
	os.Exit(1)
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if opts.Subsystems {
		fmt.Println(strings.Join(supportedSubsystems(), " "))
		return
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		fatalf("storage dir: %v", err)
	}
	if err := common.InitLogging(common.LogOptions{
		Directory:  cfg.Logs.Directory,
		FileName:   "peersd.log",
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxAgeDays: cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
		Console:    os.Stdout,
	}); err != nil {
		fatalf("setup logging: %v", err)
	}
	defer common.CloseLogging()
	level := cfg.Logs.Level
	if opts.DebugLevel != "" {
		level = opts.DebugLevel
	}
	if err := setLogLevels(level); err != nil {
		fatalf("%v", err)
	}

	networks, err := server.ParseNetworks(cfg.Networks, cfg.ReplaceNetworks)
	if err != nil {
		fatalf("networks: %v", err)
	}

	var history *store.Store
	if cfg.historyEnabled() {
		history, err = store.Open(cfg.StorageDir)
		if err != nil {
			fatalf("history: %v", err)
		}
		defer history.Close()
	}

	srv, err := server.NewServer(server.Options{
		StorageDir:       cfg.StorageDir,
		Concurrency:      cfg.Concurrency,
		CacheSize:        cfg.CacheSize,
		MaxUploadBytes:   int64(cfg.MaxUploadMB) << 20,
		AllowBadChecksum: cfg.AllowBadChecksum,
		Networks:         networks,
		Lang:             report.Language(cfg.Lang),
		History:          history,
	})
	if err != nil {
		fatalf("server init: %v", err)
	}
	defer srv.Close()

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	if opts.Listen != "" {
		listenAddr = opts.Listen
	}
	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(srv),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	pdsdLog.Infof("peersd listening on %s (%d networks, history %v)",
		listenAddr, len(networks), history != nil)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case sig := <-shutdown:
		pdsdLog.Infof("Received %v, shutting down", sig)
	case err := <-serveErr:
		if err != nil {
			pdsdLog.Errorf("listen: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		pdsdLog.Errorf("shutdown: %v", err)
	}
	pdsdLog.Info("peersd stopped")
}
