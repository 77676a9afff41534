package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mwren/partyline/pkg/logging"
	"github.com/mwren/partyline/pkg/server"
	"github.com/mwren/partyline/pkg/version"
)

func main() {
	defaults := server.DefaultConfig()

	configFile := flag.String("config", "", "YAML server config file")
	addr := flag.String("addr", defaults.Addr, "UDP bind address")
	metricsAddr := flag.String("metrics", defaults.MetricsAddr, "HTTP bind address for /metrics (empty to disable)")
	defaultChannel := flag.String("default-channel", defaults.DefaultChannel, "Channel every user joins on login")
	sessionTimeout := flag.Duration("session-timeout", defaults.SessionTimeout, "Inactivity window before a session is dropped")
	reapInterval := flag.Duration("reap-interval", defaults.ReapInterval, "How often to scan for inactive sessions")
	channelsFile := flag.String("channels-file", "", "YAML file defining channels to create on startup")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames)
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	cfg := defaults
	if *configFile != "" {
		loaded, err := server.LoadConfig(*configFile)
		if err != nil {
			slog.Error("load config", "path", *configFile, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "metrics":
			cfg.MetricsAddr = *metricsAddr
		case "default-channel":
			cfg.DefaultChannel = *defaultChannel
		case "session-timeout":
			cfg.SessionTimeout = *sessionTimeout
		case "reap-interval":
			cfg.ReapInterval = *reapInterval
		case "channels-file":
			cfg.ChannelsFile = *channelsFile
		}
	})

	slog.Info("partyline server starting", "version", version.String())

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
