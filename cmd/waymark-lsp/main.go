package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/phroun/waymark/internal/config"
	"github.com/phroun/waymark/internal/server"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print the version of the program")
	configPath := flag.String("config", "", "JSON configuration file")
	logPath := flag.String("log", "", "Log file (default: stderr)")
	verbosity := flag.Int("verbosity", -1, "Log verbosity (overrides the configuration)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("waymark LSP server version %s\n", server.Version)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *verbosity >= 0 {
		cfg.Verbosity = *verbosity
	}

	var logFile *string
	if *logPath != "" {
		logFile = logPath
	}
	commonlog.Configure(cfg.Verbosity, logFile)

	log := commonlog.GetLogger("waymark")
	log.Info("starting waymark LSP server")

	s, err := server.NewServer(cfg)
	if err != nil {
		log.Errorf("failed to create server: %s", err)
		os.Exit(1)
	}

	if err := s.RunStdio(); err != nil {
		log.Errorf("server error: %s", err)
		os.Exit(1)
	}
}
