package main

import (
	"context"
	"os"

	"github.com/tphakala/routemgr/cmd"
	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/logging"
)

// buildDate and version are set at build time with -ldflags "-X main.version=..."
var (
	buildDate string
	version   string
)

func main() {
	logging.Init()

	build := buildinfo.NewContext(version, buildDate)
	rootCmd := cmd.RootCommand(build)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
