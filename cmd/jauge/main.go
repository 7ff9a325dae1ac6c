package main

import (
	_ "embed"
	"strings"

	"github.com/anisbt/jauge/internal/cli"
	"github.com/anisbt/jauge/internal/logging"
)

//go:embed VERSION
var versionFile string

//go:embed dashboard.html
var dashboardTemplate []byte

//go:embed index.html
var indexTemplate []byte

var executeCLI = cli.Execute

func run() error {
	version := strings.TrimSpace(versionFile)
	return executeCLI(version, dashboardTemplate, indexTemplate)
}

func main() {
	if err := run(); err != nil {
		logging.Fatal("jauge execution failed", "error", err)
	}
}
