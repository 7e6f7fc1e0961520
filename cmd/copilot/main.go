// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Command copilot runs the GalaxyCo workspace assistant.
//
// Usage:
//
//	copilot serve --config copilot.yaml --watch
//	copilot chat "What agents do I have?"
//	copilot migrate --seed-workspace "Acme"
//	copilot tools
//	copilot validate --config copilot.yaml
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/galaxyco/copilot/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API."`
	Chat     ChatCmd     `cmd:"" help:"Send one message from the terminal."`
	Migrate  MigrateCmd  `cmd:"" help:"Create the database schema."`
	Tools    ToolsCmd    `cmd:"" help:"List the tool catalog."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config          string   `short:"c" help:"Path to config file, or key for remote providers." env:"COPILOT_CONFIG"`
	ConfigProvider  string   `name:"config-provider" help:"Config source (file, consul, etcd, zookeeper)." default:"file" env:"COPILOT_CONFIG_PROVIDER"`
	ConfigEndpoints []string `name:"config-endpoints" help:"Endpoints of the remote config provider." sep:"," env:"COPILOT_CONFIG_ENDPOINTS"`

	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("copilot version %s\n", resolveVersion())
	return nil
}

func resolveVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("copilot"),
		kong.Description("GalaxyCo.ai workspace copilot"),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(&cli, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
