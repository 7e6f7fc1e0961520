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


package main

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/logger"
)

const (
	LogLevelEnvVar  = "LOG_LEVEL"
	LogFileEnvVar   = "LOG_FILE"
	LogFormatEnvVar = "LOG_FORMAT"
)

var (
	logMu      sync.Mutex
	logCleanup func()
)

// initLogger installs the logger. Priority: CLI flags > environment >
// config file > defaults. It may be called again once the config is
// known; the previous log file is closed.
func initLogger(cli *CLI, cfg *config.LoggerConfig) (func(), error) {
	var fromCfg config.LoggerConfig
	if cfg != nil {
		fromCfg = *cfg
	}

	levelStr := firstNonEmpty(cli.LogLevel, os.Getenv(LogLevelEnvVar), fromCfg.Level, "info")
	file := firstNonEmpty(cli.LogFile, os.Getenv(LogFileEnvVar), fromCfg.File)
	format := firstNonEmpty(cli.LogFormat, os.Getenv(LogFormatEnvVar), fromCfg.Format, "simple")

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}

	var (
		out     io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if file != "" {
		f, closeFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, err
		}
		out, cleanup = f, closeFn
	}

	logMu.Lock()
	prev := logCleanup
	logCleanup = cleanup
	logMu.Unlock()

	logger.Init(level, out, format)
	if prev != nil {
		prev()
	}
	slog.Debug("Logger initialized", "level", levelStr, "format", format, "file", file)

	return func() {
		logMu.Lock()
		defer logMu.Unlock()
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
