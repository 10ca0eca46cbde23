package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/untillpro/goutils/logger"
)

type config struct {
	LogLevel      string `toml:"log_level"`
	Format        string `toml:"format"`
	MaxDepth      int    `toml:"max_depth"`
	QueueCapacity int    `toml:"queue_capacity"`
	Compress      bool   `toml:"compress"`
}

func defaultConfig() config {
	return config{LogLevel: "warning", Format: "json"}
}

func loadConfig(path string) (config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return c, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logger.Warning("config: ignoring unknown keys", undecoded)
	}
	return c, nil
}

func parseLogLevel(s string) (logger.TLogLevel, error) {
	switch strings.ToLower(s) {
	case "", "warning", "warn":
		return logger.LogLevelWarning, nil
	case "none":
		return logger.LogLevelNone, nil
	case "error":
		return logger.LogLevelError, nil
	case "info":
		return logger.LogLevelInfo, nil
	case "verbose", "debug":
		return logger.LogLevelVerbose, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
