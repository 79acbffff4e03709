package main

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/IMMZEK/tamuhackx/pkg/link"
	"github.com/IMMZEK/tamuhackx/pkg/stream"
	"github.com/IMMZEK/tamuhackx/pkg/util"
)

type daemonConfig struct {
	Link          link.Config
	Stream        stream.Config
	FrameInterval time.Duration
	FrameWidth    uint32
	FrameHeight   uint32
	LogLevel      string
}

func defaultConfig() daemonConfig {
	return daemonConfig{
		Link: link.Config{
			TargetName:      util.DefaultTargetName,
			ConnectTimeout:  link.DefaultConnectTimeout,
			DiscoverTimeout: link.DefaultDiscoverTimeout,
			PreferredMTU:    util.PreferredMTU,
		},
		Stream: stream.Config{
			GridRows: util.DefaultGridRows,
			GridCols: util.DefaultGridCols,
		},
		FrameInterval: 100 * time.Millisecond,
		FrameWidth:    640,
		FrameHeight:   480,
		LogLevel:      "info",
	}
}

type fileConfig struct {
	TargetName      string `toml:"target_name"`
	ConnectTimeout  string `toml:"connect_timeout"`
	DiscoverTimeout string `toml:"discover_timeout"`
	PreferredMTU    int    `toml:"preferred_mtu"`
	GridRows        uint32 `toml:"grid_rows"`
	GridCols        uint32 `toml:"grid_cols"`
	FrameInterval   string `toml:"frame_interval"`
	FrameWidth      uint32 `toml:"frame_width"`
	FrameHeight     uint32 `toml:"frame_height"`
	LogLevel        string `toml:"log_level"`
}

func loadConfig(path string) (daemonConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, errors.Wrap(err, "load config issue: ")
	}

	if meta.IsDefined("target_name") {
		name := strings.TrimSpace(raw.TargetName)
		if name == "" {
			return daemonConfig{}, errors.New("target_name must not be blank")
		}
		cfg.Link.TargetName = name
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return daemonConfig{}, errors.Wrap(err, "parse connect_timeout issue: ")
		}
		cfg.Link.ConnectTimeout = d
	}
	if meta.IsDefined("discover_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DiscoverTimeout))
		if err != nil {
			return daemonConfig{}, errors.Wrap(err, "parse discover_timeout issue: ")
		}
		cfg.Link.DiscoverTimeout = d
	}
	if meta.IsDefined("preferred_mtu") {
		if raw.PreferredMTU <= util.AttWriteHeaderBytes {
			return daemonConfig{}, errors.New("preferred_mtu leaves no payload room")
		}
		cfg.Link.PreferredMTU = raw.PreferredMTU
	}
	if meta.IsDefined("grid_rows") {
		cfg.Stream.GridRows = raw.GridRows
	}
	if meta.IsDefined("grid_cols") {
		cfg.Stream.GridCols = raw.GridCols
	}
	if meta.IsDefined("frame_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.FrameInterval))
		if err != nil {
			return daemonConfig{}, errors.Wrap(err, "parse frame_interval issue: ")
		}
		cfg.FrameInterval = d
	}
	if meta.IsDefined("frame_width") {
		cfg.FrameWidth = raw.FrameWidth
	}
	if meta.IsDefined("frame_height") {
		cfg.FrameHeight = raw.FrameHeight
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}
