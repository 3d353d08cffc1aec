package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
)

const defaultConfigPath = "brainzzz.toml"

// appConfig mirrors the TOML config file. Flags override anything set here;
// values left zero fall back to the built-in defaults.
type appConfig struct {
	Backend   backendSection   `toml:"backend"`
	Dashboard dashboardSection `toml:"dashboard"`
	Archive   archiveSection   `toml:"archive"`
	Export    exportSection    `toml:"export"`
	View      viewSection      `toml:"view"`
}

type backendSection struct {
	URL     string `toml:"url"`
	FeedURL string `toml:"feed_url"`
}

type dashboardSection struct {
	Listen string `toml:"listen"`
	URL    string `toml:"url"`
}

type archiveSection struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type exportSection struct {
	Dir string `toml:"dir"`
}

type viewSection struct {
	Layout       string  `toml:"layout"`
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	ShowWeights  bool    `toml:"show_weights"`
	ShowDisabled bool    `toml:"show_disabled"`
	NodeScale    float64 `toml:"node_scale"`
}

// loadConfig reads the TOML file at path. A missing file is only an error
// when the operator named the path explicitly.
func loadConfig(path string, explicit bool) (appConfig, error) {
	var cfg appConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return appConfig{}, nil
		}
		return appConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return appConfig{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
