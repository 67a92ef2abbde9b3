// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the cli configuration loaded from config.yaml.
type Config struct {
	// APIBaseURL is the base URL of the running validator service.
	APIBaseURL string `yaml:"api_base_url"`

	// DefaultCategory saves typing --category on every call for
	// single-study usage.
	DefaultCategory string `yaml:"default_category"`

	// DefaultLanguage is the ISO language code sent with requests.
	DefaultLanguage string `yaml:"default_language"`

	// TimeoutSeconds bounds each HTTP call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LoadConfig reads the yaml config, falling back to defaults when the file
// is absent. A malformed file is fatal; a missing one is not, because every
// value has a flag or default.
func LoadConfig(path string) Config {
	cfg := Config{
		APIBaseURL:      "http://localhost:12310",
		DefaultLanguage: "en",
		TimeoutSeconds:  120,
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Error reading %s: %v", path, err)
		}
		return cfg
	}

	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		log.Fatalf("Error parsing %s: %v", path, err)
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 120
	}
	return cfg
}

// Timeout returns the configured HTTP timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
