// Copyright © 2024 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package config reads the default configuration
// from the environment.
// Command flags override these values.
package config

import (
	"os"
	"strconv"
)

// Config holds the placetree configuration.
type Config struct {
	NCBI   NCBIConfig
	Lookup LookupConfig

	// LogLevel is the logging level
	// ("debug", "info", "warn", "error").
	LogLevel string
}

// NCBIConfig holds the settings of the NCBI Entrez service.
type NCBIConfig struct {
	Email   string
	APIKey  string
	URL     string
	Rate    float64 // requests per second
	Retries int

	// RateSet is true if the rate
	// was defined in the environment.
	RateSet bool
}

// LookupConfig holds the settings of the taxonomy lookups.
type LookupConfig struct {
	Workers int
	Cache   string // taxonomy cache file
}

// Default values.
const (
	DefaultRate    = 3
	KeyRate        = 10
	DefaultWorkers = 4
	DefaultRetries = 3
)

// Load reads configuration from environment variables with defaults.
func Load() Config {
	key := os.Getenv("PLACETREE_NCBI_API_KEY")
	rate := float64(DefaultRate)
	if key != "" {
		rate = KeyRate
	}

	return Config{
		NCBI: NCBIConfig{
			Email:   os.Getenv("PLACETREE_NCBI_EMAIL"),
			APIKey:  key,
			URL:     os.Getenv("PLACETREE_NCBI_URL"),
			Rate:    getenvFloat("PLACETREE_NCBI_RATE", rate),
			Retries: getenvInt("PLACETREE_RETRIES", DefaultRetries),
			RateSet: os.Getenv("PLACETREE_NCBI_RATE") != "",
		},
		Lookup: LookupConfig{
			Workers: getenvInt("PLACETREE_LOOKUP_WORKERS", DefaultWorkers),
			Cache:   os.Getenv("PLACETREE_CACHE"),
		},
		LogLevel: getenv("PLACETREE_LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return fallback
	}
	return i
}
