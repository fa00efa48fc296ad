package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/djdv/go-pagesim"
	"github.com/djdv/go-pagesim/arbiter"
	"github.com/djdv/go-pagesim/mmu"
)

type constError string

// errInvalidConfig is wrapped by every error
// caused by a configuration file or value.
const errInvalidConfig = constError("invalid configuration")

func (errStr constError) Error() string { return string(errStr) }

type config struct {
	Policy         string `json:"POLICY"`
	Strategy       string `json:"STRATEGY"`
	LogLevel       string `json:"LOG_LEVEL"`
	Trace          string `json:"TRACE"`
	TraceScript    string `json:"TRACE_SCRIPT"`
	PageSize       uint64 `json:"PAGE_SIZE"`
	Capacity       int    `json:"CAPACITY"`
	TLBEntries     int    `json:"TLB_ENTRIES"`
	Resources      int    `json:"RESOURCES"`
	Meals          int    `json:"MEALS"`
	TimeoutMS      int    `json:"TIMEOUT_MS"`
	BackoffMS      int    `json:"BACKOFF_MS"`
	AdmissionLimit int    `json:"ADMISSION_LIMIT"`
	Window         int    `json:"WINDOW"`
	EatMS          int    `json:"EAT_MS"`
	PoolSize       uint64 `json:"POOL_SIZE"`
	Fit            string `json:"FIT"`
	Requests       string `json:"REQUESTS"`
	// Command line only.
	Capacities string `json:"-"`
	Verbose    bool   `json:"-"`
}

func defaultConfig() config {
	return config{
		Policy:     "LRU",
		Strategy:   "central-broker",
		LogLevel:   "info",
		Trace:      "reference",
		PageSize:   1024,
		Capacity:   3,
		TLBEntries: 4,
		Resources:  5,
		Meals:      3,
		TimeoutMS:  1000,
		BackoffMS:  100,
		Window:     4,
		PoolSize:   mmu.DefaultPoolSize,
		Fit:        "first",
		Requests:   "1:200000 2:150000 3:300000 -2 4:100000",
	}
}

// loadConfig decodes the JSON file at path over defaults.
// Keys missing from the file keep their default values.
func loadConfig[T any](path string, defaults T) (*T, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %q: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&defaults); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", errInvalidConfig, absPath, err)
	}
	return &defaults, nil
}

func (c *config) policy() (pagesim.PolicyKind, error) {
	return pagesim.ParsePolicyKind(c.Policy)
}

func (c *config) arbiterConfig() (arbiter.Config, error) {
	strategy, err := arbiter.ParseStrategy(c.Strategy)
	if err != nil {
		return arbiter.Config{}, err
	}
	if c.TimeoutMS < 0 || c.BackoffMS < 0 {
		return arbiter.Config{}, fmt.Errorf("%w: negative TIMEOUT_MS or BACKOFF_MS",
			errInvalidConfig)
	}
	return arbiter.Config{
		Resources:      c.Resources,
		Strategy:       strategy,
		Timeout:        time.Duration(c.TimeoutMS) * time.Millisecond,
		BackoffBase:    time.Duration(c.BackoffMS) * time.Millisecond,
		AdmissionLimit: c.AdmissionLimit,
		Seed:           uint64(time.Now().UnixNano()),
	}, nil
}
