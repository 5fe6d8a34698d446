package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix marks environment variables that override the config file,
// DBOARDSRV_MOTHERBOARD_ADDR sets Motherboard.Addr
const EnvPrefix = "DBOARDSRV_"

type usbConfig struct {
	// VID and PID select a USB attached motherboard.  A zero VID means the
	// motherboard is reached over Addr instead.
	VID uint16 `koanf:"VID" yaml:"VID"`
	PID uint16 `koanf:"PID" yaml:"PID"`
}

type motherboardConfig struct {
	// Addr is host:port for a networked motherboard or the name of a serial
	// port when Serial is true
	Addr   string `koanf:"Addr" yaml:"Addr"`
	Serial bool   `koanf:"Serial" yaml:"Serial"`
	Baud   int    `koanf:"Baud" yaml:"Baud"`

	USB usbConfig `koanf:"USB" yaml:"USB"`

	// MasterClockRate is the motherboard clock in Hz
	MasterClockRate float64 `koanf:"MasterClockRate" yaml:"MasterClockRate"`

	// PacketsPerSecond limits the control packet rate, zero for no limit
	PacketsPerSecond float64 `koanf:"PacketsPerSecond" yaml:"PacketsPerSecond"`

	Timeout time.Duration `koanf:"Timeout" yaml:"Timeout"`
}

type config struct {
	Addr        string            `koanf:"Addr" yaml:"Addr"`
	Root        string            `koanf:"Root" yaml:"Root"`
	Mock        bool              `koanf:"Mock" yaml:"Mock"`
	LogLevel    string            `koanf:"LogLevel" yaml:"LogLevel"`
	Development bool              `koanf:"Development" yaml:"Development"`
	Motherboard motherboardConfig `koanf:"Motherboard" yaml:"Motherboard"`
}

func defaults() config {
	return config{
		Addr:     ":8000",
		Root:     "/",
		LogLevel: "info",
		Motherboard: motherboardConfig{
			Addr:             "192.168.10.2:49200",
			Baud:             115200,
			MasterClockRate:  100e6,
			PacketsPerSecond: 0,
			Timeout:          3 * time.Second,
		},
	}
}

// envKey maps DBOARDSRV_MOTHERBOARD_MASTERCLOCKRATE to the canonical key
// Motherboard.MasterClockRate.  keys are the canonical keys already loaded.
func envKey(keys []string) func(string) string {
	canon := make(map[string]string, len(keys))
	for _, k := range keys {
		canon[strings.ToLower(k)] = k
	}
	return func(s string) string {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "_", "."))
		if c, ok := canon[key]; ok {
			return c
		}
		return key
	}
}

// loadConfig loads the defaults, then the file fn if it exists, then the
// environment into k
func loadConfig(k *koanf.Koanf, fn string) error {
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return err
	}
	if err := k.Load(file.Provider(fn), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			return fmt.Errorf("loading %s: %w", fn, err)
		}
	}
	return k.Load(env.Provider(EnvPrefix, ".", envKey(k.Keys())), nil)
}

// newLogger builds a production or development logger at the configured level
func newLogger(c config) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
