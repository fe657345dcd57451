package tanuki

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config struct
type Config struct {
	Values map[string]string

	// Derived settings
	ConverterTool  string        // foreign-to-native converter binary (debtap)
	ConvertTimeout time.Duration // hard cap on one conversion run
	InstallIdle    time.Duration // output-inactivity watchdog for the install step
}

// Load /etc/tanuki.conf and apply defaults
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	// Merge TANUKI_* env overrides
	mergeEnvOverrides(cfg)

	// Ensure TMPDIR has a default
	if tmp := cfg.Values["TMPDIR"]; tmp == "" {
		cfg.Values["TMPDIR"] = "/tmp"
	}

	return cfg, nil
}

// Merge TANUKI_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "TANUKI_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}

	// TMPDIR is honored from the environment unless the config file set one
	if tmp := os.Getenv("TMPDIR"); tmp != "" {
		if _, exists := cfg.Values["TMPDIR"]; !exists {
			cfg.Values["TMPDIR"] = tmp
		}
	}
}

func initConfig(cfg *Config) {
	tmpDir = cfg.Values["TMPDIR"]
	if tmpDir == "" {
		tmpDir = "/tmp"
	}

	Debug = cfg.Values["TANUKI_DEBUG"] == "1"

	cfg.ConverterTool = cfg.Values["TANUKI_CONVERTER"]
	if cfg.ConverterTool == "" {
		cfg.ConverterTool = "debtap"
	}

	cfg.ConvertTimeout = durationValue(cfg, "TANUKI_CONVERT_TIMEOUT", 5*time.Minute)
	cfg.InstallIdle = durationValue(cfg, "TANUKI_INSTALL_IDLE", 10*time.Minute)

	if pats := cfg.Values["TANUKI_PATTERNS"]; pats != "" {
		PatternsFile = pats
	}
}

// durationValue parses a config entry as seconds or a Go duration string.
func durationValue(cfg *Config, key string, def time.Duration) time.Duration {
	raw := cfg.Values[key]
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	debugf("ignoring invalid %s value %q\n", key, raw)
	return def
}
