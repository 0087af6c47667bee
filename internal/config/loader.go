package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "pivotsql.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "pivotsql.yml"

// EnvPrefix prefixes environment variables. A double underscore
// separates nested keys: PIVOTSQL_DATABASE__PATH sets database.path.
const EnvPrefix = "PIVOTSQL_"

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"database": "database.path",
	"db-type":  "database.type",
	"seed":     "seeds",
	"env":      "environment",
	"state":    "state_path",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > pivotsql.yaml > pivotsql.yml in dir
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Without an explicit cfgFile the working directory is searched.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return LoadFrom(dir, cfgFile, flags)
}

// LoadFrom is Load with the config file searched in dir.
func LoadFrom(dir, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"database.type": DefaultDatabaseType,
		"database.path": DefaultDatabasePath,
		"output":        DefaultOutput,
		"log_level":     DefaultLogLevel,
		"verbose":       false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFile := findConfigFile(cfgFile, dir)
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	// 3. Load environment variables
	// Transform: PIVOTSQL_LOG_LEVEL -> log_level, PIVOTSQL_DATABASE__PATH -> database.path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				// Transform kebab-case to snake_case for config keys
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = configFile

	// 6. Apply environment-specific overrides
	if cfg.Environment != "" {
		envCfg, ok := cfg.Environments[cfg.Environment]
		if !ok {
			return nil, fmt.Errorf("unknown environment %q", cfg.Environment)
		}
		if envCfg.Database != nil {
			cfg.Database = MergeDatabaseConfig(cfg.Database, *envCfg.Database)
		}
		if len(envCfg.Seeds) > 0 {
			cfg.Seeds = envCfg.Seeds
		}
	}

	// 7. Resolve relative paths against the config file's directory
	base := dir
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			base = filepath.Dir(abs)
		}
	}
	if cfg.Database.Path != DefaultDatabasePath {
		cfg.Database.Path = resolvePathRelativeTo(cfg.Database.Path, base)
	}
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base)
	for i, seed := range cfg.Seeds {
		cfg.Seeds[i] = resolvePathRelativeTo(seed, base)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// MergeDatabaseConfig merges two database configs, with override taking precedence.
func MergeDatabaseConfig(base, override adapter.Config) adapter.Config {
	merged := adapter.Config{
		Type:   base.Type,
		Path:   base.Path,
		Params: make(map[string]any, len(base.Params)+len(override.Params)),
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Path != "" {
		merged.Path = override.Path
	}
	// Merge params (override takes precedence)
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return merged
}
