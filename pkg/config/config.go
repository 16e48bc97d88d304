package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options tunes where Load reads from. The zero value reads .env and the environment only.
type Options struct {
	// Defaults are applied before any other source, keyed by dotted path ("store.driver").
	Defaults map[string]any
	// ConfigFile is an optional YAML/JSON/TOML file. Missing files are ignored.
	ConfigFile string
	// EnvFiles are loaded into the process environment without overriding existing variables.
	EnvFiles []string
	// Flags, when set, override every other source for flags the user actually passed.
	// Flag names map to keys by replacing "-" with "." ("store-driver" -> "store.driver").
	Flags *pflag.FlagSet
}

// Load loads configuration from an optional config file, .env files, environment variables and flags.
// prefix: Environment variable prefix (e.g. "MARKETPLACE_")
// target: Pointer to the config struct to load into
func Load(prefix string, target interface{}, opts Options) error {
	v := viper.New()

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	// 1. Optional config file
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
			}
		}
	}

	// 2. .env files feed the process environment
	envFiles := opts.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	// 3. Prefixed environment variables.
	// Viper's AutomaticEnv doesn't work well with Unmarshal if keys aren't known,
	// so walk the environment and set keys explicitly.
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		v.Set(EnvKey(prefixUpper, key), value)
	}

	// 4. Flags the user set explicitly
	if opts.Flags != nil {
		opts.Flags.Visit(func(f *pflag.Flag) {
			v.Set(strings.ReplaceAll(f.Name, "-", "."), f.Value.String())
		})
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// EnvKey converts an environment variable name into a dotted config key:
// MARKETPLACE_STORE_DRIVER -> store.driver
func EnvKey(prefix, name string) string {
	propKey := strings.TrimPrefix(name, strings.ToUpper(prefix))
	propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
	return strings.Trim(propKey, ".")
}
