package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment variables read by viper (VMPOWER_ENDPOINT, ...).
const EnvPrefix = "VMPOWER"

// legacyEnv maps settings to the un-prefixed AUTH_* variable names.
var legacyEnv = map[string]string{
	"endpoint":     "AUTH_ENDPOINT",
	"username":     "AUTH_USERNAME",
	"password":     "AUTH_PASSWORD",
	"account-name": "AUTH_ACCOUNT_NAME",
}

// BindEnvironment wires env lookups into v. Prefixed names take precedence over
// the legacy ones.
func BindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return err
		}
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none) into the
// process environment. Variables already set are left alone; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ReadConfigFile merges a YAML config file into v when path is set.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	return v.ReadInConfig()
}
