package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/canonical/charm-release/internal/constants"
	"github.com/canonical/charm-release/internal/errors"
)

// newViperInstance creates a Viper instance with defaults, the
// CHARM_RELEASE_ environment prefix and key replacer applied.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CHARM_RELEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from all available sources with proper
// precedence (highest first):
//  1. Environment variables (CHARM_RELEASE_* prefix)
//  2. Working-directory config (.charm-release.yaml)
//  3. Home config ($CHARM_RELEASE_HOME/config.yaml, default ~/.charm-release)
//  4. Built-in defaults
//
// Missing config files are expected and never an error.
func Load() (*Config, error) {
	v := newViperInstance()

	if path, ok := homeConfigPath(); ok {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read home config file")
		}
	}

	localPath := ".charm-release.yaml"
	if fileExists(localPath) {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read local config file")
		}
	}

	return unmarshalAndValidate(v)
}

// LoadFromPath loads configuration from one explicit file, for tests and the
// --config flag.
func LoadFromPath(path string) (*Config, error) {
	v := newViperInstance()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read config: %s", path)
		}
	}
	return unmarshalAndValidate(v)
}

// unmarshalAndValidate unmarshals the viper state into Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// setDefaults configures all default values on the Viper instance.
// These mirror the production release process for the k8s-operator charms.
// IMPORTANT: Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	// Bundle defaults: the k8s-operator bundle is the k8s and k8s-worker
	// charms tested together.
	v.SetDefault("bundle.name", "k8s-operator")
	v.SetDefault("bundle.charms", []string{"k8s", "k8s-worker"})

	// Charmhub defaults
	v.SetDefault("charmhub.bases", []string{"20.04", "22.04", "24.04", "26.04", "28.04", "30.04"})
	v.SetDefault("charmhub.archs", []string{"amd64", "arm64"})
	v.SetDefault("charmhub.supported_arch", "amd64")
	v.SetDefault("charmhub.timeout", "10s")
	v.SetDefault("charmhub.charmcraft_path", "/snap/bin/charmcraft")
	v.SetDefault("charmhub.command_timeout", "5m")

	// SQA defaults. The product and test plan identifiers are tribal
	// knowledge; eventually these should appear in the SQA docs.
	v.SetDefault("sqa.product_uuid", "246d8ed3-b1dd-4875-a932-0cbc1b1c86b5")
	v.SetDefault("sqa.test_plan_id", "394fb5b6-1698-4226-bd3e-23b471ee1bd4")
	v.SetDefault("sqa.test_plan_name", "CanonicalK8s")
	v.SetDefault("sqa.weebl_path", "/snap/bin/weebl-tools.sqalab")
	v.SetDefault("sqa.base_priority", 3)
	v.SetDefault("sqa.command_timeout", "60s")

	// Snap defaults
	v.SetDefault("snap.name", "k8s")
	v.SetDefault("snap.timeout", "10s")
	v.SetDefault("snap.snapcraft_path", "/snap/bin/snapcraft")
	v.SetDefault("snap.command_timeout", "5m")

	// Ladder defaults: minimum days a revision stays at a risk level before
	// being promoted. Stable is terminal and has no dwell entry.
	v.SetDefault("ladder.ignored_tracks", []string{"latest"})
	v.SetDefault("ladder.dwell_days", map[string]int{
		"edge":      1,
		"beta":      3,
		"candidate": 5,
	})
	v.SetDefault("ladder.series", []string{"20.04", "22.04", "24.04"})

	// Upstream release discovery
	v.SetDefault("k8s.tags_url", "https://api.github.com/repos/kubernetes/kubernetes/tags?per_page=100")
	v.SetDefault("k8s.timeout", "30s")

	// Results file
	v.SetDefault("results.path", constants.DefaultResultsFile)
}

// viperDecoderOption configures mapstructure to convert duration strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// homeConfigPath returns $CHARM_RELEASE_HOME/config.yaml (default
// ~/.charm-release/config.yaml) if it exists.
func homeConfigPath() (string, bool) {
	home := os.Getenv(constants.EnvHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		home = filepath.Join(userHome, constants.HomeDirName)
	}
	path := filepath.Join(home, "config.yaml")
	if !fileExists(path) {
		return "", false
	}
	return path, true
}

// isConfigNotFoundError returns true for viper's config-file-not-found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound)
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
