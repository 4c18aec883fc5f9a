// Package config provides configuration loading and validation for
// charm-release. Configuration comes from built-in defaults, an optional
// YAML config file and CHARM_RELEASE_* environment variables.
package config

import (
	"fmt"
	"time"

	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Config is the root configuration for all entry points.
type Config struct {
	Bundle   BundleConfig   `mapstructure:"bundle"`
	Charmhub CharmhubConfig `mapstructure:"charmhub"`
	SQA      SQAConfig      `mapstructure:"sqa"`
	Snap     SnapConfig     `mapstructure:"snap"`
	Ladder   LadderConfig   `mapstructure:"ladder"`
	K8s      K8sConfig      `mapstructure:"k8s"`
	Results  ResultsConfig  `mapstructure:"results"`
}

// BundleConfig describes the multi-charm product tested and promoted as a
// unit.
type BundleConfig struct {
	// Name is the product identifier, e.g. "k8s-operator".
	Name string `mapstructure:"name"`
	// Charms lists the charms in the bundle. The first entry is the primary
	// charm whose revision keys the seed state file.
	Charms []string `mapstructure:"charms"`
}

// CharmhubConfig configures the Charmhub refresh API client and the
// charmcraft promotion command.
type CharmhubConfig struct {
	// Bases are the Ubuntu bases queried per channel.
	Bases []string `mapstructure:"bases"`
	// Archs are the architectures queried per channel.
	Archs []string `mapstructure:"archs"`
	// SupportedArch is the single architecture the test service can bind
	// environments for. Cells for other architectures are skipped.
	SupportedArch string `mapstructure:"supported_arch"`
	// Timeout bounds a single store API request.
	Timeout time.Duration `mapstructure:"timeout"`
	// CharmcraftPath is the charmcraft binary.
	CharmcraftPath string `mapstructure:"charmcraft_path"`
	// CommandTimeout bounds a single charmcraft invocation.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// SQAConfig configures the SQA lab CLI client.
type SQAConfig struct {
	// ProductUUID identifies the product in the SQA lab.
	ProductUUID string `mapstructure:"product_uuid"`
	// TestPlanID identifies the test plan used for release gating.
	TestPlanID string `mapstructure:"test_plan_id"`
	// TestPlanName is the test plan's display name, which keys the
	// test-plan-instance list output.
	TestPlanName string `mapstructure:"test_plan_name"`
	// WeeblPath is the SQA lab CLI binary.
	WeeblPath string `mapstructure:"weebl_path"`
	// BasePriority is the priority assigned to the first test job submitted
	// in a reconciliation pass; later jobs get higher values.
	BasePriority int `mapstructure:"base_priority"`
	// CommandTimeout bounds a single CLI invocation.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// SnapConfig configures the snap store client and snapcraft.
type SnapConfig struct {
	// Name is the snap whose tracks are promoted, e.g. "k8s".
	Name string `mapstructure:"name"`
	// Timeout bounds a single store API request.
	Timeout time.Duration `mapstructure:"timeout"`
	// SnapcraftPath is the snapcraft binary.
	SnapcraftPath string `mapstructure:"snapcraft_path"`
	// CommandTimeout bounds a single snapcraft invocation.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// LadderConfig configures the risk-ladder promoter.
type LadderConfig struct {
	// IgnoredTracks are never auto-promoted.
	IgnoredTracks []string `mapstructure:"ignored_tracks"`
	// DwellDays maps a risk level to the minimum days a revision stays there
	// before being eligible for promotion.
	DwellDays map[string]int `mapstructure:"dwell_days"`
	// Series are the Ubuntu series integration proposals run against.
	Series []string `mapstructure:"series"`
}

// K8sConfig configures upstream release discovery.
type K8sConfig struct {
	// TagsURL is the paginated GitHub tags endpoint.
	TagsURL string `mapstructure:"tags_url"`
	// Timeout bounds a single page request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ResultsConfig configures the results file handed to follow-up automation.
type ResultsConfig struct {
	// Path of the flat key=value results file.
	Path string `mapstructure:"path"`
}

// Validate checks the configuration for values the reconcilers cannot
// operate with. All violations wrap ErrConfigInvalid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", apperrors.ErrConfigInvalid)
	}
	if cfg.Bundle.Name == "" {
		return fmt.Errorf("%w: bundle.name must be set", apperrors.ErrConfigInvalid)
	}
	if len(cfg.Bundle.Charms) == 0 {
		return fmt.Errorf("%w: bundle.charms must list at least one charm", apperrors.ErrConfigInvalid)
	}
	if len(cfg.Charmhub.Bases) == 0 || len(cfg.Charmhub.Archs) == 0 {
		return fmt.Errorf("%w: charmhub.bases and charmhub.archs must be non-empty", apperrors.ErrConfigInvalid)
	}
	if cfg.Charmhub.SupportedArch == "" {
		return fmt.Errorf("%w: charmhub.supported_arch must be set", apperrors.ErrConfigInvalid)
	}
	if cfg.Charmhub.Timeout <= 0 || cfg.Snap.Timeout <= 0 || cfg.K8s.Timeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", apperrors.ErrConfigInvalid)
	}
	if cfg.SQA.CommandTimeout <= 0 || cfg.Charmhub.CommandTimeout <= 0 || cfg.Snap.CommandTimeout <= 0 {
		return fmt.Errorf("%w: command timeouts must be positive", apperrors.ErrConfigInvalid)
	}
	if cfg.SQA.BasePriority < 0 {
		return fmt.Errorf("%w: sqa.base_priority must not be negative", apperrors.ErrConfigInvalid)
	}
	if cfg.Snap.Name == "" {
		return fmt.Errorf("%w: snap.name must be set", apperrors.ErrConfigInvalid)
	}
	// Every non-terminal risk needs a dwell entry; a missing one would read
	// as a zero-day dwell and promote revisions instantly.
	for _, risk := range []string{"edge", "beta", "candidate"} {
		if _, ok := cfg.Ladder.DwellDays[risk]; !ok {
			return fmt.Errorf("%w: ladder.dwell_days[%s] must be set", apperrors.ErrConfigInvalid, risk)
		}
	}
	for risk, days := range cfg.Ladder.DwellDays {
		if days < 0 {
			return fmt.Errorf("%w: ladder.dwell_days[%s] must not be negative", apperrors.ErrConfigInvalid, risk)
		}
	}
	return nil
}
