package sqa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/cmdrunner"
	"github.com/canonical/charm-release/internal/config"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// Client talks to the SQA lab through its CLI. All operations are
// synchronous; mutating operations are idempotent by deterministic naming
// (product versions by (channel, version), addons by version key), which is
// the sole concurrency-safety mechanism against other writers.
type Client struct {
	runner       cmdrunner.Runner
	weebl        string
	productUUID  string
	testPlanID   string
	testPlanName string
	log          zerolog.Logger
}

// New returns an SQA client using the given command runner.
func New(cfg config.SQAConfig, runner cmdrunner.Runner, log zerolog.Logger) *Client {
	return &Client{
		runner:       runner,
		weebl:        cfg.WeeblPath,
		productUUID:  cfg.ProductUUID,
		testPlanID:   cfg.TestPlanID,
		testPlanName: cfg.TestPlanName,
		log:          log.With().Str("component", "sqa").Logger(),
	}
}

// run invokes the SQA CLI, wrapping failures in ErrSQACommand.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.log.Debug().Strs("args", args).Msg("running sqa command")
	out, err := c.runner.Run(ctx, c.weebl, args...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrSQACommand, err)
	}
	return out, nil
}

// ResolveStatus reduces all test plan instances recorded for the (channel,
// version) key to one effective status:
//
//	any Passed       -> Passed
//	any In Progress  -> In Progress
//	any Failed/error -> Failed
//	otherwise        -> not found
//
// Aborted instances are ignored since they hold no information about the
// state of a track. The result is recomputed from the service on every call;
// nothing is cached within a pass.
func (c *Client) ResolveStatus(ctx context.Context, channel, version string) (Status, bool, error) {
	productVersions, err := c.productVersions(ctx, channel, version)
	if err != nil {
		return "", false, err
	}
	if len(productVersions) == 0 {
		return "", false, nil
	}

	for _, tier := range []Status{StatusPassed, StatusInProgress, StatusFailed, StatusError} {
		found, err := c.anyInstanceWithStatus(ctx, productVersions, tier)
		if err != nil {
			return "", false, err
		}
		if found {
			if tier == StatusError {
				// Errored runs gate the track the same way failed runs do.
				return StatusFailed, true, nil
			}
			return tier, true, nil
		}
	}
	return "", false, nil
}

// StartTest idempotently submits one release test: it reuses or creates the
// product version for the (channel, version) key, materializes the addon
// payload for the variable set (reusing an addon of the same name), and
// creates one test plan instance at the given priority.
func (c *Client) StartTest(ctx context.Context, p StartTestParams) error {
	productVersions, err := c.productVersions(ctx, p.Channel, p.Version)
	if err != nil {
		return err
	}

	var productVersion ProductVersion
	switch len(productVersions) {
	case 0:
		productVersion, err = c.createProductVersion(ctx, p.Channel, p.Base, p.Version)
		if err != nil {
			return err
		}
	case 1:
		productVersion = productVersions[0]
		c.log.Info().
			Str("uuid", productVersion.UUID.String()).
			Msg("using already defined product version")
	default:
		return fmt.Errorf("%w: (%s, %s, %s) is supposed to have only one product version for version %s",
			apperrors.ErrInvariant, p.Channel, p.Base, p.Arch, p.Version)
	}

	vars := Variables{
		Base:      p.Base,
		Arch:      p.Arch,
		Channel:   p.Channel,
		Branch:    BranchForChannel(p.Channel),
		Revisions: p.Revisions,
		Transform: p.Transform,
	}
	addon, err := c.ensureAddon(ctx, p.Version, vars)
	if err != nil {
		return err
	}

	instance, err := c.createTestPlanInstance(ctx, productVersion.UUID, addon.UUID, p.Priority)
	if err != nil {
		return err
	}
	c.log.Info().
		Str("channel", p.Channel).
		Str("uuid", instance.UUID.String()).
		Int("priority", p.Priority).
		Msg("started release test")
	return nil
}

// Build returns the status and result of a single SQA build.
func (c *Client) Build(ctx context.Context, buildUUID string) (*Build, error) {
	out, err := c.run(ctx, "build", "show", "--format", "json", "--uuid", buildUUID)
	if err != nil {
		return nil, err
	}
	builds, err := decodeArray[Build](out)
	if err != nil {
		return nil, err
	}
	switch len(builds) {
	case 0:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrBuildNotFound, buildUUID)
	case 1:
		return &builds[0], nil
	default:
		return nil, fmt.Errorf("%w: %d builds returned for uuid %s", apperrors.ErrInvariant, len(builds), buildUUID)
	}
}

// CreateBuild submits a single standalone build for the variable set. Used
// by the insight seeding path, not the release gating.
func (c *Client) CreateBuild(ctx context.Context, vars Variables) (*Build, error) {
	tempDir, err := os.MkdirTemp("", "sqa-build-")
	if err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	addonDir, err := renderAddonDir(tempDir, vars)
	if err != nil {
		return nil, err
	}

	out, err := c.run(ctx, "build", "add", "--format", "json", "--addon", addonDir)
	if err != nil {
		return nil, err
	}
	builds, err := decodeArray[Build](out)
	if err != nil {
		return nil, err
	}
	if len(builds) != 1 {
		return nil, fmt.Errorf("%w: %d builds returned from create command", apperrors.ErrInvariant, len(builds))
	}
	c.log.Info().Str("uuid", builds[0].UUID.String()).Msg("created build")
	return &builds[0], nil
}

// productVersions lists the product versions recorded for (channel, version).
func (c *Client) productVersions(ctx context.Context, channel, version string) ([]ProductVersion, error) {
	c.log.Info().Str("channel", channel).Str("version", version).Msg("getting product versions")
	out, err := c.run(ctx, "productversion", "list", "--channel", channel, "--version", version, "--format", "json")
	if err != nil {
		return nil, err
	}
	return decodeArray[ProductVersion](out)
}

// createProductVersion registers the (channel, version) binding.
func (c *Client) createProductVersion(ctx context.Context, channel, base, version string) (ProductVersion, error) {
	c.log.Info().Str("channel", channel).Str("version", version).Msg("creating product version")
	out, err := c.run(ctx, "productversion", "add", "--format", "json",
		"--product-uuid", c.productUUID,
		"--channel", channel,
		"--version", version,
		"--series", base)
	if err != nil {
		return ProductVersion{}, err
	}
	productVersions, err := decodeArray[ProductVersion](out)
	if err != nil {
		return ProductVersion{}, err
	}
	if len(productVersions) != 1 {
		return ProductVersion{}, fmt.Errorf("%w: %d product versions returned from create command",
			apperrors.ErrInvariant, len(productVersions))
	}
	return productVersions[0], nil
}

// anyInstanceWithStatus reports whether any test plan instance across the
// product versions carries the status.
func (c *Client) anyInstanceWithStatus(ctx context.Context, productVersions []ProductVersion, status Status) (bool, error) {
	for _, pv := range productVersions {
		uuids, err := c.instanceUUIDs(ctx, pv.UUID, status)
		if err != nil {
			return false, err
		}
		if len(uuids) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// instanceUUIDs lists the test plan instances of one product version with
// the given status. The CLI returns a JSON object keyed by test plan name.
func (c *Client) instanceUUIDs(ctx context.Context, productVersion uuid.UUID, status Status) ([]uuid.UUID, error) {
	c.log.Debug().
		Str("product_version", productVersion.String()).
		Str("status", string(status)).
		Msg("getting test plan instances")
	out, err := c.run(ctx, "testplaninstance", "list", "--format", "json",
		"--productversion-uuid", productVersion.String(),
		"--status", strings.ToLower(string(status)))
	if err != nil {
		return nil, err
	}

	// The CLI prints progress noise ahead of the JSON document. No document
	// at all (or a bare empty array) means no instances, not an error.
	idx := strings.LastIndex(out, "{")
	if idx == -1 {
		return nil, nil
	}

	byPlan := make(map[string][]uuid.UUID)
	if err := json.Unmarshal([]byte(strings.TrimSpace(out[idx:])), &byPlan); err != nil {
		return nil, fmt.Errorf("%w: unparseable test plan instance list: %v", apperrors.ErrInvariant, err)
	}
	return byPlan[c.testPlanName], nil
}

// ensureAddon reuses the addon named after the version key, or renders and
// creates it. Reuse-by-name keeps StartTest idempotent under retry.
func (c *Client) ensureAddon(ctx context.Context, name string, vars Variables) (Addon, error) {
	out, err := c.run(ctx, "addon", "list", "--format", "json", "--name", name)
	if err != nil {
		return Addon{}, err
	}
	addons, err := decodeArray[Addon](out)
	if err != nil {
		return Addon{}, err
	}
	switch len(addons) {
	case 0:
		return c.createAddon(ctx, name, vars)
	case 1:
		c.log.Info().Str("name", name).Msg("reusing existing addon")
		return addons[0], nil
	default:
		return Addon{}, fmt.Errorf("%w: %d addons named %s", apperrors.ErrInvariant, len(addons), name)
	}
}

// createAddon renders the templated job configuration and registers it.
func (c *Client) createAddon(ctx context.Context, name string, vars Variables) (Addon, error) {
	tempDir, err := os.MkdirTemp("", "sqa-addon-")
	if err != nil {
		return Addon{}, fmt.Errorf("failed to create addon directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	addonDir, err := renderAddonDir(tempDir, vars)
	if err != nil {
		return Addon{}, err
	}

	c.log.Info().Str("name", name).Msg("creating addon")
	out, err := c.run(ctx, "addon", "add", "--addon", addonDir, "--name", name, "--format", "json")
	if err != nil {
		return Addon{}, err
	}
	addons, err := decodeArray[Addon](out)
	if err != nil {
		return Addon{}, err
	}
	if len(addons) != 1 {
		return Addon{}, fmt.Errorf("%w: %d addons returned from create command", apperrors.ErrInvariant, len(addons))
	}
	return addons[0], nil
}

// createTestPlanInstance binds a new test plan instance to the product
// version and addon at the given base priority.
func (c *Client) createTestPlanInstance(ctx context.Context, productVersion, addon uuid.UUID, priority int) (TestPlanInstance, error) {
	c.log.Info().Str("product_version", productVersion.String()).Msg("creating test plan instance")
	out, err := c.run(ctx, "testplaninstance", "add", "--format", "json",
		"--test_plan", c.testPlanID,
		"--addon_id", addon.String(),
		"--status", string(StatusInProgress),
		"--base_priority", fmt.Sprintf("%d", priority),
		"--product_under_test", productVersion.String())
	if err != nil {
		return TestPlanInstance{}, err
	}
	instances, err := decodeArray[TestPlanInstance](out)
	if err != nil {
		return TestPlanInstance{}, err
	}
	if len(instances) != 1 {
		return TestPlanInstance{}, fmt.Errorf("%w: %d test plan instances returned from create command",
			apperrors.ErrInvariant, len(instances))
	}
	return instances[0], nil
}

// decodeArray parses a JSON array out of CLI output that may carry progress
// noise around the document.
func decodeArray[T any](out string) ([]T, error) {
	jsonStr := strings.TrimSpace(out)
	if jsonStr == "" {
		return nil, nil
	}
	start := strings.Index(jsonStr, "[")
	end := strings.LastIndex(jsonStr, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in command output", apperrors.ErrInvariant)
	}
	var items []T
	if err := json.Unmarshal([]byte(jsonStr[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: unparseable command output: %v", apperrors.ErrInvariant, err)
	}
	return items, nil
}
