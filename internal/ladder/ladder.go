// Package ladder implements the risk-ladder promoter: it walks the snap
// store channel map and proposes single-step promotions of revisions that
// have dwelled long enough at their current risk level. It operates on raw
// channel metadata only; the test-gated reconciliation lives elsewhere.
package ladder

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/clock"
	"github.com/canonical/charm-release/internal/config"
	"github.com/canonical/charm-release/internal/snapstore"
)

// riskLevels orders the promotion stages from least to most stable.
var riskLevels = []string{"edge", "beta", "candidate", "stable"}

// NextRisk returns the risk level above the given one, or "" for stable and
// unknown levels.
func NextRisk(risk string) string {
	i := slices.Index(riskLevels, risk)
	if i == -1 || i == len(riskLevels)-1 {
		return ""
	}
	return riskLevels[i+1]
}

// riskIndex returns the position of a risk level in the ladder, or -1.
func riskIndex(risk string) int {
	return slices.Index(riskLevels, risk)
}

// Kind classifies a proposed action.
type Kind string

const (
	// KindPromote releases the revision into the next risk level.
	KindPromote Kind = "promote"
	// KindApprovalRequired flags a first stable release, which needs manual
	// sign-off before it may be promoted.
	KindApprovalRequired Kind = "approval_required"
)

// Action is one proposed promotion, carrying everything downstream
// automation needs to run the upgrade test and release the revision.
type Action struct {
	Kind            Kind
	Name            string
	Track           string
	Risk            string
	NextRisk        string
	Arch            string
	Revision        int
	Branch          string
	StartChannel    string
	FinalChannel    string
	UpgradeChannels [][]string
	RunnerLabels    []string
	LXDImages       []string
}

// Ladder proposes promotions for one snap's channel map.
type Ladder struct {
	snap      string
	ignored   []string
	dwellDays map[string]int
	series    []string
	clock     clock.Clock
	log       zerolog.Logger
}

// New returns a ladder promoter for the named snap.
func New(cfg config.LadderConfig, snap string, clk clock.Clock, log zerolog.Logger) *Ladder {
	return &Ladder{
		snap:      snap,
		ignored:   cfg.IgnoredTracks,
		dwellDays: cfg.DwellDays,
		series:    cfg.Series,
		clock:     clk,
		log:       log.With().Str("component", "ladder").Logger(),
	}
}

// Propose walks the channel map and returns the promotions due now. The
// decision is pure: no store call is made and nothing is mutated.
//
// A revision is due for promotion when its dwell time at the current risk
// level has elapsed and the next risk level holds a different revision.
// Edge additionally has a fast path: when a newer version has already
// superseded what is waiting in beta, the edge revision promotes immediately
// without waiting out its dwell time.
func (l *Ladder) Propose(info *snapstore.SnapInfo) []Action {
	channels := make(map[string]snapstore.MappedChannel, len(info.ChannelMap))
	for _, entry := range info.ChannelMap {
		channels[entry.Channel.Name] = entry
	}

	entries := make([]snapstore.MappedChannel, len(info.ChannelMap))
	copy(entries, info.ChannelMap)
	slices.SortFunc(entries, func(a, b snapstore.MappedChannel) int {
		if a.Channel.Track != b.Channel.Track {
			if a.Channel.Track < b.Channel.Track {
				return 1
			}
			return -1
		}
		return riskIndex(b.Channel.Risk) - riskIndex(a.Channel.Risk)
	})

	var actions []Action
	for _, entry := range entries {
		track := entry.Channel.Track
		risk := entry.Channel.Risk
		arch := entry.Channel.Architecture
		nextRisk := NextRisk(risk)
		log := l.log.With().Str("channel", track+"/"+risk).Logger()

		if nextRisk == "" {
			log.Debug().Msg("skipping promoting stable")
			continue
		}
		if slices.Contains(l.ignored, track) {
			log.Debug().Msg("skipping ignored track")
			continue
		}

		startChannel := track + "/" + risk
		finalChannel := track + "/" + nextRisk

		log.Debug().
			Int("revision", entry.Revision).
			Str("arch", arch).
			Interface("released_at", entry.Channel.ReleasedAt).
			Msg("evaluating")

		purgatoryComplete := entry.Channel.ReleasedAt != nil &&
			clock.DaysSince(l.clock, *entry.Channel.ReleasedAt) >= l.dwellDays[risk] &&
			channels[startChannel].Revision != channels[finalChannel].Revision
		newPatchInEdge := risk == "edge" &&
			channels[finalChannel].Version != channels[startChannel].Version

		if !purgatoryComplete && !newPatchInEdge {
			continue
		}

		if _, hasStable := channels[track+"/stable"]; nextRisk == "stable" && !hasStable {
			// The first stable release of a track needs SolQA blessing and
			// is promoted manually; follow-up patches do not.
			log.Warn().
				Int("revision", entry.Revision).
				Str("arch", arch).
				Msg("approval needed by SolQA for first stable release")
			actions = append(actions, l.action(KindApprovalRequired, entry, startChannel, finalChannel, nextRisk))
			continue
		}

		log.Info().
			Int("revision", entry.Revision).
			Str("arch", arch).
			Str("to", nextRisk).
			Msg("proposing promotion")
		actions = append(actions, l.action(KindPromote, entry, startChannel, finalChannel, nextRisk))
	}
	return actions
}

// action assembles one proposal from a channel map entry.
func (l *Ladder) action(kind Kind, entry snapstore.MappedChannel, startChannel, finalChannel, nextRisk string) Action {
	track := entry.Channel.Track
	arch := entry.Channel.Architecture
	images := make([]string, 0, len(l.series))
	for _, series := range l.series {
		images = append(images, "ubuntu:"+series)
	}
	return Action{
		Kind:            kind,
		Name:            fmt.Sprintf("%s-%s-%s-%s", l.snap, track, nextRisk, arch),
		Track:           track,
		Risk:            entry.Channel.Risk,
		NextRisk:        nextRisk,
		Arch:            arch,
		Revision:        entry.Revision,
		Branch:          "release-" + track,
		StartChannel:    startChannel,
		FinalChannel:    finalChannel,
		UpgradeChannels: [][]string{{finalChannel, startChannel}},
		RunnerLabels:    runnerLabels(arch, true),
		LXDImages:       images,
	}
}

// runnerLabelMap maps architectures to CI runner labels.
var runnerLabelMap = map[string]string{
	"amd64": "X64",
	"arm64": "ARM64",
}

// runnerLabels returns the CI runner labels for an architecture.
func runnerLabels(arch string, selfHosted bool) []string {
	var labels []string
	if label, ok := runnerLabelMap[arch]; ok {
		labels = append(labels, label)
	}
	if selfHosted {
		labels = append(labels, "self-hosted")
	}
	return labels
}
