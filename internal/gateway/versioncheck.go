package gateway

import (
	"github.com/hashicorp/go-version"
	"github.com/nulzo/model-router-api/internal/domain"
)

// knownGoodFloor is the oldest provider API version this gateway's
// adapters are verified against. Anthropic's version strings are
// dated (e.g. "2023-06-01"); go-version parses such a string as
// version 2023 with pre-release "06-01", and because month and day are
// zero-padded the pre-release comparison still orders dates correctly,
// even though it isn't true semver.
var knownGoodFloor = map[string]string{
	"anthropic": "2023-06-01",
}

// checkVersionFloors inspects each provider config's (enabled or not)
// Extra["version"] against this gateway's known-good floor for its
// type, flagging any provider whose pinned version predates it. This
// mirrors the version-comparison cmd/prism.go's CheckForUpdates does
// against the latest GitHub release, but compares against a floor
// instead of a ceiling.
func checkVersionFloors(configs []domain.ProviderConfig) map[string]string {
	warnings := make(map[string]string)
	for _, cfg := range configs {
		floorStr, ok := knownGoodFloor[cfg.Type]
		if !ok {
			continue
		}
		configured, ok := cfg.Extra["version"]
		if !ok || configured == "" {
			continue
		}

		floor, err := version.NewVersion(floorStr)
		if err != nil {
			continue
		}
		current, err := version.NewVersion(configured)
		if err != nil {
			warnings[cfg.ID] = "configured version " + configured + " is not parseable"
			continue
		}
		if current.LessThan(floor) {
			warnings[cfg.ID] = "configured version " + configured + " is older than known-good floor " + floorStr
		}
	}
	return warnings
}
