// Package constants defines application-wide constants for charm-release.
package constants

// AppName is the binary and application name.
const AppName = "charm-release"

// EnvHome is the environment variable overriding the application home
// directory (default ~/.charm-release).
const EnvHome = "CHARM_RELEASE_HOME"

// HomeDirName is the default application home directory under $HOME.
const HomeDirName = ".charm-release"

// LogsDir is the log directory under the application home.
const LogsDir = "logs"

// CLILogFileName is the rotating log file name.
const CLILogFileName = "charm-release.log"

// Log rotation settings.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 30
	LogCompress   = true
)

// DefaultResultsFile is the flat key=value results file consumed by the
// follow-up automation step.
const DefaultResultsFile = "results.txt"

// DefaultSeedStateFile is the flat JSON state file used by the seed path to
// avoid redundant build submissions.
const DefaultSeedStateFile = "sqa_builds_state.json"

// EnvCharmcraftAuth holds the exported charmcraft credentials
// ("charmcraft login --export $outfile").
const EnvCharmcraftAuth = "CHARMCRAFT_AUTH"

// EnvGitHubToken optionally authenticates GitHub tag listing requests.
const EnvGitHubToken = "GITHUB_TOKEN"
