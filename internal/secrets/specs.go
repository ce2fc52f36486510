package secrets

// KeySpec defines how to resolve a specific secret.
type KeySpec struct {
	// EnvVars lists environment variables to check, in priority order.
	EnvVars []string

	// Desc is a human-readable description for error messages and CLI display.
	Desc string
}

// GitHubPAT is the canonical name of the GitHub token used for release listing.
const GitHubPAT = "github_pat"

// knownKeys maps secret names to their resolution specs.
var knownKeys = map[string]KeySpec{
	GitHubPAT: {
		EnvVars: []string{"GITHUB_PAT", "GITHUB_TOKEN"},
		Desc:    "GitHub personal access token (raises the release API rate limit)",
	},
}
