package util

// SourceCodeRepo is the public address for this codebase
const SourceCodeRepo string = "https://github.com/phylum-dev/cli"

// SourceCodeIssues is the public address for the issue tracker
const SourceCodeIssues string = "https://github.com/phylum-dev/cli/issues/new"

// DocsBase is the base URL for user-facing documentation. Error messages do
// not build on it; internal/lockfile carries its own full docLink.
const DocsBase string = "https://docs.phylum.io"
