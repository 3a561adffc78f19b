// Package misc keeps build time information.
package misc

// set by the linker: -X storypack/misc.version=... -X storypack/misc.gitHash=...
var (
	appName = "storypack"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
