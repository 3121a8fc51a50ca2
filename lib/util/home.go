package util

import "os"

// UserHome returns the directory that anchors per-user agent state.
// Prefers os.UserHomeDir, then HOME and USERPROFILE, then the working
// directory, so the agent can still start in containers that define no
// home at all.
func UserHome() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir
	}

	for _, env := range []string{"HOME", "USERPROFILE"} {
		if home := os.Getenv(env); home != "" {
			log.WithError(err).Warnf("os.UserHomeDir failed; using $%s", env)
			return home
		}
	}

	// Anything sensitive stored beneath the fallback still goes through the
	// secure-directory helpers, so a shared working directory cannot leak
	// key material.
	if wd, wdErr := os.Getwd(); wdErr == nil {
		log.WithError(err).Warn("no home directory available; using working directory")
		return wd
	}

	panic("go-otbr: cannot determine a home directory; set HOME")
}
