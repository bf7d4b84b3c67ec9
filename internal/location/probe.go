package location

import (
	"strconv"
	"strings"
)

// Probe decides once, at startup, which channel to use. The host shell
// announces itself through FV_HOST_BRIDGE; force overrides the environment.
func Probe(getenv func(string) string, force bool) Mode {
	if force {
		return ModeHostBridge
	}
	v := strings.TrimSpace(getenv("FV_HOST_BRIDGE"))
	if on, err := strconv.ParseBool(v); err == nil && on {
		return ModeHostBridge
	}
	return ModeBrowser
}
