package app

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const testModeEnv = "DECANT_TEST_MODE"

var (
	testModeOverride atomic.Pointer[bool]
	envTestMode      = sync.OnceValue(func() bool {
		v := strings.TrimSpace(os.Getenv(testModeEnv))
		return v == "1" || strings.EqualFold(v, "true")
	})
)

// InTestMode reports whether binaries should skip runtime side effects such as
// opening connections or listening on ports.
func InTestMode() bool {
	if v := testModeOverride.Load(); v != nil {
		return *v
	}
	return envTestMode()
}

// SetTestMode overrides DECANT_TEST_MODE for the rest of the process.
func SetTestMode(on bool) {
	testModeOverride.Store(&on)
}
