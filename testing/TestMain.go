package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("DECANT_TEST_MODE", "1")
		if os.Getenv("NOTIFIER_DRIVER") == "" {
			_ = os.Setenv("NOTIFIER_DRIVER", "none")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
