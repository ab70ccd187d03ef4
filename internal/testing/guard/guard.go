// Package guard forces test mode for any test binary that imports it, so
// packages that build binaries never dial Postgres or Redis from tests.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("DECANT_TEST_MODE") == "" {
			_ = os.Setenv("DECANT_TEST_MODE", "1")
		}
	})
}
