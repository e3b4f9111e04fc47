package app

import (
	"os"
	"sync"
)

// TestModeEnv set to "1" makes the binaries exit before touching Postgres, Redis or the network.
const TestModeEnv = "CAMPUS_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether the binaries should skip runtime side effects. The
// environment is read once per process.
func InTestMode() bool {
	return testMode()
}
