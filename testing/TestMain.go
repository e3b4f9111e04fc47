// Package testing prepares the process environment for packages that build the HTTP
// stack in tests. Importing it for side effects is enough.
package testing

import (
	"os"
	stdtesting "testing"
)

// Defaults are applied to variables that are unset when the package initialises.
var Defaults = map[string]string{
	"JWT_SECRET":    "campus-test-secret-0123456789abcdef",
	"STORE_DRIVER":  "memory",
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"LOG_FORMAT":    "json",
}

func init() {
	_ = os.Setenv("CAMPUS_TEST_MODE", "1")
	for key, value := range Defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain runs m with the test environment in place.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
