// Command grantctl creates and verifies grant tokens, manages signing keys, and serves
// the goGrant HTTP API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
