// Command adapterctl drives adapterd and inspects Venus deployments.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
