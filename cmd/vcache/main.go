// Command vcache replays access traces on a cache and MMU subsystem.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vcache/cmd/vcache/cmd"
)

func main() {
	atexit.Exit(cmd.Execute())
}
