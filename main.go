package main

import (
	"runtime"

	"github.com/andresmejia3/lookout/cmd"
)

func init() {
	// HighGUI windows must be driven from the main OS thread.
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}
