package main

import (
	"fmt"
	"runtime"

	"github.com/fentz26/tempo/internal/api"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of Tempo",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("Tempo version %s\n", api.Version)
	fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go version: %s\n", runtime.Version())

	if h, err := CheckHealth(); err == nil {
		fmt.Printf("  Daemon: %s at %s\n", h.Version, apiAddr)
	}
}
