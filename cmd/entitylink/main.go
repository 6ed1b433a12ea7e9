// Package main provides the entry point for the entitylink CLI tool.
package main

import (
	"github.com/entitylink/entitylink/cmd/entitylink/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
