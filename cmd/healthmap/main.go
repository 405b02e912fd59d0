// Package main provides the entry point for the healthmap CLI tool.
package main

import "github.com/agentstation/healthmap/cmd/healthmap/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
