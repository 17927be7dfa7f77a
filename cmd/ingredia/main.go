// Package main is the entry point for the ingredia server and CLI.
package main

import (
	"os"

	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/vbonduro/ingredia/cmd/ingredia/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
