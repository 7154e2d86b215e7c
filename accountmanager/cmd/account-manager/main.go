package main

import (
	"fmt"
	"os"

	"github.com/malbeclabs/account-manager/accountmanager/internal/cli"
	"github.com/malbeclabs/account-manager/config"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(int(cli.Run(version, commit, date)))
}
