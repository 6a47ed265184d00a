package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/multihubswap/engine/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		logrus.StandardLogger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}
