// Command relctl runs reliability analyses against a networks YAML file from the shell.
package main

import (
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
