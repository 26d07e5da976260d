package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/ilyakaznacheev/cleanenv"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP listen address (e.g., ":8000")
//	-d string   database connection string
//	-s string   token signing secret
//	-e string   environment: local, dev or prod
//	-l string   log backend: slog or zerolog
//
// Arguments not in this set (such as -c) are filtered out first with
// flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-e", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database connection string")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.StringVar(&config.Env, "e", config.Env, "environment (local, dev, prod)")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog, zerolog)")

	fs.Usage = cleanenv.FUsage(fs.Output(), config, nil, fs.Usage)

	return fs.Parse(args)
}
