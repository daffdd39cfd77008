package main

import "github.com/urfave/cli/v3"

var (
	configPath string
	systemPath string
	listenAddr string
	logLevel   string
	envFile    string
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "business config (providers, metrics, channels), JSON or YAML",
			Value:       "config.json",
			Sources:     cli.EnvVars("PROMPTGATE_CONFIG"),
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "system",
			Usage:       "system config (timeouts, defaults, log level)",
			Value:       "system.json",
			Sources:     cli.EnvVars("PROMPTGATE_SYSTEM"),
			Destination: &systemPath,
		},
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "optional dotenv file with provider keys; skipped when missing",
			Value:       ".env",
			Sources:     cli.EnvVars("PROMPTGATE_ENV_FILE"),
			Destination: &envFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "debug, info, warn or error; overrides the system config",
			Destination: &logLevel,
		},
	}
}
