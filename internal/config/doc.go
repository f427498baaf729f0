// Package config manages user settings stored at ~/.fleetsync/config.yaml.
// Values can be overridden by FLEETSYNC_* environment variables and by
// command-line flags bound through viper. It also builds the slog logger
// shared by the commands.
package config
