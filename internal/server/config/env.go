package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays values from environment variables named by the env tags
// on Config. Unset variables leave the current value in place.
func parseEnv(config *Config) error {
	return cleanenv.ReadEnv(config)
}
