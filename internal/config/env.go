package config

import (
	"maps"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

// EnvFiles lists the dotenv files consulted before the YAML is expanded.
// Later files override earlier ones.
var EnvFiles = []string{".env", ".env.local"}

// LoadEnv loads the dotenv files that exist. Variables already present in the
// process environment are never overridden.
func LoadEnv() error {
	merged := map[string]string{}
	for _, p := range EnvFiles {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		vars, err := godotenv.Read(p)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to load env file").
				Fatal().
				WithContext("file", p).
				Build()
		}
		maps.Copy(merged, vars)
	}
	for key, value := range merged {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "failed to set environment variable").
				WithContext("key", key).
				Build()
		}
	}
	return nil
}
