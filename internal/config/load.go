package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load applies defaults, then environment overrides, then validation,
// to a RunConfig already populated from CLI flags and/or a YAML policy
// file. The order matters: env vars are meant to override file/flag
// defaults but never clobber values the validator would then reject
// silently, so validation always runs last.
func Load(cfg *RunConfig) error {
	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("config: apply defaults: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
