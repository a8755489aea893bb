package main

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag validation fails fast with the offending flag named, before any
// worker spawns.

func requirePositiveInt(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("flag --%s must be positive, got %d", name, v)
	}
	return nil
}

func requireProbability(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("flag --%s must be within [0, 1], got %g", name, v)
	}
	return nil
}

func requireNonNegative(name string, v float64) error {
	if v < 0 {
		return fmt.Errorf("flag --%s must not be negative, got %g", name, v)
	}
	return nil
}

func requireAscendingProbabilities(name string, vs []float64) error {
	for i, q := range vs {
		if err := requireProbability(name, q); err != nil {
			return err
		}
		if i > 0 && q < vs[i-1] {
			return fmt.Errorf("flag --%s must ascend, %g follows %g", name, q, vs[i-1])
		}
	}
	return nil
}

// validateRunFlags checks the persistent flags shared by every suite.
// Suite commands validate their own flags at the start of their RunE.
func validateRunFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := requirePositiveInt("workers", int64(v.GetInt("workers"))); err != nil {
		return err
	}
	if err := requirePositiveInt("ops", int64(v.GetUint64("ops"))); err != nil {
		return err
	}
	if d := v.GetDuration("timeout"); d < 0 {
		return fmt.Errorf("flag --timeout must not be negative, got %v", d)
	}
	pcts, err := flags.GetFloat64Slice("percentiles")
	if err != nil {
		return err
	}
	return requireAscendingProbabilities("percentiles", pcts)
}
