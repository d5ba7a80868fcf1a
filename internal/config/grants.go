package config

import (
	"fmt"
	"os"

	"github.com/MacJediWizard/modlicense/internal/license"
	"github.com/MacJediWizard/modlicense/internal/models"
	"gopkg.in/yaml.v3"
)

// grantPlanFile is the on-disk layout of GRANTS_FILE:
//
//	grants:
//	  - tier: basic
//	    duration_days: 7
//	  - tier: vip
//	    duration_days: 1
type grantPlanFile struct {
	Grants []struct {
		Tier         string `yaml:"tier"`
		DurationDays int    `yaml:"duration_days"`
	} `yaml:"grants"`
}

// LoadGrantPlan reads the claim grant plan from a YAML file. An empty path
// returns the default plan.
func LoadGrantPlan(path string) ([]license.Grant, error) {
	if path == "" {
		return license.DefaultGrants(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grants file: %w", err)
	}
	return ParseGrantPlan(data)
}

// ParseGrantPlan decodes and validates a YAML grant plan.
func ParseGrantPlan(data []byte) ([]license.Grant, error) {
	var file grantPlanFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse grants file: %w", err)
	}

	grants := make([]license.Grant, 0, len(file.Grants))
	for i, g := range file.Grants {
		tier, err := models.ParseTier(g.Tier)
		if err != nil {
			return nil, fmt.Errorf("grant %d: %w", i, err)
		}
		grants = append(grants, license.Grant{Tier: tier, DurationDays: g.DurationDays})
	}

	if err := license.ValidateGrants(grants); err != nil {
		return nil, err
	}
	return grants, nil
}
