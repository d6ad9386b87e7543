package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy tunes the lint checks. It can be loaded from a YAML file:
//
//	maxUnconditionalAllows: 2
//	protectedCollections: [catalog, catalogProducts]
type Policy struct {
	MaxUnconditionalAllows int      `yaml:"maxUnconditionalAllows"`
	ProtectedCollections   []string `yaml:"protectedCollections"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxUnconditionalAllows: 2,
		ProtectedCollections:   []string{"catalog", "catalogProducts"},
	}
}

// LoadPolicy reads a YAML policy file. Keys missing from the file keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if policy.MaxUnconditionalAllows < 0 {
		return policy, fmt.Errorf("policy %s: maxUnconditionalAllows must not be negative", path)
	}
	return policy, nil
}
