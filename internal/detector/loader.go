package detector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk layout for custom detection rules.
type RuleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads custom rules from a YAML file. An empty path yields no rules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes custom rules from YAML and validates each one.
func ParseRules(data []byte) ([]Rule, error) {
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for i := range f.Rules {
		if err := f.Rules[i].compile(); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}
