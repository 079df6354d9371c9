package recovery

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloudide/orchestrator/pkg/errs"
)

// ruleFile is the on-disk shape for a YAML rule table override.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rule table from path, falling back to
// DefaultRules() when path is empty.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "reading recovery rules file "+path)
	}

	var parsed ruleFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, errs.Wrap(errs.ValidationFailed, err, "parsing recovery rules file "+path)
	}
	if len(parsed.Rules) == 0 {
		return nil, errs.New(errs.ValidationFailed, "recovery rules file "+path+" defines no rules")
	}

	for i := range parsed.Rules {
		if parsed.Rules[i].MaxAttempts <= 0 {
			parsed.Rules[i].MaxAttempts = 1
		}
	}
	return parsed.Rules, nil
}
