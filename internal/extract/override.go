package extract

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadPlans reads plan overrides from a YAML file and merges them over the
// built-in plans. A file-defined plan replaces the whole built-in plan for
// that source; sources the file does not mention keep their builtins. Source
// site layouts change often enough that deployments need to repoint
// selectors without a rebuild.
func LoadPlans(path string) (map[string]*Plan, error) {
	plans := BuiltinPlans()
	if path == "" {
		return plans, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read plans %s", path)
	}

	var wrapper struct {
		Plans []*Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "extract: parse plans")
	}

	for _, p := range wrapper.Plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		plans[p.Source] = p
	}
	return plans, nil
}
