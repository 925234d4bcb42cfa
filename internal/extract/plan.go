// Package extract turns fetched page bodies into raw records using
// declarative, source-specific extraction plans. Each source's quirks live
// in plan data, not in control flow.
package extract

import (
	"regexp"

	"github.com/rotisserie/eris"

	"github.com/paddock-labs/equinet/internal/model"
)

// FieldRule extracts one named field from a row element.
type FieldRule struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`    // read this attribute instead of text
	Pattern  string `yaml:"pattern,omitempty"` // regex; first capture group wins

	re *regexp.Regexp
}

// KindPlan describes how to pull rows of one record kind out of a page.
// Row selectors are tried most-specific-first; the first selector producing
// at least one row wins and the rest are skipped.
type KindPlan struct {
	RowSelectors []string    `yaml:"row_selectors"`
	Fields       []FieldRule `yaml:"fields"`
	// Path is the request path on the source for this kind.
	Path string `yaml:"path,omitempty"`
}

// Plan is the full extraction plan for one source.
type Plan struct {
	Source string                         `yaml:"source"`
	Kinds  map[model.RecordKind]*KindPlan `yaml:"kinds"`
}

// Validate compiles field regexes and checks plan shape.
func (p *Plan) Validate() error {
	if p.Source == "" {
		return eris.New("extract: plan missing source name")
	}
	for kind, kp := range p.Kinds {
		if len(kp.RowSelectors) == 0 {
			return eris.Errorf("extract: plan %s/%s has no row selectors", p.Source, kind)
		}
		for i := range kp.Fields {
			f := &kp.Fields[i]
			if f.Name == "" {
				return eris.Errorf("extract: plan %s/%s has unnamed field rule", p.Source, kind)
			}
			if f.Pattern != "" {
				re, err := regexp.Compile(f.Pattern)
				if err != nil {
					return eris.Wrapf(err, "extract: plan %s/%s field %s pattern", p.Source, kind, f.Name)
				}
				f.re = re
			}
		}
	}
	return nil
}

// ForKind returns the kind plan, or nil when the source has none.
func (p *Plan) ForKind(kind model.RecordKind) *KindPlan {
	return p.Kinds[kind]
}
