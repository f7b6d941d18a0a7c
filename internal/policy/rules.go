package policy

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/funster-a/hackathon-backend/internal/domain"
	"github.com/funster-a/hackathon-backend/internal/gcsuploader"
)

// ParseRules reads merchant rules from YAML of the form
//
//	transport:
//	  - indrive
//	products: [arbuz, airba fresh]
//
// Keys are category kinds. Document order is kept, so earlier kinds match first.
func ParseRules(data []byte) ([]Rule, error) {
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("ParseRules: %w", err)
	}

	rules := make([]Rule, 0, len(doc))
	for _, item := range doc {
		key, ok := item.Key.(string)
		if !ok {
			return nil, fmt.Errorf("ParseRules: non-string key %v", item.Key)
		}
		kind := domain.CategoryKind(strings.ToLower(strings.TrimSpace(key)))
		if !kind.Valid() {
			return nil, fmt.Errorf("ParseRules: unknown category kind %q", key)
		}

		var keywords []string
		switch v := item.Value.(type) {
		case nil:
		case string:
			keywords = append(keywords, v)
		case []interface{}:
			for _, kw := range v {
				s, ok := kw.(string)
				if !ok {
					return nil, fmt.Errorf("ParseRules: %s: keyword %v is not a string", key, kw)
				}
				keywords = append(keywords, s)
			}
		default:
			return nil, fmt.Errorf("ParseRules: %s: expected a list of keywords", key)
		}
		rules = append(rules, Rule{Kind: kind, Keywords: keywords})
	}
	return rules, nil
}

// Load returns the default policy extended with the rules file at location,
// a local path or gs:// URI. An empty location yields Default().
func Load(ctx context.Context, location string) (*Policy, error) {
	p := Default()
	if location == "" {
		return p, nil
	}
	data, err := gcsuploader.ReadObject(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("policy.Load: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("policy.Load: %s: %w", location, err)
	}
	return p.WithRules(rules), nil
}
