package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

// Properties are the ResourceProperties of a custom-resource event.
// CloudFormation delivers every scalar as a string, so the accessors are lenient.
type Properties map[string]interface{}

func (p Properties) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

func (p Properties) RequiredString(key string) (string, error) {
	v := p.String(key)
	if v == "" {
		return "", util.NewConfigurationError(key, "is required")
	}
	return v, nil
}

func (p Properties) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// Scope is one OAuth scope exposed by a resource server.
type Scope struct {
	Name        string
	Description string
}

// Scopes decodes a list of scope objects. Both the Cognito API spelling
// (ScopeName, ScopeDescription) and the short form (name, description) are
// accepted. A scope without a description uses its name.
func (p Properties) Scopes(key string) ([]Scope, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return nil, nil
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, util.NewConfigurationError(key, "must be a list of scopes, got %T", raw)
	}

	scopes := make([]Scope, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, util.NewConfigurationError(key, "item %d must be an object, got %T", i, item)
		}
		entry := Properties(m)
		s := Scope{
			Name:        firstNonEmpty(entry.String("ScopeName"), entry.String("name")),
			Description: firstNonEmpty(entry.String("ScopeDescription"), entry.String("description")),
		}
		if s.Name == "" {
			return nil, util.NewConfigurationError(key, "item %d has no scope name", i)
		}
		if s.Description == "" {
			s.Description = s.Name
		}
		scopes = append(scopes, s)
	}
	return scopes, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
