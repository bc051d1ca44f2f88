package resource

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

// Mux routes on the event's ResourceType so one function can serve several
// custom resource types.
type Mux map[string]Resource

func (m Mux) route(event cfn.Event) (Resource, error) {
	r, ok := m[event.ResourceType]
	if !ok {
		return nil, util.NewConfigurationError("ResourceType", "no handler registered for %q", event.ResourceType)
	}
	return r, nil
}

func (m Mux) Create(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	r, err := m.route(event)
	if err != nil {
		return "", nil, err
	}
	return r.Create(ctx, event)
}

func (m Mux) Update(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	r, err := m.route(event)
	if err != nil {
		return "", nil, err
	}
	return r.Update(ctx, event)
}

func (m Mux) Delete(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	r, err := m.route(event)
	if err != nil {
		return "", nil, err
	}
	return r.Delete(ctx, event)
}
