package cognito

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go/aws"
	cognito "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/fatih/structs"
	"github.com/smoghal/cognito-custom-resources/pkg/config"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"github.com/smoghal/cognito-custom-resources/pkg/resource"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

const ResourceServerResourceType = "Custom::CognitoResourceServer"

type ResourceServerProperties struct {
	UserPoolID string
	Identifier string
	Name       string
	Scopes     []resource.Scope
	Region     string
}

// ResourceServerManager owns an OAuth2 resource server. Its identifier is
// immutable and doubles as the physical resource id.
type ResourceServerManager struct {
	clients ClientFactory
	cfg     *config.Config
}

func NewResourceServerManager(clients ClientFactory, cfg *config.Config) *ResourceServerManager {
	return &ResourceServerManager{clients: clients, cfg: cfg}
}

var _ resource.Resource = (*ResourceServerManager)(nil)

func (m *ResourceServerManager) properties(props resource.Properties) (ResourceServerProperties, error) {
	scopes, err := props.Scopes("Scopes")
	if err != nil {
		return ResourceServerProperties{}, err
	}
	return ResourceServerProperties{
		UserPoolID: props.String("UserPoolId"),
		Identifier: props.String("Identifier"),
		Name:       props.String("Name"),
		Scopes:     scopes,
		Region:     m.cfg.Region(props.String("CognitoRegion")),
	}, nil
}

func (m *ResourceServerManager) Create(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	props, err := m.properties(event.ResourceProperties)
	if err != nil {
		return "", nil, err
	}
	if props.Identifier == "" {
		return "", nil, util.NewConfigurationError("Identifier", "is required when creating a resource server")
	}
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	if err := createResourceServer(ctx, api, props); err != nil {
		return "", nil, err
	}
	return props.Identifier, resourceServerData(props), nil
}

func (m *ResourceServerManager) Update(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	props, err := m.properties(event.ResourceProperties)
	if err != nil {
		return "", nil, err
	}
	if props.Identifier == "" {
		return "", nil, util.NewConfigurationError("Identifier", "is required when updating a resource server")
	}
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	if err := updateResourceServer(ctx, api, props); err != nil {
		return "", nil, err
	}

	physicalResourceID := event.PhysicalResourceID
	if physicalResourceID != props.Identifier {
		// The identifier is immutable, so a new one is a replacement and
		// CloudFormation deletes the old physical id afterwards.
		physicalResourceID = props.Identifier
	}
	return physicalResourceID, resourceServerData(props), nil
}

func (m *ResourceServerManager) Delete(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	raw := resource.Properties(event.ResourceProperties)
	props, err := m.properties(raw)
	if err != nil {
		// malformed scopes must not block stack deletion
		logging.FromContext(ctx).Warnw("ignoring invalid resource properties on delete", "Error", err)
		props = ResourceServerProperties{
			UserPoolID: raw.String("UserPoolId"),
			Identifier: raw.String("Identifier"),
			Region:     m.cfg.Region(raw.String("CognitoRegion")),
		}
	}
	identifier := event.PhysicalResourceID
	if identifier == "" {
		identifier = props.Identifier
	}
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	if err := deleteResourceServer(ctx, api, props.UserPoolID, identifier); err != nil {
		return "", nil, err
	}
	return identifier, nil, nil
}

func scopeTypes(scopes []resource.Scope) []*cognito.ResourceServerScopeType {
	out := make([]*cognito.ResourceServerScopeType, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, &cognito.ResourceServerScopeType{
			ScopeName:        aws.String(s.Name),
			ScopeDescription: aws.String(s.Description),
		})
	}
	return out
}

func createResourceServer(ctx context.Context, api API, props ResourceServerProperties) error {
	log := logging.FromContext(ctx)
	log.Debugw("Creating resource server", "Identifier", props.Identifier, "UserPoolId", props.UserPoolID)

	createResourceServerRequest := &cognito.CreateResourceServerInput{
		UserPoolId: aws.String(props.UserPoolID),
		Identifier: aws.String(props.Identifier),
		Name:       aws.String(props.Name),
		Scopes:     scopeTypes(props.Scopes),
	}

	log.Debugw("Cognito CreateResourceServer Request", "Request", structs.Map(createResourceServerRequest))

	createResourceServerResponse, err := api.CreateResourceServerWithContext(ctx, createResourceServerRequest)
	if err != nil {
		util.LogAWSError(log, "Cognito CreateResourceServer Error", err)
		return util.NewProvisioningError("create resource server", err)
	}

	log.Debugw("Cognito CreateResourceServer Response", "Response", structs.Map(createResourceServerResponse))
	return nil
}

// updateResourceServer replaces name and scopes in place, or creates the
// server when it is missing.
func updateResourceServer(ctx context.Context, api API, props ResourceServerProperties) error {
	log := logging.FromContext(ctx)
	log.Debugw("Updating resource server", "Identifier", props.Identifier, "UserPoolId", props.UserPoolID)

	_, found, err := lookupResourceServer(ctx, api, props.UserPoolID, props.Identifier)
	if err != nil {
		return util.NewProvisioningError("update resource server", err)
	}
	if !found {
		log.Infow("Resource server does not exist in user pool, creating it",
			"Identifier", props.Identifier, "UserPoolId", props.UserPoolID)
		return createResourceServer(ctx, api, props)
	}

	updateResourceServerRequest := &cognito.UpdateResourceServerInput{
		UserPoolId: aws.String(props.UserPoolID),
		Identifier: aws.String(props.Identifier),
		Name:       aws.String(props.Name),
		Scopes:     scopeTypes(props.Scopes),
	}

	log.Debugw("Cognito UpdateResourceServer Request", "Request", structs.Map(updateResourceServerRequest))

	if _, err := api.UpdateResourceServerWithContext(ctx, updateResourceServerRequest); err != nil {
		util.LogAWSError(log, "Cognito UpdateResourceServer Error", err)
		return util.NewProvisioningError("update resource server", err)
	}
	return nil
}

func deleteResourceServer(ctx context.Context, api API, userPoolID, identifier string) error {
	log := logging.FromContext(ctx)
	log.Debugw("Deleting resource server", "Identifier", identifier, "UserPoolId", userPoolID)

	_, found, err := lookupResourceServer(ctx, api, userPoolID, identifier)
	if err != nil {
		return util.NewProvisioningError("delete resource server", err)
	}
	if !found {
		log.Infow("Unable to find resource server to delete", "Identifier", identifier)
		return nil
	}

	deleteResourceServerRequest := &cognito.DeleteResourceServerInput{
		UserPoolId: aws.String(userPoolID),
		Identifier: aws.String(identifier),
	}

	log.Debugw("Cognito DeleteResourceServer Request", "Request", structs.Map(deleteResourceServerRequest))

	if _, err := api.DeleteResourceServerWithContext(ctx, deleteResourceServerRequest); err != nil {
		if util.IsNotFound(err) {
			return nil
		}
		util.LogAWSError(log, "Cognito DeleteResourceServer Error", err)
		return util.NewProvisioningError("delete resource server", err)
	}

	log.Debugw("Finished deleting resource server", "Identifier", identifier)
	return nil
}

func resourceServerData(props ResourceServerProperties) map[string]interface{} {
	names := make([]string, 0, len(props.Scopes))
	for _, s := range props.Scopes {
		names = append(names, props.Identifier+"/"+s.Name)
	}
	return map[string]interface{}{
		"Identifier": props.Identifier,
		"Scopes":     strings.Join(names, ","),
	}
}
