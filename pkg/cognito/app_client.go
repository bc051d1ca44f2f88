package cognito

import (
	"context"
	"regexp"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go/aws"
	cognito "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/smoghal/cognito-custom-resources/pkg/config"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"github.com/smoghal/cognito-custom-resources/pkg/oauth"
	"github.com/smoghal/cognito-custom-resources/pkg/resource"
	"github.com/smoghal/cognito-custom-resources/pkg/ssm"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

const AppClientResourceType = "Custom::CognitoUserPoolClient"

// refresh tokens issued to app clients are valid for 30 days
const refreshTokenValidityDays = 30

var clientIDPattern = regexp.MustCompile(`^\w+$`)

var errMissingClient = errors.New("response carried no user pool client")

type AppClientProperties struct {
	UserPoolID         string
	ClientName         string
	Scope              string
	Region             string
	ParameterPath      string
	VerifyDomainPrefix string
}

// AppClientManager owns a machine-to-machine app client: client_credentials
// only, with a generated secret and a single allowed scope. Cognito mints the
// client id, so a client that disappeared is recreated under a new id.
type AppClientManager struct {
	clients    ClientFactory
	parameters *ssm.Store
	verifier   *oauth.Verifier
	cfg        *config.Config
}

type AppClientOption func(*AppClientManager)

// WithParameterStore enables publishing credentials under ParameterPath.
func WithParameterStore(s *ssm.Store) AppClientOption {
	return func(m *AppClientManager) { m.parameters = s }
}

// WithVerifier enables the client-credentials check driven by VerifyDomainPrefix.
func WithVerifier(v *oauth.Verifier) AppClientOption {
	return func(m *AppClientManager) { m.verifier = v }
}

func NewAppClientManager(clients ClientFactory, cfg *config.Config, opts ...AppClientOption) *AppClientManager {
	m := &AppClientManager{clients: clients, cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ resource.Resource = (*AppClientManager)(nil)

func (m *AppClientManager) properties(props resource.Properties) AppClientProperties {
	return AppClientProperties{
		UserPoolID:         props.String("UserPoolId"),
		ClientName:         props.String("AppClientName"),
		Scope:              props.String("CustomScope"),
		Region:             m.cfg.Region(props.String("CognitoRegion")),
		ParameterPath:      props.String("ParameterPath"),
		VerifyDomainPrefix: props.String("VerifyDomainPrefix"),
	}
}

func (p AppClientProperties) validate() error {
	if p.ClientName == "" {
		return util.NewConfigurationError("AppClientName", "is required")
	}
	if p.Scope == "" {
		return util.NewConfigurationError("CustomScope", "is required for the client_credentials flow")
	}
	return nil
}

func (m *AppClientManager) Create(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	props := m.properties(event.ResourceProperties)
	if err := props.validate(); err != nil {
		return "", nil, err
	}
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}

	client, err := createAppClient(ctx, api, props)
	if err != nil {
		return "", nil, err
	}
	return m.finish(ctx, props, client)
}

// Update modifies the client in place when the recorded id still resolves and
// recreates it otherwise. The returned physical id is authoritative and
// differs from the input when the client was recreated.
func (m *AppClientManager) Update(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	log := logging.FromContext(ctx)

	props := m.properties(event.ResourceProperties)
	if err := props.validate(); err != nil {
		return "", nil, err
	}
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}

	clientID := event.PhysicalResourceID
	existing, found, err := lookupAppClient(ctx, api, props.UserPoolID, clientID)
	if err != nil {
		return "", nil, util.NewProvisioningError("update app client", err)
	}

	if !found {
		log.Infow("App client no longer exists, recreating it", "ClientId", clientID, "UserPoolId", props.UserPoolID)
		client, err := createAppClient(ctx, api, props)
		if err != nil {
			return "", nil, err
		}
		return m.finish(ctx, props, client)
	}

	client, err := updateAppClient(ctx, api, props, clientID)
	if err != nil {
		return "", nil, err
	}
	if client.ClientSecret == nil {
		client.ClientSecret = existing.ClientSecret
	}
	return m.finish(ctx, props, client)
}

func (m *AppClientManager) Delete(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	log := logging.FromContext(ctx)

	props := m.properties(event.ResourceProperties)
	clientID := event.PhysicalResourceID

	if !clientIDPattern.MatchString(clientID) {
		log.Debugw("No physical resource to delete. Continue.", "ClientId", clientID)
	}

	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	if err := deleteAppClient(ctx, api, props.UserPoolID, clientID); err != nil {
		return "", nil, err
	}
	if err := m.unpublish(ctx, props, clientID); err != nil {
		return "", nil, err
	}
	return clientID, nil, nil
}

// finish publishes and verifies the credentials and builds the attributes.
func (m *AppClientManager) finish(ctx context.Context, props AppClientProperties, client *cognito.UserPoolClientType) (string, map[string]interface{}, error) {
	clientID := aws.StringValue(client.ClientId)
	secret := aws.StringValue(client.ClientSecret)

	data := map[string]interface{}{
		"ClientId":   clientID,
		"ClientName": aws.StringValue(client.ClientName),
	}

	if props.ParameterPath != "" && m.parameters != nil {
		if err := m.parameters.PutClientInfo(ctx, props.ParameterPath, clientID, secret); err != nil {
			return "", nil, util.NewProvisioningError("publish app client credentials", err)
		}
		data["ParameterPath"] = props.ParameterPath
	}

	if props.VerifyDomainPrefix != "" && m.verifier != nil {
		data["CredentialsVerified"] = "true"
		err := m.verifier.Verify(ctx, oauth.Credentials{
			ClientID:     clientID,
			ClientSecret: secret,
			Scope:        props.Scope,
			DomainPrefix: props.VerifyDomainPrefix,
			Region:       props.Region,
		})
		if err != nil {
			logging.FromContext(ctx).Warnw("unable to verify app client credentials", "ClientId", clientID, "Error", err)
			data["CredentialsVerified"] = "false"
		}
	}

	return clientID, data, nil
}

// unpublish removes the published credentials, but only while they still
// belong to clientID: after a recreation CloudFormation deletes the old id,
// and the parameters already point at the new client by then.
func (m *AppClientManager) unpublish(ctx context.Context, props AppClientProperties, clientID string) error {
	if props.ParameterPath == "" || m.parameters == nil {
		return nil
	}
	log := logging.FromContext(ctx)

	info, err := m.parameters.GetClientInfo(ctx, props.ParameterPath)
	if err != nil {
		log.Infow("No published credentials to remove", "ParameterPath", props.ParameterPath)
		return nil
	}
	if aws.StringValue(info.ClientID) != clientID {
		log.Infow("Published credentials belong to another client, leaving them",
			"ParameterPath", props.ParameterPath, "PublishedClientId", aws.StringValue(info.ClientID))
		return nil
	}
	if err := m.parameters.DeleteClientInfo(ctx, props.ParameterPath); err != nil {
		return util.NewProvisioningError("remove app client credentials", err)
	}
	return nil
}

func createAppClient(ctx context.Context, api API, props AppClientProperties) (*cognito.UserPoolClientType, error) {
	log := logging.FromContext(ctx)
	log.Debugw("Creating app client", "ClientName", props.ClientName, "UserPoolId", props.UserPoolID)

	createUserPoolClientRequest := &cognito.CreateUserPoolClientInput{
		UserPoolId:                      aws.String(props.UserPoolID),
		ClientName:                      aws.String(props.ClientName),
		GenerateSecret:                  aws.Bool(true),
		RefreshTokenValidity:            aws.Int64(refreshTokenValidityDays),
		AllowedOAuthFlows:               []*string{aws.String(cognito.OAuthFlowTypeClientCredentials)},
		AllowedOAuthScopes:              []*string{aws.String(props.Scope)},
		AllowedOAuthFlowsUserPoolClient: aws.Bool(true),
	}

	log.Debugw("Cognito CreateUserPoolClient Request", "Request", structs.Map(createUserPoolClientRequest))

	createUserPoolClientResponse, err := api.CreateUserPoolClientWithContext(ctx, createUserPoolClientRequest)
	if err != nil {
		util.LogAWSError(log, "Cognito CreateUserPoolClient Error", err)
		return nil, util.NewProvisioningError("create app client", err)
	}
	if createUserPoolClientResponse.UserPoolClient == nil {
		return nil, util.NewProvisioningError("create app client", errMissingClient)
	}

	log.Debugw("Finished creating app client", "ClientId", aws.StringValue(createUserPoolClientResponse.UserPoolClient.ClientId))
	return createUserPoolClientResponse.UserPoolClient, nil
}

func updateAppClient(ctx context.Context, api API, props AppClientProperties, clientID string) (*cognito.UserPoolClientType, error) {
	log := logging.FromContext(ctx)
	log.Debugw("Updating app client", "ClientId", clientID, "UserPoolId", props.UserPoolID)

	updateUserPoolClientRequest := &cognito.UpdateUserPoolClientInput{
		UserPoolId:                      aws.String(props.UserPoolID),
		ClientId:                        aws.String(clientID),
		ClientName:                      aws.String(props.ClientName),
		RefreshTokenValidity:            aws.Int64(refreshTokenValidityDays),
		AllowedOAuthFlows:               []*string{aws.String(cognito.OAuthFlowTypeClientCredentials)},
		AllowedOAuthScopes:              []*string{aws.String(props.Scope)},
		AllowedOAuthFlowsUserPoolClient: aws.Bool(true),
	}

	log.Debugw("Cognito UpdateUserPoolClient Request", "Request", structs.Map(updateUserPoolClientRequest))

	updateUserPoolClientResponse, err := api.UpdateUserPoolClientWithContext(ctx, updateUserPoolClientRequest)
	if err != nil {
		util.LogAWSError(log, "Cognito UpdateUserPoolClient Error", err)
		return nil, util.NewProvisioningError("update app client", err)
	}
	if updateUserPoolClientResponse.UserPoolClient == nil {
		return &cognito.UserPoolClientType{ClientId: aws.String(clientID), ClientName: aws.String(props.ClientName)}, nil
	}
	return updateUserPoolClientResponse.UserPoolClient, nil
}

func deleteAppClient(ctx context.Context, api API, userPoolID, clientID string) error {
	log := logging.FromContext(ctx)
	log.Debugw("Deleting app client", "ClientId", clientID, "UserPoolId", userPoolID)

	_, found, err := lookupAppClient(ctx, api, userPoolID, clientID)
	if err != nil {
		return util.NewProvisioningError("delete app client", err)
	}
	if !found {
		log.Infow("Unable to find user pool client to delete", "ClientId", clientID)
		return nil
	}

	deleteUserPoolClientRequest := &cognito.DeleteUserPoolClientInput{
		UserPoolId: aws.String(userPoolID),
		ClientId:   aws.String(clientID),
	}

	log.Debugw("Cognito DeleteUserPoolClient Request", "Request", structs.Map(deleteUserPoolClientRequest))

	if _, err := api.DeleteUserPoolClientWithContext(ctx, deleteUserPoolClientRequest); err != nil {
		if util.IsNotFound(err) {
			return nil
		}
		util.LogAWSError(log, "Cognito DeleteUserPoolClient Error", err)
		return util.NewProvisioningError("delete app client", err)
	}

	log.Debugw("Finished deleting app client", "ClientId", clientID)
	return nil
}
