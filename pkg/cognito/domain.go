package cognito

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go/aws"
	cognito "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/fatih/structs"
	"github.com/smoghal/cognito-custom-resources/pkg/config"
	"github.com/smoghal/cognito-custom-resources/pkg/dns"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"github.com/smoghal/cognito-custom-resources/pkg/oauth"
	"github.com/smoghal/cognito-custom-resources/pkg/resource"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

const DomainResourceType = "Custom::CognitoUserPoolDomain"

// DomainProperties describe a hosted UI domain. With a CertificateArn the
// domain is a custom domain (auth.example.com) rather than a prefix.
type DomainProperties struct {
	UserPoolID     string
	Domain         string
	Region         string
	CertificateArn string
	HostedZoneName string
}

func (p DomainProperties) custom() bool {
	return p.CertificateArn != ""
}

func (p DomainProperties) url() string {
	if p.custom() {
		return "https://" + p.Domain
	}
	return oauth.HostedDomainURL(p.Domain, p.Region)
}

// DomainManager binds a hosted UI domain to a user pool. A pool has at most
// one domain and a binding cannot be renamed, so changing it means deleting
// the old binding before creating the new one.
type DomainManager struct {
	clients ClientFactory
	aliases *dns.Alias
	cfg     *config.Config
}

// NewDomainManager returns a DomainManager. aliases may be nil, in which case
// HostedZoneName is ignored.
func NewDomainManager(clients ClientFactory, aliases *dns.Alias, cfg *config.Config) *DomainManager {
	return &DomainManager{clients: clients, aliases: aliases, cfg: cfg}
}

var _ resource.Resource = (*DomainManager)(nil)

func (m *DomainManager) properties(props resource.Properties) DomainProperties {
	return DomainProperties{
		UserPoolID:     props.String("UserPoolId"),
		Domain:         props.String("CognitoDomainPrefix"),
		Region:         m.cfg.Region(props.String("CognitoRegion")),
		CertificateArn: props.String("CertificateArn"),
		HostedZoneName: props.String("HostedZoneName"),
	}
}

func (m *DomainManager) Create(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	props := m.properties(event.ResourceProperties)
	if props.Domain == "" {
		return "", nil, util.NewConfigurationError("CognitoDomainPrefix", "is required when creating a user pool domain")
	}
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	return m.create(ctx, api, props)
}

func (m *DomainManager) Update(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	props := m.properties(event.ResourceProperties)
	if props.Domain == "" {
		return "", nil, util.NewConfigurationError("CognitoDomainPrefix", "is required when updating a user pool domain")
	}
	old := m.properties(event.OldResourceProperties)
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	return m.update(ctx, api, props, old)
}

func (m *DomainManager) Delete(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
	props := m.properties(event.ResourceProperties)
	api, err := newClient(m.clients, props.Region)
	if err != nil {
		return "", nil, err
	}
	if err := m.delete(ctx, api, props); err != nil {
		return "", nil, err
	}
	return event.PhysicalResourceID, nil, nil
}

func (m *DomainManager) create(ctx context.Context, api API, props DomainProperties) (string, map[string]interface{}, error) {
	log := logging.FromContext(ctx)
	log.Debugw("Creating cognito domain", "Domain", props.Domain, "UserPoolId", props.UserPoolID)

	createUserPoolDomainRequest := &cognito.CreateUserPoolDomainInput{
		Domain:     aws.String(props.Domain),
		UserPoolId: aws.String(props.UserPoolID),
	}
	if props.custom() {
		createUserPoolDomainRequest.CustomDomainConfig = &cognito.CustomDomainConfigType{
			CertificateArn: aws.String(props.CertificateArn),
		}
	}

	log.Debugw("Cognito CreateUserPoolDomain Request", "Request", structs.Map(createUserPoolDomainRequest))

	createUserPoolDomainResponse, err := api.CreateUserPoolDomainWithContext(ctx, createUserPoolDomainRequest)
	if err != nil {
		util.LogAWSError(log, "Cognito CreateUserPoolDomain Error", err)
		return "", nil, util.NewProvisioningError("create cognito domain", err)
	}

	log.Debugw("Cognito CreateUserPoolDomain Response", "Response", structs.Map(createUserPoolDomainResponse))

	cloudFront := aws.StringValue(createUserPoolDomainResponse.CloudFrontDomain)
	if err := m.upsertAlias(ctx, props, cloudFront); err != nil {
		return "", nil, err
	}

	log.Debugw("Finished creating cognito domain", "Domain", props.Domain)
	return props.Domain, domainData(props, cloudFront), nil
}

func (m *DomainManager) update(ctx context.Context, api API, props, old DomainProperties) (string, map[string]interface{}, error) {
	log := logging.FromContext(ctx)
	log.Debugw("Updating cognito domain", "Domain", props.Domain, "UserPoolId", props.UserPoolID)

	current, found, err := lookupPoolDomain(ctx, api, props.UserPoolID)
	if err != nil {
		return "", nil, util.NewProvisioningError("update cognito domain", err)
	}

	if !found {
		return m.create(ctx, api, props)
	}

	if current.Domain == props.Domain {
		return m.refresh(ctx, api, props)
	}

	// the stale binding must be gone before the new one can be created
	stale := DomainProperties{UserPoolID: props.UserPoolID, Domain: current.Domain, Region: props.Region}
	if current.Custom && old.Domain == current.Domain {
		stale.CertificateArn = old.CertificateArn
		stale.HostedZoneName = old.HostedZoneName
	}
	if err := m.unbind(ctx, api, stale, current); err != nil {
		return "", nil, util.NewProvisioningError("update cognito domain", err)
	}
	log.Infow("Domain has been deleted", "Domain", current.Domain)

	return m.create(ctx, api, props)
}

// refresh handles an update that keeps the same domain. Only the certificate
// of a custom domain can change in place.
func (m *DomainManager) refresh(ctx context.Context, api API, props DomainProperties) (string, map[string]interface{}, error) {
	log := logging.FromContext(ctx)

	if props.custom() {
		updateUserPoolDomainRequest := &cognito.UpdateUserPoolDomainInput{
			Domain:     aws.String(props.Domain),
			UserPoolId: aws.String(props.UserPoolID),
			CustomDomainConfig: &cognito.CustomDomainConfigType{
				CertificateArn: aws.String(props.CertificateArn),
			},
		}

		log.Debugw("Cognito UpdateUserPoolDomain Request", "Request", structs.Map(updateUserPoolDomainRequest))

		if _, err := api.UpdateUserPoolDomainWithContext(ctx, updateUserPoolDomainRequest); err != nil {
			util.LogAWSError(log, "Cognito UpdateUserPoolDomain Error", err)
			return "", nil, util.NewProvisioningError("update cognito domain", err)
		}
	} else {
		log.Infow("Domain already bound to user pool", "Domain", props.Domain)
	}

	cloudFront, err := lookupCloudFront(ctx, api, props.Domain)
	if err != nil {
		return "", nil, util.NewProvisioningError("update cognito domain", err)
	}
	if err := m.upsertAlias(ctx, props, cloudFront); err != nil {
		return "", nil, err
	}
	return props.Domain, domainData(props, cloudFront), nil
}

func (m *DomainManager) delete(ctx context.Context, api API, props DomainProperties) error {
	log := logging.FromContext(ctx)
	log.Debugw("Deleting cognito domain", "Domain", props.Domain, "UserPoolId", props.UserPoolID)

	current, found, err := lookupPoolDomain(ctx, api, props.UserPoolID)
	if err != nil {
		return util.NewProvisioningError("delete cognito domain", err)
	}

	// a domain reassigned out of band, e.g. by a later update, is left alone
	if !found || current.Domain != props.Domain {
		log.Infow("No matching domain bound to user pool, nothing to delete",
			"Domain", props.Domain, "BoundDomain", current.Domain)
		return nil
	}

	if err := m.unbind(ctx, api, props, current); err != nil {
		return util.NewProvisioningError("delete cognito domain", err)
	}
	log.Debugw("Finished deleting cognito domain", "Domain", props.Domain)
	return nil
}

// unbind removes the alias record (for custom domains) and then the binding.
func (m *DomainManager) unbind(ctx context.Context, api API, props DomainProperties, current domainBinding) error {
	log := logging.FromContext(ctx)

	if current.Custom && props.HostedZoneName != "" && m.aliases != nil {
		cloudFront, err := lookupCloudFront(ctx, api, current.Domain)
		if err != nil {
			return err
		}
		if err := m.aliases.Delete(ctx, props.HostedZoneName, current.Domain, cloudFront); err != nil {
			return err
		}
	}

	deleteUserPoolDomainRequest := &cognito.DeleteUserPoolDomainInput{
		Domain:     aws.String(current.Domain),
		UserPoolId: aws.String(props.UserPoolID),
	}

	log.Debugw("Cognito DeleteUserPoolDomain Request", "Request", structs.Map(deleteUserPoolDomainRequest))

	if _, err := api.DeleteUserPoolDomainWithContext(ctx, deleteUserPoolDomainRequest); err != nil {
		if util.IsNotFound(err) {
			return nil
		}
		util.LogAWSError(log, "Cognito DeleteUserPoolDomain Error", err)
		return err
	}
	return nil
}

func (m *DomainManager) upsertAlias(ctx context.Context, props DomainProperties, cloudFront string) error {
	if !props.custom() || props.HostedZoneName == "" {
		return nil
	}
	if m.aliases == nil {
		logging.FromContext(ctx).Warnw("HostedZoneName set but no Route53 client configured", "HostedZoneName", props.HostedZoneName)
		return nil
	}
	if err := m.aliases.Upsert(ctx, props.HostedZoneName, props.Domain, cloudFront); err != nil {
		return util.NewProvisioningError("create alias record for cognito domain", err)
	}
	return nil
}

func domainData(props DomainProperties, cloudFront string) map[string]interface{} {
	return map[string]interface{}{
		"Domain":           props.Domain,
		"CloudFrontDomain": cloudFront,
		"DomainUrl":        props.url(),
	}
}
