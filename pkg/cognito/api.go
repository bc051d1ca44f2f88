// Package cognito manages the user pool sub-resources CloudFormation cannot
// provision by itself: the hosted UI domain, OAuth resource servers and
// client-credentials app clients.
//
// Every manager follows the same lifecycle. A resource is ABSENT or EXISTS.
// Create is only valid from ABSENT. Update is valid from either state and
// falls back to creation when the resource is missing. Delete is valid from
// either state and does nothing when the resource is already gone.
package cognito

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	cognito "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider/cognitoidentityprovideriface"
	"github.com/pkg/errors"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

// API is the subset of the Cognito Identity Provider client used here.
type API interface {
	DescribeUserPoolWithContext(aws.Context, *cognito.DescribeUserPoolInput, ...request.Option) (*cognito.DescribeUserPoolOutput, error)
	DescribeUserPoolDomainWithContext(aws.Context, *cognito.DescribeUserPoolDomainInput, ...request.Option) (*cognito.DescribeUserPoolDomainOutput, error)
	CreateUserPoolDomainWithContext(aws.Context, *cognito.CreateUserPoolDomainInput, ...request.Option) (*cognito.CreateUserPoolDomainOutput, error)
	UpdateUserPoolDomainWithContext(aws.Context, *cognito.UpdateUserPoolDomainInput, ...request.Option) (*cognito.UpdateUserPoolDomainOutput, error)
	DeleteUserPoolDomainWithContext(aws.Context, *cognito.DeleteUserPoolDomainInput, ...request.Option) (*cognito.DeleteUserPoolDomainOutput, error)

	DescribeResourceServerWithContext(aws.Context, *cognito.DescribeResourceServerInput, ...request.Option) (*cognito.DescribeResourceServerOutput, error)
	CreateResourceServerWithContext(aws.Context, *cognito.CreateResourceServerInput, ...request.Option) (*cognito.CreateResourceServerOutput, error)
	UpdateResourceServerWithContext(aws.Context, *cognito.UpdateResourceServerInput, ...request.Option) (*cognito.UpdateResourceServerOutput, error)
	DeleteResourceServerWithContext(aws.Context, *cognito.DeleteResourceServerInput, ...request.Option) (*cognito.DeleteResourceServerOutput, error)

	DescribeUserPoolClientWithContext(aws.Context, *cognito.DescribeUserPoolClientInput, ...request.Option) (*cognito.DescribeUserPoolClientOutput, error)
	CreateUserPoolClientWithContext(aws.Context, *cognito.CreateUserPoolClientInput, ...request.Option) (*cognito.CreateUserPoolClientOutput, error)
	UpdateUserPoolClientWithContext(aws.Context, *cognito.UpdateUserPoolClientInput, ...request.Option) (*cognito.UpdateUserPoolClientOutput, error)
	DeleteUserPoolClientWithContext(aws.Context, *cognito.DeleteUserPoolClientInput, ...request.Option) (*cognito.DeleteUserPoolClientOutput, error)
}

var (
	_ API = cognitoidentityprovideriface.CognitoIdentityProviderAPI(nil)
	_ API = (*cognito.CognitoIdentityProvider)(nil)
)

// ClientFactory builds a Cognito client for a region. It is called once per
// invocation so no client outlives the event it serves.
type ClientFactory func(region string) (API, error)

// NewClientFactory returns a factory backed by sess.
func NewClientFactory(sess *session.Session) ClientFactory {
	return func(region string) (API, error) {
		if region == "" {
			return nil, util.NewConfigurationError("CognitoRegion", "is required when AWS_REGION is not set")
		}
		return cognito.New(sess, aws.NewConfig().WithRegion(region)), nil
	}
}

func newClient(clients ClientFactory, region string) (API, error) {
	api, err := clients(region)
	if err != nil {
		if util.IsConfigurationError(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "create cognito client for %s", region)
	}
	return api, nil
}
