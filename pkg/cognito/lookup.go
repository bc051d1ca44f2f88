package cognito

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	cognito "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
)

// The lookups below return found=false instead of an error when the service
// reports the resource missing. Any other failure is returned to the caller.

type domainBinding struct {
	Domain string
	Custom bool
}

// lookupPoolDomain returns the domain currently bound to the user pool.
func lookupPoolDomain(ctx context.Context, api API, userPoolID string) (domainBinding, bool, error) {
	log := logging.FromContext(ctx)

	describeUserPoolRequest := &cognito.DescribeUserPoolInput{
		UserPoolId: aws.String(userPoolID),
	}

	log.Debugw("Cognito DescribeUserPool Request", "Request", structs.Map(describeUserPoolRequest))

	resp, err := api.DescribeUserPoolWithContext(ctx, describeUserPoolRequest)
	if err != nil {
		if util.IsNotFound(err) {
			log.Infow("user pool does not exist", "UserPoolId", userPoolID)
			return domainBinding{}, false, nil
		}
		util.LogAWSError(log, "Cognito DescribeUserPool Error", err)
		return domainBinding{}, false, errors.Wrapf(err, "describe user pool %s", userPoolID)
	}

	if resp.UserPool == nil {
		return domainBinding{}, false, nil
	}
	if custom := aws.StringValue(resp.UserPool.CustomDomain); custom != "" {
		return domainBinding{Domain: custom, Custom: true}, true, nil
	}
	if prefix := aws.StringValue(resp.UserPool.Domain); prefix != "" {
		return domainBinding{Domain: prefix}, true, nil
	}
	return domainBinding{}, false, nil
}

// lookupCloudFront returns the CloudFront distribution serving domain.
func lookupCloudFront(ctx context.Context, api API, domain string) (string, error) {
	log := logging.FromContext(ctx)

	describeUserPoolDomainRequest := &cognito.DescribeUserPoolDomainInput{
		Domain: aws.String(domain),
	}

	log.Debugw("Cognito DescribeUserPoolDomain Request", "Request", structs.Map(describeUserPoolDomainRequest))

	resp, err := api.DescribeUserPoolDomainWithContext(ctx, describeUserPoolDomainRequest)
	if err != nil {
		util.LogAWSError(log, "Cognito DescribeUserPoolDomain Error", err)
		return "", errors.Wrapf(err, "describe user pool domain %s", domain)
	}
	if resp.DomainDescription == nil {
		return "", nil
	}
	return aws.StringValue(resp.DomainDescription.CloudFrontDistribution), nil
}

func lookupResourceServer(ctx context.Context, api API, userPoolID, identifier string) (*cognito.ResourceServerType, bool, error) {
	log := logging.FromContext(ctx)

	describeResourceServerRequest := &cognito.DescribeResourceServerInput{
		UserPoolId: aws.String(userPoolID),
		Identifier: aws.String(identifier),
	}

	log.Debugw("Cognito DescribeResourceServer Request", "Request", structs.Map(describeResourceServerRequest))

	resp, err := api.DescribeResourceServerWithContext(ctx, describeResourceServerRequest)
	if err != nil {
		if util.IsNotFound(err) || util.IsInvalidParameter(err) {
			log.Debugw("resource server does not exist", "Identifier", identifier, "UserPoolId", userPoolID, "Code", util.AWSErrorCode(err))
			return nil, false, nil
		}
		util.LogAWSError(log, "Cognito DescribeResourceServer Error", err)
		return nil, false, errors.Wrapf(err, "describe resource server %s", identifier)
	}
	return resp.ResourceServer, resp.ResourceServer != nil, nil
}

// lookupResourceServer and lookupAppClient treat a malformed id as missing: a
// failed create leaves CloudFormation holding a log stream name as the
// physical id.
func lookupAppClient(ctx context.Context, api API, userPoolID, clientID string) (*cognito.UserPoolClientType, bool, error) {
	log := logging.FromContext(ctx)

	if clientID == "" {
		return nil, false, nil
	}

	describeUserPoolClientRequest := &cognito.DescribeUserPoolClientInput{
		UserPoolId: aws.String(userPoolID),
		ClientId:   aws.String(clientID),
	}

	log.Debugw("Cognito DescribeUserPoolClient Request", "Request", structs.Map(describeUserPoolClientRequest))

	resp, err := api.DescribeUserPoolClientWithContext(ctx, describeUserPoolClientRequest)
	if err != nil {
		if util.IsNotFound(err) || util.IsInvalidParameter(err) {
			log.Debugw("user pool client does not exist", "ClientId", clientID, "UserPoolId", userPoolID, "Code", util.AWSErrorCode(err))
			return nil, false, nil
		}
		util.LogAWSError(log, "Cognito DescribeUserPoolClient Error", err)
		return nil, false, errors.Wrapf(err, "describe user pool client %s", clientID)
	}
	return resp.UserPoolClient, resp.UserPoolClient != nil, nil
}
