package util

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestProvisioningErrorUnwrapsCause(t *testing.T) {
	cause := awserr.New(cognitoidentityprovider.ErrCodeInvalidParameterException, "Domain already exists", nil)
	err := errors.Wrap(NewProvisioningError("create cognito domain", cause), "create")

	assert.True(t, IsProvisioningError(err))
	assert.False(t, IsConfigurationError(err))
	assert.True(t, IsInvalidParameter(err))
	assert.Contains(t, err.Error(), "unable to create cognito domain")
	assert.Contains(t, err.Error(), "Domain already exists")
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := NewConfigurationError("CognitoDomainPrefix", "is required when %s a user pool domain", "updating")

	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, "CognitoDomainPrefix: is required when updating a user pool domain", err.Error())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(awserr.New(cognitoidentityprovider.ErrCodeResourceNotFoundException, "gone", nil)))
	assert.False(t, IsNotFound(awserr.New(cognitoidentityprovider.ErrCodeTooManyRequestsException, "slow down", nil)))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Equal(t, "", AWSErrorCode(nil))
}

func TestLogAWSErrorAddsCode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	LogAWSError(log, "Cognito DescribeUserPool Error", awserr.New("AccessDeniedException", "nope", nil), "UserPoolId", "pool-1")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "AccessDeniedException", fields["Code"])
		assert.Equal(t, "pool-1", fields["UserPoolId"])
	}
}
