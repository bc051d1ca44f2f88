package util

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ConfigurationError is returned when a required resource property is missing
// or invalid. No remote call has been made when it is returned.
type ConfigurationError struct {
	Field   string
	Message string
}

func NewConfigurationError(field, format string, v ...interface{}) error {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, v...)}
}

func (ce *ConfigurationError) Error() string {
	if ce.Field == "" {
		return ce.Message
	}
	return fmt.Sprintf("%s: %s", ce.Field, ce.Message)
}

// ProvisioningError wraps a failed remote mutation.
type ProvisioningError struct {
	Op  string
	Err error
}

func NewProvisioningError(op string, err error) error {
	return &ProvisioningError{Op: op, Err: err}
}

func (pe *ProvisioningError) Error() string {
	return fmt.Sprintf("unable to %s: %v", pe.Op, pe.Err)
}

func (pe *ProvisioningError) Unwrap() error {
	return pe.Err
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsProvisioningError reports whether err carries a ProvisioningError.
func IsProvisioningError(err error) bool {
	var pe *ProvisioningError
	return errors.As(err, &pe)
}

// AWSErrorCode returns the service error code carried by err, or "".
func AWSErrorCode(err error) string {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code()
	}
	return ""
}

// IsNotFound reports whether err is the service telling us the resource is gone.
func IsNotFound(err error) bool {
	return AWSErrorCode(err) == cognitoidentityprovider.ErrCodeResourceNotFoundException
}

// IsInvalidParameter reports a service-side validation failure.
func IsInvalidParameter(err error) bool {
	return AWSErrorCode(err) == cognitoidentityprovider.ErrCodeInvalidParameterException
}

func LogAWSError(log *zap.SugaredLogger, msg string, err error, keysAndValues ...interface{}) {
	if aerr, ok := err.(awserr.Error); ok {
		keysAndValues = append(keysAndValues, "Code", aerr.Code(), "Message", aerr.Message())
	}
	log.Errorw(msg, append(keysAndValues, "Error", err)...)
}
