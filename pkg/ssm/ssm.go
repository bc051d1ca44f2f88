package ssm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
)

// API is the part of Parameter Store used to publish app client credentials.
type API interface {
	PutParameterWithContext(aws.Context, *ssm.PutParameterInput, ...request.Option) (*ssm.PutParameterOutput, error)
	GetParametersWithContext(aws.Context, *ssm.GetParametersInput, ...request.Option) (*ssm.GetParametersOutput, error)
	DeleteParametersWithContext(aws.Context, *ssm.DeleteParametersInput, ...request.Option) (*ssm.DeleteParametersOutput, error)
}

var _ API = ssmiface.SSMAPI(nil)

type ClientInfo struct {
	ClientID     *string `json:"client_id"`
	ClientSecret *string `json:"-"`
}

// Store publishes app client credentials under a parameter path:
// <path>/id as a String and <path>/secret as a SecureString.
type Store struct {
	api API
}

func NewStore(api API) *Store {
	return &Store{api: api}
}

func idParameter(path string) string {
	return strings.TrimRight(path, "/") + "/id"
}

func secretParameter(path string) string {
	return strings.TrimRight(path, "/") + "/secret"
}

func (s *Store) PutClientInfo(ctx context.Context, path, clientID, clientSecret string) error {
	log := logging.FromContext(ctx)

	params := []*ssm.PutParameterInput{
		{
			Name:      aws.String(idParameter(path)),
			Value:     aws.String(clientID),
			Type:      aws.String(ssm.ParameterTypeString),
			Overwrite: aws.Bool(true),
		},
	}
	if clientSecret != "" {
		params = append(params, &ssm.PutParameterInput{
			Name:      aws.String(secretParameter(path)),
			Value:     aws.String(clientSecret),
			Type:      aws.String(ssm.ParameterTypeSecureString),
			Overwrite: aws.Bool(true),
		})
	}

	for _, in := range params {
		log.Debugw("SSM PutParameter Request", "Name", aws.StringValue(in.Name), "Type", aws.StringValue(in.Type))
		if _, err := s.api.PutParameterWithContext(ctx, in); err != nil {
			log.Errorw("SSM PutParameter Error", "Name", aws.StringValue(in.Name), "Error", err)
			return errors.Wrapf(err, "put parameter %s", aws.StringValue(in.Name))
		}
	}
	return nil
}

func (s *Store) GetClientInfo(ctx context.Context, path string) (*ClientInfo, error) {
	log := logging.FromContext(ctx)

	getParametersRequest := &ssm.GetParametersInput{
		Names: []*string{
			aws.String(idParameter(path)),
			aws.String(secretParameter(path)),
		},
		WithDecryption: aws.Bool(true),
	}

	log.Debugw("SSM GetParameters Request", "Request", structs.Map(getParametersRequest))

	getParametersResponse, err := s.api.GetParametersWithContext(ctx, getParametersRequest)
	if err != nil {
		log.Errorw("SSM GetParameters Error", "Error", err)
		return nil, err
	}

	log.Debugw("SSM GetParameters Response", "InvalidParameters", aws.StringValueSlice(getParametersResponse.InvalidParameters))

	info := &ClientInfo{}

	for _, param := range getParametersResponse.Parameters {
		switch aws.StringValue(param.Name) {
		case idParameter(path):
			info.ClientID = param.Value
		case secretParameter(path):
			info.ClientSecret = param.Value
		}
	}

	if info.ClientID == nil {
		log.Errorw("unable to extract client parameters from ssm", "Path", path)
		return nil, fmt.Errorf("unable to extract client parameters from ssm under %s", path)
	}

	return info, nil
}

// DeleteClientInfo removes both parameters. Missing parameters are not an error.
func (s *Store) DeleteClientInfo(ctx context.Context, path string) error {
	log := logging.FromContext(ctx)

	deleteParametersRequest := &ssm.DeleteParametersInput{
		Names: []*string{
			aws.String(idParameter(path)),
			aws.String(secretParameter(path)),
		},
	}

	log.Debugw("SSM DeleteParameters Request", "Request", structs.Map(deleteParametersRequest))

	resp, err := s.api.DeleteParametersWithContext(ctx, deleteParametersRequest)
	if err != nil {
		log.Errorw("SSM DeleteParameters Error", "Error", err)
		return errors.Wrapf(err, "delete parameters under %s", path)
	}

	log.Debugw("SSM DeleteParameters Response",
		"Deleted", aws.StringValueSlice(resp.DeletedParameters),
		"Invalid", aws.StringValueSlice(resp.InvalidParameters))
	return nil
}
