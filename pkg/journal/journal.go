// Package journal records every custom-resource lifecycle operation in a
// DynamoDB table so operators can see what the handlers did to a user pool.
package journal

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// API is the slice of DynamoDB the journal uses.
type API interface {
	PutItemWithContext(aws.Context, *dynamodb.PutItemInput, ...request.Option) (*dynamodb.PutItemOutput, error)
}

var _ API = dynamodbiface.DynamoDBAPI(nil)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

type Entry struct {
	ID                 string    `json:"id"`
	RequestID          string    `json:"request_id"`
	StackID            string    `json:"stack_id"`
	LogicalResourceID  string    `json:"logical_resource_id"`
	ResourceType       string    `json:"resource_type"`
	RequestType        string    `json:"request_type"`
	PhysicalResourceID string    `json:"physical_resource_id"`
	Status             string    `json:"status"`
	Reason             string    `json:"reason,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// NewEntry describes the outcome of one invocation.
func NewEntry(requestID string, event cfn.Event, physicalID string, err error) Entry {
	e := Entry{
		ID:                 uuid.NewV4().String(),
		RequestID:          requestID,
		StackID:            event.StackID,
		LogicalResourceID:  event.LogicalResourceID,
		ResourceType:       event.ResourceType,
		RequestType:        string(event.RequestType),
		PhysicalResourceID: physicalID,
		Status:             StatusSuccess,
		Timestamp:          time.Now().UTC(),
	}
	if err != nil {
		e.Status = StatusFailed
		e.Reason = err.Error()
	}
	return e
}

type Journal struct {
	db    API
	table string
}

func New(db API, table string) *Journal {
	return &Journal{db: db, table: table}
}

func (j *Journal) Record(ctx context.Context, e Entry) error {
	item, err := dynamodbattribute.MarshalMap(e)
	if err != nil {
		return errors.Wrap(err, "marshal journal entry")
	}

	_, err = j.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		Item:      item,
		TableName: aws.String(j.table),
	})
	if err != nil {
		return errors.Wrapf(err, "put journal entry into %s", j.table)
	}
	return nil
}
