// Package resource adapts the CloudFormation custom-resource protocol
// (github.com/aws/aws-lambda-go/cfn) to the Create/Update/Delete operations
// of a managed resource.
package resource

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/smoghal/cognito-custom-resources/pkg/journal"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"github.com/smoghal/cognito-custom-resources/pkg/util"
	"go.uber.org/zap"
)

type Operation int

const (
	OperationCreate Operation = iota + 1
	OperationUpdate
	OperationDelete
)

func (o Operation) String() string {
	switch o {
	case OperationCreate:
		return "create"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ParseOperation maps a CloudFormation request type to an Operation.
func ParseOperation(rt cfn.RequestType) (Operation, error) {
	switch rt {
	case cfn.RequestCreate:
		return OperationCreate, nil
	case cfn.RequestUpdate:
		return OperationUpdate, nil
	case cfn.RequestDelete:
		return OperationDelete, nil
	}
	return 0, util.NewConfigurationError("RequestType", "unsupported request type %q", rt)
}

// Resource is a managed resource. Each operation returns the physical
// resource id and the attributes exposed through Fn::GetAtt.
type Resource interface {
	Create(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error)
	Update(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error)
	Delete(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error)
}

// Recorder persists the outcome of an invocation.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Dispatcher struct {
	log      *zap.SugaredLogger
	recorder Recorder
}

type Option func(*Dispatcher)

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

func NewDispatcher(log *zap.SugaredLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes event to the matching operation of r.
func (d *Dispatcher) Dispatch(ctx context.Context, r Resource, event cfn.Event) (physicalResourceID string, data map[string]interface{}, err error) {
	requestID := logging.RequestID(ctx)
	log := logging.ForEvent(d.log, requestID, event)
	ctx = logging.WithLogger(ctx, log)

	log.Infow("Event Received", "PhysicalResourceId", event.PhysicalResourceID)

	op, err := ParseOperation(event.RequestType)
	if err == nil {
		switch op {
		case OperationCreate:
			physicalResourceID, data, err = r.Create(ctx, event)
		case OperationUpdate:
			physicalResourceID, data, err = r.Update(ctx, event)
		case OperationDelete:
			physicalResourceID, data, err = r.Delete(ctx, event)
		}
	}

	if physicalResourceID == "" && op != OperationCreate {
		physicalResourceID = event.PhysicalResourceID
	}

	if err != nil {
		log.Errorw("custom resource operation failed", "Operation", op.String(), "Error", err)
	} else {
		log.Infow("custom resource operation succeeded", "Operation", op.String(), "PhysicalResourceId", physicalResourceID)
	}

	if d.recorder != nil {
		if jerr := d.recorder.Record(ctx, journal.NewEntry(requestID, event, physicalResourceID, err)); jerr != nil {
			log.Warnw("unable to record journal entry", "Error", jerr)
		}
	}

	return physicalResourceID, data, err
}

// Handler returns r wrapped as a cfn.CustomResourceFunction, ready for
// cfn.LambdaWrap.
func (d *Dispatcher) Handler(r Resource) cfn.CustomResourceFunction {
	return func(ctx context.Context, event cfn.Event) (string, map[string]interface{}, error) {
		return d.Dispatch(ctx, r, event)
	}
}

// PollCreate reports whether an asynchronous create has finished. Every
// operation here completes before it returns, so the answer is always yes.
func PollCreate(ctx context.Context, event cfn.Event) (bool, error) {
	logging.FromContext(ctx).Infow("Create polling", "PhysicalResourceId", event.PhysicalResourceID)
	return true, nil
}
