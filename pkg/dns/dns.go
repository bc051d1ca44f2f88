// Package dns maintains the Route 53 alias record that points a custom Cognito
// domain at the CloudFront distribution serving the hosted UI.
package dns

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/route53"
	"github.com/aws/aws-sdk-go/service/route53/route53iface"
	"github.com/fatih/structs"
	"github.com/pkg/errors"
	"github.com/smoghal/cognito-custom-resources/pkg/logging"
)

// CloudFront Hosted Zone ID: https://docs.aws.amazon.com/general/latest/gr/rande.html#cf_region
const cloudFrontHostedZoneID = "Z2FDTNDATAQYW2"

type API interface {
	ListHostedZonesByNameWithContext(aws.Context, *route53.ListHostedZonesByNameInput, ...request.Option) (*route53.ListHostedZonesByNameOutput, error)
	ChangeResourceRecordSetsWithContext(aws.Context, *route53.ChangeResourceRecordSetsInput, ...request.Option) (*route53.ChangeResourceRecordSetsOutput, error)
}

var _ API = route53iface.Route53API(nil)

type Alias struct {
	api API
}

func NewAlias(api API) *Alias {
	return &Alias{api: api}
}

// Upsert points name at the CloudFront distribution target.
func (a *Alias) Upsert(ctx context.Context, zoneName, name, target string) error {
	return a.change(ctx, route53.ChangeActionUpsert, zoneName, name, target)
}

// Delete removes the alias record. A record that is already gone is not an error.
func (a *Alias) Delete(ctx context.Context, zoneName, name, target string) error {
	err := a.change(ctx, route53.ChangeActionDelete, zoneName, name, target)
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == route53.ErrCodeInvalidChangeBatch {
		logging.FromContext(ctx).Infow("alias record already absent", "Name", name)
		return nil
	}
	return err
}

func (a *Alias) change(ctx context.Context, action, zoneName, name, target string) error {
	log := logging.FromContext(ctx)

	zoneID, err := a.zoneID(ctx, zoneName)
	if err != nil {
		return err
	}

	changeResourceRecordRequest := &route53.ChangeResourceRecordSetsInput{
		ChangeBatch: &route53.ChangeBatch{
			Changes: []*route53.Change{
				{
					Action: aws.String(action),
					ResourceRecordSet: &route53.ResourceRecordSet{
						Name: aws.String(name),
						AliasTarget: &route53.AliasTarget{
							DNSName:              aws.String(target),
							EvaluateTargetHealth: aws.Bool(false),
							HostedZoneId:         aws.String(cloudFrontHostedZoneID),
						},
						Type: aws.String(route53.RRTypeA),
					},
				},
			},
			Comment: aws.String("hosted UI domain for cognito"),
		},
		HostedZoneId: aws.String(zoneID),
	}

	log.Debugw("Route53 ChangeResourceRecordSets Request", "Request", structs.Map(changeResourceRecordRequest))

	changeResourceRecordResponse, err := a.api.ChangeResourceRecordSetsWithContext(ctx, changeResourceRecordRequest)
	if err != nil {
		log.Errorw("Route53 ChangeResourceRecordSets Error", "Action", action, "Error", err)
		return errors.Wrapf(err, "%s alias record %s", strings.ToLower(action), name)
	}

	log.Debugw("Route53 ChangeResourceRecordSets Response", "Response", structs.Map(changeResourceRecordResponse))
	return nil
}

func (a *Alias) zoneID(ctx context.Context, zoneName string) (string, error) {
	log := logging.FromContext(ctx)

	listHostedZonesRequest := &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(canonical(zoneName)),
	}

	log.Debugw("Route53 ListHostedZonesByName Request", "Request", structs.Map(listHostedZonesRequest))

	listHostedZonesResponse, err := a.api.ListHostedZonesByNameWithContext(ctx, listHostedZonesRequest)
	if err != nil {
		log.Errorw("Route53 ListHostedZonesByName Error", "Error", err)
		return "", errors.Wrap(err, "list hosted zones")
	}

	return extractZoneID(listHostedZonesResponse, zoneName)
}

func canonical(domain string) string {
	return strings.TrimSuffix(domain, ".") + "."
}

func extractZoneID(zones *route53.ListHostedZonesByNameOutput, domain string) (string, error) {
	for _, zone := range zones.HostedZones {
		if aws.StringValue(zone.Name) == canonical(domain) {
			return aws.StringValue(zone.Id), nil
		}
	}
	return "", fmt.Errorf("unable to find HostedZone for domain %s", domain)
}
