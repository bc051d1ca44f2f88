package cognito

import (
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	cognito "github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/smoghal/cognito-custom-resources/pkg/config"
)

type fakePool struct {
	domain       string
	customDomain string
	servers      map[string]*cognito.ResourceServerType
	clients      map[string]*cognito.UserPoolClientType
}

// fakeCognito is an in-memory user pool service. It records every call in
// order and can be told to fail a named operation.
type fakeCognito struct {
	mu      sync.Mutex
	pools   map[string]*fakePool
	domains map[string]string // domain -> pool id
	calls   []string
	fail    map[string]error
	nextID  int
}

func newFakeCognito(poolIDs ...string) *fakeCognito {
	f := &fakeCognito{
		pools:   map[string]*fakePool{},
		domains: map[string]string{},
		fail:    map[string]error{},
	}
	for _, id := range poolIDs {
		f.pools[id] = &fakePool{
			servers: map[string]*cognito.ResourceServerType{},
			clients: map[string]*cognito.UserPoolClientType{},
		}
	}
	return f
}

func (f *fakeCognito) factory() ClientFactory {
	return func(string) (API, error) { return f, nil }
}

func (f *fakeCognito) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeCognito) callsTo(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeCognito) record(op string) error {
	f.calls = append(f.calls, op)
	if err, ok := f.fail[op]; ok {
		return err
	}
	return nil
}

func notFound(format string, v ...interface{}) error {
	return awserr.New(cognito.ErrCodeResourceNotFoundException, fmt.Sprintf(format, v...), nil)
}

func invalidParameter(format string, v ...interface{}) error {
	return awserr.New(cognito.ErrCodeInvalidParameterException, fmt.Sprintf(format, v...), nil)
}

func (f *fakeCognito) pool(id *string) (*fakePool, error) {
	p, ok := f.pools[aws.StringValue(id)]
	if !ok {
		return nil, notFound("User pool %s does not exist.", aws.StringValue(id))
	}
	return p, nil
}

func (f *fakeCognito) DescribeUserPoolWithContext(_ aws.Context, in *cognito.DescribeUserPoolInput, _ ...request.Option) (*cognito.DescribeUserPoolOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeUserPool"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	up := &cognito.UserPoolType{Id: in.UserPoolId}
	if p.domain != "" {
		up.Domain = aws.String(p.domain)
	}
	if p.customDomain != "" {
		up.CustomDomain = aws.String(p.customDomain)
	}
	return &cognito.DescribeUserPoolOutput{UserPool: up}, nil
}

func cloudFrontFor(domain string) string {
	return "d-" + domain + ".cloudfront.net"
}

func (f *fakeCognito) DescribeUserPoolDomainWithContext(_ aws.Context, in *cognito.DescribeUserPoolDomainInput, _ ...request.Option) (*cognito.DescribeUserPoolDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeUserPoolDomain"); err != nil {
		return nil, err
	}
	domain := aws.StringValue(in.Domain)
	poolID, ok := f.domains[domain]
	if !ok {
		// the real service answers with an empty description
		return &cognito.DescribeUserPoolDomainOutput{DomainDescription: &cognito.DomainDescriptionType{}}, nil
	}
	return &cognito.DescribeUserPoolDomainOutput{DomainDescription: &cognito.DomainDescriptionType{
		Domain:                 in.Domain,
		UserPoolId:             aws.String(poolID),
		CloudFrontDistribution: aws.String(cloudFrontFor(domain)),
		Status:                 aws.String(cognito.DomainStatusTypeActive),
	}}, nil
}

func (f *fakeCognito) CreateUserPoolDomainWithContext(_ aws.Context, in *cognito.CreateUserPoolDomainInput, _ ...request.Option) (*cognito.CreateUserPoolDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateUserPoolDomain"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	domain := aws.StringValue(in.Domain)
	if _, taken := f.domains[domain]; taken {
		return nil, invalidParameter("Domain already associated with another user pool.")
	}
	if p.domain != "" || p.customDomain != "" {
		return nil, invalidParameter("User pool already has a domain configured.")
	}
	if in.CustomDomainConfig != nil {
		p.customDomain = domain
	} else {
		p.domain = domain
	}
	f.domains[domain] = aws.StringValue(in.UserPoolId)
	return &cognito.CreateUserPoolDomainOutput{CloudFrontDomain: aws.String(cloudFrontFor(domain))}, nil
}

func (f *fakeCognito) UpdateUserPoolDomainWithContext(_ aws.Context, in *cognito.UpdateUserPoolDomainInput, _ ...request.Option) (*cognito.UpdateUserPoolDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateUserPoolDomain"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	if p.customDomain != aws.StringValue(in.Domain) {
		return nil, invalidParameter("Custom domain %s is not bound to the user pool.", aws.StringValue(in.Domain))
	}
	return &cognito.UpdateUserPoolDomainOutput{}, nil
}

func (f *fakeCognito) DeleteUserPoolDomainWithContext(_ aws.Context, in *cognito.DeleteUserPoolDomainInput, _ ...request.Option) (*cognito.DeleteUserPoolDomainOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteUserPoolDomain"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	domain := aws.StringValue(in.Domain)
	switch domain {
	case p.domain:
		p.domain = ""
	case p.customDomain:
		p.customDomain = ""
	default:
		return nil, invalidParameter("No such domain or user pool exists.")
	}
	delete(f.domains, domain)
	return &cognito.DeleteUserPoolDomainOutput{}, nil
}

func copyServer(s *cognito.ResourceServerType) *cognito.ResourceServerType {
	c := *s
	c.Scopes = append([]*cognito.ResourceServerScopeType(nil), s.Scopes...)
	return &c
}

func (f *fakeCognito) DescribeResourceServerWithContext(_ aws.Context, in *cognito.DescribeResourceServerInput, _ ...request.Option) (*cognito.DescribeResourceServerOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeResourceServer"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	s, ok := p.servers[aws.StringValue(in.Identifier)]
	if !ok {
		return nil, notFound("Resource server %s does not exist.", aws.StringValue(in.Identifier))
	}
	return &cognito.DescribeResourceServerOutput{ResourceServer: copyServer(s)}, nil
}

func (f *fakeCognito) CreateResourceServerWithContext(_ aws.Context, in *cognito.CreateResourceServerInput, _ ...request.Option) (*cognito.CreateResourceServerOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateResourceServer"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	id := aws.StringValue(in.Identifier)
	if _, exists := p.servers[id]; exists {
		return nil, invalidParameter("%s already exists in user pool %s.", id, aws.StringValue(in.UserPoolId))
	}
	s := &cognito.ResourceServerType{
		UserPoolId: in.UserPoolId,
		Identifier: in.Identifier,
		Name:       in.Name,
		Scopes:     in.Scopes,
	}
	p.servers[id] = s
	return &cognito.CreateResourceServerOutput{ResourceServer: copyServer(s)}, nil
}

func (f *fakeCognito) UpdateResourceServerWithContext(_ aws.Context, in *cognito.UpdateResourceServerInput, _ ...request.Option) (*cognito.UpdateResourceServerOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateResourceServer"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	s, ok := p.servers[aws.StringValue(in.Identifier)]
	if !ok {
		return nil, notFound("Resource server %s does not exist.", aws.StringValue(in.Identifier))
	}
	s.Name = in.Name
	s.Scopes = in.Scopes
	return &cognito.UpdateResourceServerOutput{ResourceServer: copyServer(s)}, nil
}

func (f *fakeCognito) DeleteResourceServerWithContext(_ aws.Context, in *cognito.DeleteResourceServerInput, _ ...request.Option) (*cognito.DeleteResourceServerOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteResourceServer"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	id := aws.StringValue(in.Identifier)
	if _, ok := p.servers[id]; !ok {
		return nil, notFound("Resource server %s does not exist.", id)
	}
	delete(p.servers, id)
	return &cognito.DeleteResourceServerOutput{}, nil
}

func copyClient(c *cognito.UserPoolClientType) *cognito.UserPoolClientType {
	cp := *c
	return &cp
}

func (f *fakeCognito) DescribeUserPoolClientWithContext(_ aws.Context, in *cognito.DescribeUserPoolClientInput, _ ...request.Option) (*cognito.DescribeUserPoolClientOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeUserPoolClient"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	id := aws.StringValue(in.ClientId)
	if !clientIDPattern.MatchString(id) {
		return nil, invalidParameter("1 validation error detected: Value '%s' at 'clientId' failed to satisfy constraint", id)
	}
	c, ok := p.clients[id]
	if !ok {
		return nil, notFound("User pool client %s does not exist.", id)
	}
	return &cognito.DescribeUserPoolClientOutput{UserPoolClient: copyClient(c)}, nil
}

func (f *fakeCognito) CreateUserPoolClientWithContext(_ aws.Context, in *cognito.CreateUserPoolClientInput, _ ...request.Option) (*cognito.CreateUserPoolClientOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateUserPoolClient"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	f.nextID++
	c := &cognito.UserPoolClientType{
		UserPoolId:                      in.UserPoolId,
		ClientId:                        aws.String(fmt.Sprintf("client%d", f.nextID)),
		ClientName:                      in.ClientName,
		AllowedOAuthFlows:               in.AllowedOAuthFlows,
		AllowedOAuthScopes:              in.AllowedOAuthScopes,
		AllowedOAuthFlowsUserPoolClient: in.AllowedOAuthFlowsUserPoolClient,
		RefreshTokenValidity:            in.RefreshTokenValidity,
	}
	if aws.BoolValue(in.GenerateSecret) {
		c.ClientSecret = aws.String(fmt.Sprintf("secret%d", f.nextID))
	}
	p.clients[aws.StringValue(c.ClientId)] = c
	return &cognito.CreateUserPoolClientOutput{UserPoolClient: copyClient(c)}, nil
}

func (f *fakeCognito) UpdateUserPoolClientWithContext(_ aws.Context, in *cognito.UpdateUserPoolClientInput, _ ...request.Option) (*cognito.UpdateUserPoolClientOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateUserPoolClient"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	c, ok := p.clients[aws.StringValue(in.ClientId)]
	if !ok {
		return nil, notFound("User pool client %s does not exist.", aws.StringValue(in.ClientId))
	}
	c.ClientName = in.ClientName
	c.AllowedOAuthFlows = in.AllowedOAuthFlows
	c.AllowedOAuthScopes = in.AllowedOAuthScopes
	c.AllowedOAuthFlowsUserPoolClient = in.AllowedOAuthFlowsUserPoolClient
	c.RefreshTokenValidity = in.RefreshTokenValidity
	return &cognito.UpdateUserPoolClientOutput{UserPoolClient: copyClient(c)}, nil
}

func (f *fakeCognito) DeleteUserPoolClientWithContext(_ aws.Context, in *cognito.DeleteUserPoolClientInput, _ ...request.Option) (*cognito.DeleteUserPoolClientOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteUserPoolClient"); err != nil {
		return nil, err
	}
	p, err := f.pool(in.UserPoolId)
	if err != nil {
		return nil, err
	}
	id := aws.StringValue(in.ClientId)
	if _, ok := p.clients[id]; !ok {
		return nil, notFound("User pool client %s does not exist.", id)
	}
	delete(p.clients, id)
	return &cognito.DeleteUserPoolClientOutput{}, nil
}

func testConfig() *config.Config {
	return &config.Config{DefaultRegion: "us-east-1"}
}
