package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/smoghal/cognito-custom-resources/pkg/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// HostedDomainURL is the base URL of a prefix domain's hosted UI.
func HostedDomainURL(prefix, region string) string {
	return fmt.Sprintf("https://%s.auth.%s.amazoncognito.com", prefix, region)
}

// TokenURL is the OAuth2 token endpoint for a prefix domain.
func TokenURL(prefix, region string) string {
	return HostedDomainURL(prefix, region) + "/oauth2/token"
}

// Verifier checks that freshly provisioned client credentials can obtain an
// access token for their scope.
type Verifier struct {
	tokenURL   func(prefix, region string) string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Verifier)

// WithTokenURL overrides how the token endpoint is derived.
func WithTokenURL(fn func(prefix, region string) string) Option {
	return func(v *Verifier) { v.tokenURL = fn }
}

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

func NewVerifier(timeout time.Duration, opts ...Option) *Verifier {
	v := &Verifier{
		tokenURL: TokenURL,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type Credentials struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DomainPrefix string
	Region       string
}

// Verify performs a client_credentials grant and reports whether a token was
// issued.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) error {
	log := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	if v.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	}

	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     v.tokenURL(creds.DomainPrefix, creds.Region),
		Scopes:       []string{creds.Scope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	log.Debugw("requesting client credentials token", "TokenURL", config.TokenURL, "ClientId", creds.ClientID, "Scope", creds.Scope)

	token, err := config.Token(ctx)
	if err != nil {
		if rerr, ok := err.(*oauth2.RetrieveError); ok {
			return fmt.Errorf("oauth2 token exchange error: %s", rerr.ErrorCode)
		}
		return fmt.Errorf("oauth2 token exchange error: %w", err)
	}

	log.Debugw("obtained client credentials token", "TokenType", token.TokenType, "Expiry", token.Expiry)
	return nil
}
