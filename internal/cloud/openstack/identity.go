package openstack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/store"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/tokens"
)

// SubjectTokenHeader carries the issued token in the identity response.
const SubjectTokenHeader = "X-Subject-Token"

// authURL returns the identity endpoint used for the password exchange.
func (c *Client) authURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return c.IdentityClient.ServiceURL("auth")
}

// authRequestBody builds the password identity request scoped to the account's project.
func (c *Client) authRequestBody() (map[string]any, error) {
	opts := tokens.AuthOptions{
		Username:   c.Username,
		Password:   c.Password,
		DomainName: c.AccountName,
		Scope: tokens.Scope{
			ProjectName: c.ProjectName,
			DomainName:  c.AccountName,
		},
	}

	scope, err := opts.ToTokenV3ScopeMap()
	if err != nil {
		return nil, fmt.Errorf("invalid token scope: %w", err)
	}
	return opts.ToTokenV3CreateMap(scope)
}

// Authenticate exchanges the configured credentials for a bearer token.
//
// Behavior:
//   - Expects HTTP 201 with the token in the X-Subject-Token header. Any other status,
//     a transport error or an empty header is a failure.
//   - No retry: a failed exchange is terminal for the run.
//   - On success the token is written to Store with the current timestamp, replacing
//     any previous value. A failed write is logged and does not fail the exchange.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if c.IdentityClient == nil {
		return "", fmt.Errorf("client not initialized")
	}

	body, err := c.authRequestBody()
	if err != nil {
		return "", err
	}

	url := c.authURL()
	log := c.logger().With("auth_url", url, "username", c.Username, "account", c.AccountName)
	log.Debug("Requesting bearer token")

	resp, err := c.IdentityClient.Post(ctx, url, body, nil, &gophercloud.RequestOpts{
		OkCodes:     []int{http.StatusCreated},
		OmitHeaders: []string{"X-Auth-Token"},
	})
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}

	token := resp.Header.Get(SubjectTokenHeader)
	if token == "" {
		return "", fmt.Errorf("authentication failed: response has no %s header", SubjectTokenHeader)
	}

	if c.Store != nil {
		if err := c.Store.PutToken(ctx, store.NewToken(token, time.Now())); err != nil {
			log.Warn("Failed to persist token", "error", err)
		}
	}

	log.Info("Authentication successful")
	return token, nil
}
