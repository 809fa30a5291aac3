package openstack

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/aravindh-murugesan/vmpower-go/internal/store"
	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/utils/v2/openstack/clientconfig"
)

// DefaultProjectName is the project every token is scoped to.
const DefaultProjectName = "default"

// Client manages the connection to the identity and compute endpoints.
// It wraps gophercloud service clients rooted at https://{Endpoint}/api/v2/.
type Client struct {
	// Endpoint is the API host, optionally with a port (e.g. "27.126.152.210").
	Endpoint string
	// AuthURL overrides the identity endpoint. Defaults to https://{Endpoint}/api/v2/identity/auth.
	AuthURL string

	Username    string
	Password    string
	AccountName string
	// ProjectName scopes the token. Defaults to DefaultProjectName.
	ProjectName string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// RetryConfig defines transient error handling for read-only calls.
	RetryConfig cloud.RetryConfig
	// Store receives the token and the last response body. Optional.
	Store store.Store
	// HTTPClient overrides the HTTP client used for every request. Optional.
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Internal service clients
	ComputeClient  *gophercloud.ServiceClient
	IdentityClient *gophercloud.ServiceClient
}

// GetCloudProviderName returns the identifier for this provider.
func (c *Client) GetCloudProviderName() string {
	return "openstack"
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// BaseURL returns the root URL shared by the identity and compute APIs.
func (c *Client) BaseURL() string {
	return fmt.Sprintf("https://%s/api/v2/", strings.TrimSuffix(c.Endpoint, "/"))
}

// NewClient initializes the provider and the identity and compute service clients.
// It does not contact the API; authentication happens in Authenticate.
func (c *Client) NewClient() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.ProjectName == "" {
		c.ProjectName = DefaultProjectName
	}

	c.logger().Debug("Initializing compute client", "endpoint", c.Endpoint)

	base := c.BaseURL()
	provider, err := openstack.NewClient(base)
	if err != nil {
		return fmt.Errorf("failed to create provider client for %s: %w", base, err)
	}

	provider.HTTPClient = c.httpClient()
	provider.UserAgent.Prepend("vmpower-go")

	c.IdentityClient = &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       base + "identity/",
		Type:           "identity",
	}
	c.ComputeClient = &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       base + "compute/",
		Type:           "compute",
	}

	return nil
}

func (c *Client) httpClient() http.Client {
	if c.HTTPClient != nil {
		return *c.HTTPClient
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: c.InsecureSkipVerify} //nolint:gosec // the appliance ships self-signed certificates

	return http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ApplyCloudProfile fills empty credential fields from a clouds.yaml profile.
// Explicitly configured values always win over the profile.
func (c *Client) ApplyCloudProfile(profile string) error {
	cloudConfig, err := clientconfig.GetCloudFromYAML(&clientconfig.ClientOpts{Cloud: profile})
	if err != nil {
		return fmt.Errorf("failed to parse cloud config for profile '%s': %w", profile, err)
	}
	if cloudConfig.AuthInfo == nil {
		return fmt.Errorf("cloud profile '%s' has no auth section", profile)
	}

	auth := cloudConfig.AuthInfo
	setIfEmpty(&c.AuthURL, auth.AuthURL)
	setIfEmpty(&c.Username, auth.Username)
	setIfEmpty(&c.Password, auth.Password)
	setIfEmpty(&c.AccountName, auth.UserDomainName)
	setIfEmpty(&c.AccountName, auth.DomainName)
	setIfEmpty(&c.ProjectName, auth.ProjectName)

	if c.Endpoint == "" && c.AuthURL != "" {
		if host, err := hostFromURL(c.AuthURL); err == nil {
			c.Endpoint = host
		}
	}
	if cloudConfig.Verify != nil && !*cloudConfig.Verify {
		c.InsecureSkipVerify = true
	}

	return nil
}
