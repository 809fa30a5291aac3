package openstack

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aravindh-murugesan/vmpower-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
)

// PerformVMAction sends a single power action for one VM.
//
// The request is a POST to compute/vms/{vmID}/action carrying the bearer token in
// X-Auth-Token. Only HTTP 200 counts as success; rejections and transport errors both
// return an error and are not distinguished by the caller.
//
// The response body is written to Store, replacing the previous one, so after a
// sequence of actions only the last response is kept.
func (c *Client) PerformVMAction(ctx context.Context, token, vmID string, action cloud.Action) error {
	if c.ComputeClient == nil {
		return fmt.Errorf("client not initialized")
	}

	url := c.ComputeClient.ServiceURL("vms", vmID, "action")
	body, err := c.post(ctx, token, url, action.Body(), http.StatusOK)
	if err != nil {
		return fmt.Errorf("vm %s action '%s' failed: %w", vmID, action.Name, err)
	}

	c.persistResponse(ctx, body)
	return nil
}

// ListVMs fetches the VM collection. Transient failures are retried using RetryConfig.
func (c *Client) ListVMs(ctx context.Context, token string) ([]VM, error) {
	if c.ComputeClient == nil {
		return nil, fmt.Errorf("client not initialized")
	}

	url := c.ComputeClient.ServiceURL("vms")

	var raw []byte
	listOperation := func(innerCtx context.Context) error {
		body, err := c.get(innerCtx, token, url)
		if err != nil {
			return err
		}
		raw = body
		return nil
	}

	if err := c.executeWithRetry(ctx, "ListVMs", listOperation); err != nil {
		return nil, err
	}

	c.persistResponse(ctx, raw)
	return parseVMList(raw)
}

// executeWithRetry is a helper to run any operation using the client's retry configuration.
func (c *Client) executeWithRetry(ctx context.Context, opName string, operation func(ctx context.Context) error) error {
	return ExecuteAction(ctx, c.RetryConfig, opName, operation)
}

func (c *Client) post(ctx context.Context, token, url string, body any, okCode int) ([]byte, error) {
	resp, err := c.ComputeClient.Post(ctx, url, body, nil, &gophercloud.RequestOpts{
		OkCodes:          []int{okCode},
		MoreHeaders:      map[string]string{"X-Auth-Token": token},
		KeepResponseBody: true,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, token, url string) ([]byte, error) {
	resp, err := c.ComputeClient.Get(ctx, url, nil, &gophercloud.RequestOpts{
		OkCodes:          []int{http.StatusOK},
		MoreHeaders:      map[string]string{"X-Auth-Token": token},
		KeepResponseBody: true,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (c *Client) persistResponse(ctx context.Context, body []byte) {
	if c.Store == nil || len(body) == 0 {
		return
	}
	if err := c.Store.PutResponse(ctx, body); err != nil {
		c.logger().Warn("Failed to persist response body", "error", err)
	}
}
