package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// HTTPClient is the Client implementation talking to a real node over
// net/http. There's no ecosystem RPC library in the example corpus whose
// request shape matches this package's path-templated REST + ad hoc JSON
// (as opposed to a JSON-RPC 2.0 envelope), so this uses net/http +
// encoding/json directly — the one stdlib-only boundary, and the one
// externalized deliberately behind a narrow Client interface.
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPClient returns an HTTPClient with a sane default *http.Client
// timeout if hc is nil.
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPClient{BaseURL: baseURL, HTTP: hc}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "rpc: marshal request body")
		}

		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "rpc: build request")
	}

	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, "rpc: do request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "rpc: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NodeError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "rpc: decode response for %s %s", method, path)
	}

	return nil
}

// Head implements Client.
func (c *HTTPClient) Head(ctx context.Context, chainID string) (Head, error) {
	var h Head
	path := fmt.Sprintf("/chains/%s/blocks/head/header", chainID)
	err := c.do(ctx, http.MethodGet, path, nil, &h)

	return h, err
}

// EndorsingRights implements Client.
func (c *HTTPClient) EndorsingRights(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]Right, error) {
	var rights []Right
	path := fmt.Sprintf("/chains/%s/blocks/%s/helpers/endorsing_rights?%s",
		chainID, blockHash, rightsQuery(level, delegate))
	err := c.do(ctx, http.MethodGet, path, nil, &rights)

	return rights, err
}

// BakingRights implements Client.
func (c *HTTPClient) BakingRights(ctx context.Context, chainID, blockHash string, level uint32, delegate string) ([]Right, error) {
	var rights []Right
	path := fmt.Sprintf("/chains/%s/blocks/%s/helpers/baking_rights?%s",
		chainID, blockHash, rightsQuery(level, delegate))
	err := c.do(ctx, http.MethodGet, path, nil, &rights)

	return rights, err
}

func rightsQuery(level uint32, delegate string) string {
	v := url.Values{}
	v.Set("level", strconv.FormatUint(uint64(level), 10))
	v.Set("delegate", delegate)

	return v.Encode()
}

// ForgeOperation implements Client.
func (c *HTTPClient) ForgeOperation(ctx context.Context, chainID, blockHash string, op UnsignedOperation) (string, error) {
	var hexBytes string
	path := fmt.Sprintf("/chains/%s/blocks/%s/helpers/forge/operations", chainID, blockHash)
	err := c.do(ctx, http.MethodPost, path, op, &hexBytes)

	return hexBytes, err
}

// PreapplyOperations implements Client.
func (c *HTTPClient) PreapplyOperations(ctx context.Context, chainID, blockHash string, ops []SignedOperation) ([]PreappliedOperation, error) {
	var applied []PreappliedOperation
	path := fmt.Sprintf("/chains/%s/blocks/%s/helpers/preapply/operations", chainID, blockHash)
	err := c.do(ctx, http.MethodPost, path, ops, &applied)

	return applied, err
}

// PreapplyBlock implements Client.
func (c *HTTPClient) PreapplyBlock(ctx context.Context, chainID, blockHash string, header ShellHeader, timestamp time.Time, sort bool) (PreappliedBlock, error) {
	var result PreappliedBlock
	path := fmt.Sprintf("/chains/%s/blocks/%s/helpers/preapply/block?sort=%t&timestamp=%s",
		chainID, blockHash, sort, url.QueryEscape(timestamp.UTC().Format(time.RFC3339)))
	err := c.do(ctx, http.MethodPost, path, header, &result)

	return result, err
}

// ForgeBlockHeader implements Client.
func (c *HTTPClient) ForgeBlockHeader(ctx context.Context, chainID, blockHash string, header ForgeHeaderInput) (string, error) {
	var result ForgeBlockHeaderResult
	path := fmt.Sprintf("/chains/%s/blocks/%s/helpers/forge_block_header", chainID, blockHash)
	err := c.do(ctx, http.MethodPost, path, header, &result)

	return result.Block, err
}

// InjectOperation implements Client.
func (c *HTTPClient) InjectOperation(ctx context.Context, hexBytes string) (string, error) {
	var opHash string
	err := c.do(ctx, http.MethodPost, "/injection/operation", hexBytes, &opHash)

	return opHash, err
}

// InjectBlock implements Client.
func (c *HTTPClient) InjectBlock(ctx context.Context, chainID, hexBytes string) (string, error) {
	var blockHash string
	path := fmt.Sprintf("/injection/block?chain=%s", url.QueryEscape(chainID))
	err := c.do(ctx, http.MethodPost, path, hexBytes, &blockHash)

	return blockHash, err
}

// PendingOperations implements Client.
func (c *HTTPClient) PendingOperations(ctx context.Context, chainID string) (Mempool, error) {
	var m Mempool
	path := fmt.Sprintf("/chains/%s/mempool/pending_operations", chainID)
	err := c.do(ctx, http.MethodGet, path, nil, &m)

	return m, err
}
