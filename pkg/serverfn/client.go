package serverfn

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/vango-dev/suspense/internal/errors"
)

// Client calls server functions mounted at BaseURL + "/" + name.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// Call posts args as JSON and decodes the result into out (which may be
// nil). A 400 response maps to E080 and any other failure to E081.
func (c *Client) Call(ctx context.Context, name string, args, out any) error {
	body, err := sonic.Marshal(args)
	if err != nil {
		return errors.New("E082").Wrap(err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.New("E081").WithDetail(name).Wrap(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New("E081").WithDetail(name).Wrap(err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return errors.New("E080").WithDetailf("no server function named %q", name)
	case resp.StatusCode != http.StatusOK:
		return errors.New("E081").WithDetailf("%s: %s", name, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(payload, out); err != nil {
		return errors.New("E082").Wrap(err)
	}
	return nil
}
