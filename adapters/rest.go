package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/internal/util"
)

// RESTOptions locates the collections on the management API
type RESTOptions struct {
	BasePath       string        // e.g. /mgmt/tm
	ContainersPath string        // e.g. sys/folder
	ObjectsPath    string        // e.g. ltm/rule
	Timeout        time.Duration // per request; 0 disables
}

// RESTProvider hands out REST clients for a set of credentials
type RESTProvider struct {
	opts RESTOptions
}

func NewRESTProvider(opts RESTOptions) *RESTProvider {
	return &RESTProvider{opts: opts}
}

// NewClient builds a client for creds.Host. A host without a scheme is
// reached over https. StrictTLS is handed to the transport as is.
func (p *RESTProvider) NewClient(creds restfs.Credentials) (restfs.RemoteClient, error) {
	base, err := parseHost(creds.Host)
	if err != nil {
		return nil, err
	}
	base = base.JoinPath(p.opts.BasePath)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !creds.StrictTLS}

	return &RESTClient{
		base:  base,
		creds: creds,
		opts:  p.opts,
		http:  &http.Client{Transport: transport, Timeout: p.opts.Timeout},
	}, nil
}

func parseHost(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("%w: host", restfs.ErrConfigurationMissing)
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid host %q: unsupported scheme %q", host, u.Scheme)
	}
	if u.Host == "" || u.User != nil {
		return nil, fmt.Errorf("invalid host %q", host)
	}
	return u, nil
}

// RESTClient implements [restfs.RemoteClient] over HTTP basic auth
type RESTClient struct {
	base  *url.URL
	creds restfs.Credentials
	opts  RESTOptions
	http  *http.Client
}

type updateBody struct {
	Content string `json:"apiAnonymous"`
}

func (c *RESTClient) ListContainers(ctx context.Context) ([]restfs.RemoteItem, error) {
	return c.list(ctx, c.opts.ContainersPath)
}

func (c *RESTClient) ListObjects(ctx context.Context) ([]restfs.RemoteItem, error) {
	return c.list(ctx, c.opts.ObjectsPath)
}

// UpdateObject replaces the object's content with a single PUT
func (c *RESTClient) UpdateObject(ctx context.Context, id string, content []byte) error {
	body, err := json.Marshal(updateBody{Content: string(content)})
	if err != nil {
		return err
	}
	u := c.base.JoinPath(c.opts.ObjectsPath, id)
	req, err := c.newRequest(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *RESTClient) list(ctx context.Context, collection string) ([]restfs.RemoteItem, error) {
	logger := util.GetLogger("RESTClient.list")

	u := c.base.JoinPath(collection)
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list restfs.ItemList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &restfs.TransportError{Op: req.Method, URL: u.Redacted(), StatusCode: resp.StatusCode,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	logger.Debug().Str("url", u.Redacted()).Int("items", len(list.Items)).Msg("Listed collection")
	return list.Items, nil
}

func (c *RESTClient) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and turns network failures and non-2xx answers into
// TransportErrors. On success the caller owns the body.
func (c *RESTClient) do(req *http.Request) (*http.Response, error) {
	logger := util.GetLogger("RESTClient.do")
	logger.Trace().Str("method", req.Method).Str("url", req.URL.Redacted()).Msg("Sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &restfs.TransportError{Op: req.Method, URL: req.URL.Redacted(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, &restfs.TransportError{
			Op:         req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Err:        apiError(resp.Body),
		}
	}
	return resp, nil
}

// apiError extracts the message of an API error body when there is one
func apiError(body io.Reader) error {
	var e struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	if err := json.Unmarshal(data, &e); err != nil || e.Message == "" {
		return nil
	}
	return errors.New(e.Message)
}

var _ restfs.RemoteClient = (*RESTClient)(nil)
