package schedcli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
)

const defaultCallTimeout = 10 * time.Second

// ErrNoAddress is returned by NewClient when no daemon address is given.
var ErrNoAddress = errors.New("schedcli: empty daemon address")

// Client talks to a running warpsched daemon over its JSON-RPC endpoint.
type Client struct {
	base   string
	secret string
	hc     *http.Client
	rpc    *jrpc2.Client
}

// NewClient returns a client for the daemon at addr. addr is either a
// host:port pair or a full http(s) URL. secret is sent as a bearer token.
func NewClient(addr, secret string) (*Client, error) {
	base, err := baseURL(addr)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Transport: &bearerTransport{secret: secret, next: http.DefaultTransport}}
	ch := jhttp.NewChannel(base+"/jsonrpc", &jhttp.ChannelOptions{Client: hc})
	return &Client{
		base:   base,
		secret: secret,
		hc:     hc,
		rpc:    jrpc2.NewClient(ch, nil),
	}, nil
}

func baseURL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ErrNoAddress
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/"), nil
}

// Close releases the underlying RPC client.
func (c *Client) Close() error {
	return c.rpc.Close()
}

func (c *Client) call(method string, params, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()
	if err := c.rpc.CallResult(ctx, method, params, result); err != nil {
		return fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	return nil
}

// bearerTransport adds the RPC secret to every outgoing request.
type bearerTransport struct {
	secret string
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.secret == "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.secret)
	return t.next.RoundTrip(r)
}
