package schedcli

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpsched/common"
)

// wsChannel carries JSON-RPC messages over a WebSocket connection.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context

	once sync.Once
	done chan struct{}
	err  error
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil && c.done != nil {
		c.once.Do(func() {
			c.err = err
			close(c.done)
		})
	}
	return data, err
}

func (c *wsChannel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}

// Watch opens a WebSocket session and calls fn with the new level label
// each time the daemon reports a state change. It blocks until ctx is
// cancelled or the connection drops; cancellation is not an error.
func (c *Client) Watch(ctx context.Context, fn func(level string)) error {
	hdr := http.Header{}
	if c.secret != "" {
		hdr.Set("Authorization", "Bearer "+c.secret)
	}
	conn, _, err := cws.Dial(ctx, c.wsURL(), &cws.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return err
	}
	ch := &wsChannel{conn: conn, ctx: ctx, done: make(chan struct{})}
	cli := jrpc2.NewClient(ch, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if req.Method() != common.NotifyStateChanged {
				return
			}
			var p common.StateChangedParams
			if err := req.UnmarshalParams(&p); err != nil {
				return
			}
			fn(p.Level)
		},
	})
	defer cli.Close()
	select {
	case <-ctx.Done():
		return nil
	case <-ch.done:
	}
	err = ch.err
	if ctx.Err() != nil {
		return nil
	}
	if err == nil || cws.CloseStatus(err) == cws.StatusNormalClosure {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Client) wsURL() string {
	u := c.base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/jsonrpc/ws"
}
