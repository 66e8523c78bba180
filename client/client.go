package client

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/they4kman/duelsweep/protocol"
)

// Client is a peer's end of a match connection
type Client struct {
	conn net.Conn
	dec  *protocol.Decoder

	mu  sync.Mutex
	enc *protocol.Encoder
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return New(conn), nil
}

func New(conn net.Conn) *Client {
	return &Client{
		conn: conn,
		dec:  protocol.NewDecoder(conn, 0),
		enc:  protocol.NewEncoder(conn),
	}
}

// Reveal asks the server to reveal a cell
func (client *Client) Reveal(row, col int) error {
	return client.send(protocol.Click{Cmd: protocol.CmdLeftClick, X: row, Y: col})
}

// ToggleFlag asks the server to relay a flag toggle
func (client *Client) ToggleFlag(row, col int) error {
	return client.send(protocol.Click{Cmd: protocol.CmdRightClick, X: row, Y: col})
}

func (client *Client) send(msg interface{}) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	return client.enc.Encode(msg)
}

// Next blocks until the server sends a message
func (client *Client) Next() (*protocol.Message, error) {
	return client.dec.Next()
}

func (client *Client) Close() error {
	return client.conn.Close()
}
