package ws

import (
	"context"
	"errors"

	"github.com/channel-music/channel/internal/models"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicateConnection is returned by Handle when the hub already has a
// connection with the same id.
var ErrDuplicateConnection = errors.New("connection id already joined")

// errHubClosed ends a connection whose outbound channel the hub closed.
var errHubClosed = errors.New("hub closed the connection")

type wsConnection interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type messageHub interface {
	Join(connID string) chan models.ServerMessage
	Leave(connID string)
	Dispatch(connID string, msg models.ClientMessage)
}

// Connection relays one websocket: client messages go straight to the hub,
// hub messages are written back in order.
type Connection struct {
	ws       wsConnection
	hub      messageHub
	connID   string
	outbound <-chan models.ServerMessage
}

// NewConnection joins the hub immediately so no event published after it
// returns is missed.
func NewConnection(hub messageHub, ws wsConnection, connID string) *Connection {
	return &Connection{
		ws:       ws,
		hub:      hub,
		connID:   connID,
		outbound: hub.Join(connID),
	}
}

// Handle runs until the client goes away, the hub drops the connection or
// ctx is done. The socket is closed and the hub left before it returns.
func (c *Connection) Handle(ctx context.Context) error {
	if c.outbound == nil {
		_ = c.ws.Close()
		return ErrDuplicateConnection
	}
	defer c.hub.Leave(c.connID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(c.readLoop)
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error {
		// A blocked ReadJSON only returns once the socket is closed.
		<-gctx.Done()
		_ = c.ws.Close()
		return nil
	})

	// Closing the socket fails the pending read, so on shutdown the first
	// error may be that read error rather than the cancellation.
	err := g.Wait()
	if ctx.Err() != nil || errors.Is(err, errHubClosed) {
		return nil
	}
	return err
}

func (c *Connection) readLoop() error {
	for {
		var msg models.ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return err
		}
		c.hub.Dispatch(c.connID, msg)
	}
}

func (c *Connection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-c.outbound:
			if !ok {
				return errHubClosed
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				return err
			}
		}
	}
}
