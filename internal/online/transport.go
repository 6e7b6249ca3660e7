package online

import "context"

// Provider creates peers on the external peer-connection service.
type Provider interface {
	// NewPeer registers a peer. The peer id arrives later through
	// Events.PeerReady, failures through Events.PeerError. A non-empty id
	// asks for that id.
	NewPeer(ctx context.Context, id string, events Events) (Peer, error)
}

type Peer interface {
	// Connect opens a link to the peer registered as roomID. Events.ConnOpen
	// fires once the link is usable.
	Connect(ctx context.Context, roomID string) (Conn, error)
	Destroy() error
}

// Conn is one link between two peers.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Events receives everything the provider reports. Implementations must
// tolerate calls from any goroutine.
type Events interface {
	PeerReady(id string)
	PeerError(err error)
	IncomingConnection(conn Conn)
	ConnOpen(conn Conn)
	ConnData(conn Conn, data []byte)
	ConnClosed(conn Conn)
	ConnError(conn Conn, err error)
}
