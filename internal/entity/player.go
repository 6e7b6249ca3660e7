package entity

type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

// OnlineSession is a snapshot of the local side of a peer game.
// Role is EmptyCell and RoomID is empty when unset.
type OnlineSession struct {
	Role            Mark
	IsHost          bool
	RoomID          string
	ConnectionState ConnectionState
}

// HostRole and GuestRole are fixed: the host always plays X.
const (
	HostRole  = PlayerX
	GuestRole = PlayerO
)
