package online

import (
	"context"
	"errors"
	"fmt"
)

var errClosed = errors.New("connection is closed")

// queueLoop stands in for the dispatcher: posted tasks run on drain.
type queueLoop struct {
	tasks []func()
}

func (that *queueLoop) Post(task func()) {
	that.tasks = append(that.tasks, task)
}

func (that *queueLoop) drain() {
	for len(that.tasks) > 0 {
		task := that.tasks[0]
		that.tasks = that.tasks[1:]
		task()
	}
}

// fakeNetwork links peers in memory the way the relay does.
type fakeNetwork struct {
	peers      map[string]*fakePeer
	nextID     int
	newPeerErr error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{peers: make(map[string]*fakePeer), nextID: 1000}
}

func (that *fakeNetwork) NewPeer(_ context.Context, id string, events Events) (Peer, error) {
	if that.newPeerErr != nil {
		return nil, that.newPeerErr
	}

	if id == "" {
		that.nextID++
		id = fmt.Sprint(that.nextID)
	}

	peer := &fakePeer{network: that, id: id, events: events}
	that.peers[id] = peer
	events.PeerReady(id)

	return peer, nil
}

type fakePeer struct {
	network   *fakeNetwork
	id        string
	events    Events
	destroyed bool
	conns     []*fakeConn
}

func (that *fakePeer) Connect(_ context.Context, roomID string) (Conn, error) {
	local := &fakeConn{events: that.events}
	that.conns = append(that.conns, local)

	host, ok := that.network.peers[roomID]
	if !ok || host.destroyed {
		that.events.ConnError(local, fmt.Errorf("could not connect to peer %s", roomID))
		return local, nil
	}

	remote := &fakeConn{events: host.events, remote: local}
	local.remote = remote
	host.conns = append(host.conns, remote)

	host.events.IncomingConnection(remote)
	that.events.ConnOpen(local)

	return local, nil
}

func (that *fakePeer) Destroy() error {
	that.destroyed = true
	delete(that.network.peers, that.id)
	return nil
}

type fakeConn struct {
	events Events
	remote *fakeConn
	closed bool
	sent   [][]byte
}

func (that *fakeConn) Send(data []byte) error {
	if that.closed {
		return errClosed
	}

	that.sent = append(that.sent, data)
	if that.remote != nil && !that.remote.closed {
		that.remote.events.ConnData(that.remote, data)
	}

	return nil
}

func (that *fakeConn) Close() error {
	if that.closed {
		return nil
	}

	that.closed = true
	if that.remote != nil && !that.remote.closed {
		that.remote.closed = true
		that.remote.events.ConnClosed(that.remote)
	}

	return nil
}

// inject delivers raw bytes as if the friend had sent them.
func (that *fakeConn) inject(data []byte) {
	that.events.ConnData(that, data)
}
