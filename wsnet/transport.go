package wsnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 5 * time.Second
	inboxDepth = 1024
)

var ErrClosed = errors.New("wsnet: transport closed")

type Config struct {
	// Players is the total number of players, host included. Only the host
	// uses it.
	Players int
	Logger  logrus.FieldLogger
}

type peerConn struct {
	id     uuid.UUID
	player int
	conn   *websocket.Conn
	wmu    sync.Mutex
}

func (p *peerConn) write(messageType int, data []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(messageType, data)
}

func (p *peerConn) writeJSON(v any) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(v)
}

// Transport implements rollback.Transport over websockets. The host keeps a
// connection to every guest and relays each guest's messages to the others;
// a guest holds a single connection to the host.
type Transport struct {
	id      uuid.UUID
	host    bool
	player  int
	players int
	log     logrus.FieldLogger

	upgrader websocket.Upgrader
	server   *http.Server
	addr     net.Addr

	inbox chan Message
	done  chan struct{}
	ready chan struct{}

	mu     sync.Mutex
	peers  []*peerConn
	err    error
	closed bool
	wg     sync.WaitGroup
}

func newTransport(cfg Config, host bool) *Transport {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	id := uuid.New()
	return &Transport{
		id:    id,
		host:  host,
		log:   log.WithField("peer", id),
		inbox: make(chan Message, inboxDepth),
		done:  make(chan struct{}),
		ready: make(chan struct{}),
	}
}

// NewHost returns a host transport for player 0. Serve it with ServeHTTP and
// wait for the guests with WaitPeers.
func NewHost(cfg Config) (*Transport, error) {
	if cfg.Players < 2 {
		return nil, fmt.Errorf("wsnet: a hosted match needs at least 2 players, got %d", cfg.Players)
	}
	t := newTransport(cfg, true)
	t.players = cfg.Players
	t.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	return t, nil
}

// Listen starts a host on addr.
func Listen(ctx context.Context, addr string, cfg Config) (*Transport, error) {
	t, err := NewHost(cfg)
	if err != nil {
		return nil, err
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	t.addr = ln.Addr()
	t.server = &http.Server{Handler: t}
	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.fail(err)
		}
	}()
	t.log.WithField("addr", t.addr).Info("Hosting match")
	return t, nil
}

// Dial joins the match hosted at url. It returns once every guest has
// joined.
func Dial(ctx context.Context, url string, cfg Config) (*Transport, error) {
	t := newTransport(cfg, false)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	if err := conn.WriteJSON(hello{Peer: t.id}); err != nil {
		conn.Close()
		return nil, err
	}
	// The welcome arrives once the match is full.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	var welcome hello
	err = conn.ReadJSON(&welcome)
	conn.SetReadDeadline(time.Time{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("wsnet: handshake: %w", err)
	}
	if welcome.Player < 1 || welcome.Players <= welcome.Player {
		conn.Close()
		return nil, fmt.Errorf("wsnet: host assigned player %d of %d", welcome.Player, welcome.Players)
	}
	t.player = welcome.Player
	t.players = welcome.Players
	t.log = t.log.WithField("player", t.player)

	p := &peerConn{id: welcome.Peer, conn: conn}
	t.peers = append(t.peers, p)
	close(t.ready)
	t.wg.Add(1)
	go t.readLoop(p)
	t.log.WithField("host", welcome.Peer).Info("Joined match")
	return t, nil
}

func (t *Transport) ID() uuid.UUID { return t.id }

// Player is the local player handle: 0 for the host.
func (t *Transport) Player() int { return t.player }

// Players is the total number of players in the match.
func (t *Transport) Players() int { return t.players }

// Addr is the address a host listens on.
func (t *Transport) Addr() net.Addr { return t.addr }

// WaitPeers blocks until every guest has joined.
func (t *Transport) WaitPeers(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.WithError(err).Warn("Upgrade failed")
		return
	}

	var greeting hello
	if err := conn.ReadJSON(&greeting); err != nil {
		t.log.WithError(err).Warn("Handshake failed")
		conn.Close()
		return
	}

	t.mu.Lock()
	if t.closed || len(t.peers) >= t.players-1 {
		t.mu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "match is full")
		conn.WriteMessage(websocket.CloseMessage, msg)
		conn.Close()
		return
	}
	p := &peerConn{id: greeting.Peer, player: len(t.peers) + 1, conn: conn}
	t.peers = append(t.peers, p)
	full := len(t.peers) == t.players-1
	// Registered under mu so that Close, once it sets closed, waits for
	// this read loop too.
	t.wg.Add(1)
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{"guest": p.id, "player": p.player}).Info("Player joined")
	if full {
		t.welcome()
	}

	t.readLoop(p)
}

// welcome tells every guest its handle once the match is full, so that no
// guest starts sending before all of them can be relayed to.
func (t *Transport) welcome() {
	for _, p := range t.snapshotPeers() {
		if err := p.writeJSON(hello{Peer: t.id, Player: p.player, Players: t.players}); err != nil {
			t.fail(fmt.Errorf("welcome player %d: %w", p.player, err))
		}
	}
	close(t.ready)
}

func (t *Transport) readLoop(p *peerConn) {
	defer t.wg.Done()
	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			t.fail(fmt.Errorf("player %d: %w", p.player, err))
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		msg, err := Decode(data)
		if err != nil {
			t.log.WithError(err).WithField("from", p.id).Warn("Dropping message")
			continue
		}
		if t.host {
			t.relay(p, data)
		}
		select {
		case t.inbox <- msg:
		case <-t.done:
			return
		}
	}
}

func (t *Transport) relay(from *peerConn, data []byte) {
	for _, p := range t.snapshotPeers() {
		if p == from {
			continue
		}
		if err := p.write(websocket.BinaryMessage, data); err != nil {
			t.fail(fmt.Errorf("relay to player %d: %w", p.player, err))
		}
	}
}

func (t *Transport) snapshotPeers() []*peerConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*peerConn(nil), t.peers...)
}

// fail records the first error; Poll reports it.
func (t *Transport) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.err != nil {
		return
	}
	t.err = err
	t.log.WithError(err).Error("Connection lost")
}

func (t *Transport) Send(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.err != nil {
		err := t.err
		t.mu.Unlock()
		return err
	}
	peers := append([]*peerConn(nil), t.peers...)
	t.mu.Unlock()

	for _, p := range peers {
		if err := p.write(websocket.BinaryMessage, data); err != nil {
			t.fail(err)
			return err
		}
	}
	return nil
}

// Poll drains received messages without blocking. A connection error is
// reported once everything received before it has been returned.
func (t *Transport) Poll() ([]Message, error) {
	var msgs []Message
	for {
		select {
		case msg := <-t.inbox:
			msgs = append(msgs, msg)
		default:
			if len(msgs) > 0 {
				return msgs, nil
			}
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.closed {
				return nil, ErrClosed
			}
			return nil, t.err
		}
	}
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	peers := t.peers
	t.mu.Unlock()

	close(t.done)
	for _, p := range peers {
		p.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.conn.Close()
	}
	var err error
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		err = t.server.Shutdown(ctx)
	}
	t.wg.Wait()
	return err
}
