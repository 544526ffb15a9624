package mqtt

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vaneuver/corert"
	"github.com/vaneuver/corert/internal/constants"
	"github.com/vaneuver/corert/internal/logging"
)

// ClientOptions configures a Client. Grounded on mqtt0's ClientConfig,
// trimmed to the fixed 3.1.1-over-TLS transport this runtime always uses
// and extended with the reconnect/backoff knobs iotcored's connection
// manager needs.
type ClientOptions struct {
	Addr         string
	ClientID     string
	Username     string
	Password     []byte
	KeepAlive    time.Duration
	CleanSession bool
	TLSConfig    *tls.Config

	ConnectTimeout time.Duration
	Dialer         func(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error)

	Log *logging.Logger
}

func (o *ClientOptions) setDefaults() {
	if o.KeepAlive == 0 {
		o.KeepAlive = constants.DefaultKeepAlive
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = constants.DefaultConnectTimeout
	}
	if o.Dialer == nil {
		o.Dialer = Dialer
	}
	if o.Log == nil {
		o.Log = logging.Default()
	}
}

type pendingAck struct {
	kind packetType // ptSubAck or ptUnsubAck
	ch   chan RawPacket
}

// Client is an MQTT 3.1.1 client over a single TLS connection, wired to a
// PublishStore for QoS1 retransmission and a Registry for topic fan-out.
// Grounded on mqtt0's Client (connect/publish/subscribe/recv/keepalive
// shape) and on iotcored's mqtt.c (the unacked-publish store, the
// subscription registry, and the reconnect-and-replay behavior), combined
// here into one push-dispatch client instead of mqtt0's pull-based Recv.
type Client struct {
	opts ClientOptions
	log  *logging.Logger

	store    *PublishStore
	registry *Registry

	connMu sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	ackMu   sync.Mutex
	acks    map[uint16]pendingAck
	nextPID atomic.Uint32

	pingPending atomic.Bool

	connected   atomic.Bool
	statusMu    sync.Mutex
	statusChans []chan bool

	closed atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewClient constructs a Client bound to store and registry. Call Run to
// establish and maintain the connection.
func NewClient(opts ClientOptions, store *PublishStore, registry *Registry) *Client {
	opts.setDefaults()
	c := &Client{
		opts:     opts,
		log:      opts.Log.With("mqtt"),
		store:    store,
		registry: registry,
		acks:     make(map[uint16]pendingAck),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	c.nextPID.Store(1)
	return c
}

// Run dials, performs the MQTT handshake, replays any still-registered
// subscriptions and unacked publishes, and then serves the connection
// until ctx is canceled or Close is called. On a transport error it
// reconnects with exponential backoff and repeats, so callers normally run
// this in its own goroutine for the lifetime of the process.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.doneCh)

	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = 10 * time.Millisecond
	boff.MaxInterval = 10 * time.Second
	boff.MaxElapsedTime = 0
	boff.Reset()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		default:
		}

		if err := c.connectOnce(ctx); err != nil {
			c.log.Warnf("connect failed, retrying: %v", err)
			wait := boff.NextBackOff()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.stopCh:
				return nil
			case <-time.After(wait):
			}
			continue
		}
		boff.Reset()

		c.replaySubscriptions(ctx)
		c.replayUnackedPublishes()

		c.serve(ctx) // blocks until the connection drops
		c.setConnected(false)
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	defer cancel()

	conn, err := c.opts.Dialer(dialCtx, c.opts.Addr, c.opts.TLSConfig)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	reader := bufio.NewReader(conn)
	keepAliveSec := uint16(c.opts.KeepAlive / time.Second)
	if err := WriteConnect(conn, ConnectOptions{
		ClientID:     c.opts.ClientID,
		KeepAlive:    keepAliveSec,
		CleanSession: c.opts.CleanSession,
		Username:     c.opts.Username,
		Password:     c.opts.Password,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("send connect: %w", err)
	}

	raw, err := ReadPacket(reader)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read connack: %w", err)
	}
	if raw.Type != ptConnAck {
		conn.Close()
		return protocolErr("mqtt_connect", "expected CONNACK")
	}
	ack, err := DecodeConnAck(raw.Body)
	if err != nil {
		conn.Close()
		return err
	}
	if ack.ReturnCode != 0 {
		conn.Close()
		return corert.NewErr("mqtt_connect", corert.KindRemote, fmt.Sprintf("broker refused connection, code %d", ack.ReturnCode))
	}

	c.connMu.Lock()
	c.conn = conn
	c.reader = reader
	c.connMu.Unlock()
	c.pingPending.Store(false)

	c.log.Infof("connected to %s as %s", c.opts.Addr, c.opts.ClientID)
	c.setConnected(true)
	return nil
}

// WatchConnectionStatus registers a subscriber for connection-up/down
// transitions, grounded on spec.md §6's `connection_status({})`
// subscription. The current status is delivered immediately on
// registration; subsequent transitions follow as they happen. Delivery is
// best-effort (a full channel drops the update rather than blocking the
// connection goroutine) — spec.md §9 notes the read-then-send race between
// a consult of connection state and the transition that triggered it is
// inherent to this publish-subscribe shape, not fixed here.
func (c *Client) WatchConnectionStatus() (status <-chan bool, cancel func()) {
	ch := make(chan bool, 4)
	c.statusMu.Lock()
	c.statusChans = append(c.statusChans, ch)
	c.statusMu.Unlock()

	ch <- c.connected.Load()

	cancelFn := func() {
		c.statusMu.Lock()
		defer c.statusMu.Unlock()
		for i, w := range c.statusChans {
			if w == ch {
				c.statusChans = append(c.statusChans[:i], c.statusChans[i+1:]...)
				close(w)
				return
			}
		}
	}
	return ch, cancelFn
}

func (c *Client) setConnected(v bool) {
	if c.connected.Swap(v) == v {
		return
	}
	c.statusMu.Lock()
	watchers := append([]chan bool(nil), c.statusChans...)
	c.statusMu.Unlock()
	for _, w := range watchers {
		select {
		case w <- v:
		default:
		}
	}
}

func (c *Client) replaySubscriptions(ctx context.Context) {
	filters := c.registry.Filters()
	for _, f := range filters {
		if err := c.sendSubscribe(ctx, []string{f}, []byte{1}); err != nil {
			c.log.Warnf("resubscribe %q failed: %v", f, err)
		}
	}
}

func (c *Client) replayUnackedPublishes() {
	for _, id := range c.store.PacketIDs() {
		raw, ok := c.store.Retrieve(id)
		if !ok {
			continue
		}
		c.writeMu.Lock()
		_, err := c.currentConn().Write(raw)
		c.writeMu.Unlock()
		if err != nil {
			c.log.Warnf("replay unacked publish %d failed: %v", id, err)
		}
	}
}

func (c *Client) currentConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// serve runs the receive loop and keepalive ticker against the current
// connection until either fails, then returns so Run can reconnect. The
// subscription and unacked-publish replays run once the receive loop is
// up, so their SUBACKs are read.
func (c *Client) serve(ctx context.Context) {
	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.recvLoop()
	}()

	c.replaySubscriptions(ctx)
	c.replayUnackedPublishes()

	ticker := time.NewTicker(c.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.currentConn().Close()
			<-connDone
			return
		case <-c.stopCh:
			c.currentConn().Close()
			<-connDone
			return
		case <-connDone:
			return
		case <-ticker.C:
			if c.pingPending.Load() {
				c.log.Warnf("keepalive timeout, reconnecting")
				c.currentConn().Close()
				<-connDone
				return
			}
			c.pingPending.Store(true)
			c.writeMu.Lock()
			err := WritePingReq(c.currentConn())
			c.writeMu.Unlock()
			if err != nil {
				<-connDone
				return
			}
		}
	}
}

func (c *Client) recvLoop() {
	reader := c.reader
	for {
		raw, err := ReadPacket(reader)
		if err != nil {
			c.failPendingAcks(toIOErr(err))
			return
		}
		switch raw.Type {
		case ptPublish:
			msg, err := DecodePublish(raw.Flags, raw.Body)
			if err != nil {
				c.log.Warnf("malformed PUBLISH: %v", err)
				continue
			}
			if msg.QoS == 1 {
				c.writeMu.Lock()
				_ = WritePubAck(c.currentConn(), msg.PacketID)
				c.writeMu.Unlock()
			}
			c.registry.Dispatch(msg)
		case ptPubAck:
			id, err := DecodePubAck(raw.Body)
			if err == nil {
				c.store.Clear(id)
			}
		case ptSubAck, ptUnsubAck:
			c.deliverAck(raw)
		case ptPingResp:
			c.pingPending.Store(false)
		case ptDisconnect:
			return
		default:
			c.log.Debugf("ignoring unexpected packet type %d", raw.Type)
		}
	}
}

func (c *Client) deliverAck(raw RawPacket) {
	var id uint16
	switch raw.Type {
	case ptSubAck:
		if ack, err := DecodeSubAck(raw.Body); err == nil {
			id = ack.PacketID
		}
	case ptUnsubAck:
		if ack, err := DecodeUnsubAck(raw.Body); err == nil {
			id = ack
		}
	}
	c.ackMu.Lock()
	p, ok := c.acks[id]
	if ok {
		delete(c.acks, id)
	}
	c.ackMu.Unlock()
	if ok {
		p.ch <- raw
	}
}

func (c *Client) failPendingAcks(err error) {
	c.ackMu.Lock()
	pending := c.acks
	c.acks = make(map[uint16]pendingAck)
	c.ackMu.Unlock()
	for _, p := range pending {
		close(p.ch)
	}
}

func (c *Client) allocatePacketID() uint16 {
	for {
		id := uint16(c.nextPID.Add(1))
		if id != 0 {
			return id
		}
	}
}

// Publish sends payload to topic. QoS0 publishes fire-and-forget; QoS1
// publishes are recorded in the PublishStore first so they survive a
// reconnect and are retransmitted with the DUP flag until PUBACK arrives.
func (c *Client) Publish(topic string, payload []byte, qos byte, retain bool) error {
	var packetID uint16
	if qos > 0 {
		packetID = c.allocatePacketID()
	}
	msg := PublishMessage{Topic: topic, Payload: payload, QoS: qos, PacketID: packetID, Retain: retain}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if qos > 0 {
		var buf noopWriter
		raw, err := WritePublish(&buf, msg)
		if err != nil {
			return err
		}
		if err := c.store.Store(packetID, raw); err != nil {
			return err
		}
		_, err = c.currentConn().Write(raw)
		return err
	}

	_, err := WritePublish(c.currentConn(), msg)
	return err
}

// Subscribe registers cb for filter at the given QoS and sends SUBSCRIBE,
// blocking until SUBACK arrives or ctx is done.
func (c *Client) Subscribe(ctx context.Context, filter string, qos byte, cb SubscribeCallback) error {
	if !c.registry.Register(filter, qos, cb) {
		return corert.NewErr("mqtt_subscribe", corert.KindNoMem, "subscription table is full")
	}
	return c.sendSubscribe(ctx, []string{filter}, []byte{qos})
}

func (c *Client) sendSubscribe(ctx context.Context, filters []string, qos []byte) error {
	id := c.allocatePacketID()
	ch := make(chan RawPacket, 1)
	c.ackMu.Lock()
	c.acks[id] = pendingAck{kind: ptSubAck, ch: ch}
	c.ackMu.Unlock()

	c.writeMu.Lock()
	err := WriteSubscribe(c.currentConn(), id, filters, qos)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case raw, ok := <-ch:
		if !ok {
			return corert.NewErr("mqtt_subscribe", corert.KindNoConn, "connection closed awaiting SUBACK")
		}
		ack, err := DecodeSubAck(raw.Body)
		if err != nil {
			return err
		}
		for _, code := range ack.ReturnCodes {
			if code == 0x80 {
				return corert.NewErr("mqtt_subscribe", corert.KindRemote, "broker rejected subscription")
			}
		}
		return nil
	}
}

// Unsubscribe removes filter from the registry and sends UNSUBSCRIBE,
// blocking until UNSUBACK arrives or ctx is done.
func (c *Client) Unsubscribe(ctx context.Context, filter string) error {
	c.registry.Unregister(filter)

	id := c.allocatePacketID()
	ch := make(chan RawPacket, 1)
	c.ackMu.Lock()
	c.acks[id] = pendingAck{kind: ptUnsubAck, ch: ch}
	c.ackMu.Unlock()

	c.writeMu.Lock()
	err := WriteUnsubscribe(c.currentConn(), id, []string{filter})
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-ch:
		if !ok {
			return corert.NewErr("mqtt_unsubscribe", corert.KindNoConn, "connection closed awaiting UNSUBACK")
		}
		return nil
	}
}

// Close stops Run's reconnect loop and closes the current connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.stopCh)
	if conn := c.currentConn(); conn != nil {
		c.writeMu.Lock()
		_ = WriteDisconnect(conn)
		c.writeMu.Unlock()
		conn.Close()
	}
	<-c.doneCh
	return nil
}

// noopWriter discards writes; used to serialize a PUBLISH into a byte
// slice via WritePublish without touching the live connection.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
