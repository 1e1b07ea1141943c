package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client is the client-side transport: one reliable connection and one
// connected unreliable socket against the same server address, with one read
// goroutine per socket plus the route loop draining the bridge's outbound
// queue. Dial builds all of it; a socket error tears the whole set down and
// leaves reconnection to the connection handler, which polls Alive and calls
// Dial again.
type Client struct {
	serverAddr   string
	writeTimeout time.Duration
	bridge       *Bridge
	log          *zap.Logger

	mu    sync.Mutex
	tcp   net.Conn
	udp   *net.UDPConn
	done  chan struct{}
	wg    sync.WaitGroup
	alive atomic.Bool
}

func NewClient(serverAddr string, writeTimeout time.Duration, bridge *Bridge, log *zap.Logger) *Client {
	return &Client{
		serverAddr:   serverAddr,
		writeTimeout: writeTimeout,
		bridge:       bridge,
		log:          log,
	}
}

// Alive reports whether the transport tasks from the last Dial are still
// running. It turns false as soon as either socket dies.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// Dial connects both transports and starts the task loops. Any previous
// connection is torn down first.
func (c *Client) Dial() error {
	c.Close()

	tcp, err := net.DialTimeout("tcp", c.serverAddr, c.writeTimeout)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", c.serverAddr, err)
	}
	raddr, err := net.ResolveUDPAddr("udp", c.serverAddr)
	if err != nil {
		tcp.Close()
		return fmt.Errorf("resolve udp %s: %w", c.serverAddr, err)
	}
	udp, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		tcp.Close()
		return fmt.Errorf("dial udp %s: %w", c.serverAddr, err)
	}

	c.mu.Lock()
	c.tcp = tcp
	c.udp = udp
	c.done = make(chan struct{})
	c.alive.Store(true)
	done := c.done
	c.mu.Unlock()

	c.wg.Add(3)
	go c.tcpReadLoop(tcp, done)
	go c.udpReadLoop(udp, raddr, done)
	go c.routeLoop(tcp, udp, done)

	c.log.Info("connected transports", zap.String("server", c.serverAddr))
	return nil
}

// Close tears down the current connection, if any, and waits for its tasks.
func (c *Client) Close() {
	c.mu.Lock()
	if c.done == nil {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	if c.tcp != nil {
		c.tcp.Close()
	}
	if c.udp != nil {
		c.udp.Close()
	}
	c.tcp = nil
	c.udp = nil
	c.done = nil
	c.alive.Store(false)
	c.mu.Unlock()

	c.wg.Wait()
}

// fail marks the transport dead after a socket error. Sockets are closed so
// the sibling loops unblock and exit too.
func (c *Client) fail(done chan struct{}) {
	c.alive.Store(false)
	c.mu.Lock()
	if c.done == done {
		select {
		case <-done:
		default:
			close(done)
		}
		if c.tcp != nil {
			c.tcp.Close()
		}
		if c.udp != nil {
			c.udp.Close()
		}
	}
	c.mu.Unlock()
}

func (c *Client) tcpReadLoop(conn net.Conn, done chan struct{}) {
	defer c.wg.Done()
	defer c.fail(done)

	for {
		select {
		case <-done:
			return
		default:
		}

		body, err := ReadFrame(conn)
		if err != nil {
			select {
			case <-done:
			default:
				c.log.Debug("server read error", zap.Error(err))
			}
			return
		}
		env, err := DecodeEnvelope(body)
		if err != nil {
			c.log.Warn("malformed envelope from server, discarding", zap.Error(err))
			continue
		}
		env.Transport = Reliable
		env.Origin = Identity{Addr: conn.RemoteAddr()}
		c.bridge.Publish(env)
	}
}

func (c *Client) udpReadLoop(udp *net.UDPConn, raddr *net.UDPAddr, done chan struct{}) {
	defer c.wg.Done()
	defer c.fail(done)
	buf := make([]byte, UDPPayloadBudget)

	for {
		n, err := udp.Read(buf)
		if err != nil {
			select {
			case <-done:
			default:
				c.log.Debug("udp read error", zap.Error(err))
			}
			return
		}
		env, err := DecodeEnvelope(buf[:n])
		if err != nil {
			c.log.Warn("malformed datagram from server, discarding", zap.Error(err))
			continue
		}
		env.Transport = Unreliable
		env.Origin = Identity{Addr: raddr}
		c.bridge.Publish(env)
	}
}

// routeLoop is the single consumer of the bridge's outbound queue while this
// connection lives. Everything a client sends goes to the server, so routing
// reduces to picking the channel.
func (c *Client) routeLoop(tcp net.Conn, udp *net.UDPConn, done chan struct{}) {
	defer c.wg.Done()
	defer c.fail(done)

	for {
		select {
		case env := <-c.bridge.Outbound():
			data, err := EncodeEnvelope(&env)
			if err != nil {
				c.log.Error("encode envelope failed", zap.String("type", env.Type.String()), zap.Error(err))
				continue
			}
			switch env.Transport {
			case Reliable:
				tcp.SetWriteDeadline(time.Now().Add(c.writeTimeout))
				if err := WriteFrame(tcp, data); err != nil {
					select {
					case <-done:
					default:
						c.log.Debug("server write error", zap.Error(err))
					}
					return
				}
			case Unreliable:
				if len(data) > UDPPayloadBudget {
					c.log.Warn("datagram over budget, dropping", zap.String("type", env.Type.String()))
					continue
				}
				if _, err := udp.Write(data); err != nil {
					c.log.Debug("udp write error", zap.Error(err))
				}
			}
		case <-done:
			return
		}
	}
}
