package net

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server owns the reliable listener, the shared unreliable socket, and the
// route loop that drains the bridge's outbound queue. Each accepted
// connection gets one read and one write goroutine; the UDP socket gets one
// read goroutine shared by all clients.
//
// The address maps here are transport-side demux state only. Session truth
// (identities, keep-alive bookkeeping) lives in the simulation domain's
// registry; the connection handler mirrors it into the transport through
// Bind and Drop.
type Server struct {
	bridge *Bridge
	log    *zap.Logger

	ln  net.Listener
	udp *net.UDPConn

	queueSize    int
	writeTimeout time.Duration

	mu       sync.RWMutex
	byAddr   map[string]*Session    // TCP remote addr → session
	byClient map[uuid.UUID]*Session // bound identity → session
	byIP     map[string]*Session    // registered source IP → session (UDP demux)

	nextID atomic.Uint64
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewServer(bindAddr string, queueSize int, writeTimeout time.Duration, bridge *Bridge, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", bindAddr, err)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", ln.Addr().String())
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("resolve udp %s: %w", bindAddr, err)
	}
	udp, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("listen udp %s: %w", bindAddr, err)
	}

	s := &Server{
		bridge:       bridge,
		log:          log,
		ln:           ln,
		udp:          udp,
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		byAddr:       make(map[string]*Session),
		byClient:     make(map[uuid.UUID]*Session),
		byIP:         make(map[string]*Session),
		done:         make(chan struct{}),
	}
	return s, nil
}

// Start launches the accept, UDP read, and route loops.
func (s *Server) Start() {
	s.wg.Add(3)
	go s.acceptLoop()
	go s.udpReadLoop()
	go s.routeLoop()
}

// Addr returns the reliable listener's address (the UDP socket shares it).
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Bind attaches a freshly assigned identity to the session at addr and
// registers the peer's IP for datagram demultiplexing. Called by the
// connection handler once the handshake assigns a UUID.
func (s *Server) Bind(clientID uuid.UUID, addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byAddr[addr.String()]
	if !ok {
		s.log.Warn("bind for unknown address", zap.String("addr", addr.String()))
		return
	}
	sess.bindClient(clientID)
	s.byClient[clientID] = sess
	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		s.byIP[host] = sess
	}
}

// Drop tears down a client's session and demux registration. Called by the
// connection handler on explicit disconnect or keep-alive timeout.
func (s *Server) Drop(clientID uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.byClient[clientID]
	if ok {
		delete(s.byClient, clientID)
		delete(s.byAddr, sess.RemoteAddr().String())
		if host, _, err := net.SplitHostPort(sess.RemoteAddr().String()); err == nil {
			delete(s.byIP, host)
		}
	}
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// Close shuts down every loop and session.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.ln.Close()
	s.udp.Close()

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.byAddr))
	for _, sess := range s.byAddr {
		sessions = append(sessions, sess)
	}
	s.byAddr = make(map[string]*Session)
	s.byClient = make(map[uuid.UUID]*Session)
	s.byIP = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	s.wg.Wait()
}

// forget strips a closed session out of the demux maps. Identity removal in
// the simulation registry still happens through the keep-alive timeout.
func (s *Server) forget(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := sess.RemoteAddr().String()
	if s.byAddr[addr] == sess {
		delete(s.byAddr, addr)
	}
	if id := sess.ClientID(); id != uuid.Nil && s.byClient[id] == sess {
		delete(s.byClient, id)
	}
	if host, _, err := net.SplitHostPort(addr); err == nil && s.byIP[host] == sess {
		delete(s.byIP, host)
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := newSession(conn, id, s.queueSize, s.writeTimeout, s.bridge, s.log)
		sess.onClose = s.forget

		s.mu.Lock()
		s.byAddr[conn.RemoteAddr().String()] = sess
		s.mu.Unlock()

		sess.start()
		s.log.Info("connection accepted",
			zap.Uint64("session", id),
			zap.String("addr", conn.RemoteAddr().String()),
		)
	}
}

// udpReadLoop demultiplexes inbound datagrams by source IP against the set of
// bound sessions. Datagrams from unregistered addresses are dropped without a
// reply so the socket cannot be used for amplification. The first accepted
// datagram from a peer records its return path for outbound sends.
func (s *Server) udpReadLoop() {
	defer s.wg.Done()
	buf := make([]byte, UDPPayloadBudget)

	for {
		n, from, err := s.udp.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.log.Error("udp read failed", zap.Error(err))
			return
		}

		s.mu.RLock()
		sess := s.byIP[from.IP.String()]
		s.mu.RUnlock()
		if sess == nil {
			continue // unregistered source, no reply
		}
		if sess.UDPAddr() == nil {
			sess.setUDPAddr(from)
		}

		env, err := DecodeEnvelope(buf[:n])
		if err != nil {
			s.log.Warn("malformed datagram, discarding",
				zap.String("from", from.String()),
				zap.Error(err),
			)
			continue
		}
		env.Transport = Unreliable
		env.Origin = Identity{ClientID: sess.ClientID(), Addr: from}
		s.bridge.Publish(env)
	}
}

// routeLoop is the single consumer of the bridge's outbound queue.
func (s *Server) routeLoop() {
	defer s.wg.Done()
	for {
		select {
		case env := <-s.bridge.Outbound():
			s.route(&env)
		case <-s.done:
			return
		}
	}
}

func (s *Server) route(env *Envelope) {
	data, err := EncodeEnvelope(env)
	if err != nil {
		s.log.Error("encode envelope failed", zap.String("type", env.Type.String()), zap.Error(err))
		return
	}

	switch env.Target.Kind {
	case TargetBroadcast:
		s.mu.RLock()
		sessions := make([]*Session, 0, len(s.byClient))
		for _, sess := range s.byClient {
			sessions = append(sessions, sess)
		}
		s.mu.RUnlock()
		for _, sess := range sessions {
			s.deliver(sess, env, data)
		}

	case TargetClient:
		s.mu.RLock()
		sess := s.byClient[env.Target.Client]
		s.mu.RUnlock()
		if sess == nil {
			s.log.Warn("unknown destination, dropping envelope",
				zap.String("client", env.Target.Client.String()),
				zap.String("type", env.Type.String()),
			)
			return
		}
		s.deliver(sess, env, data)

	case TargetServer, TargetUnknown:
		s.log.Warn("unroutable target on server, dropping envelope",
			zap.String("type", env.Type.String()),
		)
	}
}

func (s *Server) deliver(sess *Session, env *Envelope, data []byte) {
	switch env.Transport {
	case Reliable:
		sess.Enqueue(data)
	case Unreliable:
		addr := sess.UDPAddr()
		if addr == nil {
			// Return path not learned yet; best-effort channel, drop.
			return
		}
		if len(data) > UDPPayloadBudget {
			s.log.Warn("datagram over budget, dropping",
				zap.String("type", env.Type.String()),
				zap.Int("size", len(data)),
			)
			return
		}
		if _, err := s.udp.WriteToUDP(data, addr); err != nil {
			s.log.Debug("udp write failed", zap.String("to", addr.String()), zap.Error(err))
		}
	}
}
