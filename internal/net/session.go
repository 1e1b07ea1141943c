package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one accepted reliable connection on the server. Network I/O runs
// in two dedicated goroutines; everything else touches the session only
// through Enqueue and the thread-safe identity accessors.
type Session struct {
	ID   uint64
	conn net.Conn

	OutQueue chan []byte // encoded envelopes, drained by writeLoop

	clientID atomic.Pointer[uuid.UUID] // set once by Bind after handshake
	udpAddr  atomic.Pointer[net.UDPAddr]

	writeTimeout time.Duration

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	onClose   func(*Session) // set by the server before start

	bridge *Bridge
	log    *zap.Logger
}

func newSession(conn net.Conn, id uint64, queueSize int, writeTimeout time.Duration, bridge *Bridge, log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		OutQueue:     make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		closeCh:      make(chan struct{}),
		bridge:       bridge,
		log:          log.With(zap.Uint64("session", id)),
	}
}

func (s *Session) start() {
	go s.readLoop()
	go s.writeLoop()
}

// RemoteAddr is the peer's reliable-transport address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// ClientID returns the bound identity, or uuid.Nil before the handshake.
func (s *Session) ClientID() uuid.UUID {
	if p := s.clientID.Load(); p != nil {
		return *p
	}
	return uuid.Nil
}

func (s *Session) bindClient(id uuid.UUID) {
	s.clientID.Store(&id)
}

// UDPAddr returns the learned datagram return path, or nil if the peer has
// not sent a datagram yet.
func (s *Session) UDPAddr() *net.UDPAddr {
	return s.udpAddr.Load()
}

func (s *Session) setUDPAddr(addr *net.UDPAddr) {
	s.udpAddr.Store(addr)
}

// Enqueue hands an encoded envelope to the writer goroutine. Never blocks:
// a full queue drops the newest envelope and logs, so a slow client cannot
// stall the route loop.
func (s *Session) Enqueue(data []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
		s.log.Warn("session queue full, dropping envelope")
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop reads frames until the socket dies or the session closes. Codec
// errors discard the one message; socket errors end the task. Reconnection
// is the connection handler's job, not the transport's.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		body, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		env, err := DecodeEnvelope(body)
		if err != nil {
			s.log.Warn("malformed envelope, discarding", zap.Error(err))
			continue
		}
		env.Transport = Reliable
		env.Origin = Identity{ClientID: s.ClientID(), Addr: s.conn.RemoteAddr()}
		s.bridge.Publish(env)
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := WriteFrame(s.conn, data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
