package server

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/they4kman/duelsweep/config"
	"github.com/they4kman/duelsweep/protocol"
)

type Server struct {
	config   *config.Config
	log      logrus.FieldLogger
	registry *Registry
	peerOpts peerOptions

	wg sync.WaitGroup // connection handlers
}

func New(cfg *config.Config, log logrus.FieldLogger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Server{
		config:   cfg,
		log:      log,
		registry: NewRegistry(cfg.GameConfig(), seed, log),
		peerOpts: peerOptions{
			queueSize:    cfg.OutboundQueue,
			writeTimeout: cfg.WriteTimeout,
			messageRate:  cfg.MessageRate,
			messageBurst: cfg.MessageBurst,
		},
	}, nil
}

func (s *Server) Registry() *Registry {
	return s.registry
}

// Run listens on the configured address and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return errors.Wrap(err, "failed to start server")
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or accepting fails.
// On return every session has been closed and every handler has exited.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	s.log.WithField("addr", ln.Addr().String()).Info("server is listening")

	g.Go(func() error {
		defer cancel()
		return s.acceptLoop(ctx, ln)
	})
	g.Go(func() error {
		<-ctx.Done()
		// unblocks Accept
		ln.Close()
		return nil
	})

	err := g.Wait()

	s.log.Info("server shutting down")
	s.registry.Shutdown()
	s.wg.Wait()

	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var tempDelay time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			// Back off on errors such as running out of file descriptors
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else if tempDelay *= 2; tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.log.WithError(err).Warnf("failed to accept connection, retrying in %v", tempDelay)

			select {
			case <-time.After(tempDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		tempDelay = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	peer := newPeer(conn, s.peerOpts, s.log)
	go peer.writeLoop()

	peer.log.Info("accepted connection")

	session, slot, err := s.registry.Accept(peer)
	if err != nil {
		peer.log.WithError(err).Warn("could not place peer in a session")
		peer.Abort()
		return
	}
	defer s.registry.Release(peer)

	log := peer.log.WithFields(logrus.Fields{
		"session": session.ID().String(),
		"slot":    slot,
	})

	s.readLoop(peer, session, slot, log)
}

// readLoop decodes messages from the peer and hands them to its session until
// the connection fails or the peer is dropped.
func (s *Server) readLoop(peer *Peer, session *Session, slot int, log logrus.FieldLogger) {
	dec := protocol.NewDecoder(peer.conn, s.config.MaxMessageSize)

	for {
		if s.config.IdleTimeout > 0 {
			peer.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		msg, err := dec.Next()
		if err != nil {
			logReadError(log, err)
			return
		}

		log.WithField("message", string(msg.Raw)).Debug("received message")

		err = s.dispatch(peer, session, slot, msg)
		if err == nil {
			continue
		}

		if !IsProtocolViolation(err) {
			log.WithError(err).Error("failed to handle message")
			return
		}

		log.WithError(err).Warn("dropped message")
		if s.config.Strict {
			return
		}
	}
}

func (s *Server) dispatch(peer *Peer, session *Session, slot int, msg *protocol.Message) error {
	if !peer.allow() {
		return violation(ErrRateLimited)
	}

	switch msg.Kind() {
	case protocol.KindLeftClick:
		x, y, ok := msg.Coords()
		if !ok {
			return violation(ErrMissingCoordinates)
		}
		return session.Reveal(slot, x, y)

	case protocol.KindRightClick:
		return session.ToggleFlag(slot, msg.Raw)

	default:
		return violation(errors.Wrapf(ErrUnknownCommand, "%s", msg.Raw))
	}
}

func logReadError(log logrus.FieldLogger, err error) {
	var framingErr *protocol.FramingError
	var netErr net.Error

	switch {
	case errors.Is(err, io.EOF):
		log.Info("connection closed by peer")
	case errors.Is(err, net.ErrClosed):
		log.Debug("connection closed")
	case errors.As(err, &framingErr), errors.Is(err, protocol.ErrMessageTooLarge):
		log.WithError(err).Warn("invalid framing, dropping connection")
	case errors.As(err, &netErr) && netErr.Timeout():
		log.Info("peer idle for too long, dropping connection")
	default:
		log.WithError(err).Info("error reading from peer")
	}
}
