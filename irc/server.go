package irc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/sync/errgroup"
)

// maxLineLen bounds a single inbound line, tags included.
const maxLineLen = 8191 + 512

// Reply is an outgoing message and the client it is addressed to.
type Reply struct {
	ClientID ClientID
	Msg      ircmsg.Message
}

type HandlerFunc func(cc *ClientConn, msg ircmsg.Message) []Reply

// preRegistration lists the commands accepted before a client has chosen a nickname.
var preRegistration = map[string]bool{
	"NICK": true,
	"PING": true,
	"QUIT": true,
	"USER": true,
	"CAP":  true,
}

type Server struct {
	NetInterface string
	Port         int

	handlers map[string]HandlerFunc

	Config Config
	Logger Logger
	Clock  Clock

	ClientMgr ClientManager
	BanList   BanMgr
	Bridge    *ReplicationBridge
	Stats     Counter

	// ValidChannel checks channel name syntax.
	ValidChannel func(name string) bool

	// ParseDuration converts a human duration string to seconds.
	ParseDuration func(s string) int64

	// dispatchMu serialises handler and replication callbacks so each runs to completion before the next starts.
	dispatchMu sync.Mutex
}

type Option = func(s *Server)

func WithConfig(config Config) func(s *Server) {
	return func(s *Server) {
		s.Config = config
	}
}

func WithLogger(logger Logger) func(s *Server) {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithPort optionally overrides the default TCP port.
func WithPort(port int) func(s *Server) {
	return func(s *Server) {
		s.Port = port
	}
}

// WithInterface optionally sets a specific interface to listen on.
func WithInterface(netInterface string) func(s *Server) {
	return func(s *Server) {
		s.NetInterface = netInterface
	}
}

func WithClock(clock Clock) func(s *Server) {
	return func(s *Server) {
		s.Clock = clock
	}
}

func WithBanList(bans BanMgr) func(s *Server) {
	return func(s *Server) {
		s.BanList = bans
	}
}

// WithLink replicates the ban list to peer servers over link.
func WithLink(link Link) func(s *Server) {
	return func(s *Server) {
		s.Bridge = NewReplicationBridge(link)
	}
}

// NewServer constructs a new Server with the given options.
func NewServer(options ...Option) (*Server, error) {
	server := Server{
		Port:          6667,
		handlers:      make(map[string]HandlerFunc),
		Clock:         SystemClock,
		ClientMgr:     NewMemClientMgr(),
		BanList:       NewBanStore(),
		ValidChannel:  IsValidChannelName,
		ParseDuration: CalcDuration,
	}

	for _, opt := range options {
		opt(&server)
	}

	if server.Logger == nil {
		return nil, errors.New("logger is required")
	}

	if server.Stats == nil {
		server.Stats = NewStats(server.Now())
	}

	if server.Bridge != nil {
		codec, err := server.Config.BanCodec()
		if err != nil {
			return nil, fmt.Errorf("ban codec: %w", err)
		}
		server.Bridge.Bans = server.BanList
		server.Bridge.Codec = codec
		server.Bridge.Logger = server.Logger
	}

	return &server, nil
}

// HandleFunc registers handler for command. Commands are matched case-insensitively.
func (s *Server) HandleFunc(command string, handler HandlerFunc) {
	s.handlers[strings.ToUpper(command)] = handler
}

// Now returns the current server time in seconds.
func (s *Server) Now() int64 {
	return s.Clock.Now()
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%v", s.NetInterface, s.Port))
	if err != nil {
		return err
	}

	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.Logger.Error("Error accepting connection", "err", err)
			continue
		}

		go func() {
			s.Logger.Info("Connection established", "RemoteAddr", conn.RemoteAddr())

			if err := s.handleNewConnection(ctx, conn, conn.RemoteAddr().String()); err != nil {
				if errors.Is(err, io.EOF) {
					s.Logger.Info("Client disconnected", "RemoteAddr", conn.RemoteAddr())
				} else {
					s.Logger.Error("Error serving request", "RemoteAddr", conn.RemoteAddr(), "err", err)
				}
			}
		}()
	}
}

// ServeLink replicates bans over the configured link until ctx is cancelled. Peers are asked for
// their state once the link is ready to receive the reply.
func (s *Server) ServeLink(ctx context.Context) error {
	if s.Bridge == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Sync replies are only seen once the link is subscribed, so the request waits for ready.
	ready := make(chan struct{})
	g.Go(func() error {
		defer cancel()
		return s.Bridge.Link.Listen(ctx, s, sync.OnceFunc(func() { close(ready) }))
	})
	g.Go(func() error {
		return s.Bridge.Run(ctx)
	})
	g.Go(func() error {
		select {
		case <-ready:
		case <-ctx.Done():
			return nil
		}

		if err := s.Bridge.Link.RequestSync(ctx); err != nil {
			s.Logger.Error("Error requesting ban sync", "err", err)
		}
		return nil
	})

	return g.Wait()
}

// OnSyncRequest implements LinkHandler for the server's bridge.
func (s *Server) OnSyncRequest() []MetaData {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	return s.Bridge.OnSyncRequest()
}

// OnMetaData implements LinkHandler for the server's bridge.
func (s *Server) OnMetaData(key, value string) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	return s.Bridge.OnMetaData(key, value)
}

// dontPanic logs panics instead of crashing
func (s *Server) dontPanic() {
	if r := recover(); r != nil {
		s.Logger.Error("PANIC", "err", r, "trace", string(debug.Stack()))
	}
}

func (s *Server) handleNewConnection(ctx context.Context, rwc io.ReadWriteCloser, remoteAddr string) error {
	defer s.dontPanic()

	c := &ClientConn{
		Connection: rwc,
		RemoteAddr: remoteAddr,
		Server:     s,
	}
	s.ClientMgr.Add(c)
	c.Logger = &connLogger{Logger: s.Logger, remoteAddr: remoteAddr}

	s.Stats.Increment(StatCurrentlyConnected, StatConnectionCounter)

	defer c.Disconnect()

	scanner := bufio.NewScanner(rwc)
	scanner.Buffer(make([]byte, 512), maxLineLen)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		if quit := s.handleLine(c, scanner.Text()); quit {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return io.EOF
}

// handleLine parses and dispatches one line from c, then delivers the resulting replies.
// It reports whether the client asked to quit.
func (s *Server) handleLine(c *ClientConn, line string) (quit bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return false
	}

	msg, err := ircmsg.ParseLine(line)
	if err != nil {
		c.Logger.Debug("Unparseable line", "err", err)
		return false
	}
	command := strings.ToUpper(msg.Command)

	s.deliver(s.dispatch(c, command, msg))

	return command == "QUIT"
}

func (s *Server) dispatch(c *ClientConn, command string, msg ircmsg.Message) []Reply {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	handler, ok := s.handlers[command]
	if !ok {
		c.Logger.Debug("Unknown command", "command", command)
		return []Reply{c.NewReply(ErrUnknownCommand, command, "Unknown command")}
	}

	if !c.Registered() && !preRegistration[command] {
		return []Reply{c.NewReply(ErrNotRegistered, "You have not registered")}
	}

	c.Logger.Debug("Received command", "command", command, "nick", c.Nick)

	return handler(c, msg)
}

// deliver writes each reply to its target client. Replies to clients that have gone away are dropped.
func (s *Server) deliver(replies []Reply) {
	for _, r := range replies {
		target := s.ClientMgr.Get(r.ClientID)
		if target == nil {
			continue
		}

		if err := target.Send(r.Msg); err != nil {
			s.Logger.Error("Error sending reply", "RemoteAddr", target.RemoteAddr, "err", err)
		}
	}
}

// connLogger prefixes every log record with the client's remote address.
type connLogger struct {
	Logger
	remoteAddr string
}

func (l *connLogger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, append([]any{"RemoteAddr", l.remoteAddr}, args...)...)
}

func (l *connLogger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"RemoteAddr", l.remoteAddr}, args...)...)
}

func (l *connLogger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"RemoteAddr", l.remoteAddr}, args...)...)
}
