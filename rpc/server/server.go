package server

import (
	"fmt"
	"github.com/ValentinKolb/otick/rpc/common"
	"github.com/ValentinKolb/otick/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
)

var Logger = logger.GetLogger("server")

// session is the server side state of one client connection
type session struct {
	mu         sync.Mutex
	db         string
	prepared   map[int64]*statement
	nextHandle int64
}

// NewRPCServer creates a new loopback server
// It takes a config and a transport as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(serializer.NewBSONSerializer(), 8),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig, transport transport.IRPCServerTransport) *RPCServer {
	s := &RPCServer{
		config:    config,
		transport: transport,
		engine:    newMemEngine(),
		sessions:  xsync.NewMapOf[uint64, *session](),
	}

	for _, db := range config.Databases {
		_ = s.engine.createDatabase(db, true)
	}

	transport.RegisterHandler(s)
	return s
}

// RPCServer answers use, prepare and run commands from an in-memory engine
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	engine    *memEngine
	sessions  *xsync.MapOf[uint64, *session]
	onCommand func(connID uint64, cmd *common.Command)
}

// OnCommand registers a hook called for every received command. It must be set before serving.
func (s *RPCServer) OnCommand(hook func(connID uint64, cmd *common.Command)) {
	s.onCommand = hook
}

// Serve listens on the configured endpoint until Close is called
func (s *RPCServer) Serve() error {
	Logger.Infof(s.config.String())
	return s.transport.Listen(s.config)
}

// ServeListener serves an existing listener until Close is called
func (s *RPCServer) ServeListener(listener net.Listener) error {
	return s.transport.Serve(listener, s.config)
}

// Addr returns the address the server listens on
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}

// Close stops the server and drops all client connections
func (s *RPCServer) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerHandler)
// --------------------------------------------------------------------------

func (s *RPCServer) Handle(connID uint64, cmd *common.Command) interface{} {
	if s.onCommand != nil {
		s.onCommand(connID, cmd)
	}

	sess, _ := s.sessions.LoadOrCompute(connID, func() *session {
		return &session{prepared: make(map[int64]*statement)}
	})

	value, err := s.handle(sess, cmd)
	if err != nil {
		Logger.Debugf("Command %s on connection %d failed: %v", cmd, connID, err)
		// errors travel as plain strings
		return err.Error()
	}
	return value
}

func (s *RPCServer) Disconnect(connID uint64) {
	s.sessions.Delete(connID)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle executes cmd in the context of sess
func (s *RPCServer) handle(sess *session, cmd *common.Command) (interface{}, error) {
	switch cmd.Kind {
	case common.CmdUse:
		if !s.engine.hasDatabase(cmd.Text) {
			return nil, fmt.Errorf("database does not exist: %s", cmd.Text)
		}
		sess.mu.Lock()
		sess.db = cmd.Text
		sess.mu.Unlock()
		return nil, nil

	case common.CmdPrepare:
		stmt, err := parseStatement(cmd.Text)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		handle := sess.nextHandle
		sess.nextHandle++
		sess.prepared[handle] = stmt
		sess.mu.Unlock()
		return int(handle), nil

	case common.CmdRun:
		var stmt *statement
		sess.mu.Lock()
		db := sess.db
		if cmd.Prepared {
			stmt = sess.prepared[cmd.Handle]
		}
		sess.mu.Unlock()

		if cmd.Prepared && stmt == nil {
			return nil, fmt.Errorf("invalid prepared statement id: %d", cmd.Handle)
		}
		if stmt == nil {
			var err error
			if stmt, err = parseStatement(cmd.Text); err != nil {
				return nil, err
			}
		}
		return s.engine.execute(db, stmt, cmd.Args)

	default:
		return nil, fmt.Errorf("unknown command: %s", cmd.Kind)
	}
}
