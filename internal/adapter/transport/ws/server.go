// Package ws carries relay frames over WebSocket text messages.
package ws

import (
	"net/http"
	"sync"
	"time"

	"bloomkeepers/internal/app/relay"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Sink receives connection events. Implementations must not block for long;
// every call happens on a connection's read goroutine.
type Sink interface {
	Open(conn relay.Conn)
	Receive(id string, data []byte)
	Closed(id string)
}

type ServerConfig struct {
	Path           string
	ReadLimit      int64
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendQueue      int
	AllowedOrigins []string
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Path:         "/ws",
		ReadLimit:    1 << 20,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingPeriod:   25 * time.Second,
		SendQueue:    relay.DefaultSendQueue,
	}
}

type Server struct {
	cfg      ServerConfig
	sink     Sink
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewServer(cfg ServerConfig, sink Sink, logger zerolog.Logger) *Server {
	def := DefaultServerConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = def.SendQueue
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	s := &Server{
		cfg:  cfg,
		sink: sink,
		log:  logger.With().Str("component", "ws").Logger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler serves the upgrade endpoint at the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s)
	return mux
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	c := &conn{id: uuid.NewString(), sock: sock, writeTimeout: s.cfg.WriteTimeout}
	s.log.Debug().Str("peer", c.id).Str("remote", r.RemoteAddr).Msg("connection accepted")

	sock.SetReadLimit(s.cfg.ReadLimit)
	_ = sock.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	out := relay.NewOutbound(c, s.cfg.SendQueue)
	s.sink.Open(out)
	done := make(chan struct{})
	go s.pingLoop(c, done)

	for {
		kind, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("peer", c.id).Msg("read failed")
			}
			break
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		_ = sock.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		s.sink.Receive(c.id, data)
	}
	close(done)
	_ = out.Close()
	_ = c.Close()
	s.sink.Closed(c.id)
}

func (s *Server) pingLoop(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// conn serializes writes; gorilla allows one concurrent writer. Frames reach
// it through the Outbound writer goroutine, pings from pingLoop.
type conn struct {
	id           string
	sock         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.sock.WriteMessage(websocket.PingMessage, nil)
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.sock.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.sock.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.sock.Close()
	})
	return err
}
