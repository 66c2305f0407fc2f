package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"fabenv"
	"fabenv/internal/state"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Runtime is the interface the API server needs from the lifecycle
// controller.
type Runtime interface {
	Status() fabenv.Status
	IsCreated() bool
	IsGenerated(ctx context.Context) bool
	Nodes(ctx context.Context) ([]fabenv.Node, error)
	Generate(ctx context.Context, sink io.Writer) error
	Start(ctx context.Context, sink io.Writer) error
	Stop(ctx context.Context, sink io.Writer) error
	Restart(ctx context.Context, sink io.Writer) error
	Teardown(ctx context.Context, sink io.Writer) error
	KillChaincode(ctx context.Context, name, version string, sink io.Writer) error
	LogspoutURL(ctx context.Context) (string, error)
}

// Wallets is the credential-store surface exposed over the API.
type Wallets interface {
	List() ([]fabenv.Wallet, error)
	Identities(wallet string) ([]fabenv.Identity, error)
	Create(wallet string) error
	Delete(wallet string) error
	Import(wallet string, id fabenv.Identity) error
}

// Gateways lists the gateway profiles of the runtime.
type Gateways interface {
	List() ([]fabenv.Gateway, error)
}

// NodeRemover force-removes a container by name. Backed by the Docker
// registry in production.
type NodeRemover interface {
	Kill(ctx context.Context, name string) error
}

type Server struct {
	rt       Runtime
	wallets  Wallets
	gateways Gateways
	remover  NodeRemover
	journal  *state.Journal
	version  string
}

// ServerOption configures optional collaborators.
type ServerOption func(*Server)

// WithJournal exposes recent operations at GET /api/v1/operations.
func WithJournal(j *state.Journal) ServerOption {
	return func(s *Server) { s.journal = j }
}

// WithNodeRemover enables DELETE /api/v1/nodes/:name.
func WithNodeRemover(r NodeRemover) ServerOption {
	return func(s *Server) { s.remover = r }
}

func NewServer(rt Runtime, wallets Wallets, gateways Gateways, version string, opts ...ServerOption) *Server {
	s := &Server{rt: rt, wallets: wallets, gateways: gateways, version: version}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP API.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", s.getStatus)
		v1.GET("/nodes", s.listNodes)
		v1.GET("/gateways", s.listGateways)
		v1.GET("/operations", s.listOperations)
		v1.GET("/logs", s.streamLogs)

		lifecycle := v1.Group("/lifecycle")
		{
			lifecycle.POST("/generate", s.lifecycleOp("generate"))
			lifecycle.POST("/start", s.lifecycleOp("start"))
			lifecycle.POST("/stop", s.lifecycleOp("stop"))
			lifecycle.POST("/restart", s.lifecycleOp("restart"))
			lifecycle.POST("/teardown", s.lifecycleOp("teardown"))
		}

		v1.POST("/chaincode/:name/:version/kill", s.killChaincode)
		v1.DELETE("/nodes/:name", s.removeNode)

		wallets := v1.Group("/wallets")
		{
			wallets.GET("", s.listWallets)
			wallets.POST("", s.createWallet)
			wallets.DELETE("/:wallet", s.deleteWallet)
			wallets.GET("/:wallet/identities", s.listIdentities)
			wallets.POST("/:wallet/identities", s.importIdentity)
		}
	}
	return router
}

func (s *Server) getStatus(c *gin.Context) {
	st := s.rt.Status()
	c.JSON(http.StatusOK, gin.H{
		"state":     st.State.String(),
		"busy":      st.Busy,
		"created":   s.rt.IsCreated(),
		"generated": s.rt.IsGenerated(c.Request.Context()),
		"version":   s.version,
	})
}

func (s *Server) listNodes(c *gin.Context) {
	nodes, err := s.rt.Nodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (s *Server) listGateways(c *gin.Context) {
	gws, err := s.gateways.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gws)
}

func (s *Server) listOperations(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation journal not enabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	ops, err := s.journal.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ops)
}

// lifecycleOp streams combined script output back as a chunked text
// response while the operation runs.
func (s *Server) lifecycleOp(name string) gin.HandlerFunc {
	ops := map[string]func(context.Context, io.Writer) error{
		"generate": s.rt.Generate,
		"start":    s.rt.Start,
		"stop":     s.rt.Stop,
		"restart":  s.rt.Restart,
		"teardown": s.rt.Teardown,
	}
	op := ops[name]

	return func(c *gin.Context) {
		w := c.Writer
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")
		w.WriteHeader(http.StatusOK)

		if err := op(c.Request.Context(), flushWriter{w}); err != nil {
			// Status is already on the wire; the error goes on the stream.
			fmt.Fprintf(w, "error: %v\n", err)
		}
		w.Flush()
	}
}

func (s *Server) killChaincode(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := s.rt.KillChaincode(c.Request.Context(), c.Param("name"), c.Param("version"), flushWriter{w}); err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	w.Flush()
}

func (s *Server) removeNode(c *gin.Context) {
	if s.remover == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "node removal not enabled"})
		return
	}
	if err := s.remover.Kill(c.Request.Context(), c.Param("name")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listWallets(c *gin.Context) {
	wallets, err := s.wallets.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, wallets)
}

func (s *Server) createWallet(c *gin.Context) {
	var w fabenv.Wallet
	if err := c.ShouldBindJSON(&w); err != nil || w.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet name is required"})
		return
	}
	if err := s.wallets.Create(w.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (s *Server) deleteWallet(c *gin.Context) {
	if err := s.wallets.Delete(c.Param("wallet")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listIdentities(c *gin.Context) {
	ids, err := s.wallets.Identities(c.Param("wallet"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) importIdentity(c *gin.Context) {
	var id fabenv.Identity
	if err := c.ShouldBindJSON(&id); err != nil || id.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity name is required"})
		return
	}
	if err := s.wallets.Import(c.Param("wallet"), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, id)
}

var wssUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamLogs relays the log collector's HTTP stream over a websocket,
// one text message per line, until either side goes away.
func (s *Server) streamLogs(c *gin.Context) {
	endpoint, err := s.rt.LogspoutURL(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	conn, err := wssUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade websocket"})
		return
	}
	defer conn.Close()

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, endpoint+"/logs", nil)
	if err != nil {
		writeCloseError(conn, err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		writeCloseError(conn, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		writeCloseError(conn, fmt.Errorf("log collector answered %s", resp.Status))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := conn.WriteMessage(websocket.TextMessage, scanner.Bytes()); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("Log relay ended.", "err", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func writeCloseError(conn *websocket.Conn, err error) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
}

// ListenAndServe starts the API server on a unix socket and blocks until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, socketPath string) error {
	// Remove stale socket from a previous run (may not exist).
	_ = os.Remove(socketPath)
	defer func() { _ = os.Remove(socketPath) }()

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", socketPath, err)
	}

	srv := &http.Server{Handler: s.Router()}

	// Shut down when ctx is cancelled.
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// flushWriter flushes each write so script output reaches the client as
// it is produced.
type flushWriter struct {
	w gin.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	f.w.Flush()
	return n, err
}
