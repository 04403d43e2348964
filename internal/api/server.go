package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"primepool/internal/events"
	"primepool/internal/logger"
	"primepool/internal/metrics"
)

// Server はプールの状態を公開するHTTPサーバー
type Server struct {
	addr     string
	metrics  *metrics.Metrics
	eventBus *events.Bus
	registry *prometheus.Registry

	mu        sync.RWMutex
	status    StatusResponse
	wsClients map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
// bus が nil の場合 /ws はステータスのみ配信する
func NewServer(addr string, m *metrics.Metrics, bus *events.Bus) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector(m),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:      addr,
		metrics:   m,
		eventBus:  bus,
		registry:  registry,
		wsClients: make(map[*websocket.Conn]bool),
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))
	return mux
}

// Start はサーバーを開始し、ctx が終了するまでブロックする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve は ln で待ち受ける
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastLoop(ctx)
	if s.eventBus != nil {
		go s.forwardEvents(ctx, s.eventBus.Subscribe())
	}

	logger.Info("", "API Server listening on http://%s", ln.Addr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running bool   `json:"running"`
	Workers int    `json:"workers"`
	Tasks   int    `json:"tasks"`
	Primes  uint64 `json:"primes"`
	Error   string `json:"error,omitempty"`
}

// SetRunning は実行開始を記録する
func (s *Server) SetRunning(workers, tasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusResponse{
		Running: true,
		Workers: workers,
		Tasks:   tasks,
	}
}

// SetFinished は実行結果を記録する
func (s *Server) SetFinished(primes uint64, err error) {
	s.mu.Lock()
	s.status.Running = false
	s.status.Primes = primes
	if err != nil {
		s.status.Error = err.Error()
	}
	status := s.status
	s.mu.Unlock()

	s.broadcast(map[string]interface{}{
		"type":   "run_complete",
		"status": status,
	})
}

func (s *Server) currentStatus() StatusResponse {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	if status.Running {
		status.Primes = s.metrics.PrimesFound()
	}
	return status
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.currentStatus())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.metrics.Snapshot())
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// クライアントが切断するまで維持
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

// ClientCount は接続中のWebSocketクライアント数を返す
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wsClients)
}

func (s *Server) broadcast(data interface{}) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// forwardEvents はプールのイベントをWebSocketクライアントへ転送する
func (s *Server) forwardEvents(ctx context.Context, ch <-chan events.Event) {
	defer s.eventBus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]interface{}{
				"type":  "event",
				"event": ev,
			})
		}
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := s.currentStatus()
			if !status.Running {
				continue
			}
			s.broadcast(map[string]interface{}{
				"type":   "status",
				"status": status,
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("", "Failed to encode JSON: %v", err)
	}
}
