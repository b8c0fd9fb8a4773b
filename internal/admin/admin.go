// Package admin exposes the operator HTTP API: user management,
// withdrawal approval, table control, runtime settings and metrics.
// It listens on its own port, separate from the game traffic.
package admin

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardroomlabs/cardroom/internal/config"
	"github.com/cardroomlabs/cardroom/internal/game"
	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/server"
)

const shutdownTimeout = 5 * time.Second

// Server is the admin plane.
type Server struct {
	svc      *server.Service
	settings *config.Runtime
	logger   *log.Logger
	token    string
	httpSrv  *http.Server
}

// New builds the admin server. The Prometheus gatherer backs /metrics;
// token guards everything under /api.
func New(addr string, svc *server.Service, settings *config.Runtime,
	gatherer prometheus.Gatherer, token string, logger *log.Logger) *Server {
	s := &Server{
		svc:      svc,
		settings: settings,
		logger:   logger.WithPrefix("admin"),
		token:    token,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api/admin", s.requireToken)
	{
		api.GET("/users", s.listUsers)
		api.POST("/users/:id/adjust", s.adjustBalance)
		api.POST("/users/:id/ban", s.setBanned(true))
		api.POST("/users/:id/unban", s.setBanned(false))

		api.GET("/withdrawals", s.listWithdrawals)
		api.POST("/withdrawals/:id/approve", s.approveWithdrawal)
		api.POST("/withdrawals/:id/reject", s.rejectWithdrawal)

		api.GET("/tables", s.listTables)
		api.POST("/tables", s.createTable)
		api.PUT("/tables/:id", s.updateTable)
		api.DELETE("/tables/:id", s.deleteTable)
		api.POST("/tables/:id/reactivate", s.reactivateTable)

		api.POST("/notify", s.notify)

		api.GET("/config", s.getConfig)
		api.PUT("/config", s.putConfig)
	}

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe runs the admin server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("admin listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.httpSrv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) requireToken(c *gin.Context) {
	if s.token == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin token not configured"})
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Next()
}

// --- users ---

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.svc.Store().ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		entry := gin.H{
			"id":         u.ID,
			"username":   u.Username,
			"email":      u.Email,
			"banned":     u.Banned,
			"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
		}
		if balance, err := s.svc.Wallet().Balance(c.Request.Context(), u.ID); err == nil {
			entry["balance"] = balance.Float64()
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type adjustRequest struct {
	Amount      float64 `json:"amount" binding:"required"`
	Description string  `json:"description"`
}

func (s *Server) adjustBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	desc := req.Description
	if desc == "" {
		desc = "Admin adjustment"
	}

	if err := s.svc.Wallet().AdminAdjust(c.Request.Context(), userID, money.FromFloat(req.Amount), desc); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	balance, err := s.svc.Wallet().Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance.Float64()})
}

func (s *Server) setBanned(banned bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		if err := s.svc.Store().SetBanned(c.Request.Context(), userID, banned); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.logger.Info("user ban state changed", "user", userID, "banned", banned)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "banned": banned})
	}
}

// --- withdrawals ---

func (s *Server) listWithdrawals(c *gin.Context) {
	txns, err := s.svc.Wallet().PendingWithdrawals(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(txns))
	for _, t := range txns {
		out = append(out, gin.H{
			"id":          t.ID,
			"user_id":     t.UserID,
			"amount":      (-t.Amount).Float64(),
			"destination": t.Destination,
			"created_at":  t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": out})
}

func (s *Server) approveWithdrawal(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.Wallet().ApproveWithdrawal(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "completed"})
}

func (s *Server) rejectWithdrawal(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.Wallet().RejectWithdrawal(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "rejected"})
}

// --- tables ---

func (s *Server) listTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": s.svc.AllTables()})
}

type createTableRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" binding:"required"`
	SmallBlind float64 `json:"small_blind" binding:"required"`
	BigBlind   float64 `json:"big_blind" binding:"required"`
	MinBuyIn   float64 `json:"min_buy_in" binding:"required"`
	MaxBuyIn   float64 `json:"max_buy_in" binding:"required"`
	MaxPlayers int     `json:"max_players"`
}

func (s *Server) createTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID == "" {
		req.ID = req.Name
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 6
	}

	tbl := s.svc.AddTable(game.Config{
		ID:         req.ID,
		Name:       req.Name,
		SmallBlind: money.FromFloat(req.SmallBlind),
		BigBlind:   money.FromFloat(req.BigBlind),
		MinBuyIn:   money.FromFloat(req.MinBuyIn),
		MaxBuyIn:   money.FromFloat(req.MaxBuyIn),
		MaxSeats:   req.MaxPlayers,
	})
	c.JSON(http.StatusCreated, gin.H{"table": tbl.Info()})
}

func (s *Server) updateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 6
	}
	info, err := s.svc.UpdateTable(c.Request.Context(), c.Param("id"), game.Config{
		Name:       req.Name,
		SmallBlind: money.FromFloat(req.SmallBlind),
		BigBlind:   money.FromFloat(req.BigBlind),
		MinBuyIn:   money.FromFloat(req.MinBuyIn),
		MaxBuyIn:   money.FromFloat(req.MaxBuyIn),
		MaxSeats:   req.MaxPlayers,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": info})
}

func (s *Server) reactivateTable(c *gin.Context) {
	info, err := s.svc.ReactivateFriendGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": info})
}

func (s *Server) deleteTable(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.RemoveTable(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table_id": id, "removed": true})
}

// --- broadcast ---

type notifyRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) notify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := s.svc.Notify(req.Message)
	c.JSON(http.StatusOK, gin.H{"notified": n})
}

// --- runtime settings ---

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"maintenance_mode":   s.settings.MaintenanceMode(),
		"turn_timer_seconds": s.settings.TurnTimerSeconds(),
	})
}

type putConfigRequest struct {
	MaintenanceMode  *bool `json:"maintenance_mode"`
	TurnTimerSeconds *int  `json:"turn_timer_seconds"`
}

func (s *Server) putConfig(c *gin.Context) {
	var req putConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaintenanceMode != nil {
		if err := s.settings.SetMaintenanceMode(*req.MaintenanceMode); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.logger.Info("maintenance mode changed", "on", *req.MaintenanceMode)
	}
	if req.TurnTimerSeconds != nil {
		if err := s.settings.SetTurnTimerSeconds(*req.TurnTimerSeconds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Info("turn timer changed", "seconds", *req.TurnTimerSeconds)
	}
	s.getConfig(c)
}
