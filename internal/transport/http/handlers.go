package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"kuber/internal/agent"
	"kuber/internal/logger"
	"kuber/internal/order"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	service ChatService
	broker  SessionBroker
}

type chatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type confirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	TokenID   string `json:"token_id" binding:"required"`
	Decision  string `json:"decision" binding:"required"`
}

type loginRequest struct {
	ClientCode string `json:"client_code" binding:"required"`
	Password   string `json:"password" binding:"required"`
	TOTPSecret string `json:"totp_secret" binding:"required"`
}

type replyResponse struct {
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	TokenID   string `json:"token_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func toResponse(r *agent.Reply) replyResponse {
	out := replyResponse{
		Kind:      string(r.Kind),
		Text:      r.Text,
		TokenID:   r.TokenID,
		ErrorKind: r.ErrorKind,
	}
	if !r.ExpiresAt.IsZero() {
		out.ExpiresAt = r.ExpiresAt.Format(time.RFC3339)
	}
	return out
}

func (h *handlers) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := h.service.HandleChat(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		logger.Errorf("http: chat for session %s failed: %v", req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, toResponse(reply))
}

func (h *handlers) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := h.service.HandleConfirmation(
		c.Request.Context(), req.SessionID, req.TokenID, agent.Decision(req.Decision))
	if err != nil {
		logger.Errorf("http: confirm token %s failed: %v", req.TokenID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, toResponse(reply))
}

func (h *handlers) login(c *gin.Context) {
	if h.broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broker not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.broker.Login(c.Request.Context(), req.ClientCode, req.Password, req.TOTPSecret); err != nil {
		logger.Warnf("http: login for %s failed: %v", req.ClientCode, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}

type orderResponse struct {
	TokenID       string `json:"token_id"`
	SessionID     string `json:"session_id"`
	Summary       string `json:"summary"`
	Status        string `json:"status"`
	BrokerOrderID string `json:"broker_order_id,omitempty"`
	Message       string `json:"message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *handlers) orders(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	records, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("http: order history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]orderResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toOrderResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

type cancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// cancelOrder passes a cancellation straight to the broker. Like placement it
// is a single attempt; the broker's answer is final.
func (h *handlers) cancelOrder(c *gin.Context) {
	if h.broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broker not configured"})
		return
	}
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receipt, err := h.broker.CancelOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		logger.Errorf("http: cancel order %s failed: %v", req.OrderID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "cancel could not be delivered"})
		return
	}
	if !receipt.Accepted {
		c.JSON(http.StatusOK, gin.H{"status": "rejected", "message": receipt.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "order_id": receipt.OrderID})
}

type positionResponse struct {
	Symbol   string  `json:"symbol"`
	Exchange string  `json:"exchange"`
	NetQty   int64   `json:"net_qty"`
	AvgPrice float64 `json:"avg_price"`
	PnL      float64 `json:"pnl"`
}

func (h *handlers) positions(c *gin.Context) {
	if h.broker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broker not configured"})
		return
	}
	positions, err := h.broker.GetPositions(c.Request.Context())
	if err != nil {
		logger.Errorf("http: positions failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "positions unavailable"})
		return
	}
	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionResponse{
			Symbol:   p.Symbol,
			Exchange: p.Exchange,
			NetQty:   p.NetQty,
			AvgPrice: p.AvgPrice,
			PnL:      p.PnL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func toOrderResponse(r order.ExecutionResult) orderResponse {
	return orderResponse{
		TokenID:       r.TokenID,
		SessionID:     r.SessionID,
		Summary:       r.Draft.Summary(),
		Status:        string(r.Status),
		BrokerOrderID: r.BrokerOrderID,
		Message:       r.Message,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
}
