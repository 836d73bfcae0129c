package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikeboe/topic-report/pkg/research"
)

type Handler struct {
	Service *Service
	// MCP serves the stock tools over streamable HTTP. Nil disables /mcp.
	MCP http.Handler
}

func NewHandler(s *Service, mcp http.Handler) *Handler {
	return &Handler{Service: s, MCP: mcp}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.healthz)
	if h.MCP != nil {
		r.Any("/mcp", gin.WrapH(h.MCP))
	}
	api := r.Group("/api")
	{
		api.POST("/reports", h.createReport)
		api.GET("/graph", h.getGraph)
	}
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) createReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.Service.CreateReport(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, research.ErrEmptyTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, report)
		return
	}

	c.JSON(http.StatusCreated, report)
}

func (h *Handler) getGraph(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Graph())
}
