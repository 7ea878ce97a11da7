package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/warpdl/warpsched/pkg/schedule"
)

// newRESTHandler exposes the scheduler as plain JSON resources under
// /api/v1 for clients without a JSON-RPC library.
func newRESTHandler(rs *RPCServer) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1", tokenMiddleware(rs.secret))
	{
		api.GET("/schedule", getScheduleHandler(rs))
		api.PUT("/schedule", putScheduleHandler(rs))
		api.GET("/state", getStateHandler(rs))
		api.GET("/history", getHistoryHandler(rs))
	}
	return r
}

func getScheduleHandler(rs *RPCServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, rs.engine.GetConfig())
	}
}

func putScheduleHandler(rs *RPCServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var u schedule.ConfigUpdate
		if err := c.ShouldBindJSON(&u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}
		cfg, err := rs.engine.ApplyConfig(&u)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}

func getStateHandler(rs *RPCServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, rs.state())
	}
}

func getHistoryHandler(rs *RPCServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.history == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "history requires the sqlite store"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		list, err := rs.history.History(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, schedule.ErrConfigShape),
		errors.Is(err, schedule.ErrInvalidLimit),
		errors.Is(err, schedule.ErrInvalidRule):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
