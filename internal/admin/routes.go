package admin

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/diagctl/internal/inspect"
	"github.com/danmuck/diagctl/internal/protocol/cntl"
	"github.com/danmuck/diagctl/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	contentTypeCBOR   = "application/cbor"
	contentTypeBinary = "application/octet-stream"
)

func (s *Server) RegisterRoutes() {
	r := s.engine
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": "0.1.0",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/snapshot", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.router.Snapshot())
	})

	r.GET("/snapshot.cbor", func(c *gin.Context) {
		data, err := inspect.EncodeSnapshot(s.router.Snapshot())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, contentTypeCBOR, data)
	})

	r.GET("/peripherals", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"peripherals": s.router.Snapshot().Peripherals})
	})

	r.GET("/peripherals/:name", func(c *gin.Context) {
		name := c.Param("name")
		for _, p := range s.router.Snapshot().Peripherals {
			if p.Name == name {
				c.JSON(http.StatusOK, p)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "peripheral not found"})
	})

	r.POST("/peripherals/:name/masks", s.handleSendMasks)

	r.GET("/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"routes": s.router.Snapshot().Routes})
	})

	r.GET("/resolve", s.handleResolve)

	r.GET("/diag-ids", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"diag_ids": s.router.DiagIDs()})
	})

	r.GET("/hw-accel", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.router.HWAccelState())
	})

	r.POST("/hw-accel", s.handleHWAccel)

	r.POST("/commands", s.handleCommand)
}

func (s *Server) handleSendMasks(c *gin.Context) {
	p, ok := s.router.Peripheral(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "peripheral not found"})
		return
	}
	if err := s.router.SendMasks(p); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, router.ErrNoControlChannel) || errors.Is(err, router.ErrPeripheralClosed) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.log.Info().Str("peripheral", p.Name()).Int("queued", p.QueueLen()).Msg("masks pushed")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queued": p.QueueLen()})
}

func (s *Server) handleResolve(c *gin.Context) {
	cmd, err := parseUint(c.Query("cmd"), 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cmd: %v", err)})
		return
	}
	subsys, err := parseUint(c.DefaultQuery("subsys", "0xff"), 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("subsys: %v", err)})
		return
	}
	code, err := parseUint(c.DefaultQuery("code", "0"), 16)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("code: %v", err)})
		return
	}

	res := s.router.Resolve(uint8(cmd), uint8(subsys), uint16(code))
	body := gin.H{
		"key":   fmt.Sprintf("0x%08x", res.Key),
		"owned": res.Owned(),
		"local": res.Local,
	}
	if res.Peripheral != nil {
		body["peripheral"] = res.Peripheral.Name()
	}
	c.JSON(http.StatusOK, body)
}

type hwAccelBody struct {
	Operation  string `json:"operation" binding:"required"`
	Type       uint8  `json:"type"`
	Version    uint8  `json:"version"`
	DiagIDMask uint32 `json:"diag_id_mask"`
}

func (s *Server) handleHWAccel(c *gin.Context) {
	var body hwAccelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := parseOperation(body.Operation)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Version == 0 {
		body.Version = router.HWAccelVer1
	}

	granted, err := s.router.HWAccelRequest(router.HWAccelRequest{
		Operation:  op,
		Type:       body.Type,
		Version:    body.Version,
		DiagIDMask: body.DiagIDMask,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, router.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"operation": op.String(),
		"granted":   granted,
	})
}

// handleCommand runs a raw diag command packet against the router's own
// handlers and returns the raw response.
func (s *Server) handleCommand(c *gin.Context) {
	pkt, err := io.ReadAll(io.LimitReader(c.Request.Body, cntl.MaxRecordLen+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(pkt) > cntl.MaxRecordLen {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "command too large"})
		return
	}

	resp, err := s.router.HandleCommand(pkt)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, router.ErrUnknownCommand):
			status = http.StatusNotFound
		case errors.Is(err, router.ErrShortCommand), errors.Is(err, router.ErrInvalidArgument):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, contentTypeBinary, resp)
}

func parseOperation(raw string) (router.HWAccelOp, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "disable":
		return router.HWAccelDisable, nil
	case "enable":
		return router.HWAccelEnable, nil
	case "query":
		return router.HWAccelQuery, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", raw)
	}
}

func parseUint(raw string, bits int) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.ParseUint(raw, 0, bits)
}
