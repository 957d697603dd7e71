package server

import (
	"context"
	"log"
	"net/http"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/engine"
	"github.com/gin-gonic/gin"
)

// Server는 엔진의 현재 상태를 조회하는 HTTP API 서버입니다.
// 모든 응답은 엔진 스냅샷을 그대로 직렬화한 읽기 전용 뷰입니다.
type Server struct {
	engine *engine.Engine
	router *gin.Engine
	srv    *http.Server
}

// New는 새로운 API 서버를 생성합니다
func New(addr string, eng *engine.Engine, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine: eng,
		router: gin.Default(),
	}
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.getHealth)
	s.router.GET("/api/stats", s.getStats)
	s.router.GET("/api/signals", s.getSignals)
	s.router.GET("/api/references", s.getReferences)
	s.router.GET("/api/trackers", s.getTrackers)
}

// Start는 서버를 시작합니다. 서버가 닫힐 때까지 반환하지 않습니다.
func (s *Server) Start() error {
	log.Printf("API 서버 시작: %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown은 진행 중인 요청을 마치고 서버를 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"market":            s.engine.Market(),
		"anchor_resolution": s.engine.AnchorResolution(),
		"position":          s.engine.Position(),
	})
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Statistics())
}

// getSignals는 시그널 행을 반환합니다. resolution 쿼리로 한 타임프레임만
// 추릴 수 있습니다.
func (s *Server) getSignals(c *gin.Context) {
	raw := c.Query("resolution")

	var rows []domain.SignalRow
	if raw == "" {
		rows = s.engine.Rows()
	} else {
		res, err := domain.ParseResolution(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows = s.engine.RowsByResolution(res)
	}

	if rows == nil {
		rows = []domain.SignalRow{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getReferences(c *gin.Context) {
	refs := s.engine.References()
	if refs == nil {
		refs = []domain.ReferencePoint{}
	}
	c.JSON(http.StatusOK, refs)
}

func (s *Server) getTrackers(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.TrackerStatuses())
}
