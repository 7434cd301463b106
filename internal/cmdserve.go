// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package internal

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/contrib/static"
	"github.com/gin-gonic/gin"
)

// Reports of finished sessions, by session ID
type sessionStore struct {
	mu      sync.RWMutex
	reports map[string]*SessionReport
}

func newSessionStore() *sessionStore {
	return &sessionStore{reports: map[string]*SessionReport{}}
}

func (s *sessionStore) put(rep *SessionReport) {
	s.mu.Lock()
	s.reports[rep.ID] = rep
	s.mu.Unlock()
}

func (s *sessionStore) get(id string) (*SessionReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[id]
	return rep, ok
}

func (s *sessionStore) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.reports))
	for id := range s.reports {
		ids = append(ids, id)
	}
	return ids
}

type classifyRequest struct {
	Files []string `json:"files" binding:"required"`
}

type sessionRequest struct {
	Files []string `json:"files" binding:"required"`
	Write *bool    `json:"write"`
}

// Build the HTTP router with static web content and API endpoints
func NewRouter(cfg *Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Serve frontend static files
	if cfg.Server.StaticDir != "" {
		r.Use(static.Serve("/", static.LocalFile(cfg.Server.StaticDir, true)))
	}

	store := newSessionStore()
	api := r.Group("/api/v1")

	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api.POST("/classify", func(c *gin.Context) {
		var req classifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sets, failures := ClassifyBatch(req.Files, cfg.Calibration.frameTypeKeys())
		if failures == nil {
			failures = []Failure{}
		}
		c.JSON(http.StatusOK, gin.H{"sets": sets, "failures": failures})
	})

	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": store.ids()})
	})

	api.POST("/sessions", func(c *gin.Context) {
		var req sessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p := cfg.Calibration
		if req.Write != nil {
			p.Write = *req.Write
		}
		s := NewSession(p)
		res, err := s.Run(c.Request.Context(), req.Files)
		rep := res.Report()
		if err != nil {
			rep.Error = err.Error()
		}
		store.put(rep)

		switch {
		case errors.Is(err, ErrNoLightFrames):
			c.JSON(http.StatusUnprocessableEntity, rep)
		case err != nil:
			c.JSON(http.StatusInternalServerError, rep)
		default:
			c.JSON(http.StatusCreated, rep)
		}
	})

	api.GET("/sessions/:id", func(c *gin.Context) {
		rep, ok := store.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session %s not found", c.Param("id"))})
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	return r
}

// Serve static web content and API endpoints via HTTP
func CmdServe(cfg *Config) error {
	r := NewRouter(cfg)
	LogPrintf("Serving on port %d\n", cfg.Server.Port)
	return r.Run(fmt.Sprintf(":%d", cfg.Server.Port)) // listen and serve on 0.0.0.0:port (for windows "localhost:port")
}
