// control/admin.go
// Author: momentics <momentics@gmail.com>
//
// Admin HTTP endpoint. It runs on its own goroutine, outside the reactor.

package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewAdminRouter builds the admin routes over reg and probes. Either may be nil.
func NewAdminRouter(app string, reg *prometheus.Registry, probes *DebugProbes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	started := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": app,
			"uptime":  time.Since(started).String(),
		})
	})
	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	if probes != nil {
		r.GET("/debug/probes", func(c *gin.Context) {
			c.JSON(http.StatusOK, probes.DumpState())
		})
	}
	return r
}

// AdminServer serves an admin router until Shutdown.
type AdminServer struct {
	srv  *http.Server
	addr string
	done chan struct{}
}

// StartAdmin listens on addr and serves h in the background.
func StartAdmin(addr string, h http.Handler, log zerolog.Logger) (*AdminServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("admin listen %s: %w", addr, err)
	}
	a := &AdminServer{
		srv:  &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second},
		addr: ln.Addr().String(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(a.done)
		if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", a.addr).Msg("admin server stopped")
		}
	}()
	log.Info().Str("addr", a.addr).Msg("admin endpoint listening")
	return a, nil
}

// Addr returns the bound address.
func (a *AdminServer) Addr() string { return a.addr }

// Shutdown stops the server and waits for the serve goroutine.
func (a *AdminServer) Shutdown(ctx context.Context) error {
	err := a.srv.Shutdown(ctx)
	<-a.done
	return err
}
