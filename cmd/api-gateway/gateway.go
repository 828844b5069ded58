package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Resolver finds a healthy instance of a service. *discovery.ConsulClient
// satisfies it.
type Resolver interface {
	GetServiceURL(serviceName string) (string, error)
}

type Gateway struct {
	resolver Resolver
	logger   *zap.Logger
	client   *http.Client

	mutex    sync.RWMutex
	proxies  map[string]*httputil.ReverseProxy
	services map[string]string
	// fallbacks are used when the resolver is missing or has no healthy instance.
	fallbacks map[string]string
}

func NewGateway(resolver Resolver, fallbacks map[string]string, logger *zap.Logger) *Gateway {
	g := &Gateway{
		resolver:  resolver,
		logger:    logger,
		client:    &http.Client{Timeout: 2 * time.Second},
		proxies:   make(map[string]*httputil.ReverseProxy),
		services:  make(map[string]string),
		fallbacks: fallbacks,
	}

	g.discoverServices()
	return g
}

func (g *Gateway) discoverServices() {
	for svc, fallback := range g.fallbacks {
		target := fallback
		if g.resolver != nil {
			url, err := g.resolver.GetServiceURL(svc)
			if err != nil {
				g.logger.Warn("⚠️ Service not found in Consul, using fallback", zap.String("service", svc), zap.Error(err))
			} else {
				target = url
			}
		}
		g.updateProxy(svc, target)
	}
}

func (g *Gateway) updateProxy(serviceName, serviceURL string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.services[serviceName] == serviceURL {
		return
	}

	target, err := url.Parse(serviceURL)
	if err != nil {
		g.logger.Error("❌ Invalid URL", zap.String("service", serviceName), zap.Error(err))
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	// Flush immediately so the cart event stream is not buffered.
	proxy.FlushInterval = -1
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.logger.Error("❌ Proxy error", zap.String("service", serviceName), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error": "service unavailable", "code": "UNAVAILABLE"}`)
	}

	g.proxies[serviceName] = proxy
	g.services[serviceName] = serviceURL
	g.logger.Info("✅ Updated route", zap.String("service", serviceName), zap.String("url", serviceURL))
}

// watchServices re-resolves upstreams until ctx is done.
func (g *Gateway) watchServices(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.discoverServices()
		}
	}
}

func (g *Gateway) getProxy(serviceName string) *httputil.ReverseProxy {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.proxies[serviceName]
}

// Proxy forwards the request to serviceName.
func (g *Gateway) Proxy(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxy := g.getProxy(serviceName)
		if proxy == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": serviceName + " unavailable", "code": "UNAVAILABLE"})
			return
		}
		g.logger.Debug("🔀 Routing", zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path), zap.String("service", serviceName))
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

func (g *Gateway) HealthCheck(c *gin.Context) {
	g.mutex.RLock()
	services := make(map[string]string, len(g.services))
	for name, url := range g.services {
		services[name] = url
	}
	g.mutex.RUnlock()

	statuses := make(map[string]string)
	allHealthy := true

	for name, url := range services {
		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url+"/health", nil)
		if err != nil {
			statuses[name] = "unhealthy"
			allHealthy = false
			continue
		}
		resp, err := g.client.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			statuses[name] = "unhealthy"
			allHealthy = false
		} else {
			statuses[name] = "healthy"
		}
		if resp != nil {
			resp.Body.Close()
		}
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"service":  "api-gateway",
		"services": statuses,
	})
}

func (g *Gateway) ListServices(c *gin.Context) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	c.JSON(http.StatusOK, gin.H{"services": g.services})
}

// Routes mounts every public API prefix onto the upstream service.
func (g *Gateway) Routes(router *gin.Engine, upstream string) {
	router.GET("/health", g.HealthCheck)
	router.GET("/services", g.ListServices)

	proxy := g.Proxy(upstream)
	for _, prefix := range []string{"/auth", "/listings", "/cart", "/orders", "/me"} {
		router.Any(prefix, proxy)
		router.Any(prefix+"/*path", proxy)
	}
}
