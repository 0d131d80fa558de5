package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/luxcore/internal/cache"
	"github.com/nikolayk812/luxcore/internal/metrics"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	checkout port.CheckoutService
	catalog  *cache.CatalogCache
}

func New(checkout port.CheckoutService, catalog *cache.CatalogCache) *Server {
	return &Server{
		checkout: checkout,
		catalog:  catalog,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.PrometheusMiddleware("luxcore"))
	router.Use(authContext())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Format(time.RFC3339)})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/orders", s.createOrder)
		api.GET("/orders", s.listOrders)
		api.GET("/orders/track/:token", s.trackOrder)
		api.GET("/orders/:id", s.getOrder)
		api.GET("/products/:id", s.getProduct)
	}

	return router
}
