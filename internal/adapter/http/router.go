package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shashank-materialplus/order-api/internal/adapter/http/middleware"
	"github.com/shashank-materialplus/order-api/internal/logging"
	"github.com/shashank-materialplus/order-api/internal/security"
)

// CurrentIdentity returns the identity placed on the context by the
// authentication middleware.
func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	return middleware.Identity(c)
}

func NewRouter(oh *OrderHandler, ph *PaymentHandler, authn *middleware.Authn) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1", authn.Require())
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", oh.CreateOrder)
			orders.GET("/history", oh.GetOrderHistory)
			orders.GET("/admin/all", authn.RequireAdmin(), oh.ListAllOrders)
			orders.GET("/:id", oh.GetOrderByID)
			orders.GET("/:id/status", oh.GetOrderStatus)
			orders.PUT("/:id/status", authn.RequireAdmin(), oh.UpdateOrderStatus)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/process", ph.ProcessPayment)
			payments.POST("/create-checkout-session", ph.CreateCheckoutSession)
		}
	}

	return r
}
