package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/minimall/order-backend/internal/lifecycle"
)

func registerOrderRoutes(r *gin.Engine, svc *lifecycle.Service, v *validatorv10.Validate) {
	b := binder{v: v}
	g := r.Group("/api/orders")

	// Confirm a gateway payment and create the order from the pending cart.
	g.POST("/confirm-payment", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var in lifecycle.CheckoutInput
		if !b.bind(c, &in) {
			return
		}

		order, err := svc.Checkout(c.Request.Context(), userID, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	// Create a demo order without gateway verification.
	g.POST("/demo", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var in lifecycle.DemoCheckoutInput
		if !b.bind(c, &in) {
			return
		}

		order, err := svc.DemoCheckout(c.Request.Context(), userID, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	g.GET("", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		list, err := svc.ListOrders(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/:orderId", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		order, err := svc.GetOrder(c.Request.Context(), userID, c.Param("orderId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	g.POST("/:orderId/cancel", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		order, err := svc.Cancel(c.Request.Context(), userID, c.Param("orderId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	g.DELETE("/:orderId", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		if err := svc.DeleteOrder(c.Request.Context(), userID, c.Param("orderId")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
}
