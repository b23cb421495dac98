package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minimall/order-backend/internal/coupons"
)

func registerCouponRoutes(r *gin.Engine, store *coupons.Store) {
	g := r.Group("/api/coupons")

	g.GET("/my", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		list, err := store.ListUnused(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	// Annotates the user's coupons with applicability against a prospective
	// order amount and its item categories.
	g.GET("/available", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
		if err != nil || amount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_amount"})
			return
		}
		var categories []string
		if raw := c.Query("categories"); raw != "" {
			categories = strings.Split(raw, ",")
		}

		list, err := store.ListUnused(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, coupons.Evaluate(list, amount, categories, time.Now()))
	})
}
