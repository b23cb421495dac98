package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/minimall/order-backend/internal/cart"
)

type addCartItemRequest struct {
	ProductID    int64  `json:"productId" validate:"required"`
	ProductName  string `json:"productName" validate:"required"`
	ProductImage string `json:"productImage"`
	Price        int64  `json:"price" validate:"required,gt=0"`
	Quantity     int64  `json:"quantity" validate:"required,min=1"`
	Category     string `json:"category"`
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"required,min=1"`
}

func registerCartRoutes(r *gin.Engine, store *cart.Store, v *validatorv10.Validate) {
	b := binder{v: v}
	g := r.Group("/api/cart")

	g.GET("", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		items, err := store.Get(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	g.POST("/items", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var in addCartItemRequest
		if !b.bind(c, &in) {
			return
		}
		item, err := store.AddItem(c.Request.Context(), userID, cart.Item{
			ProductID:    in.ProductID,
			ProductName:  in.ProductName,
			ProductImage: in.ProductImage,
			Price:        in.Price,
			Quantity:     in.Quantity,
			Category:     in.Category,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	g.PUT("/items/:productId", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_product_id"})
			return
		}
		var in updateQuantityRequest
		if !b.bind(c, &in) {
			return
		}
		item, err := store.UpdateQuantity(c.Request.Context(), userID, productID, in.Quantity)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	})

	g.DELETE("/items/:productId", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_product_id"})
			return
		}
		if err := store.RemoveItem(c.Request.Context(), userID, productID); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	g.DELETE("", func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		if err := store.Clear(c.Request.Context(), userID); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
}
