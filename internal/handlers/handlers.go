package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/minimall/order-backend/internal/cart"
	"github.com/minimall/order-backend/internal/coupons"
	"github.com/minimall/order-backend/internal/lifecycle"
	"github.com/minimall/order-backend/internal/orders"
	"github.com/minimall/order-backend/internal/payments"
	"github.com/minimall/order-backend/internal/sharding"
	"github.com/minimall/order-backend/internal/users"
	"github.com/minimall/order-backend/internal/validation"
)

// Config groups dependencies for the HTTP handlers. Authentication is out of
// scope here: the authenticated user id is taken from the X-User-ID header
// set by the gateway in front of this service.
type Config struct {
	Lifecycle *lifecycle.Service
	Cart      *cart.Store
	Coupons   *coupons.Store
}

// Register mounts all routes on the engine.
func Register(r *gin.Engine, cfg Config) {
	v := validation.New()

	registerOrderRoutes(r, cfg.Lifecycle, v)
	registerCartRoutes(r, cfg.Cart, v)
	registerCouponRoutes(r, cfg.Coupons)
}

func currentUserID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_or_invalid_user"})
		return 0, false
	}
	return id, true
}

// writeError maps the domain error taxonomy to HTTP statuses. Gateway
// verification failures pass through with the gateway's own status and body.
func writeError(c *gin.Context, err error) {
	var verr *payments.VerificationError
	if errors.As(err, &verr) {
		c.Data(verr.StatusCode, "application/json", verr.Body)
		return
	}

	switch {
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, coupons.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrAlreadyCancelled),
		errors.Is(err, lifecycle.ErrAmountMismatch),
		errors.Is(err, lifecycle.ErrPointsExceedAmount),
		errors.Is(err, users.ErrInsufficientPoints),
		errors.Is(err, coupons.ErrAlreadyUsed),
		errors.Is(err, coupons.ErrNotYetValid),
		errors.Is(err, coupons.ErrExpired),
		errors.Is(err, coupons.ErrMinimumNotMet),
		errors.Is(err, coupons.ErrCategoryMismatch),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, sharding.ErrMissingShardKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

type binder struct {
	v *validatorv10.Validate
}

func (b binder) bind(c *gin.Context, out any) bool {
	return validation.BindAndValidate(c, out, b.v) == nil
}
