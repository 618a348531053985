package httpserver

import (
	"context"
	"errors"
	"log"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/metrics"
	ordersvc "marketplace-api/internal/service/order"
	productsvc "marketplace-api/internal/service/product"
	usersvc "marketplace-api/internal/service/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type userService interface {
	Register(ctx context.Context, in usersvc.RegisterInput) (*usersvc.Session, error)
	Login(ctx context.Context, login, password string) (*usersvc.Session, error)
	Logout(ctx context.Context, token string) error
	LookupByToken(ctx context.Context, token string) (domain.Identity, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in usersvc.UpdateProfileInput) (*domain.User, error)
	AccessTTLSeconds() int
}

type productService interface {
	List(ctx context.Context, q productsvc.ListQuery) (*productsvc.Page, error)
	Get(ctx context.Context, id string, caller domain.Identity) (*domain.Product, error)
	Popular(ctx context.Context) ([]domain.Product, error)
	Newest(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, caller domain.Identity, in productsvc.Input) (*domain.Product, error)
	Update(ctx context.Context, caller domain.Identity, id string, in productsvc.Input) (*domain.Product, error)
	Delete(ctx context.Context, caller domain.Identity, id string) error
}

type cartService interface {
	Read(ctx context.Context, userID string) (*domain.Cart, error)
	Add(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error)
	Remove(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type orderService interface {
	Checkout(ctx context.Context, caller domain.Identity, in ordersvc.CheckoutInput) (*domain.Order, error)
	ListForUser(ctx context.Context, caller domain.Identity) ([]domain.Order, error)
	ListAll(ctx context.Context, caller domain.Identity, status domain.OrderStatus) ([]domain.Order, error)
	Get(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error)
	MarkPaid(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, caller domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error)
	Cancel(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error)
}

// Deps are the services behind the API routes. Metrics is optional.
type Deps struct {
	UserSvc     userService
	ProductSvc  productService
	CartSvc     cartService
	OrderSvc    orderService
	Metrics     *metrics.ServerMetrics
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.UserSvc == nil:
		return errors.New("user service is required")
	case d.ProductSvc == nil:
		return errors.New("product service is required")
	case d.CartSvc == nil:
		return errors.New("cart service is required")
	case d.OrderSvc == nil:
		return errors.New("order service is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{
		logger:   logger,
		users:    deps.UserSvc,
		products: deps.ProductSvc,
		carts:    deps.CartSvc,
		orders:   deps.OrderSvc,
	}
	requireAuth := authMiddleware(deps.UserSvc, true)
	optionalAuth := authMiddleware(deps.UserSvc, false)

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", requireAuth, h.logout)
	auth.GET("/profile", requireAuth, h.profile)
	auth.PUT("/profile", requireAuth, h.updateProfile)

	api.GET("/categories", listCategories)

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/popular", h.popularProducts)
	products.GET("/new", h.newProducts)
	products.GET("/:id", optionalAuth, h.getProduct)
	manage := products.Group("", requireAuth, requireRole(domain.RoleSeller, domain.RoleAdmin))
	manage.POST("", h.createProduct)
	manage.PUT("/:id", h.updateProduct)
	manage.DELETE("/:id", h.deleteProduct)

	cart := api.Group("/cart", requireAuth)
	cart.GET("", h.getCart)
	cart.POST("", h.addToCart)
	cart.PUT("/:productId", h.setCartQuantity)
	cart.DELETE("/:productId", h.removeFromCart)
	cart.DELETE("", h.clearCart)

	orders := api.Group("/orders", requireAuth)
	orders.POST("", h.checkout)
	orders.GET("", h.listOrders)
	orders.GET("/all/admin", requireRole(domain.RoleAdmin), h.listAllOrders)
	orders.GET("/:id", h.getOrder)
	orders.PUT("/:id/pay", h.payOrder)
	orders.PUT("/:id/cancel", h.cancelOrder)
	orders.PUT("/:id/status", requireRole(domain.RoleAdmin), h.updateOrderStatus)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

type handlers struct {
	logger   *log.Logger
	users    userService
	products productService
	carts    cartService
	orders   orderService
}
