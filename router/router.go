package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/steamybites/board"
	"github.com/yeremiapane/steamybites/cache"
	"github.com/yeremiapane/steamybites/controllers"
	"github.com/yeremiapane/steamybites/metrics"
	"github.com/yeremiapane/steamybites/middlewares"
	"github.com/yeremiapane/steamybites/services"
	"gorm.io/gorm"
)

// Options configures SetupRouter. Zero values fall back to sensible defaults.
type Options struct {
	AllowedOrigins []string
	UploadDir      string
	AuthRatePerMin int
	MenuCache      cache.MenuCache
	Hub            *board.Hub
	DeliveryZone   *services.DeliveryZone
	BcryptCost     int
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// imagesOnly keeps /uploads from serving anything but images.
func imagesOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			path := strings.ToLower(c.Request.URL.Path)
			for _, ext := range imageExtensions {
				if strings.HasSuffix(path, ext) {
					c.Next()
					return
				}
			}
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func SetupRouter(db *gorm.DB, opts Options) *gin.Engine {
	if opts.UploadDir == "" {
		opts.UploadDir = "public/uploads"
	}
	if opts.AuthRatePerMin == 0 {
		opts.AuthRatePerMin = 20
	}
	if opts.Hub == nil {
		opts.Hub = board.NewHub()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(metrics.Middleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.AllowedOrigins))
	r.Use(imagesOnly())

	r.Static("/uploads", opts.UploadDir)

	// Services
	authSvc := services.NewAuthService(db)
	if opts.BcryptCost > 0 {
		authSvc.WithCost(opts.BcryptCost)
	}
	menuSvc := services.NewMenuService(db, opts.MenuCache)
	couponSvc := services.NewCouponService(db)
	orderSvc := services.NewOrderService(db, couponSvc, opts.Hub)
	if opts.DeliveryZone != nil {
		orderSvc.WithDeliveryZone(*opts.DeliveryZone)
	}
	complaintSvc := services.NewComplaintService(db)

	// Controllers
	userCtrl := controllers.NewUserController(authSvc)
	menuCtrl := controllers.NewMenuController(menuSvc, opts.UploadDir)
	categoryCtrl := controllers.NewMenuCategoryController(menuSvc)
	orderCtrl := controllers.NewOrderController(orderSvc)
	complaintCtrl := controllers.NewComplaintController(complaintSvc)
	couponCtrl := controllers.NewCouponController(couponSvc)
	boardCtrl := controllers.NewBoardController(opts.Hub, opts.AllowedOrigins)

	r.GET("/", controllers.Health)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	api.GET("/menu", menuCtrl.GetMenu)
	api.GET("/categories", categoryCtrl.GetAllCategories)
	api.GET("/coupons", couponCtrl.GetActiveCoupons)
	api.POST("/coupons/validate", couponCtrl.ValidateCoupon)

	limiter := middlewares.NewRateLimiter(opts.AuthRatePerMin)
	authRoutes := api.Group("/auth")
	authRoutes.Use(limiter.RateLimit())
	{
		authRoutes.POST("/register", userCtrl.Register)
		authRoutes.POST("/login", userCtrl.Login)
		authRoutes.POST("/admin/login", userCtrl.AdminLogin)
	}

	// ----------------------------------------------------------------
	//                      CUSTOMER ROUTES
	// ----------------------------------------------------------------
	customer := api.Group("")
	customer.Use(middlewares.Authenticate())
	{
		customer.POST("/orders", orderCtrl.CreateOrder)
		customer.GET("/my-orders", orderCtrl.GetMyOrders)
		customer.POST("/complaints", complaintCtrl.CreateComplaint)
		customer.GET("/my-complaints", complaintCtrl.GetMyComplaints)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	admin := api.Group("/admin")
	admin.Use(middlewares.Authenticate(), middlewares.RequireAdmin(authSvc))
	{
		admin.POST("/register", userCtrl.RegisterAdmin)

		// MENU
		admin.POST("/menu", menuCtrl.CreateMenuItem)
		admin.PATCH("/menu/reorder", menuCtrl.ReorderMenuItems)
		admin.POST("/menu/upload-csv", menuCtrl.UploadCSV)
		admin.PATCH("/menu/:id", menuCtrl.UpdateMenuItem)
		admin.DELETE("/menu/:id", menuCtrl.DeleteMenuItem)
		admin.PATCH("/categories/reorder", categoryCtrl.ReorderCategories)

		// ORDERS
		admin.GET("/orders", orderCtrl.GetAllOrders)
		admin.GET("/orders/ws", boardCtrl.OrderBoard)
		admin.PATCH("/orders/:id", orderCtrl.UpdateOrderStatus)
		admin.PATCH("/orders/:id/status", orderCtrl.UpdateOrderStatus)
		admin.PATCH("/orders/:id/acknowledge", orderCtrl.AcknowledgeOrder)

		// COMPLAINTS
		admin.GET("/complaints", complaintCtrl.GetAllComplaints)
		admin.PATCH("/complaints/:id", complaintCtrl.UpdateComplaintStatus)

		// COUPONS
		admin.GET("/coupons", couponCtrl.GetAllCoupons)
		admin.POST("/coupons", couponCtrl.CreateCoupon)
		admin.PATCH("/coupons/:id", couponCtrl.UpdateCoupon)
	}

	return r
}
