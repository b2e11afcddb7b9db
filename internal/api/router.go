package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"parking_reserve/internal/api/handler"
	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/api/response"
	"parking_reserve/internal/repository"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

// Repos bundles the repositories the settings surface reads directly.
type Repos struct {
	Settings  repository.SettingsRepository
	Logs      repository.ApplicationLogRepository
	Migration repository.MigrationRepository
}

func SetupRouter(
	authService *service.AuthService,
	parkingService *service.ParkingService,
	bookingService *service.BookingService,
	oidcService *service.OIDCService,
	emailService *service.EmailService,
	reportService *service.ReportService,
	backupService *service.BackupService,
	repos Repos,
	authMw *middleware.AuthMiddleware,
	wsManager *handler.WebSocketManager,
	staticDir string,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(authService)
	oidcHandler := handler.NewOIDCHandler(oidcService)
	settingsHandler := handler.NewSettingsHandler(emailService, backupService, repos.Settings, repos.Logs, repos.Migration)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/oidc/providers", oidcHandler.ListPublicProviders)
		authRoutes.GET("/oidc/:provider/login", oidcHandler.Login)
		authRoutes.GET("/oidc/:provider/callback", oidcHandler.Callback)
	}

	// Branding is public so the login page can style itself.
	r.GET("/api/v1/styling", settingsHandler.GetStyling)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.GET("/users/me", authHandler.Me)
		v1.PUT("/users/me/password", authHandler.ChangeOwnPassword)

		lotH := handler.NewParkingLotHandler(parkingService)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole("admin"), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.PUT("/:id", authMw.AuthorizeRole("admin"), lotH.UpdateParkingLot)
			lotRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), lotH.DeleteParkingLot)

			lotRoutes.POST("/:id/spaces", authMw.AuthorizeRole("admin"), lotH.CreateSpace)
			lotRoutes.GET("/:id/spaces", lotH.GetSpaces)
			lotRoutes.PUT("/:id/layout", authMw.AuthorizeRole("admin"), lotH.UpdateLayout)
			lotRoutes.GET("/:id/availability", lotH.GetAvailability)
		}

		spaceH := handler.NewParkingSpaceHandler(parkingService)
		spaceRoutes := v1.Group("/parking-spaces")
		{
			spaceRoutes.GET("/:space_id", spaceH.GetParkingSpaceByID)
			spaceRoutes.PUT("/:space_id", authMw.AuthorizeRole("admin"), spaceH.UpdateParkingSpace)
			spaceRoutes.DELETE("/:space_id", authMw.AuthorizeRole("admin"), spaceH.DeleteParkingSpace)
		}

		bookingH := handler.NewBookingHandler(bookingService)
		bookingRoutes := v1.Group("/bookings")
		{
			bookingRoutes.POST("", bookingH.CreateBooking)
			bookingRoutes.GET("", bookingH.ListBookings)
			bookingRoutes.GET("/:id", bookingH.GetBooking)
			bookingRoutes.PUT("/:id", bookingH.UpdateBooking)
			bookingRoutes.POST("/:id/cancel", bookingH.CancelBooking)
			bookingRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), bookingH.DeleteBooking)
		}

		admin := v1.Group("/admin")
		admin.Use(authMw.AuthorizeRole("admin"))
		{
			userH := handler.NewUserHandler(authService)
			userRoutes := admin.Group("/users")
			{
				userRoutes.GET("", userH.ListUsers)
				userRoutes.POST("", userH.CreateUser)
				userRoutes.GET("/:id", userH.GetUser)
				userRoutes.PUT("/:id", userH.UpdateUser)
				userRoutes.DELETE("/:id", userH.DeleteUser)
				userRoutes.PUT("/:id/password", userH.ResetPassword)
			}

			oidcRoutes := admin.Group("/oidc")
			{
				oidcRoutes.GET("/providers", oidcHandler.ListProviders)
				oidcRoutes.POST("/providers", oidcHandler.CreateProvider)
				oidcRoutes.GET("/providers/:id", oidcHandler.GetProvider)
				oidcRoutes.PUT("/providers/:id", oidcHandler.UpdateProvider)
				oidcRoutes.DELETE("/providers/:id", oidcHandler.DeleteProvider)
				oidcRoutes.GET("/providers/:id/claim-mappings", oidcHandler.ListClaimMappings)
				oidcRoutes.POST("/providers/:id/claim-mappings", oidcHandler.CreateClaimMapping)
				oidcRoutes.PUT("/claim-mappings/:id", oidcHandler.UpdateClaimMapping)
				oidcRoutes.DELETE("/claim-mappings/:id", oidcHandler.DeleteClaimMapping)
			}

			reportH := handler.NewReportHandler(reportService)
			reportRoutes := admin.Group("/reports/templates")
			{
				reportRoutes.GET("", reportH.ListTemplates)
				reportRoutes.POST("", reportH.CreateTemplate)
				reportRoutes.GET("/:id", reportH.GetTemplate)
				reportRoutes.PUT("/:id", reportH.UpdateTemplate)
				reportRoutes.DELETE("/:id", reportH.DeleteTemplate)
				reportRoutes.GET("/:id/download", reportH.DownloadReport)
				reportRoutes.POST("/:id/run", reportH.RunTemplate)
			}

			settingsRoutes := admin.Group("/settings")
			{
				settingsRoutes.GET("/email", settingsHandler.GetEmailSettings)
				settingsRoutes.PUT("/email", settingsHandler.UpdateEmailSettings)
				settingsRoutes.POST("/email/test", settingsHandler.SendTestEmail)
				settingsRoutes.GET("/backup", settingsHandler.GetBackupSettings)
				settingsRoutes.PUT("/backup", settingsHandler.UpdateBackupSettings)
				settingsRoutes.POST("/backup/run", settingsHandler.RunBackup)
				settingsRoutes.GET("/backup/list", settingsHandler.ListBackups)
				settingsRoutes.PUT("/styling", settingsHandler.UpdateStyling)
			}

			admin.GET("/logs", settingsHandler.GetLogs)
			admin.GET("/migrations", settingsHandler.GetMigrations)
		}
	}

	// Serve the pre-built front-end. Unknown non-API paths fall through to
	// index.html so client-side routing works.
	if staticDir != "" {
		r.Static("/static", staticDir)
		index := filepath.Join(staticDir, "index.html")
		r.StaticFile("/", index)
		r.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path
			if strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/auth") || path == "/ws" {
				response.Error(c, http.StatusNotFound, "route not found")
				return
			}
			c.File(index)
		})
	}

	return r
}
