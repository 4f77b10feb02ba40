package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/controllers"
	_ "github.com/flameberry/PrimePatrol/docs"
	"github.com/flameberry/PrimePatrol/middleware"
	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/storage"
	"github.com/flameberry/PrimePatrol/utils"
)

// newEngine builds the middleware chain every service shares.
func newEngine(cfg config.AppConfig, service string) *gin.Engine {
	switch strings.ToLower(cfg.App.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl := utils.NewRollingFileLogger(cfg.Log.GinPath, cfg.Log)
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))
	if cfg.Observability.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware(cfg.Observability.ServiceName + "-" + service))
	}
	r.Use(middleware.Metrics(service))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.App.AllowedOrigins) == 0 || (len(cfg.App.AllowedOrigins) == 1 && cfg.App.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.App.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, http.StatusOK, gin.H{"status": "ok", "service": service})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})
	return r
}

func mountDocs(r *gin.Engine) {
	r.GET("/api", func(ctx *gin.Context) {
		ctx.Redirect(http.StatusMovedPermanently, "/api/docs/index.html")
	})
	r.GET("/api/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// SetupPostRouter wires the post service. uploadsDir is served when images are stored locally.
func SetupPostRouter(cfg config.AppConfig, posts *services.PostService, uploadsDir string) *gin.Engine {
	r := newEngine(cfg, config.ServicePost)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", storage.UploadsRoute})))
	mountDocs(r)
	if uploadsDir != "" {
		r.Static(storage.UploadsRoute, uploadsDir)
	}

	postController := controllers.NewPostController(posts, cfg.Storage.MaxImageMB)

	api := r.Group("/api/v1/posts")
	api.POST("", postController.CreatePost)
	api.GET("", postController.ListPosts)
	api.GET("/stats", postController.GetPostStats)
	api.GET("/:id", postController.GetPost)
	api.PUT("/:id", postController.UpdatePost)
	api.DELETE("/:id", postController.DeletePost)
	api.POST("/:id/workers", postController.AssignWorkers)
	api.POST("/:id/activities", postController.LogWorkerActivity)
	api.GET("/:id/activities", postController.GetWorkerActivities)

	return r
}

// SetupWorkerRouter wires the worker service.
func SetupWorkerRouter(cfg config.AppConfig, workers *services.WorkerService) *gin.Engine {
	r := newEngine(cfg, config.ServiceWorker)
	mountDocs(r)

	workerController := controllers.NewWorkerController(workers)

	api := r.Group("/api/v1/workers")
	api.POST("", workerController.Create)
	api.GET("", workerController.FindAll)
	api.GET("/findByIds", workerController.FindByIDs)
	api.POST("/remove-post-assignment", workerController.RemovePostAssignment)
	api.GET("/:id", workerController.FindOne)
	api.PATCH("/:id/status", workerController.UpdateStatus)
	api.PATCH("/:id/assigned-posts", workerController.UpdateAssignedPosts)
	api.PATCH("/:id/assign-post", workerController.UpdateAssignment)
	api.POST("/:id/activities", workerController.AppendActivity)
	api.DELETE("/:id", workerController.Remove)

	return r
}

// SetupUserRouter wires the user service, including token issuance for the gateway.
func SetupUserRouter(cfg config.AppConfig, users *services.UserService) *gin.Engine {
	r := newEngine(cfg, config.ServiceUser)
	mountDocs(r)

	userController := controllers.NewUserController(users)
	authController := controllers.NewAuthController(users)

	api := r.Group("/api/v1")
	api.POST("/auth/token", authController.IssueToken)

	usersGroup := api.Group("/users")
	usersGroup.POST("", userController.Create)
	usersGroup.GET("", userController.FindAll)
	usersGroup.GET("/firebase/:firebaseId", userController.FindByFirebaseID)
	usersGroup.PUT("/update-fcm/:firebaseId", userController.UpdateFCMToken)
	usersGroup.GET("/:id", userController.FindOne)
	usersGroup.PUT("/:id", userController.Update)
	usersGroup.DELETE("/:id", userController.Remove)
	usersGroup.POST("/:id/posts", userController.AddPost)
	usersGroup.DELETE("/:id/posts/:postId", userController.RemovePost)

	return r
}

// SetupGatewayRouter proxies /api/* to the upstream once authz accepts the caller.
func SetupGatewayRouter(cfg config.AppConfig, authz middleware.Authorizer, blacklist *utils.TokenBlacklist) (*gin.Engine, error) {
	proxy, err := controllers.NewProxyController(cfg.Gateway.Upstream)
	if err != nil {
		return nil, err
	}

	r := newEngine(cfg, config.ServiceGateway)
	r.Use(middleware.RateLimitMiddleware(cfg.App.RateLimitPerMinute))

	logout := controllers.NewLogoutController(cfg.Auth.JWTSecret, blacklist)
	r.POST("/auth/logout", logout.Logout)

	api := r.Group("/api")
	api.Use(middleware.Authorize(authz, cfg.Auth.PublicPrefixes))
	api.Any("/*path", proxy.Forward)

	return r, nil
}
