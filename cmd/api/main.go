package main

import (
	"context"
	"fmt"
	common_api "go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/database"
	"go-propflow/internal/features/audit"
	"go-propflow/internal/features/auth"
	"go-propflow/internal/features/document"
	"go-propflow/internal/features/notification"
	"go-propflow/internal/features/process"
	"go-propflow/internal/features/property"
	"go-propflow/internal/features/report"
	"go-propflow/internal/features/role"
	"go-propflow/internal/features/system"
	"go-propflow/internal/features/task"
	"go-propflow/internal/features/template"
	"go-propflow/internal/features/user"
	"go-propflow/internal/logger"
	"go-propflow/internal/middleware"
	"go-propflow/pkg/utils"
	"log"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d route groups\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// @title           PropFlow Acquisition API
// @version         1.0
// @description     Back-office workflow engine for real-estate acquisition processes.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Databases
			database.NewDatabase,
			database.NewDocumentDB,

			// Initialize Repositories
			audit.NewAuditRepository,
			user.NewUserRepository,
			role.NewRoleRepository,
			notification.NewNotificationRepository,
			property.NewPropertyRepository,
			template.NewTemplateRepository,
			task.NewTaskRepository,
			process.NewProcessRepository,
			document.NewRegistry,

			// Initialize Services
			audit.NewAuditService,
			auth.NewAuthService,
			role.NewRoleService,
			user.NewUserService,
			notification.NewNotificationService,
			property.NewPropertyService,
			template.NewPopulator,
			process.NewProcessService,
			task.NewTaskService,
			report.NewReportService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s role.RoleService) middleware.RoleService { return s },
			func(r user.UserRepository) audit.UserFinder { return r },
			func(s process.ProcessService) task.InstanceReader { return s },
			func(s process.ProcessService) task.ProgressTrigger { return s },

			// Initialize Controllers
			auth.NewAuthController,
			user.NewUserController,
			audit.NewAuditController,
			notification.NewNotificationController,
			property.NewPropertyController,
			process.NewProcessController,
			task.NewTaskController,
			report.NewReportController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(property.NewPropertyApi),
			AsRoute(process.NewProcessApi),
			AsRoute(task.NewTaskApi),
			AsRoute(report.NewReportApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
		),
	)

	app.Run()
}
