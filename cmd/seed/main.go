package main

import (
	"context"
	"time"

	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/config"
	"go-propflow/internal/database"
	"go-propflow/internal/features/process"
	"go-propflow/internal/features/property"
	"go-propflow/internal/features/role"
	"go-propflow/internal/features/template"
	"go-propflow/internal/features/user"
	"go-propflow/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// DemoTemplateID is the fixed template id the demo instance is approved
// against, mirroring the UUIDs the authoring system hands out.
const DemoTemplateID = "7b1c9a60-4f2e-4d38-9c71-2a83b5a4f0d1"

// Seed loads the demo roles, users, template and a submitted process instance.
func Seed(
	lc fx.Lifecycle,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	templateRepo template.TemplateRepository,
	propertyRepo property.PropertyRepository,
	processRepo process.ProcessRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				logger.Info("Seeding demo data...")

				now := time.Now()

				seedRole := func(name, description string, permissions map[string][]string) primitive.ObjectID {
					existing, err := roleRepo.FindByName(ctx, name)
					if err != nil {
						logger.Error("role lookup failed", zap.Error(err), zap.String("role", name))
						return primitive.NilObjectID
					}
					if existing != nil {
						return existing.ID
					}
					r := &role.Role{
						ID:          primitive.NewObjectID(),
						Name:        name,
						Description: description,
						Permissions: permissions,
						IsSystem:    true,
						CreatedAt:   now,
						UpdatedAt:   now,
					}
					if err := roleRepo.Create(ctx, r); err != nil {
						logger.Error("role seed failed", zap.Error(err), zap.String("role", name))
						return primitive.NilObjectID
					}
					logger.Info("seeded role", zap.String("role", name))
					return r.ID
				}

				adminID := seedRole(role.NameAdmin, "Full access", map[string][]string{
					"processes": {"approve", "read", "write"},
					"reports":   {"read"},
					"audit":     {"read"},
				})
				managerID := seedRole(role.NameProcessManager, "Approves and supervises acquisition processes", map[string][]string{
					"processes": {"approve", "read", "write"},
					"reports":   {"read"},
				})
				agentID := seedRole(role.NameAgent, "Works tasks on active processes", map[string][]string{
					"processes": {"read", "write"},
				})

				seedUser := func(username, fullName, email string, roles ...primitive.ObjectID) primitive.ObjectID {
					existing, err := userRepo.FindByUsername(ctx, username)
					if err != nil {
						logger.Error("user lookup failed", zap.Error(err), zap.String("user", username))
						return primitive.NilObjectID
					}
					if existing != nil {
						return existing.ID
					}
					u := &common_models.User{
						ID:        primitive.NewObjectID(),
						Username:  username,
						Password:  "changeme",
						Email:     email,
						FullName:  fullName,
						Status:    "active",
						Roles:     roles,
						CreatedAt: now,
						UpdatedAt: now,
					}
					if err := userRepo.Create(ctx, u); err != nil {
						logger.Error("user seed failed", zap.Error(err), zap.String("user", username))
						return primitive.NilObjectID
					}
					logger.Info("seeded user", zap.String("user", username))
					return u.ID
				}

				seedUser("admin", "Administrator", "admin@propflow.local", adminID)
				seedUser("manager", "Maria Olsen", "manager@propflow.local", managerID)
				agentUserID := seedUser("agent", "Jonas Berg", "agent@propflow.local", agentID)

				tpl := &template.Template{
					ID:     DemoTemplateID,
					Name:   "Standard Acquisition",
					Active: true,
					Stages: []template.StageDef{
						{
							Name:  "Preparation",
							Order: 0,
							Tasks: []template.TaskDef{
								{Title: "Verify property registry extract", ActionType: "UPLOAD", IsMandatory: true, DocType: "registry_extract", DueInDays: 7},
								{Title: "Collect owner identification", ActionType: "UPLOAD", IsMandatory: true, DocType: "owner_id", OwnerScoped: true, DueInDays: 7},
								{Title: "Initial valuation", ActionType: "MANUAL", Priority: "urgent", DueInDays: 5, Subtasks: []template.SubtaskDef{
									{Title: "Order valuation report", IsMandatory: true, OrderIndex: 0},
									{Title: "Review comparable sales", OrderIndex: 1},
								}},
							},
						},
						{
							Name:  "Negotiation",
							Order: 1,
							Tasks: []template.TaskDef{
								{Title: "Send offer letter", ActionType: "EMAIL", IsMandatory: true, OwnerScoped: true, DueInDays: 14},
								{Title: "Draft purchase agreement", ActionType: "GENERATE_DOC", IsMandatory: true, DueInDays: 21},
								{Title: "Record counteroffers", ActionType: "FORM", DueInDays: 21},
							},
						},
						{
							Name:  "Closing",
							Order: 2,
							Tasks: []template.TaskDef{
								{Title: "Upload signed agreement", ActionType: "UPLOAD", IsMandatory: true, DocType: "signed_agreement", DueInDays: 30},
								{Title: "Register transfer of title", ActionType: "MANUAL", IsMandatory: true, DueInDays: 45},
							},
						},
					},
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := templateRepo.Upsert(ctx, tpl); err != nil {
					logger.Error("template seed failed", zap.Error(err))
				} else {
					logger.Info("seeded template", zap.String("template", tpl.Name))
				}

				existing, err := propertyRepo.List(ctx)
				if err != nil {
					logger.Error("property lookup failed", zap.Error(err))
					return
				}
				if len(existing) > 0 {
					logger.Info("demo property exists, skipping")
					return
				}

				prop := &property.Property{
					ID:        primitive.NewObjectID(),
					Reference: "GNR-42-BNR-7",
					Address:   "Storgata 12, 0155 Oslo",
					Status:    property.PropertyStatusPendingApproval,
					Owners: []property.Owner{
						{ID: primitive.NewObjectID(), Name: "Kari Nordmann", Email: "kari@example.com"},
						{ID: primitive.NewObjectID(), Name: "Ola Nordmann", Email: "ola@example.com"},
					},
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := propertyRepo.Create(ctx, prop); err != nil {
					logger.Error("property seed failed", zap.Error(err))
					return
				}
				logger.Info("seeded property", zap.String("reference", prop.Reference))

				instance := &process.ProcessInstance{
					ID:            primitive.NewObjectID(),
					ExternalRef:   "ACQ-2024-0042",
					PropertyID:    prop.ID,
					CurrentStatus: process.StatusPendingApproval,
					RequestedBy:   agentUserID,
					Notes:         "Submitted from demo seed",
					CreatedAt:     now,
					UpdatedAt:     now,
				}
				if err := processRepo.Create(ctx, instance); err != nil {
					logger.Error("process seed failed", zap.Error(err))
					return
				}
				logger.Info("seeded process instance", zap.String("external_ref", instance.ExternalRef))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,

			role.NewRoleRepository,
			user.NewUserRepository,
			template.NewTemplateRepository,
			property.NewPropertyRepository,
			process.NewProcessRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
