package handlers

import (
	"context"
	"database/sql"
	"net"
	"os"
	"testing"
	"time"

	"github.com/asakaida/propaccess/internal/infrastructure/config"
	"github.com/asakaida/propaccess/internal/infrastructure/database"
	"github.com/asakaida/propaccess/internal/repositories/postgres"
	"github.com/asakaida/propaccess/internal/services"
	"github.com/asakaida/propaccess/internal/services/authorization"
	"github.com/asakaida/propaccess/pkg/cache/memorycache"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// skipIfNotIntegration skips the test if INTEGRATION environment variable is not set
func skipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("Skipping integration test. Set INTEGRATION=1 to run")
	}
}

var seedStatements = []string{
	`INSERT INTO property_groups (id, name) VALUES ('g-north', 'North'), ('g-south', 'South')`,
	`INSERT INTO properties (id, group_id, name, slug, administrators, viewers) VALUES
		('prop-1', 'g-north', 'Maple Court', 'maple-court', '{}', '{}'),
		('prop-3', 'g-north', 'Oak House', 'oak-house', '{}', '{}'),
		('prop-9', 'g-south', 'Pine Lofts', 'pine-lofts', '{lead-1}', '{}')`,
	`INSERT INTO users (id, role, first_name, last_name, email, assigned_property_id) VALUES
		('admin-1', 'admin', 'Ada', 'Admin', 'ada@example.com', NULL),
		('m1', 'maintenance', 'Mo', 'Fix', 'mo@example.com', NULL),
		('lead-1', 'maintenance_lead', 'Lee', 'Lead', 'lee@example.com', NULL),
		('t1', 'tenant', 'Tess', 'Tenant', 'tess@example.com', 'prop-3'),
		('x1', 'janitor', 'Xi', 'Unknown', 'xi@example.com', NULL)`,
	`INSERT INTO team_members (id, first_name, last_name, email, role, linked_properties) VALUES
		('m1', 'Mo', 'Fix', 'mo@example.com', 'Maintenance', '{prop-1}'),
		('lead-1', 'Lee', 'Lead', 'lee@example.com', 'Maintenance Lead', '{prop-9}')`,
	`INSERT INTO tasks (id, title, property, property_id, status, due_date) VALUES
		('1', 'Fix leak', 'Maple Court', 'prop-1', 'Pending', '2025-01-01T00:00:00Z'),
		('2', 'Replace lock', 'Oak House', 'prop-3', 'Pending', '2025-01-02T00:00:00Z'),
		('3', 'New boiler', 'Pine Lofts', 'prop-9', 'Awaiting Approval', '2025-01-03T00:00:00Z')`,
}

var seededTables = []string{"tasks", "team_members", "users", "properties", "property_groups"}

// setupIntegrationTest wires the full stack against the test database and serves it over bufconn
func setupIntegrationTest(t *testing.T) (*AccessServiceClient, *sql.DB) {
	t.Helper()
	skipIfNotIntegration(t)

	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { pg.Close() })

	migrationsPath, err := database.MigrationsPath()
	if err != nil {
		t.Fatalf("Failed to find migrations: %v", err)
	}
	if err := pg.RunMigrations(migrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	db := pg.DB
	cleanupTables(t, db)
	for _, stmt := range seedStatements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}
	t.Cleanup(func() { cleanupTables(t, db) })

	store, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Hour})
	if err != nil {
		t.Fatalf("Failed to create session store: %v", err)
	}
	celEngine, err := authorization.NewCELEngine()
	if err != nil {
		t.Fatalf("Failed to create CEL engine: %v", err)
	}

	logger := zap.NewNop()
	sessions := services.NewSessionService(postgres.NewPostgresUserRepository(db), store, []byte("integration-signing-key"), time.Hour, false, logger)
	access := services.NewAccessService(
		postgres.NewPostgresTaskRepository(db),
		postgres.NewPostgresTeamMemberRepository(db),
		postgres.NewPostgresPropertyRepository(db),
		celEngine,
		logger,
	)

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), RecoveryInterceptor(logger)))
	RegisterAccessServiceServer(srv, NewAccessHandler(sessions, access, logger))
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
	})

	return NewAccessServiceClient(conn), db
}

func cleanupTables(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range seededTables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}
}

// login returns an outgoing context carrying the session token for userID
func login(t *testing.T, client *AccessServiceClient, userID string) context.Context {
	t.Helper()
	ctx := context.Background()
	req, _ := structpb.NewStruct(map[string]interface{}{"user_id": userID})
	resp, err := client.Call(ctx, MethodLogin, req)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", userID, err)
	}
	token := resp.GetFields()["token"].GetStringValue()
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func listTaskIDs(t *testing.T, client *AccessServiceClient, ctx context.Context) []string {
	t.Helper()
	resp, err := client.Call(ctx, MethodListTasks, nil)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	ids := []string{}
	for _, v := range resp.GetFields()["tasks"].GetListValue().GetValues() {
		ids = append(ids, v.GetStructValue().GetFields()["id"].GetStringValue())
	}
	return ids
}

func TestAccessService_Integration_Scenarios(t *testing.T) {
	client, db := setupIntegrationTest(t)

	t.Run("tenant sees only tasks on the assigned property", func(t *testing.T) {
		ids := listTaskIDs(t, client, login(t, client, "t1"))
		if len(ids) != 1 || ids[0] != "2" {
			t.Errorf("tenant tasks = %v, want [2]", ids)
		}
	})

	t.Run("maintenance sees tasks on linked properties", func(t *testing.T) {
		ids := listTaskIDs(t, client, login(t, client, "m1"))
		if len(ids) != 1 || ids[0] != "1" {
			t.Errorf("maintenance tasks = %v, want [1]", ids)
		}
	})

	t.Run("unknown role fails closed", func(t *testing.T) {
		ctx := login(t, client, "x1")
		if ids := listTaskIDs(t, client, ctx); len(ids) != 0 {
			t.Errorf("unknown role tasks = %v, want none", ids)
		}

		resp, err := client.Call(ctx, MethodGetCapabilities, nil)
		if err != nil {
			t.Fatalf("GetCapabilities() error = %v", err)
		}
		if name := resp.GetFields()["role_display_name"].GetStringValue(); name != "Unknown Role" {
			t.Errorf("role_display_name = %q, want Unknown Role", name)
		}
	})

	t.Run("admin sees every group and property", func(t *testing.T) {
		resp, err := client.Call(login(t, client, "admin-1"), MethodListPropertyGroups, nil)
		if err != nil {
			t.Fatalf("ListPropertyGroups() error = %v", err)
		}
		groups := resp.GetFields()["groups"].GetListValue().GetValues()
		if len(groups) != 2 {
			t.Fatalf("admin groups = %d, want 2", len(groups))
		}
		north := groups[0].GetStructValue().GetFields()["properties"].GetListValue().GetValues()
		if len(north) != 2 {
			t.Errorf("North properties = %d, want 2", len(north))
		}
	})

	t.Run("tenant capabilities carry the property slug", func(t *testing.T) {
		resp, err := client.Call(login(t, client, "t1"), MethodGetCapabilities, nil)
		if err != nil {
			t.Fatalf("GetCapabilities() error = %v", err)
		}
		if slug := resp.GetFields()["tenant_property_slug"].GetStringValue(); slug != "oak-house" {
			t.Errorf("tenant_property_slug = %q, want oak-house", slug)
		}
	})

	t.Run("maintenance completes a visible task", func(t *testing.T) {
		req, _ := structpb.NewStruct(map[string]interface{}{"task_id": "1", "status": "Completed"})
		if _, err := client.Call(login(t, client, "m1"), MethodUpdateTaskStatus, req); err != nil {
			t.Fatalf("UpdateTaskStatus() error = %v", err)
		}

		var taskStatus string
		var completedBy sql.NullString
		if err := db.QueryRow(`SELECT status, completed_by FROM tasks WHERE id = '1'`).Scan(&taskStatus, &completedBy); err != nil {
			t.Fatalf("failed to read task: %v", err)
		}
		if taskStatus != "Completed" || completedBy.String != "m1" {
			t.Errorf("task 1 = (%s, %v), want (Completed, m1)", taskStatus, completedBy)
		}
	})

	t.Run("tasks outside the caller's scope are not found", func(t *testing.T) {
		req, _ := structpb.NewStruct(map[string]interface{}{"task_id": "3", "status": "In Progress"})
		_, err := client.Call(login(t, client, "m1"), MethodUpdateTaskStatus, req)
		if status.Code(err) != codes.NotFound {
			t.Errorf("UpdateTaskStatus(task 3) code = %v, want NotFound", status.Code(err))
		}
	})

	t.Run("lead approves a request on a linked property", func(t *testing.T) {
		req, _ := structpb.NewStruct(map[string]interface{}{"task_id": "3", "approve": true})
		resp, err := client.Call(login(t, client, "lead-1"), MethodReviewMaintenanceRequest, req)
		if err != nil {
			t.Fatalf("ReviewMaintenanceRequest() error = %v", err)
		}
		task := resp.GetFields()["task"].GetStructValue().GetFields()
		if task["status"].GetStringValue() != "Completed" || task["completed_by"].GetStringValue() != "lead-1" {
			t.Errorf("reviewed task = %v", task)
		}
	})

	t.Run("logged out tokens are rejected", func(t *testing.T) {
		ctx := login(t, client, "admin-1")
		if _, err := client.Call(ctx, MethodLogout, nil); err != nil {
			t.Fatalf("Logout() error = %v", err)
		}
		_, err := client.Call(ctx, MethodListTasks, nil)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("ListTasks() after logout code = %v, want Unauthenticated", status.Code(err))
		}
	})
}
