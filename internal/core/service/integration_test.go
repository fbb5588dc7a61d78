package service_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-metafields/internal/adapter/storage"
	"github.com/rl1809/inventory-metafields/internal/core/domain"
	"github.com/rl1809/inventory-metafields/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	lock    *storage.RedisAdapter
	runs    *storage.MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	runs := storage.NewMySQLAdapter(db)
	if err := runs.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema setup failed: %v", err)
	}

	return &testEnv{
		redis: rdb,
		mysql: db,
		lock:  storage.NewRedisAdapter(rdb),
		runs:  runs,
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

// fixedCatalog serves one page and keeps written metafields in memory.
type fixedCatalog struct {
	mu       sync.Mutex
	products []domain.Product
	stored   map[string]map[string]string
	writes   int
	hold     chan struct{}
}

func (c *fixedCatalog) ListProducts(ctx context.Context, cursor string) (domain.ProductPage, error) {
	if c.hold != nil {
		<-c.hold
	}
	return domain.ProductPage{Products: c.products}, nil
}

func (c *fixedCatalog) ListMetafields(ctx context.Context, productID, namespace string) ([]domain.Metafield, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fields []domain.Metafield
	for key, value := range c.stored[productID] {
		fields = append(fields, domain.Metafield{OwnerID: productID, Namespace: namespace, Key: key, Value: value})
	}
	return fields, nil
}

func (c *fixedCatalog) SetMetafields(ctx context.Context, fields []domain.Metafield) ([]domain.UserError, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	for _, f := range fields {
		if c.stored[f.OwnerID] == nil {
			c.stored[f.OwnerID] = make(map[string]string)
		}
		c.stored[f.OwnerID][f.Key] = f.Value
	}
	return nil, nil
}

var settings = service.Settings{
	Locations: domain.Locations{Warehouse: "Omaha Pneumatic Equipment Company", Vendor: "Vendor"},
	Keys: domain.MetafieldKeys{
		Namespace: domain.DefaultNamespace,
		Warehouse: domain.DefaultWarehouseKey,
		Vendor:    domain.DefaultVendorKey,
	},
}

func newFixedCatalog() *fixedCatalog {
	return &fixedCatalog{
		products: []domain.Product{{
			ID:    "gid://shopify/Product/integration",
			Title: "Integration Compressor",
			Variants: []domain.Variant{{
				InventoryItem: domain.InventoryItem{Levels: []domain.InventoryLevel{
					{Location: domain.Location{Name: "Omaha Pneumatic Equipment Company"}, Available: 6},
					{Location: domain.Location{Name: "Vendor"}, Available: 2},
				}},
			}},
		}},
		stored: make(map[string]map[string]string),
	}
}

func TestIntegration_ReconcileAndRecord(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	catalog := newFixedCatalog()
	svc := service.NewReconciler(catalog, env.runs, env.lock, settings, nil)

	run, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if catalog.writes != 1 {
		t.Errorf("expected 1 write, got %d", catalog.writes)
	}

	recorded, err := env.runs.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if recorded.Status != domain.RunStatusSucceeded || recorded.ProductsUpdated != 1 {
		t.Errorf("unexpected recorded run %+v", recorded)
	}

	// Idempotence: nothing changed upstream
	second, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if catalog.writes != 1 {
		t.Errorf("expected no further writes, got %d", catalog.writes)
	}

	env.mysql.ExecContext(ctx, `DELETE FROM reconcile_runs WHERE id IN (?, ?)`, run.ID, second.ID)
}

func TestIntegration_LockSharedAcrossReconcilers(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	catalog := newFixedCatalog()
	catalog.hold = make(chan struct{})

	first := service.NewReconciler(catalog, env.runs, env.lock, settings, nil)
	second := service.NewReconciler(newFixedCatalog(), env.runs, env.lock, settings, nil)

	job, err := first.Trigger(ctx)
	if err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}

	_, err = second.Trigger(ctx)
	if !errors.Is(err, service.ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress from second process, got: %v", err)
	}

	close(catalog.hold)
	<-job.Done()
	if job.Err() != nil {
		t.Errorf("unexpected error: %v", job.Err())
	}

	env.mysql.ExecContext(ctx, `DELETE FROM reconcile_runs WHERE id = ?`, job.ID())
}
