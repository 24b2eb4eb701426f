package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"stockroom/internal/infra/db"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const postgresImage = "postgres:16-alpine"

//マイグレーション済みのDBを返す。
//TEST_DATABASE_URL優先、無ければコンテナ起動、どちらも無理ならSkip。
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		var err error
		dsn, err = startContainer(ctx, t)
		if err != nil {
			t.Skipf("postgres not available: %v", err)
		}
	}

	gormDB, err := db.Open(dsn, 20, 10)
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gormDB) })

	if err := db.Migrate(ctx, gormDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gormDB
}

//全テーブルを空にしてIDも戻す
func Truncate(t testing.TB, gormDB *gorm.DB) {
	t.Helper()
	err := gormDB.Exec("TRUNCATE inventory_adjustments, order_items, orders, products RESTART IDENTITY CASCADE").Error
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func startContainer(ctx context.Context, t testing.TB) (dsn string, err error) {
	//dockerが無い環境ではpanicすることがある
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("testcontainers: %v", r)
		}
	}()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "stockroom_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=stockroom_test sslmode=disable",
		host, port.Port()), nil
}
