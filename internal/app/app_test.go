package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeService struct {
	name     string
	startErr error

	mu      sync.Mutex
	stopped bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeService) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func TestRunnerStopsAllServicesOnCancel(t *testing.T) {
	a := &fakeService{name: "a"}
	b := &fakeService{name: "b"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(a, b).Run(ctx, time.Second, nil)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled run should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
	if !a.isStopped() || !b.isStopped() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerReturnsStartError(t *testing.T) {
	boom := errors.New("listen failed")
	failing := &fakeService{name: "http", startErr: boom}
	other := &fakeService{name: "cart"}

	err := NewRunner(failing, other).Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("want start error, got %v", err)
	}
	if !other.isStopped() {
		t.Fatalf("remaining services should be stopped after a start failure")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("empty runner should fail")
	}
}

func setupAppDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Restaurant{}, &models.Setting{}, &models.CartSnapshot{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	prevDB := models.DB
	models.DB = db
	t.Cleanup(func() {
		models.DB = prevDB
		_ = sqlDB.Close()
	})
}

func testAppConfig() *config.Config {
	cfg := config.Default()
	cfg.Cart.Store = constants.CartStoreMemory
	cfg.Queue.Enabled = false
	cfg.Redis.Enabled = false
	return cfg
}

func TestBuildRunnerModes(t *testing.T) {
	setupAppDB(t)

	runner, err := BuildRunner(testAppConfig(), ModeAll)
	if err != nil {
		t.Fatalf("build all mode failed: %v", err)
	}
	if len(runner.services) != 2 {
		t.Fatalf("all mode without queue want http+cart got %d services", len(runner.services))
	}
	if runner.services[0].Name() != "http" || runner.services[1].Name() != "cart" {
		t.Fatalf("service order unexpected: %s, %s", runner.services[0].Name(), runner.services[1].Name())
	}
	_ = runner.services[1].Stop(context.Background())

	runner, err = BuildRunner(testAppConfig(), ModeAPI)
	if err != nil {
		t.Fatalf("build api mode failed: %v", err)
	}
	_ = runner.services[len(runner.services)-1].Stop(context.Background())

	if _, err := BuildRunner(testAppConfig(), "unknown"); err == nil {
		t.Fatalf("unknown mode should fail")
	}
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
}

func TestCartServiceLifecycle(t *testing.T) {
	setupAppDB(t)
	runner, err := BuildRunner(testAppConfig(), ModeAPI)
	if err != nil {
		t.Fatalf("build runner failed: %v", err)
	}
	svc, ok := runner.services[len(runner.services)-1].(*CartService)
	if !ok {
		t.Fatalf("last service should be the cart service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cart service start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cart service did not return after cancel")
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("cart service stop failed: %v", err)
	}

	var empty *CartService
	if empty.Name() != "cart" || empty.Stop(context.Background()) != nil {
		t.Fatalf("nil cart service should be inert")
	}
	if err := empty.Start(context.Background()); err == nil {
		t.Fatalf("nil cart service start should fail")
	}
}
