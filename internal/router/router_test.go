package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dujiao-next/foodcart/internal/config"
	"github.com/dujiao-next/foodcart/internal/constants"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
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
	restaurant := models.Restaurant{Name: "Router Kitchen", Latitude: 9.04, Longitude: 38.7, Status: constants.RestaurantStatusOpen, IsActive: true}
	if err := db.Create(&restaurant).Error; err != nil {
		t.Fatalf("create restaurant failed: %v", err)
	}

	prevDB := models.DB
	models.DB = db
	cfg := config.Default()
	cfg.Cart.Store = constants.CartStoreMemory
	cfg.UserJWT.SecretKey = "router-test-secret"
	c := provider.NewContainer(cfg)
	t.Cleanup(func() {
		_ = c.Close(context.Background())
		models.DB = prevDB
		_ = sqlDB.Close()
	})
	return SetupRouter(cfg, c), c
}

func serve(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouterHealth(t *testing.T) {
	r, _ := setupTestRouter(t)
	w := serve(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"ok"`)) {
		t.Fatalf("health unexpected: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("request id header should be set")
	}
}

func TestSetupRouterGuestCart(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := serve(r, http.MethodGet, "/api/v1/guest/cart", "", nil)
	session := w.Header().Get(GuestSessionHeader)
	if session == "" {
		t.Fatalf("guest session should be generated")
	}

	body := `{"product":{"product_id":1,"product_name":"Tibs","price":"80"},"restaurant":{"id":1}}`
	w = serve(r, http.MethodPost, "/api/v1/guest/cart/items", body, map[string]string{GuestSessionHeader: session})
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 0 {
		t.Fatalf("guest add status_code want 0 got %d: %s", code, w.Body.String())
	}
	if w.Header().Get(GuestSessionHeader) != session {
		t.Fatalf("guest session should be echoed back")
	}

	w = serve(r, http.MethodGet, "/api/v1/guest/cart", "", map[string]string{GuestSessionHeader: session})
	var resp struct {
		Data struct {
			ItemCount int `json:"item_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.Data.ItemCount != 1 {
		t.Fatalf("guest cart item_count want 1 got %d", resp.Data.ItemCount)
	}
}

func TestSetupRouterUserCart(t *testing.T) {
	r, c := setupTestRouter(t)

	w := serve(r, http.MethodGet, "/api/v1/cart", "", nil)
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 401 {
		t.Fatalf("anonymous user cart status_code want 401 got %d", code)
	}

	token, _, err := c.UserTokenService.GenerateUserJWT(5, 1)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}
	body := `{"product":{"product_id":3,"product_name":"Shiro","price":45},"restaurant":{"restaurant_id":1}}`
	w = serve(r, http.MethodPost, "/api/v1/cart/items", body, auth)
	if code := decodeStatusCode(t, w.Body.Bytes()); code != 0 {
		t.Fatalf("user add status_code want 0 got %d: %s", code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/api/v1/cart/groups", "", auth)
	var resp struct {
		Data struct {
			RestaurantCount int `json:"restaurant_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.Data.RestaurantCount != 1 {
		t.Fatalf("restaurant_count want 1 got %d", resp.Data.RestaurantCount)
	}
}

func TestSetupRouterFeeQuote(t *testing.T) {
	r, _ := setupTestRouter(t)
	body := `{"restaurant_id":1,"delivery_latitude":9.05,"delivery_longitude":38.7}`
	w := serve(r, http.MethodPost, "/api/v1/public/calculate-delivery-fee/", body, nil)
	var resp struct {
		StatusCode int `json:"status_code"`
		Data       struct {
			DeliveryFee string `json:"delivery_fee"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 0 || resp.Data.DeliveryFee != "20.00" {
		t.Fatalf("fee quote unexpected: %s", w.Body.String())
	}
}
