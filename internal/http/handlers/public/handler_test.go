package public

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
	handlershared "github.com/dujiao-next/foodcart/internal/http/handlers/shared"
	"github.com/dujiao-next/foodcart/internal/models"
	"github.com/dujiao-next/foodcart/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

// 配送地址 (9.05, 38.7)：近店约 1.11km，远店约 5.56km
var (
	testNearRestaurant = models.Restaurant{Name: "Near Kitchen", Address: "Bole Road", Phone: "0911000001", Latitude: 9.04, Longitude: 38.7, Status: constants.RestaurantStatusOpen, IsActive: true}
	testFarRestaurant  = models.Restaurant{Name: "Far Grill", Address: "Piassa", Phone: "0911000002", Latitude: 9.0, Longitude: 38.7, Status: constants.RestaurantStatusOpen, IsActive: true}
	testShutRestaurant = models.Restaurant{Name: "Shut Cafe", Latitude: 9.05, Longitude: 38.71, Status: constants.RestaurantStatusClosed, IsActive: true}
)

type handlerFixture struct {
	handler     *Handler
	restaurants []models.Restaurant
}

func newHandlerFixture(t *testing.T) *handlerFixture {
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

	restaurants := []models.Restaurant{testNearRestaurant, testFarRestaurant, testShutRestaurant}
	for i := range restaurants {
		if err := db.Create(&restaurants[i]).Error; err != nil {
			t.Fatalf("create restaurant failed: %v", err)
		}
	}

	prevDB := models.DB
	models.DB = db
	cfg := config.Default()
	cfg.Cart.Store = constants.CartStoreMemory
	cfg.Cart.QuoteTimeoutSeconds = 5
	container := provider.NewContainer(cfg)

	t.Cleanup(func() {
		_ = container.Close(context.Background())
		models.DB = prevDB
		_ = sqlDB.Close()
	})
	return &handlerFixture{handler: New(container), restaurants: restaurants}
}

// cartRouter 构造购物车路由；userID 非 0 时模拟已登录用户
func (f *handlerFixture) cartRouter(scope cartScope, userID uint, session string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != 0 {
			c.Set(handlershared.ContextKeyUserID, userID)
		}
		if session != "" {
			c.Set(handlershared.ContextKeyGuestSession, session)
		}
		c.Next()
	})
	h := f.handler.UserCart()
	if scope == cartScopeGuest {
		h = f.handler.GuestCart()
	}
	r.GET("/cart", h.GetCart)
	r.DELETE("/cart", h.ClearCart)
	r.POST("/cart/items", h.AddItem)
	r.PATCH("/cart/items/:item_id", h.UpdateItem)
	r.DELETE("/cart/items/:item_id", h.RemoveItem)
	r.PUT("/cart/location", h.SetDeliveryLocation)
	r.PUT("/cart/delivery-fee", h.SetDeliveryFee)
	r.PUT("/cart/discount", h.SetDiscount)
	r.POST("/cart/promo", h.ApplyPromoCode)
	r.DELETE("/cart/promo", h.RemovePromoCode)
	r.GET("/cart/groups", h.GetGroups)
	r.GET("/cart/fee-breakdown", h.GetFeeBreakdown)
	r.POST("/cart/settings/refresh", h.RefreshSettings)
	return r
}

func (f *handlerFixture) publicRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/public/calculate-delivery-fee/", f.handler.CalculateDeliveryFee)
	r.POST("/public/calculate-multi-restaurant-delivery-fee/", f.handler.CalculateMultiDeliveryFee)
	r.GET("/public/app-settings/public/", f.handler.GetPublicSettings)
	r.GET("/public/restaurants", f.handler.GetRestaurants)
	r.GET("/public/restaurants/:id", f.handler.GetRestaurant)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func decodeData(t *testing.T, resp apiResponse, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		t.Fatalf("unmarshal data failed: %v data=%s", err, string(resp.Data))
	}
}

func addItemBody(productID uint, name, price string, restaurantID uint) gin.H {
	return gin.H{
		"product":    gin.H{"product_id": productID, "product_name": name, "price": price},
		"restaurant": gin.H{"id": restaurantID},
	}
}
