package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/steamybites/board"
	"github.com/yeremiapane/steamybites/config"
	"github.com/yeremiapane/steamybites/models"
	"github.com/yeremiapane/steamybites/router"
	"github.com/yeremiapane/steamybites/services"
)

// envelope holds the decoded status/message fields, when present, and the raw body.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Body    json.RawMessage `json:"-"`
}

type testApp struct {
	t         *testing.T
	db        *gorm.DB
	router    *gin.Engine
	uploadDir string
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithHub(t, board.NewHub())
}

func setupAppWithHub(t *testing.T, hub *board.Hub) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.AutoMigrate(db))

	uploadDir := t.TempDir()
	r := router.SetupRouter(db, router.Options{
		UploadDir:      uploadDir,
		AuthRatePerMin: 1000,
		BcryptCost:     bcrypt.MinCost,
		Hub:            hub,
	})
	return &testApp{t: t, db: db, router: r, uploadDir: uploadDir}
}

func (a *testApp) do(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(req)
}

func (a *testApp) serve(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		env.Body = append(json.RawMessage(nil), w.Body.Bytes()...)
		if bytes.HasPrefix(bytes.TrimSpace(env.Body), []byte("{")) {
			require.NoError(a.t, json.Unmarshal(env.Body, &env))
		}
	}
	return w, env
}

func (a *testApp) user(email, role string) string {
	a.t.Helper()
	auth := services.NewAuthService(a.db).WithCost(bcrypt.MinCost)
	_, err := auth.Register(context.Background(), services.RegisterInput{Name: "User " + role, Email: email, Password: "secret123"}, role)
	require.NoError(a.t, err)

	path := "/api/auth/login"
	if role == models.RoleAdmin {
		path = "/api/auth/admin/login"
	}
	w, env := a.do(http.MethodPost, path, gin.H{"email": email, "password": "secret123"}, "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var session services.Session
	require.NoError(a.t, json.Unmarshal(env.Body, &session))
	return session.Token
}

func (a *testApp) menuItem(token, name, category string, full, half string) models.MenuItem {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/admin/menu", gin.H{
		"name":      name,
		"category":  category,
		"priceFull": full,
		"priceHalf": half,
	}, token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var item models.MenuItem
	require.NoError(a.t, json.Unmarshal(env.Body, &item))
	return item
}

func TestHealth(t *testing.T) {
	app := setupApp(t)
	w, _ := app.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Server is healthy and running.", w.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	body := gin.H{"name": "Asha", "email": "asha@example.com", "password": "secret123"}
	w, env := app.do(http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, string(env.Body), "secret123")
	assert.NotContains(t, string(env.Body), "password")
	var registered services.Session
	require.NoError(t, json.Unmarshal(env.Body, &registered))
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "Asha", registered.UserName)
	assert.Equal(t, models.RoleCustomer, registered.UserRole)

	w, env = app.do(http.MethodPost, "/api/auth/register", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User with this email already exists", env.Message)
	assert.False(t, env.Status)

	w, env = app.do(http.MethodPost, "/api/auth/login", gin.H{"email": "asha@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var session services.Session
	require.NoError(t, json.Unmarshal(env.Body, &session))
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "Asha", session.UserName)
	assert.Equal(t, models.RoleCustomer, session.UserRole)

	w, env = app.do(http.MethodPost, "/api/auth/login", gin.H{"email": "asha@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid credentials", env.Message)
}

func TestAdminLoginWithCustomerCredentials(t *testing.T) {
	app := setupApp(t)
	app.user("customer@example.com", models.RoleCustomer)

	w, env := app.do(http.MethodPost, "/api/auth/admin/login", gin.H{"email": "customer@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Admin not found", env.Message)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app := setupApp(t)
	customer := app.user("customer@example.com", models.RoleCustomer)
	admin := app.user("admin@example.com", models.RoleAdmin)

	w, _ := app.do(http.MethodGet, "/api/admin/orders", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = app.do(http.MethodGet, "/api/admin/orders", nil, customer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(http.MethodGet, "/api/admin/orders", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := app.do(http.MethodPost, "/api/admin/register", gin.H{"name": "Second", "email": "second@example.com", "password": "secret123"}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	var second models.User
	require.NoError(t, json.Unmarshal(env.Body, &second))
	assert.Equal(t, models.RoleAdmin, second.Role)
	assert.NotContains(t, string(env.Body), "secret123")

	w, _ = app.do(http.MethodPost, "/api/auth/admin/login", gin.H{"email": "second@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMenuCreateReorderAndList(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)

	a := app.menuItem(admin, "Veg Momos", "Momos", "120", "70")
	b := app.menuItem(admin, "Paneer Momos", "Momos", "150", "")
	c := app.menuItem(admin, "Chicken Momos", "Momos", "180", "")
	require.NotNil(t, a.Price.Half)
	assert.Nil(t, b.Price.Half)
	assert.Equal(t, 2, c.Position)

	w, env := app.do(http.MethodPatch, "/api/admin/menu/reorder", gin.H{
		"category":   "Momos",
		"orderedIds": []uint{c.ID, a.ID, b.ID},
	}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"updated":3}`, string(env.Data))

	w, env = app.do(http.MethodGet, "/api/menu", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sections []models.MenuSection
	require.NoError(t, json.Unmarshal(env.Body, &sections))
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Items, 3)
	assert.Equal(t, "Chicken Momos", sections[0].Items[0].Name)
	assert.Equal(t, 0, sections[0].Items[0].Position)
	assert.Equal(t, "Veg Momos", sections[0].Items[1].Name)
	assert.Equal(t, 1, sections[0].Items[1].Position)
	assert.Equal(t, "Paneer Momos", sections[0].Items[2].Name)
	assert.Equal(t, 2, sections[0].Items[2].Position)

	w, env = app.do(http.MethodGet, "/api/menu?view=flat", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var flat []models.MenuItem
	require.NoError(t, json.Unmarshal(env.Body, &flat))
	assert.Len(t, flat, 3)
}

func TestMenuCreateValidationAndNestedPrice(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)

	w, _ := app.do(http.MethodPost, "/api/admin/menu", gin.H{"name": "No Price"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(http.MethodPost, "/api/admin/menu", gin.H{"name": "Bad", "priceFull": "abc"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, raw := range []string{"Infinity", "Inf", "NaN", "-Inf"} {
		w, _ = app.do(http.MethodPost, "/api/admin/menu", gin.H{"name": "Endless " + raw, "priceFull": raw}, admin)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
	w, _ = app.do(http.MethodPost, "/api/admin/menu", gin.H{"name": "Odd Half", "priceFull": "10", "priceHalf": "Inf"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := app.do(http.MethodPost, "/api/admin/menu", gin.H{
		"name":  "Thali",
		"price": gin.H{"full": 250, "half": 140},
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.MenuItem
	require.NoError(t, json.Unmarshal(env.Body, &item))
	assert.Equal(t, 250.0, item.Price.Full)
	require.NotNil(t, item.Price.Half)
	assert.Equal(t, 140.0, *item.Price.Half)
	assert.Equal(t, models.DefaultCategory, item.Category)

	w, env = app.do(http.MethodPatch, fmt.Sprintf("/api/admin/menu/%d", item.ID), gin.H{"priceHalf": ""}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Body, &item))
	assert.Nil(t, item.Price.Half)

	w, _ = app.do(http.MethodDelete, fmt.Sprintf("/api/admin/menu/%d", item.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = app.do(http.MethodDelete, fmt.Sprintf("/api/admin/menu/%d", item.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMenuCreateMultipartWithImage(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Samosa"))
	require.NoError(t, mw.WriteField("category", "Snacks"))
	require.NoError(t, mw.WriteField("priceFull", "20"))
	require.NoError(t, mw.WriteField("priceHalf", ""))
	fw, err := mw.CreateFormFile("image", "samosa.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/menu", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w, env := app.serve(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var item models.MenuItem
	require.NoError(t, json.Unmarshal(env.Body, &item))
	assert.Equal(t, 20.0, item.Price.Full)
	assert.Nil(t, item.Price.Half)
	require.True(t, strings.HasPrefix(item.ImageUrl, "/uploads/menu_images/"), item.ImageUrl)

	stored := filepath.Join(app.uploadDir, "menu_images", strings.TrimPrefix(item.ImageUrl, "/uploads/menu_images/"))
	_, err = os.Stat(stored)
	assert.NoError(t, err)

	w, _ = app.do(http.MethodGet, item.ImageUrl, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategoryReorder(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)
	app.menuItem(admin, "Tea", "Drinks", "20", "")
	app.menuItem(admin, "Samosa", "Snacks", "15", "")

	w, _ := app.do(http.MethodPatch, "/api/admin/categories/reorder", gin.H{"orderedCategoryNames": []string{"Snacks", "Drinks"}}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := app.do(http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var cats []models.Category
	require.NoError(t, json.Unmarshal(env.Body, &cats))
	require.Len(t, cats, 2)
	assert.Equal(t, "Snacks", cats[0].Name)
	assert.Equal(t, 0, cats[0].Position)
	assert.Equal(t, "Drinks", cats[1].Name)
	assert.Equal(t, 1, cats[1].Position)
}

func TestCSVUpload(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)
	app.menuItem(admin, "Veg Momos", "Momos", "100", "")

	csvData := "Item,Category,Item Price,Half,Full\n" +
		"Veg Momos,Momos,,60,110\n" +
		"Broken,Momos,,,abc\n" +
		"Fried Momos,Momos,130,,\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("csvFile", "menu.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/menu/upload-csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w, env := app.serve(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result services.ImportResult
	require.NoError(t, json.Unmarshal(env.Body, &result))
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Contains(t, env.Message, "1 items created")

	req = httptest.NewRequest(http.MethodPost, "/api/admin/menu/upload-csv", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	w, _ = app.serve(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCouponValidateAndAdmin(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)

	w, env := app.do(http.MethodPost, "/api/admin/coupons", gin.H{
		"code":          "save20",
		"description":   "20% off",
		"discountType":  "percentage",
		"discountValue": 20,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var coupon models.Coupon
	require.NoError(t, json.Unmarshal(env.Body, &coupon))
	assert.Equal(t, "SAVE20", coupon.Code)
	assert.True(t, coupon.IsActive)

	w, env = app.do(http.MethodPost, "/api/coupons/validate", gin.H{"code": "save20", "cartTotal": 500}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"coupon": {"code": "SAVE20", "description": "20% off", "discountType": "percentage", "discountValue": 20},
		"discountAmount": 100,
		"finalTotal": 400
	}`, string(env.Body))

	w, env = app.do(http.MethodPost, "/api/coupons/validate", gin.H{"code": "NOPE", "cartTotal": 500}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Coupon not found or is inactive", env.Message)

	w, _ = app.do(http.MethodPatch, fmt.Sprintf("/api/admin/coupons/%d", coupon.ID), gin.H{"isActive": false}, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(http.MethodPost, "/api/coupons/validate", gin.H{"code": "SAVE20", "cartTotal": 500}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = app.do(http.MethodGet, "/api/coupons", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Body))
}

func placeOrder(t *testing.T, app *testApp, token string, item models.MenuItem) models.Order {
	t.Helper()
	w, env := app.do(http.MethodPost, "/api/orders", gin.H{
		"customerName": "Asha",
		"address":      "12 Park Street",
		"items":        []gin.H{{"menuItemId": item.ID, "quantity": 2, "variant": "full", "priceAtOrder": 1}},
		"totalPrice":   2,
		"finalPrice":   2,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(env.Body, &order))
	return order
}

func TestOrderLifecycle(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)
	customer := app.user("customer@example.com", models.RoleCustomer)
	item := app.menuItem(admin, "Thali", "Mains", "250", "")

	order := placeOrder(t, app, customer, item)
	assert.Equal(t, models.OrderReceived, order.Status)
	assert.False(t, order.IsAcknowledged)
	assert.Equal(t, 500.0, order.TotalPrice)
	assert.Equal(t, 500.0, order.FinalPrice)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 250.0, order.Items[0].PriceAtOrder)

	statusPath := fmt.Sprintf("/api/admin/orders/%d/status", order.ID)

	w, _ := app.do(http.MethodPatch, statusPath, gin.H{"status": models.OrderPreparing}, customer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(http.MethodPatch, statusPath, gin.H{"status": models.OrderDelivered}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(http.MethodPatch, statusPath, gin.H{"status": "Cooking"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := app.do(http.MethodPatch, statusPath, gin.H{"status": models.OrderPreparing}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Order
	require.NoError(t, json.Unmarshal(env.Body, &updated))
	assert.Equal(t, models.OrderPreparing, updated.Status)
	assert.True(t, updated.IsAcknowledged)

	w, _ = app.do(http.MethodPatch, fmt.Sprintf("/api/admin/orders/%d", order.ID), gin.H{"status": models.OrderReady}, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(http.MethodPatch, statusPath, gin.H{"status": models.OrderRejected}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(http.MethodPatch, "/api/admin/orders/9999/status", gin.H{"status": models.OrderPreparing}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = app.do(http.MethodGet, "/api/my-orders", nil, customer)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Order
	require.NoError(t, json.Unmarshal(env.Body, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, models.OrderReady, mine[0].Status)
}

func TestOrderRejectAndAcknowledge(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)
	customer := app.user("customer@example.com", models.RoleCustomer)
	item := app.menuItem(admin, "Thali", "Mains", "250", "")

	first := placeOrder(t, app, customer, item)
	second := placeOrder(t, app, customer, item)

	w, env := app.do(http.MethodPatch, fmt.Sprintf("/api/admin/orders/%d/acknowledge", first.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var acked models.Order
	require.NoError(t, json.Unmarshal(env.Body, &acked))
	assert.True(t, acked.IsAcknowledged)
	assert.Equal(t, models.OrderReceived, acked.Status)

	w, _ = app.do(http.MethodPatch, fmt.Sprintf("/api/admin/orders/%d/status", second.ID), gin.H{"status": models.OrderRejected}, admin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckoutWithCouponUsesServerPricing(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)
	customer := app.user("customer@example.com", models.RoleCustomer)
	item := app.menuItem(admin, "Biryani", "Mains", "300", "180")

	w, _ := app.do(http.MethodPost, "/api/admin/coupons", gin.H{"code": "FLAT500", "discountType": "fixed", "discountValue": 500}, admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := app.do(http.MethodPost, "/api/orders", gin.H{
		"customerName":  "Asha",
		"address":       "12 Park Street",
		"items":         []gin.H{{"menuItemId": item.ID, "quantity": 1, "variant": "half"}},
		"appliedCoupon": gin.H{"code": "flat500"},
	}, customer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(env.Body, &order))
	assert.Equal(t, 180.0, order.TotalPrice)
	assert.Equal(t, 0.0, order.FinalPrice)
	require.NotNil(t, order.AppliedCoupon)
	assert.Equal(t, "FLAT500", order.AppliedCoupon.Code)

	w, _ = app.do(http.MethodPost, "/api/orders", gin.H{"customerName": "Asha", "address": "x", "items": []gin.H{}}, customer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(http.MethodPost, "/api/orders", gin.H{"customerName": "Asha", "address": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComplaints(t *testing.T) {
	app := setupApp(t)
	admin := app.user("admin@example.com", models.RoleAdmin)
	customer := app.user("customer@example.com", models.RoleCustomer)
	other := app.user("other@example.com", models.RoleCustomer)
	item := app.menuItem(admin, "Thali", "Mains", "250", "")
	order := placeOrder(t, app, customer, item)

	w, _ := app.do(http.MethodPost, "/api/complaints", gin.H{"orderId": order.ID, "message": "cold"}, other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := app.do(http.MethodPost, "/api/complaints", gin.H{"orderId": order.ID, "message": "cold"}, customer)
	require.Equal(t, http.StatusCreated, w.Code)
	var complaint models.Complaint
	require.NoError(t, json.Unmarshal(env.Body, &complaint))
	assert.Equal(t, models.ComplaintPending, complaint.Status)

	w, env = app.do(http.MethodGet, "/api/my-complaints", nil, customer)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Complaint
	require.NoError(t, json.Unmarshal(env.Body, &mine))
	assert.Len(t, mine, 1)

	path := fmt.Sprintf("/api/admin/complaints/%d", complaint.ID)
	w, _ = app.do(http.MethodPatch, path, gin.H{"status": "Closed"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(http.MethodPatch, path, gin.H{"status": models.ComplaintResolved}, admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = app.do(http.MethodGet, "/api/admin/complaints", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Complaint
	require.NoError(t, json.Unmarshal(env.Body, &all))
	require.Len(t, all, 1)
	assert.Equal(t, models.ComplaintResolved, all[0].Status)
}

func TestOrderBoardReceivesNewOrders(t *testing.T) {
	hub := board.NewHub()
	app := setupAppWithHub(t, hub)
	admin := app.user("admin@example.com", models.RoleAdmin)
	customer := app.user("customer@example.com", models.RoleCustomer)
	item := app.menuItem(admin, "Thali", "Mains", "250", "")

	srv := httptest.NewServer(app.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/orders/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(base+customer, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+admin, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	order := placeOrder(t, app, customer, item)

	var msg struct {
		Event string       `json:"event"`
		Data  models.Order `json:"data"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, board.EventOrderCreated, msg.Event)
	assert.Equal(t, order.ID, msg.Data.ID)
	assert.Equal(t, models.OrderReceived, msg.Data.Status)
}
