package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"inventory-service/internal/model"
	"inventory-service/internal/reconcile"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newOrderTestServer(t *testing.T) (*OrderHandler, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Product{},
		&model.PurchaseOrder{},
		&model.PurchaseOrderLine{},
		&model.SaleOrder{},
		&model.SaleOrderLine{},
	))

	engine := reconcile.NewEngine(db, reconcile.PolicyAllow, zap.NewNop())
	return NewOrderHandler(engine), db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) uint {
	t.Helper()
	product := model.Product{Name: "Widget", SKU: "WID-1", StockQuantity: stock}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestCreatePurchaseOrderEndpoint(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 0)

	e := echo.New()
	body := `{"supplier_id":1,"order_date":"2026-03-14T00:00:00Z","total_amount":50,"status":"received","lines":[{"product_id":` +
		jsonUint(productID) + `,"quantity":10,"unit_price":5}]}`
	req, rec := jsonRequest(http.MethodPost, "/api/purchase-orders", body)
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreatePurchaseOrder(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var order model.PurchaseOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.NotZero(t, order.ID)
	assert.Equal(t, model.StatusReceived, order.Status)
	require.Len(t, order.Lines, 1)

	var product model.Product
	require.NoError(t, db.First(&product, productID).Error)
	assert.Equal(t, 10, product.StockQuantity)
}

func TestCreatePurchaseOrderRejectsInvalidLines(t *testing.T) {
	h, _ := newOrderTestServer(t)

	e := echo.New()
	body := `{"supplier_id":1,"status":"pending","lines":[{"product_id":1,"quantity":0,"unit_price":5}]}`
	req, rec := jsonRequest(http.MethodPost, "/api/purchase-orders", body)
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreatePurchaseOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity")
}

func TestCreatePurchaseOrderRejectsDuplicateProductLines(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 0)

	e := echo.New()
	id := jsonUint(productID)
	body := `{"supplier_id":1,"status":"received","lines":[` +
		`{"product_id":` + id + `,"quantity":2,"unit_price":5},` +
		`{"product_id":` + id + `,"quantity":3,"unit_price":5}]}`
	req, rec := jsonRequest(http.MethodPost, "/api/purchase-orders", body)
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreatePurchaseOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate product_id")

	var orders int64
	require.NoError(t, db.Model(&model.PurchaseOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestCreatePurchaseOrderMissingProduct(t *testing.T) {
	h, _ := newOrderTestServer(t)

	e := echo.New()
	body := `{"supplier_id":1,"status":"received","lines":[{"product_id":9999,"quantity":2,"unit_price":5}]}`
	req, rec := jsonRequest(http.MethodPost, "/api/purchase-orders", body)
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreatePurchaseOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "product")
}

func TestUpdatePurchaseOrderEndpoint(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 0)

	order := model.PurchaseOrder{SupplierID: 1, Status: model.StatusPending, TotalAmount: 50}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&model.PurchaseOrderLine{
		PurchaseOrderID: order.ID, ProductID: productID, Quantity: 10, UnitPrice: 5,
	}).Error)

	e := echo.New()
	body := `{"supplier_id":1,"order_date":"2026-03-14T00:00:00Z","total_amount":50,"status":"received"}`
	req, rec := jsonRequest(http.MethodPut, "/api/purchase-orders/:id", body)
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(jsonUint(order.ID))

	require.NoError(t, h.UpdatePurchaseOrder(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	var product model.Product
	require.NoError(t, db.First(&product, productID).Error)
	assert.Equal(t, 10, product.StockQuantity)
}

func TestDeletePurchaseOrderNotFound(t *testing.T) {
	h, _ := newOrderTestServer(t)

	e := echo.New()
	req, rec := jsonRequest(http.MethodDelete, "/api/purchase-orders/:id", "")
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("777")

	require.NoError(t, h.DeletePurchaseOrder(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Order not found"}`, rec.Body.String())
}

func TestDeletePurchaseOrderInvalidID(t *testing.T) {
	h, _ := newOrderTestServer(t)

	e := echo.New()
	req, rec := jsonRequest(http.MethodDelete, "/api/purchase-orders/:id", "")
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.DeletePurchaseOrder(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkDeletePurchaseOrdersEndpoint(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 0)

	var ids []string
	for i := 0; i < 2; i++ {
		order := model.PurchaseOrder{SupplierID: 1, Status: model.StatusReceived, TotalAmount: 15}
		require.NoError(t, db.Create(&order).Error)
		require.NoError(t, db.Create(&model.PurchaseOrderLine{
			PurchaseOrderID: order.ID, ProductID: productID, Quantity: 3, UnitPrice: 5,
		}).Error)
		require.NoError(t, db.Model(&model.Product{}).Where("id = ?", productID).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", 3)).Error)
		ids = append(ids, jsonUint(order.ID))
	}

	e := echo.New()
	body := `{"ids":[` + strings.Join(ids, ",") + `]}`
	req, rec := jsonRequest(http.MethodPost, "/api/purchase-orders/bulk-delete", body)
	c := e.NewContext(req, rec)

	require.NoError(t, h.DeletePurchaseOrders(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	var product model.Product
	require.NoError(t, db.First(&product, productID).Error)
	assert.Equal(t, 0, product.StockQuantity)

	var remaining int64
	require.NoError(t, db.Model(&model.PurchaseOrder{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestCreateSaleOrderEndpoint(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 10)

	e := echo.New()
	body := `{"customer_id":1,"order_date":"2026-03-15T00:00:00Z","total_amount":32,"status":"pending","lines":[{"product_id":` +
		jsonUint(productID) + `,"quantity":4,"unit_price":8}]}`
	req, rec := jsonRequest(http.MethodPost, "/api/sale-orders", body)
	c := e.NewContext(req, rec)

	require.NoError(t, h.CreateSaleOrder(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var product model.Product
	require.NoError(t, db.First(&product, productID).Error)
	assert.Equal(t, 6, product.StockQuantity)
}

func TestListSaleOrdersEndpoint(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 10)

	order := model.SaleOrder{CustomerID: 1, Status: model.StatusPending, TotalAmount: 16}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&model.SaleOrderLine{
		SaleOrderID: order.ID, ProductID: productID, Quantity: 2, UnitPrice: 8,
	}).Error)

	e := echo.New()
	req, rec := jsonRequest(http.MethodGet, "/api/sale-orders", "")
	c := e.NewContext(req, rec)

	require.NoError(t, h.ListSaleOrders(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var orders []model.SaleOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Lines, 1)
	assert.Equal(t, productID, orders[0].Lines[0].ProductID)
}

func TestDeleteSaleOrderEndpointRestoresStock(t *testing.T) {
	h, db := newOrderTestServer(t)
	productID := seedProduct(t, db, 6)

	order := model.SaleOrder{CustomerID: 1, Status: model.StatusPending, TotalAmount: 32}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&model.SaleOrderLine{
		SaleOrderID: order.ID, ProductID: productID, Quantity: 4, UnitPrice: 8,
	}).Error)

	e := echo.New()
	req, rec := jsonRequest(http.MethodDelete, "/api/sale-orders/:id", "")
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(jsonUint(order.ID))

	require.NoError(t, h.DeleteSaleOrder(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	var product model.Product
	require.NoError(t, db.First(&product, productID).Error)
	assert.Equal(t, 10, product.StockQuantity)
}

func jsonUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
