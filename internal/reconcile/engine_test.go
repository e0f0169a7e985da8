package reconcile

import (
	"testing"

	"inventory-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestEngine opens a fresh in-memory database per test. The pool is pinned
// to a single connection so every transaction sees the same sqlite instance.
func newTestEngine(t *testing.T, policy StockPolicy) (*Engine, *gorm.DB) {
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

	return NewEngine(db, policy, zap.NewNop()), db
}

func createProduct(t *testing.T, db *gorm.DB, sku string, stock int) uint {
	t.Helper()
	product := model.Product{Name: "Product " + sku, SKU: sku, StockQuantity: stock}
	require.NoError(t, db.Create(&product).Error)
	return product.ID
}

func productStock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var product model.Product
	require.NoError(t, db.First(&product, id).Error)
	return product.StockQuantity
}

func TestPurchaseTransitionSign(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
		want     int
	}{
		{model.StatusPending, model.StatusPending, 0},
		{model.StatusReceived, model.StatusReceived, 0},
		{model.StatusCancelled, model.StatusCancelled, 0},
		{model.StatusPending, model.StatusReceived, 1},
		{model.StatusReceived, model.StatusPending, -1},
		{model.StatusPending, model.StatusCancelled, -1},
		{model.StatusReceived, model.StatusCancelled, -1},
		{model.StatusCancelled, model.StatusPending, 1},
		{model.StatusCancelled, model.StatusReceived, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, purchaseTransitionSign(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestSaleTransitionSign(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
		want     int
	}{
		{model.StatusPending, model.StatusPending, 0},
		{model.StatusPending, model.StatusShipped, 0},
		{model.StatusShipped, model.StatusDelivered, 0},
		{model.StatusPending, model.StatusCancelled, 1},
		{model.StatusShipped, model.StatusCancelled, 1},
		{model.StatusCancelled, model.StatusPending, -1},
		{model.StatusCancelled, model.StatusShipped, -1},
		{model.StatusCancelled, model.StatusCancelled, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, saleTransitionSign(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestDiffQuantities(t *testing.T) {
	oldQ := map[uint]int{1: 10, 2: 3, 3: 7}
	newQ := map[uint]int{1: 15, 3: 7, 4: 2}

	deltas := diffQuantities(oldQ, newQ)

	assert.Equal(t, 5, deltas[1], "matched product moves by the net change")
	assert.Equal(t, -3, deltas[2], "removed product reverses its full quantity")
	assert.Equal(t, 0, deltas[3], "unchanged product moves nothing")
	assert.Equal(t, 2, deltas[4], "added product moves its full quantity")
	assert.Len(t, deltas, 4)
}

func TestParsePolicy(t *testing.T) {
	for _, valid := range []string{"allow", "clamp", "reject"} {
		policy, err := ParsePolicy(valid)
		require.NoError(t, err)
		assert.Equal(t, StockPolicy(valid), policy)
	}

	policy, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAllow, policy)

	_, err = ParsePolicy("explode")
	assert.Error(t, err)
}

func TestApplyStockDeltaMissingProduct(t *testing.T) {
	engine, db := newTestEngine(t, PolicyAllow)

	err := engine.applyStockDelta(db, kindPurchase, 404, 5)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
