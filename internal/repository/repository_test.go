package repository

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createProduct(t *testing.T, repo *GormProductRepository, name, price string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: models.MustParseMoney(price)}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createUser(t *testing.T, db *gorm.DB, id, email, username string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: email, Username: username, PasswordHash: "x", Role: constants.RoleCustomer}
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func TestProductListSearchAndSoftDelete(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewProductRepository(db)
	pen := createProduct(t, repo, "Blue Pen", "1.50")
	createProduct(t, repo, "Notebook", "4.00")

	products, total, err := repo.List(ProductListFilter{Search: "pen"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(products) != 1 || products[0].ID != pen.ID {
		t.Fatalf("search want pen only, got total=%d %+v", total, products)
	}

	affected, err := repo.Delete(pen.ID)
	if err != nil || affected != 1 {
		t.Fatalf("delete failed: affected=%d err=%v", affected, err)
	}
	got, err := repo.GetByID(pen.ID)
	if err != nil || got != nil {
		t.Fatalf("deleted product should be hidden, got %+v err=%v", got, err)
	}
	got, err = repo.GetByIDUnscoped(pen.ID)
	if err != nil || got == nil || got.Name != "Blue Pen" {
		t.Fatalf("unscoped lookup should find deleted product, got %+v err=%v", got, err)
	}
	products, total, err = repo.List(ProductListFilter{})
	if err != nil || total != 1 || len(products) != 1 {
		t.Fatalf("list after delete want 1, got total=%d err=%v", total, err)
	}
}

func TestProductListPagination(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewProductRepository(db)
	for i := 0; i < 5; i++ {
		createProduct(t, repo, fmt.Sprintf("P%d", i), "1")
	}
	products, total, err := repo.List(ProductListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 || len(products) != 2 || products[0].Name != "P2" {
		t.Fatalf("unexpected page: total=%d %+v", total, products)
	}
}

func TestCartAddQuantityMergesSameProduct(t *testing.T) {
	db := setupRepositoryTest(t)
	products := NewProductRepository(db)
	pen := createProduct(t, products, "Pen", "1.50")
	repo := NewCartRepository(db)

	cart, err := repo.GetOrCreate("user-1")
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	again, err := repo.GetOrCreate("user-1")
	if err != nil || again.ID != cart.ID {
		t.Fatalf("cart should be reused, got %+v err=%v", again, err)
	}

	first, err := repo.AddQuantity(cart.ID, pen.ID, 2)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	second, err := repo.AddQuantity(cart.ID, pen.ID, 3)
	if err != nil {
		t.Fatalf("add again failed: %v", err)
	}
	if second.ID != first.ID || second.Quantity != 5 {
		t.Fatalf("same product should merge, got %+v", second)
	}

	items, err := repo.ListItems(cart.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("want 1 item, got %d err=%v", len(items), err)
	}
}

func TestCartAddQuantityConcurrentMerges(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "cart.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	pen := createProduct(t, NewProductRepository(db), "Pen", "1.50")
	repo := NewCartRepository(db)
	cart, err := repo.GetOrCreate("user-1")
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}

	const adds = 8
	errs := make(chan error, adds)
	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddQuantity(cart.ID, pen.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent add failed: %v", err)
		}
	}

	items, err := repo.ListItems(cart.ID)
	if err != nil || len(items) != 1 || items[0].Quantity != adds {
		t.Fatalf("want one merged line with quantity %d, got %+v err=%v", adds, items, err)
	}
}

func TestCartItemsScopedToCart(t *testing.T) {
	db := setupRepositoryTest(t)
	pen := createProduct(t, NewProductRepository(db), "Pen", "1.50")
	repo := NewCartRepository(db)
	mine, _ := repo.GetOrCreate("user-1")
	theirs, _ := repo.GetOrCreate("user-2")
	item, err := repo.AddQuantity(theirs.ID, pen.ID, 1)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if got, err := repo.GetItem(mine.ID, item.ID); err != nil || got != nil {
		t.Fatalf("other cart item should be invisible, got %+v err=%v", got, err)
	}
	if affected, err := repo.UpdateQuantity(mine.ID, item.ID, 9); err != nil || affected != 0 {
		t.Fatalf("update across carts should affect nothing, affected=%d err=%v", affected, err)
	}
	if affected, err := repo.DeleteItem(mine.ID, item.ID); err != nil || affected != 0 {
		t.Fatalf("delete across carts should affect nothing, affected=%d err=%v", affected, err)
	}
	if affected, err := repo.DeleteItem(theirs.ID, item.ID); err != nil || affected != 1 {
		t.Fatalf("delete own item failed, affected=%d err=%v", affected, err)
	}
}

func TestOrderCreateAndAdminListFillsUsers(t *testing.T) {
	db := setupRepositoryTest(t)
	pen := createProduct(t, NewProductRepository(db), "Pen", "1.50")
	createUser(t, db, "user-1", "ann@example.com", "ann")
	repo := NewOrderRepository(db)

	userID := "user-1"
	order := &models.Order{UserID: &userID, OrderDate: time.Now(), Status: constants.OrderStatusPending}
	items := []models.OrderItem{
		{ProductID: pen.ID, Quantity: 2, PriceAtPurchase: pen.Price},
	}
	if err := repo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.ID == 0 || order.Items[0].OrderID != order.ID {
		t.Fatalf("order ids not assigned: %+v", order)
	}

	orders, total, err := repo.ListAdmin(OrderListFilter{})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 1 || orders[0].Username != "ann" || orders[0].UserEmail != "ann@example.com" {
		t.Fatalf("admin list should carry user info: %+v", orders)
	}
	if len(orders[0].Items) != 1 || orders[0].Items[0].PriceAtPurchase.String() != "1.50" {
		t.Fatalf("items not preloaded: %+v", orders[0].Items)
	}

	filtered, total, err := repo.ListAdmin(OrderListFilter{Status: constants.OrderStatusDelivered})
	if err != nil || total != 0 || len(filtered) != 0 {
		t.Fatalf("status filter want empty, got total=%d err=%v", total, err)
	}

	if got, _ := repo.GetByIDAndUser(order.ID, "user-2"); got != nil {
		t.Fatalf("other user must not read the order")
	}
}

func TestOrderCancelIfPending(t *testing.T) {
	db := setupRepositoryTest(t)
	repo := NewOrderRepository(db)
	order := &models.Order{OrderDate: time.Now(), Status: constants.OrderStatusPending}
	if err := repo.Create(order, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	affected, err := repo.CancelIfPending(order.ID)
	if err != nil || affected != 1 {
		t.Fatalf("cancel pending failed, affected=%d err=%v", affected, err)
	}
	affected, err = repo.CancelIfPending(order.ID)
	if err != nil || affected != 0 {
		t.Fatalf("second cancel should be a no-op, affected=%d err=%v", affected, err)
	}
	got, err := repo.GetByID(order.ID)
	if err != nil || got.Status != constants.OrderStatusCanceled {
		t.Fatalf("status want canceled, got %+v err=%v", got, err)
	}
}

func TestUserGetByEmailIgnoresCase(t *testing.T) {
	db := setupRepositoryTest(t)
	createUser(t, db, "user-1", "ann@example.com", "ann")
	repo := NewUserRepository(db)
	user, err := repo.GetByEmail("  ANN@example.com ")
	if err != nil || user == nil || user.ID != "user-1" {
		t.Fatalf("lookup by email failed: %+v err=%v", user, err)
	}
	if err := repo.TouchLastSignIn("user-1", time.Now()); err != nil {
		t.Fatalf("touch last sign in failed: %v", err)
	}
	user, _ = repo.GetByID("user-1")
	if user.LastSignInAt == nil {
		t.Fatalf("last sign in should be recorded")
	}
}
