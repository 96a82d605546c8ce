package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/cache"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/queue"
	"github.com/dujiao-next/storefront/internal/repository"
	"github.com/dujiao-next/storefront/internal/service"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type backendFixture struct {
	db       *gorm.DB
	catalog  *CatalogService
	carts    *CartService
	orders   *OrderService
	identity *IdentityService
	users    *repository.GormUserRepository
}

func setupBackendTest(t *testing.T) *backendFixture {
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
	_ = cache.InitRedis(nil)

	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	queueClient, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	return &backendFixture{
		db:       db,
		catalog:  NewCatalogService(productRepo),
		carts:    NewCartService(cartRepo, productRepo),
		orders:   NewOrderService(orderRepo, cartRepo, productRepo, queueClient, 15),
		identity: NewIdentityService(userRepo, config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1}, 0),
		users:    userRepo,
	}
}

func (f *backendFixture) product(t *testing.T, name, price string) *models.Product {
	t.Helper()
	product, err := f.catalog.Create(models.ProductInput{Name: name, Price: models.MustParseMoney(price)})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCatalogCreateValidatesAndNormalizes(t *testing.T) {
	f := setupBackendTest(t)
	blank := "   "
	product, err := f.catalog.Create(models.ProductInput{Name: "  Lamp ", Description: &blank, Price: models.MustParseMoney("12.5")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.Name != "Lamp" || product.Description != nil || product.Price.String() != "12.50" {
		t.Fatalf("unexpected product: %+v", product)
	}

	_, err = f.catalog.Create(models.ProductInput{Name: " ", Price: models.MustParseMoney("-1")})
	verr, ok := service.AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Fields["name"] == "" || verr.Fields["price"] == "" {
		t.Fatalf("expected name and price field errors, got %+v", verr.Fields)
	}
}

func TestCatalogDeletedProductStillReadable(t *testing.T) {
	f := setupBackendTest(t)
	product := f.product(t, "Mug", "3.00")
	if err := f.catalog.Delete(product.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := f.catalog.Delete(product.ID); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	got, err := f.catalog.Get(product.ID)
	if err != nil || got.Name != "Mug" {
		t.Fatalf("deleted product should stay readable: %+v %v", got, err)
	}
	list, total, err := f.catalog.List(repository.ProductListFilter{})
	if err != nil || total != 0 || len(list) != 0 {
		t.Fatalf("deleted product should be hidden from list: %d %v", total, err)
	}
	if _, err := f.catalog.Update(product.ID, models.ProductInput{Name: "Mug", Price: models.MustParseMoney("1")}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("update of deleted product should be not found, got %v", err)
	}
	if _, err := f.catalog.Get(9999); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("missing product should be not found, got %v", err)
	}
}

func TestCartAddMergesAndValidates(t *testing.T) {
	f := setupBackendTest(t)
	pen := f.product(t, "Pen", "1.50")

	if _, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 0}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity should fail, got %v", err)
	}
	if _, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: 404, Quantity: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("missing product should fail, got %v", err)
	}
	if _, err := f.carts.AddItem("", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 1}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("blank user should fail, got %v", err)
	}

	if _, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	item, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if item.Quantity != 5 {
		t.Fatalf("quantity should merge to 5, got %d", item.Quantity)
	}
	items, err := f.carts.ListItems("u1")
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one merged line, got %d %v", len(items), err)
	}
}

func TestCartUpdateAndRemoveScopedToOwner(t *testing.T) {
	f := setupBackendTest(t)
	pen := f.product(t, "Pen", "1.50")
	item, err := f.carts.AddItem("owner", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if _, err := f.carts.UpdateItem("intruder", item.ID, 4); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("other users must not update the item, got %v", err)
	}
	if err := f.carts.RemoveItem("intruder", item.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("other users must not remove the item, got %v", err)
	}
	if _, err := f.carts.UpdateItem("owner", item.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity should fail, got %v", err)
	}

	updated, err := f.carts.UpdateItem("owner", item.ID, 4)
	if err != nil || updated.Quantity != 4 {
		t.Fatalf("update failed: %+v %v", updated, err)
	}
	if err := f.carts.RemoveItem("owner", item.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := f.carts.RemoveItem("owner", item.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("second remove should be not found, got %v", err)
	}
}

func TestCheckoutSnapshotsPricesAndClearsCart(t *testing.T) {
	f := setupBackendTest(t)
	pen := f.product(t, "Pen", "1.50")
	book := f.product(t, "Book", "10.00")
	for _, req := range []models.AddCartItemRequest{{ProductID: pen.ID, Quantity: 2}, {ProductID: book.ID, Quantity: 1}} {
		if _, err := f.carts.AddItem("u1", req); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	order, err := f.orders.Checkout(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending || order.UserID == nil || *order.UserID != "u1" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}

	// 改价不影响已下单的成交价
	if _, err := f.catalog.Update(pen.ID, models.ProductInput{Name: "Pen", Price: models.MustParseMoney("9.99")}); err != nil {
		t.Fatalf("update price failed: %v", err)
	}
	stored, err := f.orders.GetMine("u1", order.ID)
	if err != nil {
		t.Fatalf("get mine failed: %v", err)
	}
	total := models.Money{}
	for _, item := range stored.Items {
		total = total.Plus(item.LineTotal())
	}
	if total.String() != "13.00" {
		t.Fatalf("order total should use purchase prices, got %s", total)
	}

	items, err := f.carts.ListItems("u1")
	if err != nil || len(items) != 0 {
		t.Fatalf("cart should be cleared, got %d %v", len(items), err)
	}
	if _, err := f.orders.Checkout(context.Background(), "u1", ""); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("empty cart checkout should fail, got %v", err)
	}
	if _, err := f.orders.GetMine("u2", order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("other users must not see the order, got %v", err)
	}
}

func TestCheckoutWithoutCacheIgnoresIdempotencyKey(t *testing.T) {
	f := setupBackendTest(t)
	pen := f.product(t, "Pen", "1.50")
	if _, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := f.orders.Checkout(context.Background(), "u1", "key-1"); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	// 缓存未启用时无法重放，空购物车再次提交按正常流程报错
	if _, err := f.orders.Checkout(context.Background(), "u1", "key-1"); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart without cache, got %v", err)
	}
}

func TestOrderAdminStatusFlow(t *testing.T) {
	f := setupBackendTest(t)
	pen := f.product(t, "Pen", "1.50")
	if _, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	order, err := f.orders.Checkout(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if _, err := f.orders.UpdateStatus(order.ID, "shipped"); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("unknown status should fail, got %v", err)
	}
	if _, err := f.orders.UpdateStatus(9999, "confirmed"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("missing order should fail, got %v", err)
	}
	updated, err := f.orders.UpdateStatus(order.ID, "Payment Pending")
	if err != nil || updated.Status != constants.OrderStatusPaymentPending {
		t.Fatalf("update status failed: %+v %v", updated, err)
	}

	list, total, err := f.orders.ListAdmin(repository.OrderListFilter{Status: "PAYMENT_PENDING"})
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("status filter should match ignoring case: %d %v", total, err)
	}
	if _, _, err := f.orders.ListAdmin(repository.OrderListFilter{Status: "lost"}); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("invalid filter should fail, got %v", err)
	}
}

func TestCancelExpiredOrder(t *testing.T) {
	f := setupBackendTest(t)
	pen := f.product(t, "Pen", "1.50")
	checkout := func() *models.Order {
		if _, err := f.carts.AddItem("u1", models.AddCartItemRequest{ProductID: pen.ID, Quantity: 1}); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		order, err := f.orders.Checkout(context.Background(), "u1", "")
		if err != nil {
			t.Fatalf("checkout failed: %v", err)
		}
		return order
	}

	pending := checkout()
	canceled, err := f.orders.CancelExpiredOrder(pending.ID)
	if err != nil || canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("pending order should be canceled: %+v %v", canceled, err)
	}

	confirmed := checkout()
	if _, err := f.orders.UpdateStatus(confirmed.ID, constants.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	kept, err := f.orders.CancelExpiredOrder(confirmed.ID)
	if err != nil || kept.Status != constants.OrderStatusConfirmed {
		t.Fatalf("confirmed order must stay confirmed: %+v %v", kept, err)
	}

	if _, err := f.orders.CancelExpiredOrder(9999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("missing order should be not found, got %v", err)
	}
}

func TestIdentitySignUpSignInAndParse(t *testing.T) {
	f := setupBackendTest(t)
	session, err := f.identity.SignUp(" Alice@Example.com ", "secret1", "alice")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if session.AccessToken == "" || session.TokenType != "bearer" || session.ExpiresIn != 3600 {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.User.Email != "alice@example.com" {
		t.Fatalf("email should be normalized, got %s", session.User.Email)
	}

	if _, err := f.identity.SignUp("alice@example.com", "secret1", "again"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email should fail, got %v", err)
	}
	if _, err := f.identity.SignUp("bob@example.com", "123", "bob"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password should fail, got %v", err)
	}
	if _, err := f.identity.SignUp("not-an-email", "secret1", "x"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("invalid email should fail, got %v", err)
	}

	if _, err := f.identity.SignIn("alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password should fail, got %v", err)
	}
	if _, err := f.identity.SignIn("nobody@example.com", "secret1"); !IsAuthFailure(err) {
		t.Fatalf("unknown user should be an auth failure, got %v", err)
	}
	signedIn, err := f.identity.SignIn("ALICE@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}

	claims, err := f.identity.ParseToken(signedIn.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.Subject != signedIn.User.ID || claims.AppRole() != constants.RoleCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	user, err := f.identity.GetUser(claims.Subject)
	if err != nil || user.LastSignInAt == nil {
		t.Fatalf("sign in should be recorded: %+v %v", user, err)
	}
	if err := f.identity.SignOut(context.Background(), user.ID); err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
}

func TestIdentityRejectsExpiredAndForeignTokens(t *testing.T) {
	f := setupBackendTest(t)
	session, err := f.identity.SignUp("carol@example.com", "secret1", "")
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	f.identity.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := f.identity.ParseToken(session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token should fail, got %v", err)
	}
	f.identity.now = time.Now

	other := NewIdentityService(f.users, config.JWTConfig{SecretKey: "other-secret"}, 0)
	if _, err := other.ParseToken(session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with another secret should fail, got %v", err)
	}
	if _, err := f.identity.ParseToken("garbage"); !IsAuthFailure(err) {
		t.Fatalf("garbage token should be an auth failure, got %v", err)
	}
}

func TestUserViewShape(t *testing.T) {
	now := time.Now()
	view := UserView(&models.User{ID: "u-9", Email: "dan@example.com", Username: "dan", Role: constants.RoleSupport, CreatedAt: now})
	if view.ID != "u-9" || view.Email != "dan@example.com" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.UserMetadata["username"] != "dan" || view.AppMetadata["role"] != constants.RoleSupport {
		t.Fatalf("unexpected metadata: %+v %+v", view.UserMetadata, view.AppMetadata)
	}
	if len(view.Identities) != 1 || view.Identities[0].IdentityData["username"] != "dan" {
		t.Fatalf("unexpected identities: %+v", view.Identities)
	}

	bare := UserView(&models.User{ID: "u-10", Email: "eve@example.com"})
	if _, ok := bare.UserMetadata["username"]; ok {
		t.Fatalf("blank username should be omitted")
	}
}

func TestLoginLogRecordsAttempts(t *testing.T) {
	f := setupBackendTest(t)
	logs := NewLoginLogService(repository.NewUserLoginLogRepository(f.db))

	logs.Record(LoginAttempt{Email: " Eve@Example.com ", UserID: "u-1", ClientIP: "10.0.0.1", RequestID: "req-ok"})
	logs.Record(LoginAttempt{Email: "eve@example.com", Err: ErrInvalidCredentials, ClientIP: "10.0.0.2"})
	logs.Record(LoginAttempt{Email: "eve@example.com", Err: errors.New("db down")})

	all, total, err := logs.List(repository.UserLoginLogListFilter{Email: "EVE@example.com"})
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("want 3 logs, got %d/%d %v", len(all), total, err)
	}
	if all[0].FailReason != constants.LoginFailReasonInternalError {
		t.Fatalf("newest log should come first: %+v", all[0])
	}

	failed, total, err := logs.List(repository.UserLoginLogListFilter{Status: constants.LoginLogStatusFailed, Page: 1, PageSize: 1})
	if err != nil || total != 2 || len(failed) != 1 {
		t.Fatalf("want 1 of 2 failed logs, got %d/%d %v", len(failed), total, err)
	}

	ok, _, err := logs.List(repository.UserLoginLogListFilter{UserID: "u-1"})
	if err != nil || len(ok) != 1 || ok[0].Status != constants.LoginLogStatusSuccess || ok[0].RequestID != "req-ok" {
		t.Fatalf("unexpected success log: %+v %v", ok, err)
	}
}
