package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"
)

func TestCheckoutEmptyCartRejectedBeforeNetwork(t *testing.T) {
	f := newFixture(t, constants.RefreshModeSync)
	if _, err := f.orders.CheckoutCart(context.Background()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if f.srv.TotalCalls() != 0 {
		t.Fatalf("empty checkout must not hit the network")
	}
}

func TestCheckoutSuccessEmptiesLocalCart(t *testing.T) {
	f := newFixture(t, constants.RefreshModeSync)
	a := f.srv.SeedProduct("A", "2.50")
	b := f.srv.SeedProduct("B", "1.00")
	f.srv.SeedCartItem(a.ID, 2)
	f.srv.SeedCartItem(b.ID, 1)
	ctx := context.Background()
	if _, err := f.cart.GetCartItems(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	order, err := f.orders.CheckoutCart(ctx)
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if len(order.Items) != 2 || order.Items[0].PriceAtPurchase.String() != "2.50" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if !f.cart.IsEmpty() {
		t.Fatalf("local cart should be empty after checkout")
	}
	if f.srv.Header(http.MethodPost, "/order/checkout").Get(constants.HeaderIdempotencyKey) == "" {
		t.Fatalf("checkout should carry an idempotency key")
	}
}

func TestCheckoutFailureKeepsLocalCart(t *testing.T) {
	f := newFixture(t, constants.RefreshModeSync)
	p := f.srv.SeedProduct("A", "2.50")
	f.srv.SeedCartItem(p.ID, 1)
	ctx := context.Background()
	if _, err := f.cart.GetCartItems(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	f.srv.Fail(http.MethodPost, "/order/checkout", http.StatusServiceUnavailable)

	if _, err := f.orders.CheckoutCart(ctx); err == nil {
		t.Fatalf("expected checkout failure")
	}
	if f.cart.IsEmpty() {
		t.Fatalf("failed checkout must keep the local cart")
	}
}

func TestConcurrentCheckoutCollapsesIntoOneRequest(t *testing.T) {
	f := newFixture(t, constants.RefreshModeSync)
	p := f.srv.SeedProduct("A", "2.50")
	f.srv.SeedCartItem(p.ID, 1)
	ctx := context.Background()
	if _, err := f.cart.GetCartItems(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	release := f.srv.Hold(http.MethodPost, "/order/checkout")
	defer release()

	results := make([]*models.Order, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	start := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.orders.CheckoutCart(ctx)
		}()
	}
	start(0)
	waitFor(t, func() bool { return f.srv.Calls(http.MethodPost, "/order/checkout") == 1 })
	start(1)
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("checkout %d failed: %v", i, err)
		}
	}
	if f.srv.Calls(http.MethodPost, "/order/checkout") != 1 {
		t.Fatalf("duplicate checkout reached the server")
	}
	if results[0].ID != results[1].ID || len(f.srv.Orders()) != 1 {
		t.Fatalf("both callers should observe the same order")
	}
}

func TestCheckoutCanceledCallerDoesNotCancelSharedRequest(t *testing.T) {
	f := newFixture(t, constants.RefreshModeSync)
	p := f.srv.SeedProduct("A", "2.50")
	f.srv.SeedCartItem(p.ID, 1)
	if _, err := f.cart.GetCartItems(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	release := f.srv.Hold(http.MethodPost, "/order/checkout")
	defer release()

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.orders.CheckoutCart(firstCtx)
		firstDone <- err
	}()
	waitFor(t, func() bool { return f.srv.Calls(http.MethodPost, "/order/checkout") == 1 })

	type result struct {
		order *models.Order
		err   error
	}
	secondDone := make(chan result, 1)
	go func() {
		order, err := f.orders.CheckoutCart(context.Background())
		secondDone <- result{order, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled caller want context.Canceled, got %v", err)
	}
	release()

	second := <-secondDone
	if second.err != nil {
		t.Fatalf("live caller should receive the shared order, got %v", second.err)
	}
	if second.order == nil || len(f.srv.Orders()) != 1 || second.order.ID != f.srv.Orders()[0].ID {
		t.Fatalf("unexpected order: %+v", second.order)
	}
	if !f.cart.IsEmpty() {
		t.Fatalf("local cart should be cleared once the order exists")
	}
	if f.srv.Calls(http.MethodPost, "/order/checkout") != 1 {
		t.Fatalf("checkout should reach the server once")
	}
}

func TestMyOrders(t *testing.T) {
	f := newFixture(t, constants.RefreshModeSync)
	p := f.srv.SeedProduct("A", "2.50")
	seeded := f.srv.SeedOrder(constants.OrderStatusPending, [2]uint{p.ID, 1})
	ctx := context.Background()

	orders, err := f.orders.GetMyOrders(ctx)
	if err != nil || len(orders) != 1 {
		t.Fatalf("list failed: %+v %v", orders, err)
	}
	order, err := f.orders.GetOrderByID(ctx, seeded.ID)
	if err != nil || order.Status != constants.OrderStatusPending {
		t.Fatalf("get failed: %+v %v", order, err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
