package service

import (
	"testing"

	"github.com/dujiao-next/storefront/internal/api"
	"github.com/dujiao-next/storefront/internal/apitest"
)

type fixture struct {
	srv        *apitest.Server
	client     *api.Client
	refresh    *Refresher
	products   *ProductService
	cart       *CartService
	orders     *OrderService
	adminOrder *AdminOrderService
	adminProd  *AdminProductService
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	srv := apitest.New(t)
	client := api.New(srv.BaseURL(), nil)
	refresh := NewRefresher(mode)
	products := NewProductService(client)
	cart := NewCartService(client, products, refresh)
	return &fixture{
		srv:        srv,
		client:     client,
		refresh:    refresh,
		products:   products,
		cart:       cart,
		orders:     NewOrderService(client, cart),
		adminOrder: NewAdminOrderService(client, products, refresh),
		adminProd:  NewAdminProductService(client, refresh),
	}
}
