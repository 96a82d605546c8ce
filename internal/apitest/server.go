// Package apitest 提供内存实现的后端 REST 契约，用于客户端测试
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// Server 内存后端，记录每个请求并支持按路径注入失败
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	products      map[uint]models.Product
	nextProductID uint
	cartItems     []models.CartItem
	nextItemID    uint
	orders        []models.Order
	nextOrderID   uint
	nextLineID    uint
	calls         map[string]int
	failures      map[string]int
	headers       map[string]http.Header
	hold          map[string]chan struct{}
}

// New 启动测试服务器，测试结束时自动关闭
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{
		products:      make(map[uint]models.Product),
		nextProductID: 1,
		nextItemID:    1,
		nextOrderID:   1,
		nextLineID:    1,
		calls:         make(map[string]int),
		failures:      make(map[string]int),
		headers:       make(map[string]http.Header),
		hold:          make(map[string]chan struct{}),
	}
	s.Server = httptest.NewServer(s.engine())
	t.Cleanup(s.Close)
	return s
}

// BaseURL 客户端使用的 API 根地址
func (s *Server) BaseURL() string {
	return s.Server.URL + "/api"
}

func (s *Server) engine() *gin.Engine {
	r := gin.New()
	r.Use(s.record)
	api := r.Group("/api")
	api.GET("/product", s.listProducts)
	api.GET("/product/:id", s.getProduct)
	api.POST("/admin/product", s.createProduct)
	api.PUT("/admin/product/:id", s.updateProduct)
	api.DELETE("/admin/product/:id", s.deleteProduct)
	api.GET("/cart", s.getCart)
	api.GET("/cart/items", s.listCartItems)
	api.POST("/cart/items", s.addCartItem)
	api.PUT("/cart/items/:id", s.updateCartItem)
	api.DELETE("/cart/items/:id", s.deleteCartItem)
	api.POST("/order/checkout", s.checkout)
	api.GET("/order", s.listOrders)
	api.GET("/order/:id", s.getOrder)
	api.GET("/admin/order", s.listOrders)
	api.GET("/admin/order/:id", s.getOrder)
	api.PATCH("/admin/order/:id/status", s.updateOrderStatus)
	return r
}

func key(method, path string) string {
	return method + " " + path
}

// record 统计调用、保存请求头，并按配置返回注入的失败
func (s *Server) record(c *gin.Context) {
	path := strings.TrimPrefix(c.Request.URL.Path, "/api")
	k := key(c.Request.Method, path)

	s.mu.Lock()
	s.calls[k]++
	s.headers[k] = c.Request.Header.Clone()
	status, fail := s.failures[k]
	hold := s.hold[k]
	s.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if fail {
		c.AbortWithStatusJSON(status, gin.H{"message": fmt.Sprintf("injected failure for %s", k)})
		return
	}
	c.Next()
}

// Calls 返回某个请求（如 GET /product/1）被调用的次数
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key(method, path)]
}

// CallsWithPrefix 统计方法与路径前缀匹配的调用次数
func (s *Server) CallsWithPrefix(method, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for k, n := range s.calls {
		if strings.HasPrefix(k, key(method, prefix)) {
			total += n
		}
	}
	return total
}

// TotalCalls 全部调用次数
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// ResetCalls 清空调用统计
func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = make(map[string]int)
	s.mu.Unlock()
}

// Header 返回某个请求最近一次的请求头
func (s *Server) Header(method, path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[key(method, path)]
}

// Fail 使后续匹配的请求返回 status，直到服务关闭
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	s.failures[key(method, path)] = status
	s.mu.Unlock()
}

// Hold 阻塞匹配的请求，直到调用返回的 release
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold[key(method, path)] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.hold, key(method, path))
			s.mu.Unlock()
			close(ch)
		})
	}
}

// SeedProduct 添加商品
func (s *Server) SeedProduct(name, price string) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := name + " description"
	img := fmt.Sprintf("https://img.example.com/%s.png", strings.ToLower(strings.ReplaceAll(name, " ", "-")))
	p := models.Product{
		ID:          s.nextProductID,
		Name:        name,
		Description: &desc,
		Price:       models.MustParseMoney(price),
		ImageURL:    &img,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	s.products[p.ID] = p
	s.nextProductID++
	return p
}

// SeedCartItem 直接写入购物车项
func (s *Server) SeedCartItem(productID uint, quantity int) models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := models.CartItem{ID: s.nextItemID, CartID: 1, ProductID: productID, Quantity: quantity}
	s.nextItemID++
	s.cartItems = append(s.cartItems, item)
	return item
}

// SeedOrder 直接写入订单，items 为 (productID, quantity) 对
func (s *Server) SeedOrder(status string, lines ...[2]uint) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := "user-1"
	order := models.Order{
		ID:        s.nextOrderID,
		UserID:    &userID,
		OrderDate: time.Now().UTC(),
		Status:    status,
		UpdatedAt: time.Now().UTC(),
		Username:  "ann",
		UserEmail: "ann@example.com",
		Items:     []models.OrderItem{},
	}
	s.nextOrderID++
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ID:              s.nextLineID,
			OrderID:         order.ID,
			ProductID:       line[0],
			Quantity:        int(line[1]),
			PriceAtPurchase: s.products[line[0]].Price,
		})
		s.nextLineID++
	}
	s.orders = append(s.orders, order)
	return order
}

// CartItems 服务端当前购物车
func (s *Server) CartItems() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.cartItems...)
}

// Orders 服务端当前订单
func (s *Server) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Order{}, s.orders...)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (s *Server) listProducts(c *gin.Context) {
	s.mu.Lock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	p, found := s.products[id]
	s.mu.Unlock()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	p := models.Product{ID: s.nextProductID, Name: in.Name, Description: in.Description, Price: in.Price, ImageURL: in.ImageURL}
	s.products[p.ID] = p
	s.nextProductID++
	s.mu.Unlock()
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	p.Name, p.Description, p.Price, p.ImageURL = in.Name, in.Description, in.Price, in.ImageURL
	s.products[id] = p
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.products, id)
	s.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (s *Server) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, models.Cart{ID: 1, UserID: "user-1"})
}

func (s *Server) listCartItems(c *gin.Context) {
	c.JSON(http.StatusOK, s.CartItems())
}

func (s *Server) addCartItem(c *gin.Context) {
	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid cart item"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.products[req.ProductID]; !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	for i := range s.cartItems {
		if s.cartItems[i].ProductID == req.ProductID {
			s.cartItems[i].Quantity += req.Quantity
			c.JSON(http.StatusOK, s.cartItems[i])
			return
		}
	}
	item := models.CartItem{ID: s.nextItemID, CartID: 1, ProductID: req.ProductID, Quantity: req.Quantity}
	s.nextItemID++
	s.cartItems = append(s.cartItems, item)
	c.JSON(http.StatusCreated, item)
}

func (s *Server) updateCartItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "quantity must be at least 1"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cartItems {
		if s.cartItems[i].ID == id {
			s.cartItems[i].Quantity = req.Quantity
			c.JSON(http.StatusOK, s.cartItems[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "cart item not found"})
}

func (s *Server) deleteCartItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cartItems {
		if s.cartItems[i].ID == id {
			s.cartItems = append(s.cartItems[:i], s.cartItems[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "cart item not found"})
}

func (s *Server) checkout(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "cart is empty"})
		return
	}
	userID := "user-1"
	order := models.Order{
		ID:        s.nextOrderID,
		UserID:    &userID,
		OrderDate: time.Now().UTC(),
		Status:    "pending",
		UpdatedAt: time.Now().UTC(),
	}
	s.nextOrderID++
	for _, item := range s.cartItems {
		order.Items = append(order.Items, models.OrderItem{
			ID:              s.nextLineID,
			OrderID:         order.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: s.products[item.ProductID].Price,
		})
		s.nextLineID++
	}
	s.cartItems = nil
	s.orders = append(s.orders, order)
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	c.JSON(http.StatusOK, s.Orders())
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	for _, order := range s.Orders() {
		if order.ID == id {
			c.JSON(http.StatusOK, order)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	status, valid := models.NormalizeOrderStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid status"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
			s.orders[i].UpdatedAt = time.Now().UTC()
			c.JSON(http.StatusOK, s.orders[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
}
