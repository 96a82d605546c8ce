package repository

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page     int
	PageSize int
	UserID   string
	Status   string
}

// UserLoginLogListFilter 登录日志查询条件
type UserLoginLogListFilter struct {
	Page     int
	PageSize int
	UserID   string
	Email    string
	Status   string
}
