package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/service"
)

const (
	msgOrdersLoadFailed   = "Failed to load orders."
	msgOrderStatusFailed  = "Failed to update order status. Please try again."
	orderDateLayout       = "Jan 02, 2006, 03:04 PM"
	unknownUserDisplay    = "Unknown User"
	userIDDisplayMaxChars = 8
)

// AdminOrdersView 管理端订单列表
type AdminOrdersView struct {
	svc    *service.AdminOrderService
	notify Notifier

	EditingOrderID uint
	SelectedStatus string
	Loading        bool
	Error          string
}

// NewAdminOrdersView 创建管理端订单列表
func NewAdminOrdersView(svc *service.AdminOrderService, notify Notifier) *AdminOrdersView {
	return &AdminOrdersView{svc: svc, notify: notifierOrDiscard(notify)}
}

// Load 全量刷新订单
func (v *AdminOrdersView) Load(ctx context.Context) error {
	v.Loading = true
	v.Error = ""
	err := v.svc.RefreshOrders(ctx)
	v.Loading = false
	if err != nil {
		v.Error = msgOrdersLoadFailed
		logger.Errorw("admin_orders_load_failed", "error", err)
		return err
	}
	return nil
}

// Orders 当前缓存的订单
func (v *AdminOrdersView) Orders() []models.OrderWithProducts {
	return v.svc.AllOrders().Get()
}

// Filter 按状态过滤，空状态返回全部
func (v *AdminOrdersView) Filter(status string) []models.OrderWithProducts {
	if strings.TrimSpace(status) == "" {
		return v.Orders()
	}
	return v.svc.GetOrdersByStatus(status)
}

// StatusOptions 状态下拉选项
func (v *AdminOrdersView) StatusOptions() []string {
	return v.svc.ValidStatuses()
}

// StartEdit 开始编辑某个订单的状态
func (v *AdminOrdersView) StartEdit(order models.OrderWithProducts) {
	v.EditingOrderID = order.ID
	v.SelectedStatus = order.Status
}

// CancelEdit 取消编辑
func (v *AdminOrdersView) CancelEdit() {
	v.EditingOrderID = 0
	v.SelectedStatus = ""
}

// SaveStatus 提交选中的状态；未选择时不做任何事
func (v *AdminOrdersView) SaveStatus(ctx context.Context, orderID uint) error {
	if strings.TrimSpace(v.SelectedStatus) == "" {
		return nil
	}
	if _, err := v.svc.UpdateOrderStatus(ctx, orderID, v.SelectedStatus); err != nil {
		logger.Errorw("admin_order_status_update_failed", "order_id", orderID, "status", v.SelectedStatus, "error", err)
		v.notify.Alert(msgOrderStatusFailed)
		return err
	}
	v.CancelEdit()
	return nil
}

// FormatDate 订单时间展示格式
func FormatDate(t time.Time) string {
	return t.Local().Format(orderDateLayout)
}

// StatusClass 状态徽标样式名
func StatusClass(status string) string {
	switch strings.ReplaceAll(strings.ToLower(status), " ", "_") {
	case "pending":
		return "status-pending"
	case "confirmed":
		return "status-confirmed"
	case "payment_pending":
		return "status-payment-pending"
	case "payment_received":
		return "status-payment-received"
	case "delivered":
		return "status-delivered"
	case "canceled":
		return "status-canceled"
	default:
		return "status-default"
	}
}

// FormatStatus 下划线转空格并将每个单词首字母大写
func FormatStatus(status string) string {
	words := strings.Split(strings.ReplaceAll(status, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// UserDisplay 依次展示用户名、邮箱、截断的用户 ID
func UserDisplay(order models.OrderWithProducts) string {
	if order.Username != "" {
		return order.Username
	}
	if order.UserEmail != "" {
		return order.UserEmail
	}
	if order.UserID != nil && *order.UserID != "" {
		id := *order.UserID
		if len(id) > userIDDisplayMaxChars {
			id = id[:userIDDisplayMaxChars]
		}
		return fmt.Sprintf("User %s...", id)
	}
	return unknownUserDisplay
}
