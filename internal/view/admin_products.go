package view

import (
	"context"
	"time"

	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/service"
)

const (
	msgAdminProductsLoadFailed = "Failed to load products. Please try again."
	msgProductCreateFailed     = "Failed to create product. Please try again."
	msgProductUpdateFailed     = "Failed to update product. Please try again."
	msgProductDeleteFailed     = "Failed to delete product. Please try again."
	msgProductDeleteConfirm    = "Are you sure you want to delete this product? This action cannot be undone."
	productDateLayout          = "Jan 02, 2006"
)

// ProductForm 商品表单
type ProductForm struct {
	Name        string
	Description string
	Price       models.Money
	ImageURL    string
}

// Input 转换为请求体，空的可选字段不提交
func (f ProductForm) Input() models.ProductInput {
	desc, img := f.Description, f.ImageURL
	return models.ProductInput{
		Name:        f.Name,
		Description: &desc,
		Price:       f.Price,
		ImageURL:    &img,
	}.Normalize()
}

// AdminProductsView 管理端商品页面
type AdminProductsView struct {
	products *service.ProductService
	admin    *service.AdminProductService
	notify   Notifier
	confirm  Confirmer

	Products         []models.Product
	IsEditing        bool
	EditingProductID uint // 0 表示新建
	Form             ProductForm
	FormErrors       map[string]string
}

// NewAdminProductsView 创建管理端商品页面；confirm 为 nil 时删除总是执行
func NewAdminProductsView(products *service.ProductService, admin *service.AdminProductService, notify Notifier, confirm Confirmer) *AdminProductsView {
	return &AdminProductsView{
		products:   products,
		admin:      admin,
		notify:     notifierOrDiscard(notify),
		confirm:    confirm,
		FormErrors: map[string]string{},
	}
}

// Load 从公开接口加载商品
func (v *AdminProductsView) Load(ctx context.Context) error {
	products, err := v.products.GetAll(ctx)
	if err != nil {
		logger.Errorw("admin_products_load_failed", "error", err)
		v.notify.Alert(msgAdminProductsLoadFailed)
		return err
	}
	v.Products = products
	return nil
}

// OpenCreateForm 打开新建表单
func (v *AdminProductsView) OpenCreateForm() {
	v.IsEditing = true
	v.EditingProductID = 0
	v.Form = ProductForm{}
	v.FormErrors = map[string]string{}
}

// OpenEditForm 用现有商品填充表单
func (v *AdminProductsView) OpenEditForm(p models.Product) {
	v.IsEditing = true
	v.EditingProductID = p.ID
	v.Form = ProductForm{Name: p.Name, Price: p.Price}
	if p.Description != nil {
		v.Form.Description = *p.Description
	}
	if p.ImageURL != nil {
		v.Form.ImageURL = *p.ImageURL
	}
	v.FormErrors = map[string]string{}
}

// CloseForm 关闭并重置表单
func (v *AdminProductsView) CloseForm() {
	v.IsEditing = false
	v.EditingProductID = 0
	v.Form = ProductForm{}
	v.FormErrors = map[string]string{}
}

// ValidateForm 校验表单并填充 FormErrors
func (v *AdminProductsView) ValidateForm() bool {
	v.FormErrors = map[string]string{}
	if err := service.ValidateProductInput(v.Form.Input()); err != nil {
		if verr, ok := service.AsValidationError(err); ok {
			for field, msg := range verr.Fields {
				v.FormErrors[field] = msg
			}
		}
		return false
	}
	return true
}

// SaveProduct 新建或更新商品，成功后重新加载并关闭表单
func (v *AdminProductsView) SaveProduct(ctx context.Context) (*models.Product, error) {
	if !v.ValidateForm() {
		return nil, &service.ValidationError{Fields: v.FormErrors}
	}
	var (
		product *models.Product
		err     error
	)
	if v.EditingProductID != 0 {
		product, err = v.admin.UpdateProduct(ctx, v.EditingProductID, v.Form.Input())
		if err != nil {
			logger.Errorw("admin_product_update_failed", "product_id", v.EditingProductID, "error", err)
			v.notify.Alert(msgProductUpdateFailed)
			return nil, err
		}
	} else {
		product, err = v.admin.CreateProduct(ctx, v.Form.Input())
		if err != nil {
			logger.Errorw("admin_product_create_failed", "error", err)
			v.notify.Alert(msgProductCreateFailed)
			return nil, err
		}
	}
	_ = v.Load(ctx)
	v.CloseForm()
	return product, nil
}

// DeleteProduct 确认后删除；用户取消时返回 false
func (v *AdminProductsView) DeleteProduct(ctx context.Context, productID uint) (bool, error) {
	if v.confirm != nil && !v.confirm.Confirm(msgProductDeleteConfirm) {
		return false, nil
	}
	if err := v.admin.DeleteProduct(ctx, productID); err != nil {
		logger.Errorw("admin_product_delete_failed", "product_id", productID, "error", err)
		v.notify.Alert(msgProductDeleteFailed)
		return false, err
	}
	_ = v.Load(ctx)
	return true, nil
}

// FormatProductDate 商品时间展示格式
func FormatProductDate(t time.Time) string {
	return t.Local().Format(productDateLayout)
}
