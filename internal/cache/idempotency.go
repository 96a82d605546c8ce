package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const checkoutIdempotencyTTL = 24 * time.Hour

func checkoutIdempotencyKey(userID, key string) string {
	return fmt.Sprintf("idem:checkout:%s:%s", userID, key)
}

// GetCheckoutOrderID 查询同一幂等键已创建的订单
func GetCheckoutOrderID(ctx context.Context, userID, key string) (uint, bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(key) == "" {
		return 0, false, nil
	}
	var orderID uint
	hit, err := GetJSON(ctx, checkoutIdempotencyKey(userID, key), &orderID)
	if err != nil || !hit {
		return 0, false, err
	}
	return orderID, true, nil
}

// SetCheckoutOrderID 记录幂等键对应的订单
func SetCheckoutOrderID(ctx context.Context, userID, key string, orderID uint) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(key) == "" || orderID == 0 {
		return nil
	}
	return SetJSON(ctx, checkoutIdempotencyKey(userID, key), orderID, checkoutIdempotencyTTL)
}
