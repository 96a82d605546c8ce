package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dujiao-next/storefront/internal/backend"
	"github.com/dujiao-next/storefront/internal/config"
	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

type fakeCanceler struct {
	calls []uint
	err   error
}

func (f *fakeCanceler) CancelExpiredOrder(id uint) (*models.Order, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: id, Status: constants.OrderStatusCanceled}, nil
}

func timeoutTask(t *testing.T, orderID uint) *asynq.Task {
	t.Helper()
	task, err := queue.NewOrderTimeoutCancelTask(queue.OrderTimeoutCancelPayload{OrderID: orderID})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	return task
}

func TestHandleOrderTimeoutCancel(t *testing.T) {
	canceler := &fakeCanceler{}
	consumer := NewConsumerWith(canceler)

	if err := consumer.handleOrderTimeoutCancel(context.Background(), timeoutTask(t, 7)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(canceler.calls) != 1 || canceler.calls[0] != 7 {
		t.Fatalf("unexpected calls: %v", canceler.calls)
	}
}

func TestHandleOrderTimeoutCancelSkipsInvalidPayload(t *testing.T) {
	canceler := &fakeCanceler{}
	consumer := NewConsumerWith(canceler)

	if err := consumer.handleOrderTimeoutCancel(context.Background(), timeoutTask(t, 0)); err != nil {
		t.Fatalf("zero order id should be skipped, got %v", err)
	}
	bad := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte("{"))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), bad); err == nil {
		t.Fatalf("malformed payload should fail")
	}
	if len(canceler.calls) != 0 {
		t.Fatalf("canceler should not be called: %v", canceler.calls)
	}
}

func TestHandleOrderTimeoutCancelErrorPolicy(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "not found", err: backend.ErrOrderNotFound},
		{name: "fetch failed", err: fmt.Errorf("%w: db down", backend.ErrOrderFetchFailed)},
		{name: "update failed", err: fmt.Errorf("%w: locked", backend.ErrOrderUpdateFailed), wantErr: true},
		{name: "unknown", err: errors.New("boom"), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			consumer := NewConsumerWith(&fakeCanceler{err: tc.err})
			err := consumer.handleOrderTimeoutCancel(context.Background(), timeoutTask(t, 3))
			if (err != nil) != tc.wantErr {
				t.Fatalf("want error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewConsumerWithoutContainer(t *testing.T) {
	consumer := NewConsumer(nil)
	if err := consumer.handleOrderTimeoutCancel(context.Background(), timeoutTask(t, 5)); err != nil {
		t.Fatalf("consumer without order service should skip, got %v", err)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, NewConsumerWith(nil)); err == nil {
		t.Fatalf("disabled queue should be rejected")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("nil consumer should be rejected")
	}
}
