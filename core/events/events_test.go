package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOnDataChanged_ReceivesEvent(t *testing.T) {
	var mu sync.Mutex
	var got []DataChangeEvent

	unsub := OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	defer unsub()

	EmitDataChanged(context.Background(), DataChangeEvent{
		CollectionName: "records",
		Operation:      OpInsert,
		Document:       "doc",
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "records", got[0].CollectionName)
	assert.Equal(t, OpInsert, got[0].Operation)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	var mu sync.Mutex
	count := 0

	unsub := OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	EmitDataChanged(context.Background(), DataChangeEvent{Operation: OpUpdate})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 10*time.Millisecond)

	unsub()
	// Gọi hai lần vô hại
	unsub()

	EmitDataChanged(context.Background(), DataChangeEvent{Operation: OpUpdate})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestEmitDataChanged_HandlerPanicIsIsolated(t *testing.T) {
	var mu sync.Mutex
	okCalled := false

	unsubPanic := OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		panic("handler hỏng")
	})
	defer unsubPanic()

	unsubOK := OnDataChanged(func(ctx context.Context, e DataChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		okCalled = true
	})
	defer unsubOK()

	EmitDataChanged(context.Background(), DataChangeEvent{Operation: OpDelete})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return okCalled
	}, time.Second, 10*time.Millisecond)
}
