package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub(4)

	ch1, cancel1 := hub.Subscribe()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	assert.Equal(t, 2, hub.Count())

	n := NewViewRefresh("test")
	hub.Publish(n)

	got1 := <-ch1
	got2 := <-ch2
	assert.Equal(t, EventViewRefresh, got1.EventType)
	assert.Equal(t, got1.EventType, got2.EventType)

	t.Run("hủy đăng ký đóng channel", func(t *testing.T) {
		cancel1()
		assert.Equal(t, 1, hub.Count())

		_, open := <-ch1
		assert.False(t, open)

		assert.NotPanics(t, cancel1)
	})

	t.Run("subscriber đầy buffer bị drop, publish không block", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			hub.Publish(NewViewRefresh("flood"))
		}
		assert.Equal(t, 1, hub.Count())
	})
}

func TestSeverityFromEventType(t *testing.T) {
	assert.Equal(t, SeverityHigh, GetSeverityFromEventType(EventChannelError))
	assert.Equal(t, SeverityMedium, GetSeverityFromEventType(EventRecordDeleted))
	assert.Equal(t, SeverityInfo, GetSeverityFromEventType(EventRecordCreated))
	assert.Equal(t, SeverityLow, GetSeverityFromEventType("không-biết"))
}
