package notify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/notify"
	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// TestWebhookNotifier_Push 测试通知异步推送到 Webhook
func TestWebhookNotifier_Push(t *testing.T) {
	var mu sync.Mutex
	var received []*workflow.Notification

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var notification workflow.Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&notification))
		mu.Lock()
		received = append(received, &notification)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := notify.NewWebhookNotifier(server.URL, 2, 10, nil)
	defer notifier.Close()

	notifier.Notify(&workflow.Notification{
		Event:      workflow.EventTaskCreated,
		InstanceID: "inst-001",
		TaskID:     "task-001",
		Assignee:   "bob",
		OccurredAt: time.Now(),
	})

	// 推送是异步的,轮询等待到达
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, workflow.EventTaskCreated, received[0].Event)
	assert.Equal(t, "bob", received[0].Assignee)
}

// TestWebhookNotifier_ServerError 测试推送失败不影响调用方
func TestWebhookNotifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := notify.NewWebhookNotifier(server.URL, 1, 10, nil)
	defer notifier.Close()

	// 不会 panic 也不会阻塞
	notifier.Notify(&workflow.Notification{Event: workflow.EventInstanceCompleted, InstanceID: "inst-001"})
	time.Sleep(100 * time.Millisecond)
}

// TestWebhookNotifier_CloseDrainsQueue 测试关闭前先推完已入队的通知
func TestWebhookNotifier_CloseDrainsQueue(t *testing.T) {
	var received int64
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := notify.NewWebhookNotifier(server.URL, 1, 10, nil)
	for i := 0; i < 5; i++ {
		notifier.Notify(&workflow.Notification{
			Event:      workflow.EventTaskCreated,
			InstanceID: "inst-001",
		})
	}

	// Close 返回时队列中的通知应已全部推送
	notifier.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(5), received)
}

// TestWebhookNotifier_QueueFull 测试队列满时丢弃而非阻塞
func TestWebhookNotifier_QueueFull(t *testing.T) {
	// 不可达地址让 worker 阻塞在推送上
	notifier := notify.NewWebhookNotifier("http://127.0.0.1:1", 1, 1, nil)
	defer notifier.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			notifier.Notify(&workflow.Notification{Event: workflow.EventTaskCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on full queue")
	}
}
