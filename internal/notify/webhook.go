package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liugang926/HOOK-GZEAMS-sub000/internal/workflow"
)

// WebhookNotifier 基于 Webhook 的通知分发器
// 实现 workflow.Notifier,通知入队后由 worker 异步推送,
// 推送失败只记录日志,不影响流程流转
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	queue      chan *workflow.Notification
	workers    int
	stop       chan struct{}
	wg         sync.WaitGroup
	logger     *logrus.Logger
}

// NewWebhookNotifier 创建 Webhook 通知分发器
func NewWebhookNotifier(url string, workers int, queueSize int, logger *logrus.Logger) *WebhookNotifier {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if logger == nil {
		logger = logrus.New()
	}

	n := &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		queue:      make(chan *workflow.Notification, queueSize),
		workers:    workers,
		stop:       make(chan struct{}),
		logger:     logger,
	}

	n.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go n.worker()
	}
	return n
}

// Notify 通知入队
// 队列满时丢弃并记录日志,不阻塞调用方
func (n *WebhookNotifier) Notify(notification *workflow.Notification) {
	select {
	case n.queue <- notification:
	default:
		n.logger.WithFields(logrus.Fields{
			"event":       notification.Event,
			"instance_id": notification.InstanceID,
		}).Warn("notification queue full, dropping notification")
	}
}

// Close 停止全部 worker
// 已入队的通知先推送完毕再返回,不静默丢弃
func (n *WebhookNotifier) Close() {
	close(n.stop)
	n.wg.Wait()
}

// worker 通知推送 worker
// 收到停止信号后排空队列中剩余的通知再退出
func (n *WebhookNotifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case notification := <-n.queue:
			n.push(notification)
		case <-n.stop:
			for {
				select {
				case notification := <-n.queue:
					n.push(notification)
				default:
					return
				}
			}
		}
	}
}

// push 推送单条通知到 Webhook
func (n *WebhookNotifier) push(notification *workflow.Notification) {
	if n.url == "" {
		return
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		n.logger.WithError(err).Error("failed to marshal notification")
		return
	}

	resp, err := n.httpClient.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"event":       notification.Event,
			"instance_id": notification.InstanceID,
		}).Warn("failed to push notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.WithFields(logrus.Fields{
			"event":       notification.Event,
			"instance_id": notification.InstanceID,
			"status_code": resp.StatusCode,
		}).Warn("webhook returned non-success status")
	}
}
