package jobs

import (
	"sync"
	"time"
)

// EventType は通知イベントの種別です。
type EventType string

const (
	EventTypeJobUpdate EventType = "job_update"
)

// Event はジョブのライフサイクル変化を購読者へ伝えるペイロードです。
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
	JobID     string    `json:"jobId"`
	Type      EventType `json:"type"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
}

// Notifier はライフサイクルイベントの送信先です。
// 配信の失敗や遅延はジョブ状態に影響してはいけないため、
// 実装はスケジューラをブロックしないことが求められます。
type Notifier interface {
	Emit(userID string, event Event)
}

// EventBus は直近イベントを保持し、シーケンス番号による増分取得を提供します。
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus は上限付きのインメモリイベントバッファを作成します。
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Emit は Notifier インターフェースを実装します。
func (b *EventBus) Emit(userID string, event Event) {
	event.UserID = userID
	b.Publish(event)
}

// Publish はイベントを1件追加し、シーケンス番号とタイムスタンプを付与します。
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since は seq より大きいシーケンス番号のイベントを返します。
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// SinceForUser は指定ユーザー宛のイベントだけを増分取得します。
func (b *EventBus) SinceForUser(userID string, seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0)
	for _, event := range b.events {
		if event.Seq > seq && event.UserID == userID {
			out = append(out, event)
		}
	}
	return out
}
