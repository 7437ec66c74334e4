package jobs

import (
	"container/heap"
	"time"
)

// queueItem は実行待ちキューの1要素です。
type queueItem struct {
	jobID     string
	priority  int
	createdAt time.Time
	seq       int64
}

// readyQueue は優先度降順・作成日時昇順の実行待ちキューです。
// 呼び出し側（スケジューラ）のロック下でのみ操作します。
type readyQueue struct {
	items   []*queueItem
	nextSeq int64
}

func newReadyQueue() *readyQueue {
	q := &readyQueue{}
	heap.Init(q)
	return q
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.seq < b.seq
}

func (q *readyQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *readyQueue) Push(x any) {
	q.items = append(q.items, x.(*queueItem))
}

func (q *readyQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return item
}

// push はジョブを実行待ちキューに追加します。
func (q *readyQueue) push(jobID string, priority int, createdAt time.Time) {
	q.nextSeq++
	heap.Push(q, &queueItem{
		jobID:     jobID,
		priority:  priority,
		createdAt: createdAt,
		seq:       q.nextSeq,
	})
}

// pop は最優先のジョブIDを取り出します。空の場合は false を返します。
func (q *readyQueue) pop() (string, bool) {
	if q.Len() == 0 {
		return "", false
	}
	item := heap.Pop(q).(*queueItem)
	return item.jobID, true
}
