package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore は Store のインメモリ実装です。
// テストと Redis を用意しないローカル起動で使用します。
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
	}
}

// Get はジョブ情報を取得します。存在しない場合は nil を返します。
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[jobID].Clone(), nil
}

// Upsert はジョブ情報を保存します。
func (s *MemoryStore) Upsert(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Update は保存済みレコードに mutate を適用して書き戻します。
func (s *MemoryStore) Update(ctx context.Context, jobID string, mutate func(*Job) error) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[jobID]
	if !ok {
		return nil, newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
	}
	job := current.Clone()
	if err := mutate(job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now().UTC()
	s.jobs[jobID] = job
	return job.Clone(), nil
}

// ListByUser は指定ユーザーのジョブ一覧を取得します。
func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0)
	for _, job := range s.jobs {
		if job.UserID == userID {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

// ListNonTerminal は未終了の全ジョブを取得します。
func (s *MemoryStore) ListNonTerminal(ctx context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0)
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

// Delete はジョブレコードを削除します。
func (s *MemoryStore) Delete(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}
