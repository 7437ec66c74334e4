package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix    = "job:"
	userJobsPrefix  = "user:"
	activeJobsKey   = "jobs:active"
	userJobsPostfix = ":jobs"
)

// Store はジョブレコードの永続化を抽象化します。
// Update は「現在値を読み、検証してから書く」パターンを提供し、
// 状態遷移バリデーションを飛ばした上書きを防ぎます。
type Store interface {
	Get(ctx context.Context, jobID string) (*Job, error)
	Upsert(ctx context.Context, job *Job) error
	Update(ctx context.Context, jobID string, mutate func(*Job) error) (*Job, error)
	ListByUser(ctx context.Context, userID string) ([]*Job, error)
	ListNonTerminal(ctx context.Context) ([]*Job, error)
	Delete(ctx context.Context, jobID string) error
}

// RedisStore はジョブ状態を Redis に保存します。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore は RedisStore を作成します。
// ttl は終了状態レコードの保持期間です（0 の場合は無期限）。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はジョブ情報を取得します。存在しない場合は nil を返します。
func (s *RedisStore) Get(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Upsert はジョブ情報を保存します（存在しない場合は作成）。
func (s *RedisStore) Upsert(ctx context.Context, job *Job) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	return s.write(ctx, job)
}

// Update は現在のレコードを読み、mutate を適用してから書き戻します。
// mutate がエラーを返した場合は何も書き込まれません。
// 書き込み競合が起きた場合は読み直して再試行します。
func (s *RedisStore) Update(ctx context.Context, jobID string, mutate func(*Job) error) (*Job, error) {
	key := jobKey(jobID)
	var updated *Job

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
			}
			return err
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}
		if err := mutate(&job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(&job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttlFor(&job))
			s.updateIndexes(ctx, pipe, &job)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &job
		return nil
	}

	for {
		err := s.rdb.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
}

// ListByUser は指定ユーザーのジョブ一覧を取得します。
func (s *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Job, error) {
	key := userJobsKey(userID)
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return s.fetchAll(ctx, key, ids)
}

// ListNonTerminal は未終了の全ジョブを取得します。起動時の復元に使用します。
func (s *RedisStore) ListNonTerminal(ctx context.Context) ([]*Job, error) {
	ids, err := s.rdb.SMembers(ctx, activeJobsKey).Result()
	if err != nil {
		return nil, err
	}
	return s.fetchAll(ctx, activeJobsKey, ids)
}

// Delete はジョブレコードとインデックスを削除します。
func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, jobKey(jobID))
	pipe.SRem(ctx, activeJobsKey, jobID)
	if job != nil {
		pipe.SRem(ctx, userJobsKey(job.UserID), jobID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) write(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), payload, s.ttlFor(job))
	s.updateIndexes(ctx, pipe, job)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) updateIndexes(ctx context.Context, pipe redis.Pipeliner, job *Job) {
	pipe.SAdd(ctx, userJobsKey(job.UserID), job.ID)
	if job.Status.Terminal() {
		pipe.SRem(ctx, activeJobsKey, job.ID)
	} else {
		pipe.SAdd(ctx, activeJobsKey, job.ID)
	}
}

// ttlFor は終了済みジョブにのみ保持期限を設定します。
func (s *RedisStore) ttlFor(job *Job) time.Duration {
	if s.ttl > 0 && job.Status.Terminal() {
		return s.ttl
	}
	return 0
}

// fetchAll はインデックス集合の ID からレコードを読み出します。
// indexKey は読み出し元の集合で、TTL切れの ID はそこからも掃除します。
func (s *RedisStore) fetchAll(ctx context.Context, indexKey string, ids []string) ([]*Job, error) {
	out := make([]*Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		// TTL切れでレコードだけ消えたIDはインデックスから掃除する
		if job == nil {
			s.rdb.SRem(ctx, indexKey, id)
			if indexKey != activeJobsKey {
				s.rdb.SRem(ctx, activeJobsKey, id)
			}
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func userJobsKey(userID string) string {
	return userJobsPrefix + userID + userJobsPostfix
}
