package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StageRunner はパイプラインの1工程を実行します。
// job は作業用コピーであり、実装は成果物のパスを OutputRefs に追記できます。
// ctx の打ち切り（キャンセル・タイムアウト）を必ず観測してください。
type StageRunner interface {
	Run(ctx context.Context, stage Stage, job *Job) error
}

// SchedulerConfig はスケジューラの動作設定です。
type SchedulerConfig struct {
	MaxConcurrentJobs int           // 同時実行スロット数
	MaxRetries        int           // 工程ごとのリトライ回数上限
	RetryDelay        time.Duration // リトライまでの待機時間
	JobTimeout        time.Duration // 1工程あたりの制限時間
	CleanupInterval   time.Duration // 終了済みジョブ掃除の間隔
	Retention         time.Duration // 終了済みジョブをインデックスに残す期間
	MaxQueueSize      int           // 未終了ジョブ数の受付上限
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 2
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 50
	}
	return c
}

// jobEntry はインメモリインデックスの1要素です。
// job と実行状態の書き換えは必ず mu の下で行います。キャンセルと
// 工程完了が同じロックを奪い合うため、勝敗は常に決定的になります。
type jobEntry struct {
	mu         sync.Mutex
	job        *Job
	cancel     context.CancelFunc // 実行中のみ非nil
	runSeq     uint64             // 実行の世代番号。endRun の取り違え防止
	queued     bool               // 実行待ちキュー（またはリトライ待ち）に積まれているか
	retryTimer *time.Timer        // リトライ待機中のみ非nil
	deleted    bool
}

// defuseRetryLocked は実行待ちの予約とリトライ予約を取り消します。
// entry.mu を保持して呼びます。queued が落ちたジョブはディスパッチャに
// 取り出されても実行されません。
func defuseRetryLocked(entry *jobEntry) {
	entry.queued = false
	if entry.retryTimer != nil {
		entry.retryTimer.Stop()
		entry.retryTimer = nil
	}
}

// Scheduler はダビングジョブの受付・実行・復元を司ります。
// プロセスごとに1インスタンスを構築し、StartWorkers/Shutdown で
// ライフサイクルを管理します。
type Scheduler struct {
	cfg      SchedulerConfig
	store    Store
	runner   StageRunner
	notifier Notifier
	logger   *log.Logger

	mu     sync.Mutex
	jobs   map[string]*jobEntry
	ready  *readyQueue
	closed bool

	slots chan struct{}
	wake  chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewScheduler は Scheduler を初期化します。
func NewScheduler(cfg SchedulerConfig, store Store, runner StageRunner, notifier Notifier, logger *log.Logger) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	cfg = cfg.withDefaults()

	return &Scheduler{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		notifier: notifier,
		logger:   logger,
		jobs:     make(map[string]*jobEntry),
		ready:    newReadyQueue(),
		slots:    make(chan struct{}, cfg.MaxConcurrentJobs),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// StartWorkers はディスパッチャと掃除ループをバックグラウンドで起動します。
func (s *Scheduler) StartWorkers() {
	s.wg.Add(2)
	go s.dispatch()
	go s.cleanupLoop()
}

// Shutdown は新規実行を止め、実行中の工程に中断を通知して終了を待ちます。
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	entries := make([]*jobEntry, 0, len(s.jobs))
	for _, entry := range s.jobs {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	close(s.done)
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.cancel != nil {
			entry.cancel()
		}
		entry.mu.Unlock()
	}

	waitCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit はジョブを受け付けて UPLOADED 状態で永続化します。
// 未終了ジョブ数が上限に達している場合は何も書き込まずに QUEUE_FULL を返します。
func (s *Scheduler) Submit(ctx context.Context, spec SubmitSpec) (*Job, error) {
	if spec.UserID == "" {
		return nil, newError(CodeInvalidSpec, "userId is required")
	}
	if spec.Title == "" {
		return nil, newError(CodeInvalidSpec, "title is required")
	}
	if len(spec.InputRefs) == 0 {
		return nil, newError(CodeInvalidSpec, "at least one input is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newError(CodeInvalidState, "scheduler is shut down")
	}
	if s.nonTerminalLocked() >= s.cfg.MaxQueueSize {
		return nil, newError(CodeQueueFull, fmt.Sprintf("queue limit reached (%d)", s.cfg.MaxQueueSize))
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New().String(),
		UserID:    spec.UserID,
		Title:     spec.Title,
		Priority:  spec.Priority,
		Status:    StatusUploaded,
		InputRefs: append([]string(nil), spec.InputRefs...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Upsert(ctx, job); err != nil {
		return nil, err
	}
	s.jobs[job.ID] = &jobEntry{job: job.Clone()}
	s.emitJob(job, "job accepted")
	return job.Clone(), nil
}

// Start は UPLOADED のジョブを実行待ちキューに投入します。
// 空きスロットがあれば即座に実行が始まり、無ければスロットが空くまで待機します。
func (s *Scheduler) Start(ctx context.Context, jobID, userID string) error {
	entry := s.lookup(jobID, userID)
	if entry == nil {
		return newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
	}

	entry.mu.Lock()
	if entry.job.Status != StatusUploaded || entry.queued {
		current := entry.job.Status
		entry.mu.Unlock()
		return &Error{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("job cannot start from status %s", current),
		}
	}
	entry.queued = true
	id, priority, createdAt := entry.job.ID, entry.job.Priority, entry.job.CreatedAt
	entry.mu.Unlock()

	s.enqueueReady(id, priority, createdAt)
	return nil
}

// Cancel はジョブを利用者都合で失敗状態にします。
// 対象が存在しない・所有者が異なる・既に終了している場合は false を返します。
func (s *Scheduler) Cancel(ctx context.Context, jobID, userID string) bool {
	entry := s.lookup(jobID, userID)
	if entry == nil {
		return false
	}

	entry.mu.Lock()
	if entry.job.Status.Terminal() {
		entry.mu.Unlock()
		return false
	}
	err := s.persistStatus(entry, StatusFailed, "cancelled by user", nil)
	cancel := entry.cancel
	if err == nil {
		defuseRetryLocked(entry)
	}
	entry.mu.Unlock()

	if err != nil {
		s.logf("cancel failed job=%s: %v", jobID, err)
		return false
	}
	// 実行中の工程に中断を通知する（強制終了はしない）
	if cancel != nil {
		cancel()
	}
	return true
}

// Retry は失敗したジョブを UPLOADED に戻し、最初からやり直せるようにします。
// 過去の実行待ち予約はここで無効化され、再開は所有者の開始操作を待ちます。
func (s *Scheduler) Retry(ctx context.Context, jobID, userID string) error {
	entry := s.lookup(jobID, userID)
	if entry == nil {
		return newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := s.persistStatus(entry, StatusUploaded, "", nil); err != nil {
		return err
	}
	defuseRetryLocked(entry)
	return nil
}

// Delete はジョブをストアとインデックスから削除します。
// 実行中のジョブは削除できません（先にキャンセルが必要です）。
func (s *Scheduler) Delete(ctx context.Context, jobID, userID string) error {
	entry := s.lookup(jobID, userID)
	if entry == nil {
		return newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
	}

	entry.mu.Lock()
	if entry.job.Status.Running() || entry.cancel != nil {
		entry.mu.Unlock()
		return newError(CodeInvalidState, "job is running; cancel it before deleting")
	}
	entry.deleted = true
	id := entry.job.ID
	entry.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	return nil
}

// UpdateProgress は工程実行からの進捗報告を検証付きで書き込みます。
// 状態が変わる場合は遷移テーブルを通し、同一状態では進捗を単調増加に保ちます。
func (s *Scheduler) UpdateProgress(ctx context.Context, jobID string, status Status, progress int, message string) error {
	entry := s.lookupByID(jobID)
	if entry == nil {
		return newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.job.Status != status {
		return s.persistStatus(entry, status, message, nil)
	}
	if entry.job.Status.Terminal() {
		return newError(CodeInvalidState, "progress is frozen on terminal status")
	}

	updated, err := s.store.Update(context.Background(), entry.job.ID, func(j *Job) error {
		if j.Status != status {
			return ValidateTransition(j.Status, status)
		}
		if progress > j.Progress {
			j.Progress = progress
		}
		return nil
	})
	if err != nil {
		return err
	}
	entry.job = updated
	s.emitJob(updated, message)
	return nil
}

// GetJob は所有者のジョブを1件取得します。
// インデックスから掃除済みの場合はストアから読み直します。
func (s *Scheduler) GetJob(ctx context.Context, jobID, userID string) (*Job, error) {
	if entry := s.lookup(jobID, userID); entry != nil {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		return entry.job.Clone(), nil
	}

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, newError(CodeNotFound, fmt.Sprintf("job not found: %s", jobID))
	}
	return job, nil
}

// GetUserJobs は所有者のジョブ一覧のスナップショットを返します。
// キューは直近のジョブに対して正であり、全履歴はストア側にあります。
func (s *Scheduler) GetUserJobs(userID string) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0)
	for _, entry := range s.jobs {
		entry.mu.Lock()
		if entry.job.UserID == userID {
			out = append(out, entry.job.Clone())
		}
		entry.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetQueueStats はキューの稼働状況を返します。
func (s *Scheduler) GetQueueStats() QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := QueueStats{Capacity: s.cfg.MaxConcurrentJobs}
	for _, entry := range s.jobs {
		entry.mu.Lock()
		switch {
		case entry.job.Status == StatusCompleted:
			stats.Completed++
		case entry.job.Status == StatusFailed:
			stats.Failed++
		case entry.cancel != nil:
			stats.Running++
		default:
			stats.Queued++
		}
		entry.mu.Unlock()
	}
	return stats
}

// LoadJobsFromDatabase はプロセス起動時にストアからインデックスを復元します。
// 実行途中で残っていたジョブは完了扱いにせず、中断として同じ工程から
// 再実行キューに戻します。UPLOADED のジョブは所有者の開始操作を待ちます。
func (s *Scheduler) LoadJobsFromDatabase(ctx context.Context) error {
	stored, err := s.store.ListNonTerminal(ctx)
	if err != nil {
		return err
	}

	sort.Slice(stored, func(i, j int) bool {
		if stored[i].Priority != stored[j].Priority {
			return stored[i].Priority > stored[j].Priority
		}
		return stored[i].CreatedAt.Before(stored[j].CreatedAt)
	})

	recovered := 0
	s.mu.Lock()
	for _, job := range stored {
		if _, ok := s.jobs[job.ID]; ok {
			continue
		}
		entry := &jobEntry{job: job.Clone()}
		s.jobs[job.ID] = entry
		if job.Status.Running() {
			entry.queued = true
			s.ready.push(job.ID, job.Priority, job.CreatedAt)
			recovered++
		}
	}
	s.mu.Unlock()

	if recovered > 0 {
		s.logf("recovered %d interrupted job(s) for retry", recovered)
	}
	s.signalWake()
	return nil
}

// dispatch は空きスロットと実行待ちキューを突き合わせるループです。
// 先にスロットを確保してから先頭を取り出すことで、待機中に積まれた
// 高優先度ジョブの追い抜きを保証します。
func (s *Scheduler) dispatch() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for s.queueLen() > 0 {
			select {
			case s.slots <- struct{}{}:
			case <-s.done:
				return
			}
			entry := s.nextReady()
			if entry == nil {
				<-s.slots
				break
			}
			s.wg.Add(1)
			go s.execute(entry)
		}
	}
}

func (s *Scheduler) queueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Len()
}

// execute は1ジョブを現在の工程から終端まで進めます。
func (s *Scheduler) execute(entry *jobEntry) {
	defer s.wg.Done()
	defer func() { <-s.slots }()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq, ok := s.beginRun(entry, cancel)
	if !ok {
		return
	}

	for {
		entry.mu.Lock()
		status := entry.job.Status
		snapshot := entry.job.Clone()
		entry.mu.Unlock()

		stage, ok := StageFor(status)
		if !ok {
			break
		}

		stageCtx, cancelStage := context.WithTimeout(runCtx, s.cfg.JobTimeout)
		started := time.Now()
		err := s.runner.Run(stageCtx, stage, snapshot)
		elapsed := time.Since(started)
		timedOut := stageCtx.Err() == context.DeadlineExceeded
		cancelStage()

		if err == nil && timedOut {
			// ランナーが打ち切りを握りつぶしても失敗として扱う
			err = context.DeadlineExceeded
		}
		if err != nil {
			if !timedOut && errors.Is(err, context.Canceled) && s.draining() {
				// シャットダウンによる中断は失敗として数えない。
				// 状態をそのまま残し、次回起動時の復元で同じ工程から再開する
				s.logf("stage %s interrupted by shutdown job=%s", stage, snapshot.ID)
				break
			}
			s.logf("stage %s failed job=%s attempt=%d elapsed=%s: %v",
				stage, snapshot.ID, snapshot.RetryCount+1, elapsed, err)
			s.handleStageFailure(entry, status, err, timedOut)
			break
		}

		s.logf("stage %s done job=%s elapsed=%s", stage, snapshot.ID, elapsed)
		if !s.advanceStage(entry, status, snapshot.OutputRefs) {
			break
		}
	}

	s.endRun(entry, seq)
}

// draining はシャットダウンが始まっているかどうかを返します。
func (s *Scheduler) draining() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// beginRun は実行開始時の状態遷移と中断ハンドルの登録を行います。
// キュー待ちの間にキャンセル・削除・リトライされたジョブはここで弾きます。
// queued はキュー投入ごとに立つトークンであり、落ちていればそのキュー項目は
// 失効済みです。戻り値の seq は endRun で自分の実行を識別するために使います。
func (s *Scheduler) beginRun(entry *jobEntry, cancel context.CancelFunc) (uint64, bool) {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.queued {
		return 0, false
	}
	entry.queued = false
	if entry.deleted || entry.cancel != nil || entry.job.Status.Terminal() {
		return 0, false
	}
	if entry.job.Status == StatusUploaded {
		if err := s.persistStatus(entry, StatusExtractingAudio, "", nil); err != nil {
			s.logf("failed to start job=%s: %v", entry.job.ID, err)
			return 0, false
		}
	}
	entry.runSeq++
	entry.cancel = cancel
	return entry.runSeq, true
}

// endRun は自分の実行が登録した中断ハンドルだけを外します。
// 後続の実行が既に始まっていた場合は何もしません。
func (s *Scheduler) endRun(entry *jobEntry, seq uint64) {
	entry.mu.Lock()
	if entry.runSeq == seq {
		entry.cancel = nil
	}
	entry.mu.Unlock()
}

// advanceStage は工程成功後に次の状態へ進めます。
// キャンセルと競合して状態が変わっていた場合、工程の結果は破棄されます。
func (s *Scheduler) advanceStage(entry *jobEntry, from Status, outputs []string) bool {
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.job.Status != from {
		return false
	}
	next := nextStatus[from]
	err := s.persistStatus(entry, next, "", func(j *Job) {
		if len(outputs) > len(j.OutputRefs) {
			j.OutputRefs = append([]string(nil), outputs...)
		}
	})
	if err != nil {
		s.logf("failed to advance job=%s from %s: %v", entry.job.ID, from, err)
		return false
	}
	return next.Running()
}

// handleStageFailure は工程失敗時のリトライ判定を行います。
// リトライ回数が残っていれば同じ工程のまま待機後にキューへ戻し、
// 尽きていれば永続的な失敗として確定します。
func (s *Scheduler) handleStageFailure(entry *jobEntry, from Status, cause error, timedOut bool) {
	entry.mu.Lock()

	if entry.job.Status != from {
		entry.mu.Unlock()
		return
	}

	stage, _ := StageFor(from)
	failure := &Error{Code: CodeStageFailure, Message: fmt.Sprintf("stage %s failed", stage), Err: cause}
	if timedOut {
		failure = newError(CodeStageTimeout, fmt.Sprintf("stage %s timed out", stage))
	}
	message := failure.Error()

	if entry.job.RetryCount < s.cfg.MaxRetries {
		updated, err := s.store.Update(context.Background(), entry.job.ID, func(j *Job) error {
			if j.Status != from {
				return newError(CodeInvalidState, "job state changed during failure handling")
			}
			j.RetryCount++
			j.ErrorMessage = message
			return nil
		})
		if err != nil {
			entry.mu.Unlock()
			s.logf("failed to record retry job=%s: %v", entry.job.ID, err)
			return
		}
		entry.job = updated
		// この実行は終了扱い。リトライ待ちの印を立てる前に中断ハンドルを外し、
		// 次の実行が開始できる状態にする
		entry.cancel = nil
		entry.queued = true
		entry.mu.Unlock()

		s.emitJob(updated, message)
		s.scheduleRetry(entry, updated.ID, updated.Priority, updated.CreatedAt)
		return
	}

	id := entry.job.ID
	final := &Error{
		Code:    CodePermanentFailure,
		Message: fmt.Sprintf("gave up after %d attempts", entry.job.RetryCount+1),
		Err:     failure,
	}
	err := s.persistStatus(entry, StatusFailed, final.Error(), nil)
	entry.mu.Unlock()
	if err != nil {
		s.logf("failed to mark job failed job=%s: %v", id, err)
	}
}

// scheduleRetry は待機時間の経過後にジョブをキューへ戻します。
// 待機中にキャンセルや全体リトライで予約が取り消されていた場合は何もしません。
func (s *Scheduler) scheduleRetry(entry *jobEntry, jobID string, priority int, createdAt time.Time) {
	entry.mu.Lock()
	entry.retryTimer = time.AfterFunc(s.cfg.RetryDelay, func() {
		entry.mu.Lock()
		entry.retryTimer = nil
		pending := entry.queued && !entry.deleted
		entry.mu.Unlock()
		if pending {
			s.enqueueReady(jobID, priority, createdAt)
		}
	})
	entry.mu.Unlock()
}

// persistStatus は遷移検証付きで状態変更を永続化し、
// インメモリの状態を揃えてイベントを発行します。entry.mu を保持して呼びます。
func (s *Scheduler) persistStatus(entry *jobEntry, proposed Status, message string, extra func(*Job)) error {
	updated, err := s.store.Update(context.Background(), entry.job.ID, func(j *Job) error {
		if err := ValidateTransition(j.Status, proposed); err != nil {
			return err
		}
		j.Status = proposed
		if p, ok := progressForStatus[proposed]; ok && p > j.Progress {
			j.Progress = p
		}
		now := time.Now().UTC()
		switch proposed {
		case StatusFailed:
			j.ErrorMessage = message
			j.CompletedAt = &now
		case StatusCompleted:
			j.ErrorMessage = ""
			j.CompletedAt = &now
		case StatusUploaded:
			// 全体リトライ: 進捗とリトライ回数を巻き戻す
			j.Progress = 0
			j.RetryCount = 0
			j.ErrorMessage = ""
			j.StartedAt = nil
			j.CompletedAt = nil
			j.OutputRefs = nil
		default:
			j.ErrorMessage = ""
			if j.StartedAt == nil {
				j.StartedAt = &now
			}
		}
		if extra != nil {
			extra(j)
		}
		return nil
	})
	if err != nil {
		return err
	}
	entry.job = updated
	s.emitJob(updated, message)
	return nil
}

func (s *Scheduler) enqueueReady(jobID string, priority int, createdAt time.Time) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.jobs[jobID]; !ok {
		s.mu.Unlock()
		return
	}
	s.ready.push(jobID, priority, createdAt)
	s.mu.Unlock()
	s.signalWake()
}

func (s *Scheduler) nextReady() *jobEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id, ok := s.ready.pop()
		if !ok {
			return nil
		}
		if entry, ok := s.jobs[id]; ok {
			return entry
		}
	}
}

func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// cleanupLoop は終了済みジョブを保持期間経過後にインデックスから外します。
// ストア側のレコードは TTL による期限切れに任せます。
func (s *Scheduler) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanupOnce()
		}
	}
}

func (s *Scheduler) cleanupOnce() {
	cutoff := time.Now().UTC().Add(-s.cfg.Retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.jobs {
		entry.mu.Lock()
		expired := entry.job.Status.Terminal() && entry.job.UpdatedAt.Before(cutoff)
		entry.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

func (s *Scheduler) lookup(jobID, userID string) *jobEntry {
	s.mu.Lock()
	entry, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.job.UserID != userID || entry.deleted {
		return nil
	}
	return entry
}

func (s *Scheduler) lookupByID(jobID string) *jobEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[jobID]
}

// nonTerminalLocked は未終了ジョブ数を数えます。s.mu を保持して呼びます。
func (s *Scheduler) nonTerminalLocked() int {
	count := 0
	for _, entry := range s.jobs {
		entry.mu.Lock()
		if !entry.job.Status.Terminal() {
			count++
		}
		entry.mu.Unlock()
	}
	return count
}

func (s *Scheduler) emitJob(job *Job, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(job.UserID, Event{
		JobID:    job.ID,
		Type:     EventTypeJobUpdate,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  message,
	})
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
