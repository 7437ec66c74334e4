// Package jobs はダビングジョブのキュー管理とライフサイクル制御を提供します。
package jobs

import "time"

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusUploaded         Status = "uploaded"
	StatusExtractingAudio  Status = "extracting_audio"
	StatusTranscribing     Status = "transcribing"
	StatusTranslating      Status = "translating"
	StatusGeneratingSpeech Status = "generating_speech"
	StatusAssemblingAudio  Status = "assembling_audio"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// Terminal は終了状態（完了・失敗）かどうかを返します。
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Running はパイプライン実行中の状態かどうかを返します。
func (s Status) Running() bool {
	switch s {
	case StatusExtractingAudio, StatusTranscribing, StatusTranslating,
		StatusGeneratingSpeech, StatusAssemblingAudio:
		return true
	default:
		return false
	}
}

// Stage はパイプラインの1工程を表します。
type Stage string

const (
	StageExtractAudio Stage = "extract_audio"
	StageTranscribe   Stage = "transcribe"
	StageTranslate    Stage = "translate"
	StageSynthesize   Stage = "synthesize"
	StageAssemble     Stage = "assemble"
)

// Job はダビングジョブの現在状態を表します。
type Job struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Title        string     `json:"title"`
	Priority     int        `json:"priority"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	RetryCount   int        `json:"retryCount"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	InputRefs    []string   `json:"inputRefs"`
	OutputRefs   []string   `json:"outputRefs,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Clone はジョブの独立したコピーを返します。
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	clone.InputRefs = append([]string(nil), j.InputRefs...)
	clone.OutputRefs = append([]string(nil), j.OutputRefs...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		clone.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		clone.CompletedAt = &t
	}
	return &clone
}

// SubmitSpec はジョブ投入時の入力を表します。
type SubmitSpec struct {
	UserID    string   `json:"userId"`
	Title     string   `json:"title"`
	Priority  int      `json:"priority"`
	InputRefs []string `json:"inputRefs"`
}

// QueueStats はキューの稼働状況を表します。
type QueueStats struct {
	Running   int `json:"running"`
	Queued    int `json:"queued"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Capacity  int `json:"capacity"`
}
