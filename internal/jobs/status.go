package jobs

import "fmt"

// transitions はジョブ状態遷移の許可テーブルです。
// ここに無い遷移は一切永続化してはいけません。
var transitions = map[Status][]Status{
	StatusUploaded:         {StatusExtractingAudio, StatusFailed},
	StatusExtractingAudio:  {StatusTranscribing, StatusFailed},
	StatusTranscribing:     {StatusTranslating, StatusFailed},
	StatusTranslating:      {StatusGeneratingSpeech, StatusFailed},
	StatusGeneratingSpeech: {StatusAssemblingAudio, StatusFailed},
	StatusAssemblingAudio:  {StatusCompleted, StatusFailed},
	StatusFailed:           {StatusUploaded},
	StatusCompleted:        {},
}

// nextStatus は各実行状態の次工程を表します。
var nextStatus = map[Status]Status{
	StatusUploaded:         StatusExtractingAudio,
	StatusExtractingAudio:  StatusTranscribing,
	StatusTranscribing:     StatusTranslating,
	StatusTranslating:      StatusGeneratingSpeech,
	StatusGeneratingSpeech: StatusAssemblingAudio,
	StatusAssemblingAudio:  StatusCompleted,
}

// stageForStatus は実行状態と実際に動かす工程の対応表です。
var stageForStatus = map[Status]Stage{
	StatusExtractingAudio:  StageExtractAudio,
	StatusTranscribing:     StageTranscribe,
	StatusTranslating:      StageTranslate,
	StatusGeneratingSpeech: StageSynthesize,
	StatusAssemblingAudio:  StageAssemble,
}

// progressForStatus は各状態到達時点の進捗率です。
// 進捗は非終了状態の間は単調増加し、終了状態で固定されます。
var progressForStatus = map[Status]int{
	StatusUploaded:         0,
	StatusExtractingAudio:  10,
	StatusTranscribing:     30,
	StatusTranslating:      50,
	StatusGeneratingSpeech: 70,
	StatusAssemblingAudio:  90,
	StatusCompleted:        100,
}

// CanTransition は current から proposed への遷移が許可されているかを返します。
func CanTransition(current, proposed Status) bool {
	for _, allowed := range transitions[current] {
		if allowed == proposed {
			return true
		}
	}
	return false
}

// ValidateTransition は遷移の可否を検証し、不正な場合はエラーを返します。
// 状態を書き換えるすべての経路は永続化の前に必ずこの検証を通します。
func ValidateTransition(current, proposed Status) error {
	if !CanTransition(current, proposed) {
		return &Error{
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("invalid transition: %s -> %s", current, proposed),
		}
	}
	return nil
}

// StageFor は実行状態に対応する工程を返します。
func StageFor(status Status) (Stage, bool) {
	stage, ok := stageForStatus[status]
	return stage, ok
}
