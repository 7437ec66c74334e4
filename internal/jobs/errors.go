package jobs

import (
	"errors"
	"fmt"
)

// エラーコード一覧。HTTP層はこのコードをレスポンスに変換します。
const (
	CodeInvalidSpec       = "INVALID_SPEC"
	CodeQueueFull         = "QUEUE_FULL"
	CodeNotFound          = "JOB_NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidState      = "INVALID_STATE"
	CodeStageTimeout      = "STAGE_TIMEOUT"
	CodeStageFailure      = "STAGE_FAILED"
	CodePermanentFailure  = "RETRIES_EXHAUSTED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error はコード付きのジョブ操作エラーです。
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap は内包するエラーを公開します。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// newError はコードとメッセージからエラーを作成します。
func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ErrorCode はエラーからコードを取り出します。コード無しの場合は INTERNAL_ERROR を返します。
func ErrorCode(err error) string {
	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr.Code
	}
	return CodeInternal
}

// IsCode はエラーが指定コードを持つかどうかを返します。
func IsCode(err error, code string) bool {
	var jobErr *Error
	return errors.As(err, &jobErr) && jobErr.Code == code
}
