package jobs

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// 所有者IDは前段の認証レイヤが付与するヘッダーから受け取ります。
const ownerHeader = "X-User-ID"

// InputValidator は投入時の入力参照チェックを差し込むための関数型です。
type InputValidator func(refs []string) error

// SubmitHandler は POST /api/jobs のハンドラーを返します。
func SubmitHandler(s *Scheduler, validateInputs InputValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}

		var req struct {
			Title     string   `json:"title"`
			Priority  int      `json:"priority"`
			InputRefs []string `json:"inputRefs"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    CodeInvalidSpec,
				"message": "リクエストボディを解釈できません。",
			})
			return
		}

		if validateInputs != nil {
			if err := validateInputs(req.InputRefs); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    CodeInvalidSpec,
					"message": err.Error(),
				})
				return
			}
		}

		job, err := s.Submit(c.Request.Context(), SubmitSpec{
			UserID:    userID,
			Title:     req.Title,
			Priority:  req.Priority,
			InputRefs: req.InputRefs,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, job)
	}
}

// StartHandler は POST /api/jobs/:id/start のハンドラーを返します。
func StartHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}
		jobID, ok := requireJobID(c)
		if !ok {
			return
		}

		if err := s.Start(c.Request.Context(), jobID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"jobId": jobID})
	}
}

// CancelHandler は POST /api/jobs/:id/cancel のハンドラーを返します。
func CancelHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}
		jobID, ok := requireJobID(c)
		if !ok {
			return
		}

		cancelled := s.Cancel(c.Request.Context(), jobID, userID)
		c.JSON(http.StatusOK, gin.H{"jobId": jobID, "cancelled": cancelled})
	}
}

// RetryHandler は POST /api/jobs/:id/retry のハンドラーを返します。
func RetryHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}
		jobID, ok := requireJobID(c)
		if !ok {
			return
		}

		if err := s.Retry(c.Request.Context(), jobID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobId": jobID})
	}
}

// DeleteHandler は DELETE /api/jobs/:id のハンドラーを返します。
func DeleteHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}
		jobID, ok := requireJobID(c)
		if !ok {
			return
		}

		if err := s.Delete(c.Request.Context(), jobID, userID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// GetHandler は GET /api/jobs/:id のハンドラーを返します。
func GetHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}
		jobID, ok := requireJobID(c)
		if !ok {
			return
		}

		job, err := s.GetJob(c.Request.Context(), jobID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// ListHandler は GET /api/jobs のハンドラーを返します。
func ListHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": s.GetUserJobs(userID)})
	}
}

// StatsHandler は GET /api/queue/stats のハンドラーを返します。
func StatsHandler(s *Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.GetQueueStats())
	}
}

// EventsHandler は GET /api/events のハンドラーを返します。
// since パラメータより新しい自分宛イベントを増分で返します。
func EventsHandler(bus *EventBus) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireOwner(c)
		if !ok {
			return
		}

		since := int64(0)
		if raw := c.Query("since"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    CodeInvalidSpec,
					"message": "since は整数で指定してください。",
				})
				return
			}
			since = parsed
		}

		c.JSON(http.StatusOK, gin.H{"events": bus.SinceForUser(userID, since)})
	}
}

func requireOwner(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetHeader(ownerHeader))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeInvalidSpec,
			"message": "X-User-ID ヘッダーを指定してください。",
		})
		return "", false
	}
	return userID, true
}

func requireJobID(c *gin.Context) (string, bool) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    CodeInvalidSpec,
			"message": "jobId を指定してください。",
		})
		return "", false
	}
	return jobID, true
}

// respondError はエラーコードをHTTPステータスに変換して返します。
func respondError(c *gin.Context, err error) {
	var jobErr *Error
	if !errors.As(err, &jobErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    CodeInternal,
			"message": "内部エラーが発生しました。",
		})
		return
	}

	status := http.StatusInternalServerError
	switch jobErr.Code {
	case CodeInvalidSpec:
		status = http.StatusBadRequest
	case CodeQueueFull:
		status = http.StatusTooManyRequests
	case CodeNotFound:
		status = http.StatusNotFound
	case CodeInvalidTransition, CodeInvalidState:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{
		"code":    jobErr.Code,
		"message": jobErr.Message,
	})
}
