// Package pipeline はダビングの各工程を外部ツールで実行するランナーを提供します。
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yourusername/dubforge/internal/jobs"
)

const (
	extractedAudioFile  = "audio.wav"
	transcriptFile      = "audio.json"
	translatedFile      = "translated.json"
	synthesizedFile     = "speech.wav"
	assembledOutputFile = "output.mp4"
)

// Config はパイプライン実行に必要な外部ツールの設定です。
type Config struct {
	FFmpegPath    string // ffmpeg実行ファイルのパス
	WhisperPath   string // 文字起こしツールのパス
	TranslateCmd  string // 翻訳コマンドのパス
	TTSBridgePath string // Coqui TTSブリッジスクリプトのパス
	WorkDir       string // ジョブ作業ディレクトリのルート
}

// commandRunner は外部コマンド実行を差し替え可能にします。
// 戻り値はstderrの内容です。
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execCommandRunner は os/exec による既定の実装です。
type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Runner は jobs.StageRunner の実装で、工程ごとに外部コマンドを起動します。
// ctx の打ち切りはコマンドのプロセス終了として伝播します。
type Runner struct {
	cfg      Config
	logger   *log.Logger
	commands commandRunner
}

// NewRunner は Runner を作成します。
func NewRunner(cfg Config, logger *log.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		commands: execCommandRunner{},
	}
}

// Run は1工程を実行します。job は作業用コピーで、
// 最終工程の成果物は job.OutputRefs に追記されます。
func (r *Runner) Run(ctx context.Context, stage jobs.Stage, job *jobs.Job) error {
	if len(job.InputRefs) == 0 {
		return &StageError{Stage: stage, Message: "job has no input refs"}
	}

	dir, err := r.workspace(job.ID)
	if err != nil {
		return &StageError{Stage: stage, Message: "failed to prepare workspace", Err: err}
	}
	input := job.InputRefs[0]

	switch stage {
	case jobs.StageExtractAudio:
		return r.extractAudio(ctx, input, dir)
	case jobs.StageTranscribe:
		return r.transcribe(ctx, dir)
	case jobs.StageTranslate:
		return r.translate(ctx, dir)
	case jobs.StageSynthesize:
		return r.synthesize(ctx, dir)
	case jobs.StageAssemble:
		output := filepath.Join(dir, assembledOutputFile)
		if err := r.assemble(ctx, input, dir, output); err != nil {
			return err
		}
		job.OutputRefs = append(job.OutputRefs, output)
		return nil
	default:
		return &StageError{Stage: stage, Message: "unknown stage"}
	}
}

// extractAudio は動画から音声トラックを16kHzモノラルWAVで取り出します。
func (r *Runner) extractAudio(ctx context.Context, input, dir string) error {
	out := filepath.Join(dir, extractedAudioFile)
	return r.runCommand(ctx, jobs.StageExtractAudio, r.cfg.FFmpegPath,
		"-y", "-i", input,
		"-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		out,
	)
}

// transcribe は抽出済み音声を文字起こしします。
func (r *Runner) transcribe(ctx context.Context, dir string) error {
	audio := filepath.Join(dir, extractedAudioFile)
	return r.runCommand(ctx, jobs.StageTranscribe, r.cfg.WhisperPath,
		audio,
		"--output_format", "json",
		"--output_dir", dir,
	)
}

// translate は文字起こし結果を翻訳コマンドに渡します。
func (r *Runner) translate(ctx context.Context, dir string) error {
	if r.cfg.TranslateCmd == "" {
		return &StageError{Stage: jobs.StageTranslate, Message: "TRANSLATE_CMD is not configured"}
	}
	return r.runCommand(ctx, jobs.StageTranslate, r.cfg.TranslateCmd,
		"--input", filepath.Join(dir, transcriptFile),
		"--output", filepath.Join(dir, translatedFile),
	)
}

// synthesize は翻訳済みテキストから音声を合成します。
func (r *Runner) synthesize(ctx context.Context, dir string) error {
	if r.cfg.TTSBridgePath == "" {
		return &StageError{Stage: jobs.StageSynthesize, Message: "TTS_BRIDGE_PATH is not configured"}
	}
	return r.runCommand(ctx, jobs.StageSynthesize, "python3",
		r.cfg.TTSBridgePath,
		"--input", filepath.Join(dir, translatedFile),
		"--output", filepath.Join(dir, synthesizedFile),
	)
}

// assemble は元動画の映像と合成音声を結合して成果物を作ります。
func (r *Runner) assemble(ctx context.Context, input, dir, output string) error {
	speech := filepath.Join(dir, synthesizedFile)
	return r.runCommand(ctx, jobs.StageAssemble, r.cfg.FFmpegPath,
		"-y", "-i", input, "-i", speech,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy", "-shortest",
		output,
	)
}

func (r *Runner) workspace(jobID string) (string, error) {
	dir := filepath.Join(r.cfg.WorkDir, "dubforge", jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// runCommand は外部コマンドを実行し、失敗時にstderrの末尾を添えて返します。
func (r *Runner) runCommand(ctx context.Context, stage jobs.Stage, name string, args ...string) error {
	if r.logger != nil {
		r.logger.Printf("stage %s: running %s %s", stage, name, strings.Join(args, " "))
	}

	stderr, err := r.commands.Run(ctx, name, args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &StageError{
			Stage:   stage,
			Message: fmt.Sprintf("%s failed", filepath.Base(name)),
			Output:  tail(stderr, 500),
			Err:     err,
		}
	}
	return nil
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}

// StageError は工程名付きの実行エラーです。
type StageError struct {
	Stage   jobs.Stage
	Message string
	Output  string
	Err     error
}

// Error は error インターフェースを実装します。
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Output != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Message, e.Output)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap は内包するエラーを公開します。
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
