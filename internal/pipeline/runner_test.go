package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yourusername/dubforge/internal/jobs"
)

// fakeCommands は外部コマンド実行を模擬します。
type fakeCommands struct {
	calls []recordedCall
	run   func(ctx context.Context, name string, args ...string) (string, error)
}

type recordedCall struct {
	name string
	args []string
}

func (f *fakeCommands) Run(ctx context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: append([]string{}, args...)})
	if f.run == nil {
		return "", nil
	}
	return f.run(ctx, name, args...)
}

func newTestRunner(t *testing.T, commands commandRunner) *Runner {
	t.Helper()
	r := NewRunner(Config{
		FFmpegPath:    "ffmpeg-test",
		WhisperPath:   "whisper-test",
		TranslateCmd:  "translate-test",
		TTSBridgePath: "/opt/tts/bridge.py",
		WorkDir:       t.TempDir(),
	}, nil)
	r.commands = commands
	return r
}

func testJob() *jobs.Job {
	return &jobs.Job{
		ID:        "job-1",
		UserID:    "u1",
		InputRefs: []string{"/media/source.mp4"},
	}
}

func TestRunExtractAudioBuildsFFmpegCommand(t *testing.T) {
	fake := &fakeCommands{}
	r := newTestRunner(t, fake)

	if err := r.Run(context.Background(), jobs.StageExtractAudio, testJob()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected 1 command, got %d", len(fake.calls))
	}
	call := fake.calls[0]
	if call.name != "ffmpeg-test" {
		t.Fatalf("command = %s, want ffmpeg-test", call.name)
	}
	joined := strings.Join(call.args, " ")
	if !strings.Contains(joined, "-i /media/source.mp4") {
		t.Fatalf("missing input in args: %s", joined)
	}
	if !strings.HasSuffix(call.args[len(call.args)-1], extractedAudioFile) {
		t.Fatalf("last arg = %s, want *%s", call.args[len(call.args)-1], extractedAudioFile)
	}
}

func TestRunSynthesizeUsesBridgeScript(t *testing.T) {
	fake := &fakeCommands{}
	r := newTestRunner(t, fake)

	if err := r.Run(context.Background(), jobs.StageSynthesize, testJob()); err != nil {
		t.Fatalf("run: %v", err)
	}

	call := fake.calls[0]
	if call.name != "python3" {
		t.Fatalf("command = %s, want python3", call.name)
	}
	if call.args[0] != "/opt/tts/bridge.py" {
		t.Fatalf("args[0] = %s, want bridge path", call.args[0])
	}
}

func TestRunAssembleAppendsOutputRef(t *testing.T) {
	fake := &fakeCommands{}
	r := newTestRunner(t, fake)

	job := testJob()
	if err := r.Run(context.Background(), jobs.StageAssemble, job); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(job.OutputRefs) != 1 {
		t.Fatalf("expected 1 output ref, got %d", len(job.OutputRefs))
	}
	if filepath.Base(job.OutputRefs[0]) != assembledOutputFile {
		t.Fatalf("output = %s, want %s", job.OutputRefs[0], assembledOutputFile)
	}
}

func TestRunWrapsCommandFailure(t *testing.T) {
	fake := &fakeCommands{
		run: func(ctx context.Context, name string, args ...string) (string, error) {
			return "boom: codec not found", errors.New("exit status 1")
		},
	}
	r := newTestRunner(t, fake)

	err := r.Run(context.Background(), jobs.StageTranscribe, testJob())
	if err == nil {
		t.Fatal("expected error")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != jobs.StageTranscribe {
		t.Fatalf("stage = %s, want transcribe", stageErr.Stage)
	}
	if !strings.Contains(stageErr.Error(), "codec not found") {
		t.Fatalf("error should carry stderr tail: %v", stageErr)
	}
}

func TestRunPropagatesCancellation(t *testing.T) {
	fake := &fakeCommands{
		run: func(ctx context.Context, name string, args ...string) (string, error) {
			return "", ctx.Err()
		},
	}
	r := newTestRunner(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, jobs.StageExtractAudio, testJob())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunRequiresConfiguredTranslator(t *testing.T) {
	fake := &fakeCommands{}
	r := NewRunner(Config{
		FFmpegPath:  "ffmpeg-test",
		WhisperPath: "whisper-test",
		WorkDir:     t.TempDir(),
	}, nil)
	r.commands = fake

	err := r.Run(context.Background(), jobs.StageTranslate, testJob())
	if err == nil {
		t.Fatal("expected error for missing TRANSLATE_CMD")
	}
	if len(fake.calls) != 0 {
		t.Fatal("no command should run without a translator")
	}
}

func TestRunRejectsJobWithoutInputs(t *testing.T) {
	r := newTestRunner(t, &fakeCommands{})
	err := r.Run(context.Background(), jobs.StageExtractAudio, &jobs.Job{ID: "job-1"})
	if err == nil {
		t.Fatal("expected error for missing inputs")
	}
}
