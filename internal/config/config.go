// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ジョブストア設定
	StoreRedisURL    string // ジョブ永続化用Redis接続URL
	RetentionMinutes int    // 終了済みジョブの保持期間（分）

	// スケジューラ設定
	MaxConcurrentJobs int           // 同時実行ジョブ数の上限
	MaxRetries        int           // ジョブごとのリトライ回数上限
	RetryDelay        time.Duration // リトライまでの待機時間
	JobTimeout        time.Duration // 1ステージ実行の制限時間
	CleanupInterval   time.Duration // 終了済みジョブ掃除の実行間隔
	MaxQueueSize      int           // 未終了ジョブ数の上限（受付制限）

	// パイプライン設定
	FFmpegPath    string // ffmpeg実行ファイルのパス
	WhisperPath   string // 文字起こしツールのパス
	TranslateCmd  string // 翻訳コマンドのパス
	TTSBridgePath string // Coqui TTSブリッジスクリプトのパス
	WorkDir       string // ジョブ作業ディレクトリのルート
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// ジョブストア設定
		StoreRedisURL:    getEnv("STORE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		RetentionMinutes: getEnvAsInt("JOB_RETENTION_MINUTES", 60),

		// スケジューラ設定
		MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 2),
		MaxRetries:        getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay:        getEnvAsDuration("RETRY_DELAY_MS", 5000),
		JobTimeout:        getEnvAsDuration("JOB_TIMEOUT_MS", 30*60*1000),
		CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL_MS", 5*60*1000),
		MaxQueueSize:      getEnvAsInt("MAX_QUEUE_SIZE", 50),

		// パイプライン設定
		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
		WhisperPath:   getEnv("WHISPER_PATH", "whisper"),
		TranslateCmd:  getEnv("TRANSLATE_CMD", ""),
		TTSBridgePath: getEnv("TTS_BRIDGE_PATH", ""),
		WorkDir:       getEnv("WORK_DIR", os.TempDir()),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_JOBS must be positive")
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("MAX_QUEUE_SIZE must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}

	// ローカル開発では外部ツール設定は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.StoreRedisURL == "" {
			return fmt.Errorf("STORE_REDIS_URL is required in release mode")
		}
		if c.FFmpegPath == "" {
			return fmt.Errorf("FFMPEG_PATH is required in release mode")
		}
		if c.WhisperPath == "" {
			return fmt.Errorf("WHISPER_PATH is required in release mode")
		}
		if c.TTSBridgePath == "" {
			return fmt.Errorf("TTS_BRIDGE_PATH is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数をミリ秒値として取得し、time.Duration に変換します。
func getEnvAsDuration(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMillis)) * time.Millisecond
}
