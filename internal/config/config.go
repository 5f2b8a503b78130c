package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"

	"github.com/nao1215/pushrelay/pkg/fcm"
)

// ParseEnv は環境変数をtargetの構造体へ読み込む。
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	return nil
}

// Storage はトークンディレクトリの保存先設定。
type Storage struct {
	// DBPath はSQLiteデータベースファイルのパス。
	DBPath string `env:"PUSHRELAY_DB_PATH" envDefault:"data/pushrelay.db"`
}

// Firebase はFCM送信用のサービスアカウント設定。
type Firebase struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	ClientEmail     string `env:"FIREBASE_CLIENT_EMAIL"`
	PrivateKey      string `env:"FIREBASE_PRIVATE_KEY"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	// Endpoint はFCM APIのベースURL。テスト時にモックサーバーへ向けるために変更できる。
	Endpoint string `env:"FCM_ENDPOINT" envDefault:"https://fcm.googleapis.com"`
	// TokenURL はOAuth2トークンエンドポイント。空の場合はGoogleの既定値を使う。
	TokenURL string `env:"FCM_TOKEN_URL"`
}

// Credentials はFCMクライアント生成用の認証情報に変換する。
func (f Firebase) Credentials() fcm.Credentials {
	return fcm.Credentials{
		ProjectID:       f.ProjectID,
		ClientEmail:     f.ClientEmail,
		PrivateKey:      f.PrivateKey,
		CredentialsFile: f.CredentialsFile,
		TokenURL:        f.TokenURL,
	}
}

// Configured はFCMへ送信できるだけの設定が揃っていればtrueを返す。
func (f Firebase) Configured() bool {
	return f.Credentials().Configured()
}

// Relay はHTTPリレーサーバーの設定。
type Relay struct {
	Port string `env:"PORT" envDefault:"8080"`
	// AllowedOrigins はCORSで許可するオリジン。"*"で全て許可する。
	AllowedOrigins []string `env:"PUSHRELAY_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	// FanoutConcurrency は1つのidentityへの同時送信数の上限。
	FanoutConcurrency int `env:"PUSHRELAY_FANOUT_CONCURRENCY" envDefault:"8"`

	Storage  Storage
	Firebase Firebase
}

// Sweeper は定期クリーンアップの設定。
type Sweeper struct {
	// Schedule はcron形式(分 時 日 月 曜日)の実行スケジュール。
	Schedule string `env:"SWEEP_SCHEDULE" envDefault:"0 2 * * *"`
	// TimeZone はScheduleを解釈するタイムゾーン。
	TimeZone string `env:"SWEEP_TIMEZONE" envDefault:"Africa/Lagos"`
	// Retention はこの期間より長く更新のないデバイスを削除対象とする。
	Retention time.Duration `env:"SWEEP_RETENTION" envDefault:"720h"`

	Storage Storage
}

// LoadRelay は環境変数からRelay設定を読み込み検証する。
func LoadRelay() (Relay, error) {
	var cfg Relay
	if err := ParseEnv(&cfg); err != nil {
		return Relay{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Relay{}, err
	}
	return cfg, nil
}

// Validate はRelay設定の値を検証する。
func (r Relay) Validate() error {
	if r.Port == "" {
		return errors.New("PORTが空です")
	}
	if r.FanoutConcurrency < 1 {
		return fmt.Errorf("PUSHRELAY_FANOUT_CONCURRENCYは1以上が必要です: %d", r.FanoutConcurrency)
	}
	if r.Storage.DBPath == "" {
		return errors.New("PUSHRELAY_DB_PATHが空です")
	}
	return nil
}

// LoadSweeper は環境変数からSweeper設定を読み込み検証する。
func LoadSweeper() (Sweeper, error) {
	var cfg Sweeper
	if err := ParseEnv(&cfg); err != nil {
		return Sweeper{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Sweeper{}, err
	}
	return cfg, nil
}

// Validate はSweeper設定の値を検証する。
func (s Sweeper) Validate() error {
	if s.Retention <= 0 {
		return fmt.Errorf("SWEEP_RETENTIONは正の期間が必要です: %s", s.Retention)
	}
	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		return fmt.Errorf("SWEEP_SCHEDULEが不正です: %w", err)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	if s.Storage.DBPath == "" {
		return errors.New("PUSHRELAY_DB_PATHが空です")
	}
	return nil
}

// Location はTimeZoneを*time.Locationに変換する。
func (s Sweeper) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("SWEEP_TIMEZONEが不正です: %w", err)
	}
	return loc, nil
}
