package sweep

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nao1215/pushrelay/internal/directory"
)

// DefaultRetention はこの期間より長く更新のない端末を削除対象とする既定値。
const DefaultRetention = 30 * 24 * time.Hour

// Directory はクリーンアップに必要なトークンディレクトリの操作。
type Directory interface {
	StaleDeviceTokens(ctx context.Context, retention time.Duration) iter.Seq2[directory.DeviceToken, error]
	DeleteDevice(ctx context.Context, token string) error
	PruneTokens(ctx context.Context, identity string, tokens []string) (int, error)
}

// Report は1回の実行結果。
type Report struct {
	// RunID は実行ごとに採番する識別子。
	RunID string
	// Scanned は削除対象として見つかった端末数。
	Scanned int
	// Removed は削除できた端末数。
	Removed int
	// Failed は削除に失敗した端末数。
	Failed int
	// StartedAt は実行開始時刻。
	StartedAt time.Time
	// Duration は実行にかかった時間。
	Duration time.Duration
}

// Sweeper は古い端末トークンを削除する。
type Sweeper struct {
	// directory はトークンディレクトリ。
	directory Directory
	// retention は削除対象とする未更新期間。
	retention time.Duration
}

// New は新しいSweeperを生成する。retentionが0以下の場合はDefaultRetentionを使う。
func New(dir Directory, retention time.Duration) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{directory: dir, retention: retention}
}

// Run は古い端末を1回走査して削除する。
// 個々の端末の削除失敗はReport.Failedに数えて続行し、走査の失敗だけをエラーとして返す。
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	log.Printf("[Sweep] 開始: run=%s, retention=%s", report.RunID, s.retention)

	for dev, err := range s.directory.StaleDeviceTokens(ctx, s.retention) {
		if err != nil {
			report.Duration = time.Since(report.StartedAt)
			return report, fmt.Errorf("古い端末の走査に失敗: %w", err)
		}
		report.Scanned++

		if err := s.remove(ctx, dev); err != nil {
			report.Failed++
			log.Printf("[Sweep] 端末の削除に失敗: run=%s, identity=%s, token=%s, error=%v",
				report.RunID, directory.ShortIdentity(dev.Identity), directory.ShortToken(dev.Token), err)
			continue
		}
		report.Removed++
	}

	report.Duration = time.Since(report.StartedAt)
	log.Printf("[Sweep] 完了: run=%s, scanned=%d, removed=%d, failed=%d, duration=%s",
		report.RunID, report.Scanned, report.Removed, report.Failed, report.Duration)
	return report, nil
}

// remove は所有者のトークン集合から外したあと端末レコードを削除する。
// 集合からの削除に失敗した場合は端末レコードを残し、次回の実行で再び対象になる。
func (s *Sweeper) remove(ctx context.Context, dev directory.DeviceToken) error {
	if dev.Identity != "" {
		if _, err := s.directory.PruneTokens(ctx, dev.Identity, []string{dev.Token}); err != nil {
			return fmt.Errorf("トークン集合からの削除に失敗: %w", err)
		}
	}
	if err := s.directory.DeleteDevice(ctx, dev.Token); err != nil {
		return fmt.Errorf("端末レコードの削除に失敗: %w", err)
	}
	return nil
}

// Schedule はcron式specに従ってRunを繰り返し、ctxがキャンセルされるまでブロックする。
// 前回の実行が終わっていない場合はその回をスキップする。
func (s *Sweeper) Schedule(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Run(ctx); err != nil {
			log.Printf("[Sweep] 実行に失敗: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("スケジュールの登録に失敗: %w", err)
	}

	c.Start()
	log.Printf("[Sweep] スケジュールを開始しました: spec=%q, timezone=%s", spec, loc)

	<-ctx.Done()
	<-c.Stop().Done()
	log.Printf("[Sweep] スケジュールを停止しました")
	return nil
}
