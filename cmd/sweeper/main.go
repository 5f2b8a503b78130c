// 古い端末トークンの定期クリーンアップのエントリポイント。
// 既定では毎日2:00(Africa/Lagos)に30日以上更新のない端末を削除する。
// -onceを指定すると1回だけ実行して終了する。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pushrelay/internal/config"
	"github.com/nao1215/pushrelay/internal/directory"
	"github.com/nao1215/pushrelay/internal/sweep"
)

func main() {
	once := flag.Bool("once", false, "1回だけ実行して終了する")
	flag.Parse()
	log.SetPrefix("[SWEEPER] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *once); err != nil {
		log.Fatalf("クリーンアップに失敗: %v", err)
	}
}

func run(ctx context.Context, once bool) error {
	cfg, err := config.LoadSweeper()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := directory.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("トークンディレクトリの初期化に失敗: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("データベースのクローズに失敗: %v", err)
		}
	}()

	sweeper := sweep.New(store, cfg.Retention)
	if once {
		report, err := sweeper.Run(ctx)
		if err != nil {
			return err
		}
		log.Printf("クリーンアップが完了しました: removed=%d, failed=%d", report.Removed, report.Failed)
		return nil
	}
	return sweeper.Schedule(ctx, cfg.Schedule, loc)
}
