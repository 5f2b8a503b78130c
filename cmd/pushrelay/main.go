// プッシュ通知リレーのエントリポイント。
// 端末登録APIとバックエンドからのWebhookを受け付け、FCMで通知を配信する。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pushrelay/internal/config"
	"github.com/nao1215/pushrelay/internal/directory"
	"github.com/nao1215/pushrelay/internal/fanout"
	"github.com/nao1215/pushrelay/internal/relay"
	"github.com/nao1215/pushrelay/pkg/fcm"
)

func main() {
	log.SetPrefix("[PUSHRELAY] ")

	cfg, err := config.LoadRelay()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := directory.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("トークンディレクトリの初期化に失敗: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("データベースのクローズに失敗: %v", err)
		}
	}()

	// ゲートウェイが未設定でも起動し、配信APIは503を返す。
	var sender fanout.Sender
	projectID := ""
	if cfg.Firebase.Configured() {
		client, err := fcm.NewFromCredentials(ctx, cfg.Firebase.Endpoint, cfg.Firebase.Credentials())
		if err != nil {
			log.Fatalf("FCMクライアントの初期化に失敗: %v", err)
		}
		sender = client
		projectID = client.ProjectID()
		log.Printf("FCMクライアントを初期化しました: project=%s", projectID)
	} else {
		log.Printf("Firebaseの認証情報が設定されていません。通知は配信されません")
	}

	server := relay.NewServer(relay.Config{
		Port:              cfg.Port,
		AllowedOrigins:    cfg.AllowedOrigins,
		FirebaseProjectID: projectID,
	}, store, fanout.New(store, sender, fanout.WithConcurrency(cfg.FanoutConcurrency)))

	log.Printf("プッシュ通知リレーを起動します: :%s", cfg.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("プッシュ通知リレーの起動に失敗: %v", err)
	}
	log.Printf("プッシュ通知リレーを停止しました")
}
