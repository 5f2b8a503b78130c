package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushrelay/internal/directory"
	"github.com/nao1215/pushrelay/internal/fanout"
	"github.com/nao1215/pushrelay/internal/formatter"
	"github.com/nao1215/pushrelay/pkg/middleware"
)

const (
	serviceName     = "pushrelay"
	shutdownTimeout = 10 * time.Second
)

// Directory はHTTP APIが使うトークンディレクトリの操作。
type Directory interface {
	RegisterToken(ctx context.Context, identity, token string, meta directory.Metadata) error
	UnregisterToken(ctx context.Context, identity, token string) error
	Device(ctx context.Context, token string) (directory.DeviceToken, bool, error)
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (directory.Stats, error)
}

// Deliverer は通知をidentityの全端末へ配信する。
type Deliverer interface {
	Deliver(ctx context.Context, identity string, payload formatter.Payload) (fanout.Result, error)
	Available() bool
}

// Config はサーバーの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// FirebaseProjectID は診断APIで表示する送信元プロジェクト。
	FirebaseProjectID string
}

// Server はプッシュ通知リレーのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
	// directory はトークンディレクトリ。
	directory Directory
	// deliverer は通知の配信を行う。
	deliverer Deliverer
	// startedAt はサーバーの起動時刻。
	startedAt time.Time
}

// NewServer は新しいリレーサーバーを生成する。
// ディレクトリと配信処理は呼び出し元で一度だけ生成して渡す。
func NewServer(cfg Config, dir Directory, deliverer Deliverer) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{middleware.AnyOrigin}
	}
	registerJSONFieldNames()

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:    router,
		cfg:       cfg,
		directory: dir,
		deliverer: deliverer,
		startedAt: time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされたら処理中のリクエストを待って停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Printf("シャットダウンを開始します")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("シャットダウンに失敗: %w", err)
		}
		return nil
	}
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// 端末登録・解除
		api.POST("/register-device", s.handleRegisterDevice())
		api.POST("/unregister-device", s.handleUnregisterDevice())
		api.DELETE("/unregister-device", s.handleUnregisterDevice())

		// バックエンドからのWebhook
		webhook := api.Group("/webhook")
		{
			webhook.POST("/payment", s.handlePaymentReceived())
			webhook.POST("/payment-sent", s.handlePaymentSent())
			webhook.POST("/payment-failed", s.handlePaymentFailed())
			webhook.POST("/p2p", s.handleTradeUpdate())
			webhook.POST("/dm", s.handleDirectMessage())
			webhook.POST("/zap", s.handleZap())
			webhook.POST("/vtu", s.handleBillOrder())
		}

		// 疎通確認
		api.POST("/test-notification", s.handleTestNotification())
		api.GET("/debug", s.handleDebug())
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "エンドポイントが見つかりません"})
	})
	s.router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "許可されていないメソッドです"})
	})
}
