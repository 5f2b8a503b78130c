package relay

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushrelay/pkg/event"
)

// handleHealth は死活監視用のハンドラ。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// handleDebug はゲートウェイとストレージの状態を返す診断用ハンドラ。
// ストレージに書き込めない場合もステータスは200で、statusに"degraded"を返す。
func (s *Server) handleDebug() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		status := "ok"

		storage := gin.H{"writable": true}
		if err := s.directory.Ping(ctx); err != nil {
			status = "degraded"
			storage["writable"] = false
			storage["error"] = "ストレージへの書き込みに失敗しました"
			log.Printf("診断: ストレージ書き込みエラー: %v", err)
		} else if stats, err := s.directory.Stats(ctx); err != nil {
			log.Printf("診断: 件数取得エラー: %v", err)
		} else {
			storage["identities"] = stats.Identities
			storage["devices"] = stats.Devices
		}

		gateway := gin.H{
			"configured": s.deliverer.Available(),
			"projectId":  s.cfg.FirebaseProjectID,
		}
		if !s.deliverer.Available() {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"service":   serviceName,
			"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
			"gateway":   gateway,
			"storage":   storage,
			"events":    event.Kinds(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
