package relay

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushrelay/internal/directory"
)

// registerDeviceRequest は端末登録リクエスト。
type registerDeviceRequest struct {
	// FCMToken は端末のFCM登録トークン。
	FCMToken string `json:"fcmToken" binding:"required"`
	// NostrPubkey は端末の持ち主のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// Platform は端末のプラットフォーム。省略時はandroid。
	Platform string `json:"platform"`
	// AppVersion はアプリのバージョン。
	AppVersion string `json:"appVersion"`
}

// unregisterDeviceRequest は端末登録解除リクエスト。
type unregisterDeviceRequest struct {
	// FCMToken は解除する端末のFCM登録トークン。
	FCMToken string `json:"fcmToken" binding:"required"`
	// NostrPubkey は端末の持ち主。省略時はトークンの現在の所有者から外す。
	NostrPubkey string `json:"nostrPubkey"`
}

// handleRegisterDevice は端末のトークンをidentityに登録するハンドラ。
func (s *Server) handleRegisterDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerDeviceRequest
		if !bindRequest(c, &req) {
			return
		}

		err := s.directory.RegisterToken(c.Request.Context(), req.NostrPubkey, req.FCMToken, directory.Metadata{
			Platform:   strings.TrimSpace(req.Platform),
			AppVersion: strings.TrimSpace(req.AppVersion),
		})
		if errors.Is(err, directory.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fcmTokenとnostrPubkeyは必須です"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "端末の登録に失敗しました"})
			log.Printf("端末登録エラー: %v", err)
			return
		}

		log.Printf("端末を登録しました: identity=%s, token=%s", directory.ShortIdentity(req.NostrPubkey), directory.ShortToken(req.FCMToken))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "端末を登録しました"})
	}
}

// handleUnregisterDevice は端末のトークンを登録解除するハンドラ。
// 応答のremovedは、端末レコードが存在し指定identityの所有だった場合にtrueになる。
func (s *Server) handleUnregisterDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req unregisterDeviceRequest
		if !bindRequest(c, &req) {
			return
		}
		ctx := c.Request.Context()

		// 削除前の端末情報。取得に失敗しても登録解除は続ける。
		dev, found, err := s.directory.Device(ctx, strings.TrimSpace(req.FCMToken))
		if err != nil {
			log.Printf("端末情報の取得エラー: token=%s, error=%v", directory.ShortToken(req.FCMToken), err)
		}

		err = s.directory.UnregisterToken(ctx, req.NostrPubkey, req.FCMToken)
		if errors.Is(err, directory.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fcmTokenは必須です"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "端末の登録解除に失敗しました"})
			log.Printf("端末登録解除エラー: %v", err)
			return
		}

		identity := strings.TrimSpace(req.NostrPubkey)
		removed := found && (identity == "" || identity == dev.Identity)
		if removed {
			log.Printf("端末の登録を解除しました: identity=%s, token=%s, platform=%s, appVersion=%s",
				directory.ShortIdentity(dev.Identity), directory.ShortToken(req.FCMToken), dev.Platform, dev.AppVersion)
		} else {
			log.Printf("登録解除の対象がありません: token=%s", directory.ShortToken(req.FCMToken))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed, "message": "端末の登録を解除しました"})
	}
}
