package relay

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/pushrelay/internal/directory"
	"github.com/nao1215/pushrelay/internal/fanout"
	"github.com/nao1215/pushrelay/internal/formatter"
	"github.com/nao1215/pushrelay/pkg/event"
)

// deliveryResponse はWebhookとテスト通知のレスポンス。
type deliveryResponse struct {
	Success bool `json:"success"`
	fanout.Result
}

// handlePaymentReceived は支払い受領Webhookのハンドラ。
func (s *Server) handlePaymentReceived() gin.HandlerFunc {
	return handleEvent[event.PaymentReceived](s)
}

// handlePaymentSent は支払い送信Webhookのハンドラ。
func (s *Server) handlePaymentSent() gin.HandlerFunc {
	return handleEvent[event.PaymentSent](s)
}

// handlePaymentFailed は支払い失敗Webhookのハンドラ。
func (s *Server) handlePaymentFailed() gin.HandlerFunc {
	return handleEvent[event.PaymentFailed](s)
}

// handleTradeUpdate はP2P取引Webhookのハンドラ。
func (s *Server) handleTradeUpdate() gin.HandlerFunc {
	return handleEvent[event.TradeUpdate](s)
}

// handleDirectMessage はDM Webhookのハンドラ。
func (s *Server) handleDirectMessage() gin.HandlerFunc {
	return handleEvent[event.DirectMessage](s)
}

// handleZap はZap Webhookのハンドラ。
func (s *Server) handleZap() gin.HandlerFunc {
	return handleEvent[event.Zap](s)
}

// handleBillOrder はVTU注文Webhookのハンドラ。
func (s *Server) handleBillOrder() gin.HandlerFunc {
	return handleEvent[event.BillOrder](s)
}

// handleTestNotification はテスト通知を送るハンドラ。
func (s *Server) handleTestNotification() gin.HandlerFunc {
	return handleEvent[event.Test](s)
}

// handleEvent はリクエストボディをTとして検証し、通知を組み立てて配信するハンドラを返す。
func handleEvent[T event.Event](s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev T
		if !bindRequest(c, &ev) {
			return
		}
		s.deliver(c, ev)
	}
}

// deliver はイベントを通知に変換して受信者へ配信し、結果をレスポンスとして書き込む。
func (s *Server) deliver(c *gin.Context, ev event.Event) {
	payload := formatter.Format(ev)
	identity := ev.Recipient()

	result, err := s.deliverer.Deliver(c.Request.Context(), identity, payload)
	if errors.Is(err, fanout.ErrGatewayUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "プッシュ通知が設定されていません"})
		log.Printf("[Webhook] %s: ゲートウェイ未設定のため配信できません", ev.Kind())
		return
	}
	if errors.Is(err, directory.ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nostrPubkeyは必須です"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の送信に失敗しました"})
		log.Printf("[Webhook] %s 配信エラー: identity=%s, error=%v", ev.Kind(), directory.ShortIdentity(identity), err)
		return
	}

	log.Printf("[Webhook] %s: identity=%s, type=%s, sent=%d, failed=%d",
		ev.Kind(), directory.ShortIdentity(identity), payload.Type, result.Succeeded, result.Failed)
	c.JSON(http.StatusOK, deliveryResponse{Success: true, Result: result})
}

// bindRequest はJSONボディをreqに読み込む。
// 失敗した場合は400を書き込んでfalseを返す。
func bindRequest(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	if fields := missingFields(err); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   fmt.Sprintf("必須項目が不足しています: %s", strings.Join(fields, ", ")),
			"missing": fields,
		})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
	return false
}
