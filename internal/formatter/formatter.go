package formatter

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/nao1215/pushrelay/pkg/event"
)

// 通知の種類タグ。Androidの通知チャンネル選択にも使われる。
const (
	TypePaymentReceived  = "payment_received"
	TypePaymentSent      = "payment_sent"
	TypePaymentFailed    = "payment_failed"
	TypeTradePrefix      = "p2p_"
	TypeTradeUpdate      = "p2p_update"
	TypeDirectMessage    = "dm_received"
	TypeZap              = "zap_received"
	TypeBillOrderPrefix  = "vtu_order_"
	TypeBillOrderSuccess = "vtu_order_complete"
	TypeBillOrderFailure = "vtu_order_failed"
	TypeTest             = "test"
	TypeGeneral          = "general"
)

const (
	maxErrorMessageLen = 100
	senderPubkeyPrefix = 8
)

// Payload はプッシュ通知として配信する内容。永続化はしない。
type Payload struct {
	// Title は通知タイトル。
	Title string
	// Body は通知本文。
	Body string
	// Type は通知の種類タグ。Data["type"]と常に一致する。
	Type string
	// Data はアプリに渡す構造化データ。値は全て文字列。
	Data map[string]string
}

// printer は数値の桁区切りに使う。通知文言自体は英語固定。
var printer = message.NewPrinter(language.English)

// Format はイベントを通知内容に変換する。
// 対応していないイベントは汎用の更新通知になる。
func Format(ev event.Event) Payload {
	switch e := ev.(type) {
	case event.PaymentReceived:
		return formatPaymentReceived(e)
	case event.PaymentSent:
		return formatPaymentSent(e)
	case event.PaymentFailed:
		return formatPaymentFailed(e)
	case event.TradeUpdate:
		return formatTradeUpdate(e)
	case event.DirectMessage:
		return formatDirectMessage(e)
	case event.Zap:
		return formatZap(e)
	case event.BillOrder:
		return formatBillOrder(e)
	case event.Test:
		return formatTest(e)
	default:
		return newPayload("🔔 Update", "You have a new update", TypeGeneral, nil)
	}
}

func formatPaymentReceived(e event.PaymentReceived) Payload {
	var b strings.Builder
	b.WriteString("You received " + Sats(e.AmountSats) + " sats")
	writeNaira(&b, e.AmountNaira)
	if e.Description != "" {
		b.WriteString("\n" + e.Description)
	}
	return newPayload("⚡ Payment Received", b.String(), TypePaymentReceived, map[string]string{
		"amountSats":  strconv.FormatInt(e.AmountSats, 10),
		"amountNaira": e.AmountNaira.String(),
		"paymentHash": e.PaymentHash,
		"timestamp":   e.Timestamp,
	})
}

func formatPaymentSent(e event.PaymentSent) Payload {
	var b strings.Builder
	b.WriteString("You sent " + Sats(e.AmountSats) + " sats")
	writeNaira(&b, e.AmountNaira)
	if e.RecipientName != "" {
		b.WriteString(" to " + e.RecipientName)
	}
	return newPayload("📤 Payment Sent", b.String(), TypePaymentSent, map[string]string{
		"amountSats":    strconv.FormatInt(e.AmountSats, 10),
		"amountNaira":   e.AmountNaira.String(),
		"paymentHash":   e.PaymentHash,
		"recipientName": e.RecipientName,
	})
}

func formatPaymentFailed(e event.PaymentFailed) Payload {
	var b strings.Builder
	b.WriteString("Failed to send " + Sats(e.AmountSats) + " sats")
	writeNaira(&b, e.AmountNaira)
	if e.RecipientName != "" {
		b.WriteString(" to " + e.RecipientName)
	}
	if e.ErrorMessage != "" {
		b.WriteString("\nError: " + truncateRunes(e.ErrorMessage, maxErrorMessageLen))
	}
	return newPayload("❌ Payment Failed", b.String(), TypePaymentFailed, map[string]string{
		"amountSats":    strconv.FormatInt(e.AmountSats, 10),
		"errorMessage":  e.ErrorMessage,
		"recipientName": e.RecipientName,
	})
}

func formatTradeUpdate(e event.TradeUpdate) Payload {
	data := map[string]string{
		"tradeId":   e.TradeID,
		"eventType": string(e.EventType),
		"amount":    e.Amount.String(),
	}
	amount := ""
	if !e.Amount.IsZero() {
		amount = Naira(e.Amount)
	}
	name := e.CounterpartyName

	var title, body string
	switch e.EventType {
	case event.TradeStarted:
		title = "🔄 New Trade Started"
		if name != "" {
			body = name + " started a trade with you"
		} else {
			body = "A new trade has started"
		}
		if amount != "" {
			body += " for " + amount
		}
	case event.TradePaymentMarked:
		title = "💰 Payment Marked"
		body = "Buyer has marked payment as sent"
		if amount != "" {
			body += " for " + amount
		}
		body += ". Please verify."
	case event.TradePaymentConfirmed:
		title = "✅ Payment Confirmed"
		body = "Seller has confirmed receiving your payment."
	case event.TradeFundsReleased:
		title = "🎉 Trade Complete!"
		body = "Funds have been released"
		if amount != "" {
			body += ". You received " + amount
		}
	case event.TradeCancelled:
		title = "❌ Trade Cancelled"
		body = "The trade has been cancelled."
	case event.TradeDisputed:
		title = "⚠️ Trade Disputed"
		body = "A dispute has been opened on this trade."
	case event.TradeNewMessage:
		title = "💬 New Message"
		if name != "" {
			body = name + " sent you a message"
		} else {
			body = "You have a new message in your trade"
		}
	case event.TradeNewInquiry:
		title = "📩 New Inquiry"
		if name != "" {
			body = name + " is interested in your offer"
		} else {
			body = "Someone is interested in your offer"
		}
	default:
		return newPayload("🔔 P2P Update", "Trade update: "+string(e.EventType), TypeTradeUpdate, data)
	}
	return newPayload(title, body, TypeTradePrefix+string(e.EventType), data)
}

func formatDirectMessage(e event.DirectMessage) Payload {
	body := e.Preview
	if body == "" {
		body = "You have a new encrypted message"
	}
	return newPayload("💬 Message from "+displayName(e.SenderName, e.SenderPubkey), body, TypeDirectMessage, map[string]string{
		"senderPubkey": e.SenderPubkey,
	})
}

func formatZap(e event.Zap) Payload {
	zapper := displayName(e.SenderName, e.SenderPubkey)
	var body string
	switch {
	case e.AmountSats <= 0:
		body = zapper + " zapped you!"
	case e.Message != "":
		body = zapper + " zapped you " + Sats(e.AmountSats) + ` sats: "` + e.Message + `"`
	default:
		body = zapper + " zapped you " + Sats(e.AmountSats) + " sats"
	}
	return newPayload("⚡ Zap Received", body, TypeZap, map[string]string{
		"amountSats":   strconv.FormatInt(e.AmountSats, 10),
		"senderPubkey": e.SenderPubkey,
		"eventId":      e.EventID,
	})
}

func formatBillOrder(e event.BillOrder) Payload {
	label := billOrderLabel(e.OrderType)
	data := map[string]string{
		"orderId":   e.OrderID,
		"orderType": e.OrderType,
		"status":    e.Status,
	}

	if e.Status != event.BillOrderStatusComplete {
		return newPayload(
			"❌ "+label+" Purchase Failed",
			"Your "+strings.ToLower(label)+" purchase could not be processed. Please try again.",
			TypeBillOrderFailure, data,
		)
	}

	var b strings.Builder
	b.WriteString("Your " + strings.ToLower(label) + " purchase")
	if !e.Amount.IsZero() {
		b.WriteString(" of " + Naira(e.Amount))
	}
	if e.PhoneNumber != "" {
		b.WriteString(" for " + e.PhoneNumber)
	}
	b.WriteString(" was successful")
	return newPayload("✅ "+label+" Purchase Successful", b.String(), TypeBillOrderSuccess, data)
}

func formatTest(e event.Test) Payload {
	title := e.Title
	if title == "" {
		title = "🔔 Test Notification"
	}
	body := e.Body
	if body == "" {
		body = "Push notifications are working! 🎉"
	}
	typ := e.Type
	if typ == "" {
		typ = TypeTest
	}
	return newPayload(title, body, typ, nil)
}

// newPayload はtypeを含むデータマップを組み立ててPayloadを返す。
func newPayload(title, body, typ string, data map[string]string) Payload {
	m := make(map[string]string, len(data)+1)
	for k, v := range data {
		m[k] = v
	}
	m["type"] = typ
	return Payload{Title: title, Body: body, Type: typ, Data: m}
}

func billOrderLabel(orderType string) string {
	switch strings.ToLower(orderType) {
	case "airtime":
		return "Airtime"
	case "data":
		return "Data"
	case "electricity":
		return "Electricity"
	default:
		return "VTU"
	}
}

// displayName は表示名、公開鍵の先頭8文字、"Someone"の順で送信者名を決める。
func displayName(name, pubkey string) string {
	if name != "" {
		return name
	}
	if pubkey != "" {
		return firstRunes(pubkey, senderPubkeyPrefix)
	}
	return "Someone"
}

// writeNaira はナイラ換算額があれば" (₦5,000)"の形で追記する。
func writeNaira(b *strings.Builder, amount event.Amount) {
	if amount.IsZero() {
		return
	}
	b.WriteString(" (" + Naira(amount) + ")")
}

// Sats はsats額を桁区切り付きで返す。
func Sats(v int64) string {
	return printer.Sprintf("%v", number.Decimal(v))
}

// Naira はナイラ額を"₦"付きで返す。数値として解釈できない値は受け取ったまま使う。
func Naira(amount event.Amount) string {
	v, ok := amount.Float()
	if !ok {
		return "₦" + strings.TrimPrefix(amount.String(), "₦")
	}
	return "₦" + printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

// truncateRunes はsがn文字を超える場合にn文字で切り詰めて"..."を付ける。
func truncateRunes(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// firstRunes はsの先頭n文字を返す。
func firstRunes(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
