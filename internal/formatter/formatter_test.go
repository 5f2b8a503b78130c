package formatter

import (
	"strings"
	"testing"

	"github.com/nao1215/pushrelay/pkg/event"
)

// unknownEvent はFormatが知らないイベント。
type unknownEvent struct{}

func (unknownEvent) Kind() event.Kind   { return "mystery" }
func (unknownEvent) Recipient() string { return "npub_a" }

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ev        event.Event
		wantTitle string
		wantBody  string
		wantType  string
	}{
		{
			name:      "支払い受領(ナイラと説明あり)",
			ev:        event.PaymentReceived{NostrPubkey: "npub_a", AmountSats: 1500, AmountNaira: event.NewAmount(5000), Description: "Coffee"},
			wantTitle: "⚡ Payment Received",
			wantBody:  "You received 1,500 sats (₦5,000)\nCoffee",
			wantType:  TypePaymentReceived,
		},
		{
			name:      "支払い受領(任意項目なし)",
			ev:        event.PaymentReceived{NostrPubkey: "npub_a", AmountSats: 21},
			wantTitle: "⚡ Payment Received",
			wantBody:  "You received 21 sats",
			wantType:  TypePaymentReceived,
		},
		{
			name:      "支払い送信",
			ev:        event.PaymentSent{NostrPubkey: "npub_a", AmountSats: 2000, RecipientName: "Ada"},
			wantTitle: "📤 Payment Sent",
			wantBody:  "You sent 2,000 sats to Ada",
			wantType:  TypePaymentSent,
		},
		{
			name:      "支払い失敗(エラーメッセージあり)",
			ev:        event.PaymentFailed{NostrPubkey: "npub_a", AmountSats: 100, AmountNaira: event.ParseAmount("350.5"), RecipientName: "Bola", ErrorMessage: "no route"},
			wantTitle: "❌ Payment Failed",
			wantBody:  "Failed to send 100 sats (₦350.5) to Bola\nError: no route",
			wantType:  TypePaymentFailed,
		},
		{
			name:      "取引開始(相手と金額あり)",
			ev:        event.TradeUpdate{NostrPubkey: "npub_a", TradeID: "t1", EventType: event.TradeStarted, CounterpartyName: "Chidi", Amount: event.NewAmount(25000)},
			wantTitle: "🔄 New Trade Started",
			wantBody:  "Chidi started a trade with you for ₦25,000",
			wantType:  "p2p_trade_started",
		},
		{
			name:      "取引開始(任意項目なし)",
			ev:        event.TradeUpdate{NostrPubkey: "npub_a", TradeID: "t1", EventType: event.TradeStarted},
			wantTitle: "🔄 New Trade Started",
			wantBody:  "A new trade has started",
			wantType:  "p2p_trade_started",
		},
		{
			name:      "支払い済みマーク",
			ev:        event.TradeUpdate{NostrPubkey: "npub_a", TradeID: "t1", EventType: event.TradePaymentMarked, Amount: event.ParseAmount("10000")},
			wantTitle: "💰 Payment Marked",
			wantBody:  "Buyer has marked payment as sent for ₦10,000. Please verify.",
			wantType:  "p2p_payment_marked",
		},
		{
			name:      "資金解放",
			ev:        event.TradeUpdate{NostrPubkey: "npub_a", TradeID: "t1", EventType: event.TradeFundsReleased},
			wantTitle: "🎉 Trade Complete!",
			wantBody:  "Funds have been released",
			wantType:  "p2p_funds_released",
		},
		{
			name:      "問い合わせ(相手なし)",
			ev:        event.TradeUpdate{NostrPubkey: "npub_a", TradeID: "t1", EventType: event.TradeNewInquiry},
			wantTitle: "📩 New Inquiry",
			wantBody:  "Someone is interested in your offer",
			wantType:  "p2p_new_inquiry",
		},
		{
			name:      "未知の取引種別は汎用P2P通知になる",
			ev:        event.TradeUpdate{NostrPubkey: "npub_a", TradeID: "t1", EventType: "escrow_topped_up"},
			wantTitle: "🔔 P2P Update",
			wantBody:  "Trade update: escrow_topped_up",
			wantType:  TypeTradeUpdate,
		},
		{
			name:      "DM(表示名なしは公開鍵の先頭8文字)",
			ev:        event.DirectMessage{NostrPubkey: "npub_a", SenderPubkey: "npub1sender0000"},
			wantTitle: "💬 Message from npub1sen",
			wantBody:  "You have a new encrypted message",
			wantType:  TypeDirectMessage,
		},
		{
			name:      "DM(送信者情報なし)",
			ev:        event.DirectMessage{NostrPubkey: "npub_a", Preview: "gm"},
			wantTitle: "💬 Message from Someone",
			wantBody:  "gm",
			wantType:  TypeDirectMessage,
		},
		{
			name:      "Zap(メッセージあり)",
			ev:        event.Zap{NostrPubkey: "npub_a", AmountSats: 1000, SenderName: "Dayo", Message: "great post"},
			wantTitle: "⚡ Zap Received",
			wantBody:  `Dayo zapped you 1,000 sats: "great post"`,
			wantType:  TypeZap,
		},
		{
			name:      "Zap(金額なし)",
			ev:        event.Zap{NostrPubkey: "npub_a"},
			wantTitle: "⚡ Zap Received",
			wantBody:  "Someone zapped you!",
			wantType:  TypeZap,
		},
		{
			name:      "VTU失敗",
			ev:        event.BillOrder{NostrPubkey: "npub_a", OrderID: "o1", OrderType: "electricity", Status: "failed"},
			wantTitle: "❌ Electricity Purchase Failed",
			wantBody:  "Your electricity purchase could not be processed. Please try again.",
			wantType:  TypeBillOrderFailure,
		},
		{
			name:      "VTU成功(未知の注文種別)",
			ev:        event.BillOrder{NostrPubkey: "npub_a", OrderID: "o1", OrderType: "cable", Status: "complete"},
			wantTitle: "✅ VTU Purchase Successful",
			wantBody:  "Your vtu purchase was successful",
			wantType:  TypeBillOrderSuccess,
		},
		{
			name:      "テスト通知(既定値)",
			ev:        event.Test{NostrPubkey: "npub_a"},
			wantTitle: "🔔 Test Notification",
			wantBody:  "Push notifications are working! 🎉",
			wantType:  TypeTest,
		},
		{
			name:      "テスト通知(指定値)",
			ev:        event.Test{NostrPubkey: "npub_a", Title: "hi", Body: "there", Type: "payment_received"},
			wantTitle: "hi",
			wantBody:  "there",
			wantType:  "payment_received",
		},
		{
			name:      "未知のイベントは汎用通知になる",
			ev:        unknownEvent{},
			wantTitle: "🔔 Update",
			wantBody:  "You have a new update",
			wantType:  TypeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Format(tt.ev)
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", got.Body, tt.wantBody)
			}
			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Data["type"] != tt.wantType {
				t.Errorf("Data[type] = %q, want %q", got.Data["type"], tt.wantType)
			}
		})
	}
}

func TestFormatBillOrderAirtime(t *testing.T) {
	t.Parallel()

	got := Format(event.BillOrder{
		NostrPubkey: "npub_a",
		OrderID:     "ord_42",
		OrderType:   "airtime",
		Status:      event.BillOrderStatusComplete,
		Amount:      event.NewAmount(500),
		PhoneNumber: "08001234567",
	})

	if got.Title != "✅ Airtime Purchase Successful" {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.Body, "₦500") {
		t.Errorf("Bodyに金額が含まれない: %q", got.Body)
	}
	if !strings.Contains(got.Body, "08001234567") {
		t.Errorf("Bodyに電話番号が含まれない: %q", got.Body)
	}
	want := map[string]string{
		"type":      TypeBillOrderSuccess,
		"orderId":   "ord_42",
		"orderType": "airtime",
		"status":    "complete",
	}
	for k, v := range want {
		if got.Data[k] != v {
			t.Errorf("Data[%s] = %q, want %q", k, got.Data[k], v)
		}
	}
}

func TestFormatPaymentFailedTruncatesError(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 150)
	got := Format(event.PaymentFailed{NostrPubkey: "npub_a", AmountSats: 1, ErrorMessage: long})

	wantSuffix := "\nError: " + strings.Repeat("x", 100) + "..."
	if !strings.HasSuffix(got.Body, wantSuffix) {
		t.Errorf("Body = %q", got.Body)
	}
	if got.Data["errorMessage"] != long {
		t.Error("Dataには切り詰める前のエラーメッセージを入れるべき")
	}
}

func TestFormatMissingOptionalDataIsEmpty(t *testing.T) {
	t.Parallel()

	got := Format(event.Zap{NostrPubkey: "npub_a", AmountSats: 5})
	for _, key := range []string{"senderPubkey", "eventId"} {
		v, ok := got.Data[key]
		if !ok {
			t.Errorf("Data[%s]が存在しない", key)
		}
		if v != "" {
			t.Errorf("Data[%s] = %q, want empty", key, v)
		}
	}
	if got.Data["amountSats"] != "5" {
		t.Errorf("Data[amountSats] = %q, want %q", got.Data["amountSats"], "5")
	}
}

func TestNaira(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount event.Amount
		want   string
	}{
		{amount: event.NewAmount(500), want: "₦500"},
		{amount: event.NewAmount(1234567.891), want: "₦1,234,567.89"},
		{amount: event.ParseAmount("5k"), want: "₦5k"},
		{amount: event.ParseAmount("₦2,000"), want: "₦2,000"},
	}
	for _, tt := range tests {
		if got := Naira(tt.amount); got != tt.want {
			t.Errorf("Naira(%s) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}
