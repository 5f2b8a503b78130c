// Package event はリレーが受け付けるバックエンドイベントの種類とペイロードを定義する。
//
// イベントの種類はKindとしてこのパッケージに集約し、Webhookごとに
// 重複して定義しない。各ペイロード型はEventインタフェースを満たす。
package event

// Kind はイベントの種類を表す。
type Kind string

const (
	// KindPaymentReceived はLightning支払いを受け取ったことを表す。
	KindPaymentReceived Kind = "payment_received"
	// KindPaymentSent はLightning支払いを送信したことを表す。
	KindPaymentSent Kind = "payment_sent"
	// KindPaymentFailed はLightning支払いの送信に失敗したことを表す。
	KindPaymentFailed Kind = "payment_failed"
	// KindTradeUpdate はP2P取引の状態が変化したことを表す。
	KindTradeUpdate Kind = "p2p_trade"
	// KindDirectMessage はNostrのダイレクトメッセージを受信したことを表す。
	KindDirectMessage Kind = "dm"
	// KindZap はZapを受け取ったことを表す。
	KindZap Kind = "zap"
	// KindBillOrder はVTU（エアタイム・データ・電気料金）注文の結果を表す。
	KindBillOrder Kind = "vtu_order"
	// KindTest は疎通確認用のテスト通知を表す。
	KindTest Kind = "test"
)

// Kinds はリレーが扱う全イベント種類を返す。
func Kinds() []Kind {
	return []Kind{
		KindPaymentReceived,
		KindPaymentSent,
		KindPaymentFailed,
		KindTradeUpdate,
		KindDirectMessage,
		KindZap,
		KindBillOrder,
		KindTest,
	}
}

// Event はプッシュ通知の元になるイベント。
type Event interface {
	// Kind はイベントの種類を返す。
	Kind() Kind
	// Recipient は通知先のアイデンティティ（Nostr公開鍵）を返す。
	Recipient() string
}

// TradeEventType はP2P取引イベントの詳細種別。
type TradeEventType string

const (
	// TradeStarted は取引が開始されたことを表す。
	TradeStarted TradeEventType = "trade_started"
	// TradePaymentMarked は買い手が支払い済みにしたことを表す。
	TradePaymentMarked TradeEventType = "payment_marked"
	// TradePaymentConfirmed は売り手が入金を確認したことを表す。
	TradePaymentConfirmed TradeEventType = "payment_confirmed"
	// TradeFundsReleased はエスクローの資金が解放されたことを表す。
	TradeFundsReleased TradeEventType = "funds_released"
	// TradeCancelled は取引がキャンセルされたことを表す。
	TradeCancelled TradeEventType = "trade_cancelled"
	// TradeDisputed は取引に異議が申し立てられたことを表す。
	TradeDisputed TradeEventType = "trade_disputed"
	// TradeNewMessage は取引チャットに新しいメッセージが届いたことを表す。
	TradeNewMessage TradeEventType = "new_message"
	// TradeNewInquiry はオファーへの問い合わせが届いたことを表す。
	TradeNewInquiry TradeEventType = "new_inquiry"
)

// BillOrderStatusComplete はVTU注文が成功したことを表すステータス。
const BillOrderStatusComplete = "complete"

// PaymentReceived は支払い受領Webhookのペイロード。
type PaymentReceived struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// AmountSats は受け取った金額（sats）。
	AmountSats int64 `json:"amountSats" binding:"required"`
	// AmountNaira はナイラ換算額。
	AmountNaira Amount `json:"amountNaira"`
	// PaymentHash はLightning支払いのハッシュ。
	PaymentHash string `json:"paymentHash"`
	// Description は請求書の説明。
	Description string `json:"description"`
	// Timestamp は支払い日時。
	Timestamp string `json:"timestamp"`
}

// Kind はイベントの種類を返す。
func (PaymentReceived) Kind() Kind { return KindPaymentReceived }

// Recipient は通知先を返す。
func (e PaymentReceived) Recipient() string { return e.NostrPubkey }

// PaymentSent は支払い送信Webhookのペイロード。
type PaymentSent struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// AmountSats は送信した金額（sats）。
	AmountSats int64 `json:"amountSats" binding:"required"`
	// AmountNaira はナイラ換算額。
	AmountNaira Amount `json:"amountNaira"`
	// RecipientName は送金先の表示名。
	RecipientName string `json:"recipientName"`
	// PaymentHash はLightning支払いのハッシュ。
	PaymentHash string `json:"paymentHash"`
}

// Kind はイベントの種類を返す。
func (PaymentSent) Kind() Kind { return KindPaymentSent }

// Recipient は通知先を返す。
func (e PaymentSent) Recipient() string { return e.NostrPubkey }

// PaymentFailed は支払い失敗Webhookのペイロード。
type PaymentFailed struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// AmountSats は送信しようとした金額（sats）。
	AmountSats int64 `json:"amountSats" binding:"required"`
	// AmountNaira はナイラ換算額。
	AmountNaira Amount `json:"amountNaira"`
	// ErrorMessage は失敗理由。
	ErrorMessage string `json:"errorMessage"`
	// RecipientName は送金先の表示名。
	RecipientName string `json:"recipientName"`
}

// Kind はイベントの種類を返す。
func (PaymentFailed) Kind() Kind { return KindPaymentFailed }

// Recipient は通知先を返す。
func (e PaymentFailed) Recipient() string { return e.NostrPubkey }

// TradeUpdate はP2P取引Webhookのペイロード。
type TradeUpdate struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// TradeID は取引の識別子。
	TradeID string `json:"tradeId" binding:"required"`
	// EventType は取引イベントの詳細種別。未知の値も受け付ける。
	EventType TradeEventType `json:"eventType" binding:"required"`
	// Amount は取引金額。
	Amount Amount `json:"amount"`
	// CounterpartyName は取引相手の表示名。
	CounterpartyName string `json:"counterpartyName"`
}

// Kind はイベントの種類を返す。
func (TradeUpdate) Kind() Kind { return KindTradeUpdate }

// Recipient は通知先を返す。
func (e TradeUpdate) Recipient() string { return e.NostrPubkey }

// DirectMessage はDM Webhookのペイロード。
type DirectMessage struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// SenderName は送信者の表示名。
	SenderName string `json:"senderName"`
	// SenderPubkey は送信者のNostr公開鍵。
	SenderPubkey string `json:"senderPubkey"`
	// Preview はメッセージのプレビュー。
	Preview string `json:"preview"`
}

// Kind はイベントの種類を返す。
func (DirectMessage) Kind() Kind { return KindDirectMessage }

// Recipient は通知先を返す。
func (e DirectMessage) Recipient() string { return e.NostrPubkey }

// Zap はZap Webhookのペイロード。
type Zap struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// AmountSats はZapの金額（sats）。
	AmountSats int64 `json:"amountSats"`
	// SenderName は送信者の表示名。
	SenderName string `json:"senderName"`
	// SenderPubkey は送信者のNostr公開鍵。
	SenderPubkey string `json:"senderPubkey"`
	// Message はZapに添えられたメッセージ。
	Message string `json:"message"`
	// EventID はZapレシートのNostrイベントID。
	EventID string `json:"eventId"`
}

// Kind はイベントの種類を返す。
func (Zap) Kind() Kind { return KindZap }

// Recipient は通知先を返す。
func (e Zap) Recipient() string { return e.NostrPubkey }

// BillOrder はVTU注文Webhookのペイロード。
type BillOrder struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// OrderID は注文の識別子。
	OrderID string `json:"orderId" binding:"required"`
	// OrderType は注文の種類（airtime, data, electricity）。
	OrderType string `json:"orderType" binding:"required"`
	// Status は注文の結果（complete, failed）。
	Status string `json:"status" binding:"required"`
	// Amount は購入金額（ナイラ）。
	Amount Amount `json:"amount"`
	// PhoneNumber はチャージ先の電話番号。
	PhoneNumber string `json:"phoneNumber"`
}

// Kind はイベントの種類を返す。
func (BillOrder) Kind() Kind { return KindBillOrder }

// Recipient は通知先を返す。
func (e BillOrder) Recipient() string { return e.NostrPubkey }

// Test はテスト通知リクエストのペイロード。
type Test struct {
	// NostrPubkey は通知先のNostr公開鍵。
	NostrPubkey string `json:"nostrPubkey" binding:"required"`
	// Title は通知タイトル。省略時は既定値を使う。
	Title string `json:"title"`
	// Body は通知本文。省略時は既定値を使う。
	Body string `json:"body"`
	// Type は通知の種類タグ。省略時は"test"。
	Type string `json:"type"`
}

// Kind はイベントの種類を返す。
func (Test) Kind() Kind { return KindTest }

// Recipient は通知先を返す。
func (e Test) Recipient() string { return e.NostrPubkey }
