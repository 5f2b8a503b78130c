package fcm

// AndroidPriorityHigh はAndroid向けの高優先度配信を表す。
const AndroidPriorityHigh = "high"

// Message は1つの登録トークンに送るFCMメッセージ。
type Message struct {
	// Token は送信先の登録トークン。
	Token string `json:"token"`
	// Notification は全プラットフォーム共通の表示内容。
	Notification *Notification `json:"notification,omitempty"`
	// Data はアプリに渡すキーと値のペア。
	Data map[string]string `json:"data,omitempty"`
	// Android はAndroid固有の配信設定。
	Android *AndroidConfig `json:"android,omitempty"`
	// APNS はiOS（APNs）固有の配信設定。
	APNS *APNSConfig `json:"apns,omitempty"`
}

// Notification は通知のタイトルと本文。
type Notification struct {
	// Title は通知タイトル。
	Title string `json:"title,omitempty"`
	// Body は通知本文。
	Body string `json:"body,omitempty"`
}

// AndroidConfig はAndroid固有の配信設定。
type AndroidConfig struct {
	// Priority はメッセージの配信優先度（"normal" または "high"）。
	Priority string `json:"priority,omitempty"`
	// Notification はAndroidの通知表示設定。
	Notification *AndroidNotification `json:"notification,omitempty"`
}

// AndroidNotification はAndroidの通知表示設定。
type AndroidNotification struct {
	// ChannelID は通知チャンネルID。
	ChannelID string `json:"channel_id,omitempty"`
	// NotificationPriority は通知の表示優先度。
	NotificationPriority string `json:"notification_priority,omitempty"`
	// DefaultSound は端末既定の通知音を使うかどうか。
	DefaultSound bool `json:"default_sound,omitempty"`
	// DefaultVibrateTimings は端末既定のバイブレーションを使うかどうか。
	DefaultVibrateTimings bool `json:"default_vibrate_timings,omitempty"`
}

// APNSConfig はAPNs固有の配信設定。
type APNSConfig struct {
	// Headers はAPNsリクエストヘッダー。
	Headers map[string]string `json:"headers,omitempty"`
	// Payload はAPNsペイロード。
	Payload *APNSPayload `json:"payload,omitempty"`
}

// APNSPayload はAPNsペイロード。
type APNSPayload struct {
	// Aps はApple予約のapsディクショナリ。
	Aps *Aps `json:"aps"`
}

// Aps はapsディクショナリ。
type Aps struct {
	// Alert は表示内容。
	Alert *ApsAlert `json:"alert,omitempty"`
	// Sound は通知音。
	Sound string `json:"sound,omitempty"`
	// Badge はアプリアイコンのバッジ数。
	Badge *int `json:"badge,omitempty"`
	// ContentAvailable はバックグラウンド更新フラグ（1で有効）。
	ContentAvailable int `json:"content-available,omitempty"`
}

// ApsAlert はAPNsの表示内容。
type ApsAlert struct {
	// Title は通知タイトル。
	Title string `json:"title,omitempty"`
	// Body は通知本文。
	Body string `json:"body,omitempty"`
}
