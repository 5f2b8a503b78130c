package fanout

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/pushrelay/internal/formatter"
	"github.com/nao1215/pushrelay/pkg/fcm"
)

// fakeDirectory はテスト用のトークンディレクトリ。
type fakeDirectory struct {
	mu       sync.Mutex
	tokens   map[string][]string
	readErr  error
	pruneErr error
	pruned   [][]string
}

func (d *fakeDirectory) TokensFor(_ context.Context, identity string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return nil, d.readErr
	}
	return slices.Clone(d.tokens[identity]), nil
}

func (d *fakeDirectory) PruneTokens(_ context.Context, identity string, tokens []string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruned = append(d.pruned, slices.Clone(tokens))
	if d.pruneErr != nil {
		return 0, d.pruneErr
	}
	before := len(d.tokens[identity])
	d.tokens[identity] = slices.DeleteFunc(d.tokens[identity], func(t string) bool {
		return slices.Contains(tokens, t)
	})
	return before - len(d.tokens[identity]), nil
}

// fakeSender はトークンごとに決めたエラーを返すゲートウェイ。
type fakeSender struct {
	mu       sync.Mutex
	errs     map[string]error
	messages []*fcm.Message
}

func (s *fakeSender) Send(_ context.Context, msg *fcm.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if err := s.errs[msg.Token]; err != nil {
		return "", err
	}
	return "projects/test/messages/" + msg.Token, nil
}

func (s *fakeSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

var testPayload = formatter.Payload{
	Title: "⚡ Payment Received",
	Body:  "You received 1,000 sats",
	Type:  formatter.TypePaymentReceived,
	Data:  map[string]string{"type": formatter.TypePaymentReceived, "amountSats": "1000"},
}

func TestDeliver(t *testing.T) {
	t.Parallel()

	t.Run("無効なトークンだけが削除されること", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{tokens: map[string][]string{"npub_a": {"tok1", "tok2"}}}
		sender := &fakeSender{errs: map[string]error{
			"tok1": &fcm.Error{HTTPStatus: 404, Code: fcm.CodeUnregistered},
		}}

		got, err := New(dir, sender).Deliver(context.Background(), "npub_a", testPayload)
		if err != nil {
			t.Fatalf("Deliverに失敗: %v", err)
		}
		if got.Attempted != 2 || got.Succeeded != 1 || got.Failed != 1 {
			t.Errorf("Result = %+v, want {2 1 1}", got)
		}
		if !slices.Equal(got.Pruned, []string{"tok1"}) {
			t.Errorf("Pruned = %v, want [tok1]", got.Pruned)
		}
		if len(dir.pruned) != 1 {
			t.Fatalf("PruneTokensの呼び出し回数 = %d, want 1", len(dir.pruned))
		}
		if !slices.Equal(dir.tokens["npub_a"], []string{"tok2"}) {
			t.Errorf("残ったトークン = %v, want [tok2]", dir.tokens["npub_a"])
		}
	})

	t.Run("一時的な失敗ではトークンを削除しないこと", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{tokens: map[string][]string{"npub_a": {"tok1", "tok2", "tok3"}}}
		sender := &fakeSender{errs: map[string]error{
			"tok1": &fcm.Error{HTTPStatus: 429, Code: fcm.CodeQuotaExceeded},
			"tok2": &fcm.Error{HTTPStatus: 503, Code: fcm.CodeUnavailable},
			"tok3": errors.New("connection reset"),
		}}

		got, err := New(dir, sender).Deliver(context.Background(), "npub_a", testPayload)
		if err != nil {
			t.Fatalf("Deliverに失敗: %v", err)
		}
		if got.Failed != 3 || got.Succeeded != 0 {
			t.Errorf("Result = %+v", got)
		}
		if len(got.Pruned) != 0 {
			t.Errorf("Pruned = %v, want empty", got.Pruned)
		}
		if len(dir.pruned) != 0 {
			t.Errorf("PruneTokensが呼ばれるべきではない: %v", dir.pruned)
		}
	})

	t.Run("トークン指定が不正なINVALID_ARGUMENTは削除されること", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{tokens: map[string][]string{"npub_a": {"bad", "payload"}}}
		sender := &fakeSender{errs: map[string]error{
			"bad":     &fcm.Error{HTTPStatus: 400, Code: fcm.CodeInvalidArgument, TokenViolation: true},
			"payload": &fcm.Error{HTTPStatus: 400, Code: fcm.CodeInvalidArgument},
		}}

		got, err := New(dir, sender).Deliver(context.Background(), "npub_a", testPayload)
		if err != nil {
			t.Fatalf("Deliverに失敗: %v", err)
		}
		if !slices.Equal(got.Pruned, []string{"bad"}) {
			t.Errorf("Pruned = %v, want [bad]", got.Pruned)
		}
	})

	t.Run("トークンが無い場合はゲートウェイを呼ばないこと", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{tokens: map[string][]string{}}
		sender := &fakeSender{}

		got, err := New(dir, sender).Deliver(context.Background(), "npub_nobody", testPayload)
		if err != nil {
			t.Fatalf("Deliverに失敗: %v", err)
		}
		if got.Attempted != 0 || got.Succeeded != 0 || got.Failed != 0 || len(got.Pruned) != 0 {
			t.Errorf("Result = %+v, want zero", got)
		}
		if sender.calls() != 0 {
			t.Errorf("送信回数 = %d, want 0", sender.calls())
		}
	})

	t.Run("削除の失敗は呼び出し元に返さないこと", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{
			tokens:   map[string][]string{"npub_a": {"tok1"}},
			pruneErr: errors.New("database is locked"),
		}
		sender := &fakeSender{errs: map[string]error{
			"tok1": &fcm.Error{Code: fcm.CodeUnregistered},
		}}

		got, err := New(dir, sender).Deliver(context.Background(), "npub_a", testPayload)
		if err != nil {
			t.Fatalf("Deliverがエラーを返した: %v", err)
		}
		if got.Failed != 1 || !slices.Equal(got.Pruned, []string{"tok1"}) {
			t.Errorf("Result = %+v", got)
		}
	})

	t.Run("ディレクトリの読み込み失敗はエラーになること", func(t *testing.T) {
		t.Parallel()

		readErr := errors.New("disk I/O error")
		dir := &fakeDirectory{readErr: readErr}
		sender := &fakeSender{}

		_, err := New(dir, sender).Deliver(context.Background(), "npub_a", testPayload)
		if !errors.Is(err, readErr) {
			t.Errorf("err = %v, want %v", err, readErr)
		}
		if sender.calls() != 0 {
			t.Errorf("送信回数 = %d, want 0", sender.calls())
		}
	})

	t.Run("ゲートウェイ未設定はErrGatewayUnavailableになること", func(t *testing.T) {
		t.Parallel()

		dir := &fakeDirectory{tokens: map[string][]string{"npub_a": {"tok1"}}}
		f := New(dir, nil)

		if f.Available() {
			t.Error("Available()がfalseであるべき")
		}
		if _, err := f.Deliver(context.Background(), "npub_a", testPayload); !errors.Is(err, ErrGatewayUnavailable) {
			t.Errorf("err = %v, want ErrGatewayUnavailable", err)
		}
	})

	t.Run("同時送信数を1にしても全トークンへ送信すること", func(t *testing.T) {
		t.Parallel()

		tokens := []string{"a", "b", "c", "d", "e"}
		dir := &fakeDirectory{tokens: map[string][]string{"npub_a": tokens}}
		sender := &fakeSender{}

		got, err := New(dir, sender, WithConcurrency(1)).Deliver(context.Background(), "npub_a", testPayload)
		if err != nil {
			t.Fatalf("Deliverに失敗: %v", err)
		}
		if got.Succeeded != len(tokens) {
			t.Errorf("Succeeded = %d, want %d", got.Succeeded, len(tokens))
		}
	})
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg := BuildMessage("tok1", testPayload)

	if msg.Token != "tok1" {
		t.Errorf("Token = %q", msg.Token)
	}
	if msg.Notification.Title != testPayload.Title || msg.Notification.Body != testPayload.Body {
		t.Errorf("Notification = %+v", msg.Notification)
	}
	if msg.Data["amountSats"] != "1000" || msg.Data["type"] != formatter.TypePaymentReceived {
		t.Errorf("Data = %v", msg.Data)
	}
	if msg.Android.Priority != fcm.AndroidPriorityHigh {
		t.Errorf("Android.Priority = %q", msg.Android.Priority)
	}
	if msg.Android.Notification.ChannelID != ChannelPayments {
		t.Errorf("ChannelID = %q, want %q", msg.Android.Notification.ChannelID, ChannelPayments)
	}
	if !msg.Android.Notification.DefaultSound {
		t.Error("DefaultSoundがtrueであるべき")
	}
	aps := msg.APNS.Payload.Aps
	if aps.Sound != "default" || aps.Badge == nil || *aps.Badge != 1 {
		t.Errorf("Aps = %+v", aps)
	}
}

func TestChannelFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  string
		want string
	}{
		{typ: "payment_received", want: ChannelPayments},
		{typ: "payment_sent", want: ChannelPayments},
		{typ: "payment_failed", want: ChannelPayments},
		{typ: "p2p_trade_started", want: ChannelP2P},
		{typ: "p2p_update", want: ChannelP2P},
		{typ: "zap_received", want: ChannelSocial},
		{typ: "dm_received", want: ChannelSocial},
		{typ: "vtu_order_complete", want: ChannelVTU},
		{typ: "vtu_order_failed", want: ChannelVTU},
		{typ: "test", want: ChannelDefault},
		{typ: "", want: ChannelDefault},
	}
	for _, tt := range tests {
		if got := ChannelFor(tt.typ); got != tt.want {
			t.Errorf("ChannelFor(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
