package fanout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pushrelay/internal/directory"
	"github.com/nao1215/pushrelay/internal/formatter"
	"github.com/nao1215/pushrelay/pkg/fcm"
)

// DefaultConcurrency は1つのidentityへの同時送信数の既定値。
const DefaultConcurrency = 8

// Androidの通知チャンネルID。
const (
	ChannelPayments = "sabi_wallet_payments"
	ChannelP2P      = "sabi_wallet_p2p"
	ChannelSocial   = "sabi_wallet_social"
	ChannelVTU      = "sabi_wallet_vtu"
	ChannelDefault  = "sabi_wallet_default"
)

// ErrGatewayUnavailable はプッシュゲートウェイが設定されていないことを表す。
var ErrGatewayUnavailable = errors.New("プッシュゲートウェイが設定されていません")

// Sender は1つのトークンへメッセージを送信するゲートウェイ。
type Sender interface {
	Send(ctx context.Context, msg *fcm.Message) (string, error)
}

// Directory は配信に必要なトークンディレクトリの操作。
type Directory interface {
	TokensFor(ctx context.Context, identity string) ([]string, error)
	PruneTokens(ctx context.Context, identity string, tokens []string) (int, error)
}

// Result は1回の配信結果。
type Result struct {
	// Attempted は送信を試みたトークン数。
	Attempted int `json:"attempted"`
	// Succeeded はゲートウェイが受理した数。
	Succeeded int `json:"sent"`
	// Failed は失敗した数。恒久的な無効と一時的な失敗の両方を含む。
	Failed int `json:"failed"`
	// Pruned は恒久的に無効と判定され削除対象になったトークン。
	Pruned []string `json:"pruned"`
}

// Fanout は通知をidentityの全トークンへ配信する。
type Fanout struct {
	// directory はトークンの取得と削除を行う。
	directory Directory
	// sender はプッシュゲートウェイ。nilの場合は配信できない。
	sender Sender
	// concurrency は同時送信数の上限。
	concurrency int
}

// Option はFanoutの生成オプション。
type Option func(*Fanout)

// WithConcurrency は同時送信数の上限を指定する。
func WithConcurrency(n int) Option {
	return func(f *Fanout) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// New は新しいFanoutを生成する。senderにnilを渡すとDeliverはErrGatewayUnavailableを返す。
func New(dir Directory, sender Sender, opts ...Option) *Fanout {
	f := &Fanout{
		directory:   dir,
		sender:      sender,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Available はゲートウェイが設定されていればtrueを返す。
func (f *Fanout) Available() bool {
	return f.sender != nil
}

// outcome はトークン1つへの送信結果の分類。
type outcome int

const (
	outcomeSent outcome = iota
	outcomeInvalid
	outcomeTransient
)

// Deliver はidentityの全トークンへpayloadを送信し、恒久的に無効なトークンを削除する。
// トークンが1つも無い場合はゲートウェイを呼ばずに空の結果を返す。
// トークン削除の失敗はログに残すだけで、呼び出し元にはエラーとして返さない。
func (f *Fanout) Deliver(ctx context.Context, identity string, payload formatter.Payload) (Result, error) {
	if f.sender == nil {
		return Result{}, ErrGatewayUnavailable
	}

	tokens, err := f.directory.TokensFor(ctx, identity)
	if err != nil {
		return Result{}, fmt.Errorf("トークンの取得に失敗: %w", err)
	}
	if len(tokens) == 0 {
		log.Printf("[Fanout] 登録端末がありません: identity=%s", directory.ShortIdentity(identity))
		return Result{Pruned: []string{}}, nil
	}

	outcomes := make([]outcome, len(tokens))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, token := range tokens {
		g.Go(func() error {
			outcomes[i] = f.send(ctx, token, payload)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Attempted: len(tokens), Pruned: []string{}}
	for i, o := range outcomes {
		switch o {
		case outcomeSent:
			result.Succeeded++
		case outcomeInvalid:
			result.Failed++
			result.Pruned = append(result.Pruned, tokens[i])
		case outcomeTransient:
			result.Failed++
		}
	}

	if len(result.Pruned) > 0 {
		n, err := f.directory.PruneTokens(ctx, identity, result.Pruned)
		if err != nil {
			log.Printf("[Fanout] 無効なトークンの削除に失敗: identity=%s, error=%v", directory.ShortIdentity(identity), err)
		} else {
			log.Printf("[Fanout] 無効なトークンを%d件削除しました: identity=%s", n, directory.ShortIdentity(identity))
		}
	}

	log.Printf("[Fanout] 配信完了: identity=%s, type=%s, sent=%d, failed=%d",
		directory.ShortIdentity(identity), payload.Type, result.Succeeded, result.Failed)
	return result, nil
}

// send は1つのトークンへ送信し、結果を分類する。
func (f *Fanout) send(ctx context.Context, token string, payload formatter.Payload) outcome {
	if _, err := f.sender.Send(ctx, BuildMessage(token, payload)); err != nil {
		if fcm.IsTokenInvalid(err) {
			log.Printf("[Fanout] 無効なトークン: token=%s, error=%v", directory.ShortToken(token), err)
			return outcomeInvalid
		}
		log.Printf("[Fanout] 送信に失敗: token=%s, error=%v", directory.ShortToken(token), err)
		return outcomeTransient
	}
	return outcomeSent
}

// BuildMessage はpayloadからtoken宛てのFCMメッセージを組み立てる。
func BuildMessage(token string, payload formatter.Payload) *fcm.Message {
	badge := 1
	return &fcm.Message{
		Token: token,
		Notification: &fcm.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Android: &fcm.AndroidConfig{
			Priority: fcm.AndroidPriorityHigh,
			Notification: &fcm.AndroidNotification{
				ChannelID:             ChannelFor(payload.Type),
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &fcm.APNSConfig{
			Payload: &fcm.APNSPayload{
				Aps: &fcm.Aps{
					Alert: &fcm.ApsAlert{
						Title: payload.Title,
						Body:  payload.Body,
					},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}
}

// ChannelFor は通知の種類タグからAndroidの通知チャンネルIDを決める。
func ChannelFor(typ string) string {
	switch {
	case typ == formatter.TypePaymentReceived,
		typ == formatter.TypePaymentSent,
		typ == formatter.TypePaymentFailed:
		return ChannelPayments
	case strings.HasPrefix(typ, formatter.TypeTradePrefix):
		return ChannelP2P
	case typ == formatter.TypeZap, typ == formatter.TypeDirectMessage:
		return ChannelSocial
	case strings.HasPrefix(typ, formatter.TypeBillOrderPrefix):
		return ChannelVTU
	default:
		return ChannelDefault
	}
}
