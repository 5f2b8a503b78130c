package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	// DefaultPlatform は登録時にplatformが省略された場合の値。
	DefaultPlatform = "android"
	// DefaultAppVersion は登録時にappVersionが省略された場合の値。
	DefaultAppVersion = "unknown"

	defaultPageSize = 200
	healthCheckID   = "relay"
)

// ErrInvalidArgument はidentityまたはトークンが空であることを表す。
var ErrInvalidArgument = errors.New("identityとトークンは空にできません")

// Metadata は登録時に端末から送られる付帯情報。
type Metadata struct {
	Platform   string
	AppVersion string
}

// DeviceToken は端末レコード。
type DeviceToken struct {
	Token        string
	Identity     string
	Platform     string
	AppVersion   string
	RegisteredAt time.Time
	LastActive   time.Time
}

// Stats は診断用の件数。
type Stats struct {
	Identities int `db:"identities" json:"identities"`
	Devices    int `db:"devices" json:"devices"`
}

// deviceRow はdevicesテーブルの1行。
type deviceRow struct {
	Token        string `db:"fcm_token"`
	Identity     string `db:"pubkey"`
	Platform     string `db:"platform"`
	AppVersion   string `db:"app_version"`
	RegisteredAt int64  `db:"registered_at"`
	LastActive   int64  `db:"last_active"`
}

func (r deviceRow) toDeviceToken() DeviceToken {
	return DeviceToken{
		Token:        r.Token,
		Identity:     r.Identity,
		Platform:     r.Platform,
		AppVersion:   r.AppVersion,
		RegisteredAt: time.UnixMilli(r.RegisteredAt).UTC(),
		LastActive:   time.UnixMilli(r.LastActive).UTC(),
	}
}

// Store はSQLiteを使ったトークンディレクトリ。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sqlx.DB
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
	// pageSize は古い端末を走査する際の1ページの件数。
	pageSize int
}

// Option はStoreの生成オプション。
type Option func(*Store)

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPageSize は古い端末を走査する際のページサイズを指定する。
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Open はpathのSQLiteデータベースを開き、スキーマを適用したStoreを返す。
// 親ディレクトリが存在しない場合は作成する。
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("データベースのパスが空です")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s := &Store{
		db:       db,
		now:      time.Now,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) nowMillis() int64 {
	return s.now().UTC().UnixMilli()
}

// RegisterToken はtokenをidentityのトークン集合に追加し、端末レコードを新しい時刻で更新する。
// 同じ組み合わせでの再登録は冪等。tokenが別のidentityに属していた場合はそちらから取り除く。
func (s *Store) RegisterToken(ctx context.Context, identity, token string, meta Metadata) error {
	identity, token = strings.TrimSpace(identity), strings.TrimSpace(token)
	if identity == "" || token == "" {
		return ErrInvalidArgument
	}
	if meta.Platform == "" {
		meta.Platform = DefaultPlatform
	}
	if meta.AppVersion == "" {
		meta.AppVersion = DefaultAppVersion
	}
	now := s.nowMillis()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var previous []string
		if err := tx.SelectContext(ctx, &previous,
			"SELECT pubkey FROM identity_tokens WHERE fcm_token = ? AND pubkey <> ?",
			token, identity,
		); err != nil {
			return fmt.Errorf("既存の所有者の取得に失敗: %w", err)
		}
		for _, owner := range previous {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM identity_tokens WHERE pubkey = ? AND fcm_token = ?", owner, token,
			); err != nil {
				return fmt.Errorf("既存の所有者からのトークン削除に失敗: %w", err)
			}
			if err := dropIfEmpty(ctx, tx, owner); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO identities (pubkey, created_at, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(pubkey) DO UPDATE SET updated_at = excluded.updated_at`,
			identity, now, now,
		); err != nil {
			return fmt.Errorf("identityの保存に失敗: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO identity_tokens (pubkey, fcm_token, added_at) VALUES (?, ?, ?)
			ON CONFLICT(pubkey, fcm_token) DO NOTHING`,
			identity, token, now,
		); err != nil {
			return fmt.Errorf("トークンの追加に失敗: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO devices (fcm_token, pubkey, platform, app_version, registered_at, last_active)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(fcm_token) DO UPDATE SET
				pubkey = excluded.pubkey,
				platform = excluded.platform,
				app_version = excluded.app_version,
				registered_at = excluded.registered_at,
				last_active = excluded.last_active`,
			token, identity, meta.Platform, meta.AppVersion, now, now,
		); err != nil {
			return fmt.Errorf("端末レコードの保存に失敗: %w", err)
		}
		return nil
	})
}

// UnregisterToken はtokenの端末レコードを削除し、identityのトークン集合から取り除く。
// identityが空の場合はtokenを保持しているidentityから取り除く。
// 登録されていないtokenの場合は何もしない。
func (s *Store) UnregisterToken(ctx context.Context, identity, token string) error {
	identity, token = strings.TrimSpace(identity), strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidArgument
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		owners := []string{identity}
		if identity == "" {
			owners = nil
			if err := tx.SelectContext(ctx, &owners,
				"SELECT pubkey FROM identity_tokens WHERE fcm_token = ?", token,
			); err != nil {
				return fmt.Errorf("所有者の取得に失敗: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM devices WHERE fcm_token = ?", token); err != nil {
				return fmt.Errorf("端末レコードの削除に失敗: %w", err)
			}
		} else if _, err := tx.ExecContext(ctx,
			"DELETE FROM devices WHERE fcm_token = ? AND pubkey = ?", token, identity,
		); err != nil {
			return fmt.Errorf("端末レコードの削除に失敗: %w", err)
		}

		for _, owner := range owners {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM identity_tokens WHERE pubkey = ? AND fcm_token = ?", owner, token,
			); err != nil {
				return fmt.Errorf("トークンの削除に失敗: %w", err)
			}
			if err := dropIfEmpty(ctx, tx, owner); err != nil {
				return err
			}
		}
		return nil
	})
}

// TokensFor はidentityのトークン集合を登録順に返す。未知のidentityの場合は空のスライスを返す。
func (s *Store) TokensFor(ctx context.Context, identity string) ([]string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrInvalidArgument
	}

	tokens := []string{}
	if err := s.db.SelectContext(ctx, &tokens,
		"SELECT fcm_token FROM identity_tokens WHERE pubkey = ? ORDER BY added_at, fcm_token",
		identity,
	); err != nil {
		return nil, fmt.Errorf("トークンの取得に失敗: %w", err)
	}
	return tokens, nil
}

// PruneTokens はidentityのトークン集合から指定されたトークンだけを1トランザクションで取り除き、
// 取り除いた件数を返す。identityが所有している端末レコードも削除する。
func (s *Store) PruneTokens(ctx context.Context, identity string, tokens []string) (int, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return 0, ErrInvalidArgument
	}
	tokens = compactTokens(tokens)
	if len(tokens) == 0 {
		return 0, nil
	}

	var removed int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(
			"DELETE FROM identity_tokens WHERE pubkey = ? AND fcm_token IN (?)", identity, tokens,
		)
		if err != nil {
			return fmt.Errorf("削除クエリの組み立てに失敗: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("トークンの削除に失敗: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("削除件数の取得に失敗: %w", err)
		}
		removed = int(n)

		query, args, err = sqlx.In(
			"DELETE FROM devices WHERE pubkey = ? AND fcm_token IN (?)", identity, tokens,
		)
		if err != nil {
			return fmt.Errorf("削除クエリの組み立てに失敗: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("端末レコードの削除に失敗: %w", err)
		}
		return dropIfEmpty(ctx, tx, identity)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// StaleDeviceTokens はlast_activeが現在時刻からretention以上前の端末を古い順に返す。
// 結果はページ単位で遅延取得するため、走査中に端末を削除してもよい。
func (s *Store) StaleDeviceTokens(ctx context.Context, retention time.Duration) iter.Seq2[DeviceToken, error] {
	cutoff := s.now().Add(-retention).UTC().UnixMilli()

	return func(yield func(DeviceToken, error) bool) {
		lastActive, lastToken := int64(math.MinInt64), ""
		for {
			if err := ctx.Err(); err != nil {
				yield(DeviceToken{}, err)
				return
			}

			var page []deviceRow
			if err := s.db.SelectContext(ctx, &page, `
				SELECT fcm_token, pubkey, platform, app_version, registered_at, last_active
				FROM devices
				WHERE last_active < ? AND (last_active, fcm_token) > (?, ?)
				ORDER BY last_active, fcm_token
				LIMIT ?`,
				cutoff, lastActive, lastToken, s.pageSize,
			); err != nil {
				yield(DeviceToken{}, fmt.Errorf("古い端末の取得に失敗: %w", err))
				return
			}

			for _, row := range page {
				if !yield(row.toDeviceToken(), nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1]
			lastActive, lastToken = last.LastActive, last.Token
		}
	}
}

// Device はtokenの端末レコードを返す。存在しない場合はfalseを返す。
func (s *Store) Device(ctx context.Context, token string) (DeviceToken, bool, error) {
	var row deviceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT fcm_token, pubkey, platform, app_version, registered_at, last_active
		FROM devices WHERE fcm_token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return DeviceToken{}, false, nil
	}
	if err != nil {
		return DeviceToken{}, false, fmt.Errorf("端末レコードの取得に失敗: %w", err)
	}
	return row.toDeviceToken(), true, nil
}

// DeleteDevice はtokenの端末レコードを削除する。存在しない場合は何もしない。
func (s *Store) DeleteDevice(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidArgument
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM devices WHERE fcm_token = ?", token); err != nil {
		return fmt.Errorf("端末レコードの削除に失敗: %w", err)
	}
	return nil
}

// Ping はデータベースへの書き込みと読み戻しを行い、ストレージが利用できるかを確認する。
func (s *Store) Ping(ctx context.Context) error {
	now := s.nowMillis()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO health_checks (id, checked_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET checked_at = excluded.checked_at`,
		healthCheckID, now,
	); err != nil {
		return fmt.Errorf("書き込み確認に失敗: %w", err)
	}

	var checkedAt int64
	if err := s.db.GetContext(ctx, &checkedAt,
		"SELECT checked_at FROM health_checks WHERE id = ?", healthCheckID,
	); err != nil {
		return fmt.Errorf("読み戻し確認に失敗: %w", err)
	}
	if checkedAt != now {
		return fmt.Errorf("読み戻した値が一致しません: got %d, want %d", checkedAt, now)
	}
	return nil
}

// Stats はidentity数と端末数を返す。
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.GetContext(ctx, &st, `
		SELECT
			(SELECT COUNT(*) FROM identities) AS identities,
			(SELECT COUNT(*) FROM devices) AS devices`,
	); err != nil {
		return Stats{}, fmt.Errorf("件数の取得に失敗: %w", err)
	}
	return st, nil
}

// withTx はfnをトランザクション内で実行し、エラーが無ければコミットする。
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// dropIfEmpty はトークンが1つも残っていないidentityを削除する。
func dropIfEmpty(ctx context.Context, tx *sqlx.Tx, identity string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM identities
		WHERE pubkey = ? AND NOT EXISTS (SELECT 1 FROM identity_tokens WHERE pubkey = ?)`,
		identity, identity,
	); err != nil {
		return fmt.Errorf("空のidentityの削除に失敗: %w", err)
	}
	return nil
}

// compactTokens は空文字と重複を取り除く。
func compactTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ShortIdentity はログ出力用にidentityを先頭8文字に切り詰める。
func ShortIdentity(identity string) string {
	return truncate(identity, 8)
}

// ShortToken はログ出力用にトークンを先頭20文字に切り詰める。
func ShortToken(token string) string {
	return truncate(token, 20)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
