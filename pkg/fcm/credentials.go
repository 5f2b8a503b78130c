package fcm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/nao1215/pushrelay/pkg/httpclient"
)

// Scope はFCM送信に必要なOAuth2スコープ。
const Scope = "https://www.googleapis.com/auth/firebase.messaging"

// Credentials はFCMのサービスアカウント認証情報。
// CredentialsFileを指定した場合はClientEmailとPrivateKeyより優先する。
type Credentials struct {
	// ProjectID はFirebaseプロジェクトID。
	ProjectID string
	// ClientEmail はサービスアカウントのメールアドレス。
	ClientEmail string
	// PrivateKey はPEM形式の秘密鍵。"\n"のエスケープを含んでいてもよい。
	PrivateKey string
	// CredentialsFile はサービスアカウントJSONファイルのパス。
	CredentialsFile string
	// TokenURL はOAuth2トークンエンドポイント。空の場合はGoogleの既定値。
	TokenURL string
}

// Configured はFCMへ送信できるだけの認証情報が揃っていればtrueを返す。
func (c Credentials) Configured() bool {
	if c.CredentialsFile != "" {
		return true
	}
	return c.ProjectID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

// NormalizePrivateKey は環境変数経由で崩れた秘密鍵を復元する。
// CRを取り除いて"\n"のエスケープを改行に戻し、最後に前後の空白を落とす。
func NormalizePrivateKey(key string) string {
	key = strings.ReplaceAll(key, "\r", "")
	key = strings.ReplaceAll(key, `\n`, "\n")
	return strings.TrimSpace(key)
}

// NewFromCredentials は認証情報からOAuth2付きのFCMクライアントを生成する。
// endpointが空の場合はDefaultEndpointを使う。
func NewFromCredentials(ctx context.Context, endpoint string, creds Credentials) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	httpClient, projectID, err := newOAuthClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	return New(projectID, httpclient.NewWithHTTPClient(endpoint, httpClient))
}

// newOAuthClient はアクセストークンを自動付与するhttp.Clientを生成する。
func newOAuthClient(ctx context.Context, creds Credentials) (*http.Client, string, error) {
	if creds.CredentialsFile != "" {
		data, err := os.ReadFile(creds.CredentialsFile)
		if err != nil {
			return nil, "", fmt.Errorf("認証情報ファイルの読み込みに失敗: %w", err)
		}
		googleCreds, err := google.CredentialsFromJSON(ctx, data, Scope)
		if err != nil {
			return nil, "", fmt.Errorf("認証情報ファイルの解析に失敗: %w", err)
		}
		projectID := creds.ProjectID
		if projectID == "" {
			projectID = googleCreds.ProjectID
		}
		return oauth2.NewClient(ctx, googleCreds.TokenSource), projectID, nil
	}

	if !creds.Configured() {
		return nil, "", fmt.Errorf("FIREBASE_PROJECT_ID, FIREBASE_CLIENT_EMAIL, FIREBASE_PRIVATE_KEYが必要です")
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	cfg := &jwt.Config{
		Email:      strings.TrimSpace(creds.ClientEmail),
		PrivateKey: []byte(NormalizePrivateKey(creds.PrivateKey)),
		Scopes:     []string{Scope},
		TokenURL:   tokenURL,
	}
	return cfg.Client(ctx), strings.TrimSpace(creds.ProjectID), nil
}
