package fcm

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nao1215/pushrelay/pkg/httpclient"
)

// DefaultEndpoint はFCM HTTP v1 APIのベースURL。
const DefaultEndpoint = "https://fcm.googleapis.com"

// ErrProjectIDRequired はプロジェクトIDが指定されていないことを表す。
var ErrProjectIDRequired = errors.New("FirebaseプロジェクトIDが必要です")

// Client はFCM HTTP v1 APIのクライアント。
type Client struct {
	// http はFCM APIとの通信用HTTPクライアント。
	http *httpclient.Client
	// projectID は送信元のFirebaseプロジェクトID。
	projectID string
}

// New は新しいFCMクライアントを生成する。
// httpClientにはOAuth2のアクセストークンを付与するクライアントを渡す。
func New(projectID string, httpClient *httpclient.Client) (*Client, error) {
	if projectID == "" {
		return nil, ErrProjectIDRequired
	}
	return &Client{http: httpClient, projectID: projectID}, nil
}

// ProjectID は送信元のFirebaseプロジェクトIDを返す。
func (c *Client) ProjectID() string {
	return c.projectID
}

// sendRequest はmessages:sendのリクエストボディ。
type sendRequest struct {
	// Message は送信するメッセージ。
	Message *Message `json:"message"`
}

// sendResponse はmessages:sendのレスポンスボディ。
type sendResponse struct {
	// Name は受理されたメッセージのリソース名。
	Name string `json:"name"`
}

// Send はメッセージを1つの登録トークンへ送信し、受理されたメッセージ名を返す。
// FCMがエラーを返した場合は*Errorを返す。
func (c *Client) Send(ctx context.Context, msg *Message) (string, error) {
	if msg == nil || msg.Token == "" {
		return "", &Error{Code: CodeInvalidArgument, Message: "登録トークンが空です", TokenViolation: true}
	}

	path := fmt.Sprintf("/v1/projects/%s/messages:send", url.PathEscape(c.projectID))
	var resp sendResponse
	if err := c.http.PostJSON(ctx, path, sendRequest{Message: msg}, &resp); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return "", parseError(statusErr)
		}
		return "", fmt.Errorf("FCMへの送信に失敗: %w", err)
	}
	return resp.Name, nil
}
