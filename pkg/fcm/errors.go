package fcm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/pushrelay/pkg/httpclient"
)

// FCMが返すエラーコード。
const (
	// CodeUnregistered は登録トークンがもう有効でないことを表す。
	CodeUnregistered = "UNREGISTERED"
	// CodeInvalidArgument はリクエストのパラメータが不正であることを表す。
	CodeInvalidArgument = "INVALID_ARGUMENT"
	// CodeQuotaExceeded は送信レート上限を超えたことを表す。
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	// CodeUnavailable はFCMが一時的に利用できないことを表す。
	CodeUnavailable = "UNAVAILABLE"
	// CodeInternal はFCM内部エラーを表す。
	CodeInternal = "INTERNAL"
	// CodeSenderIDMismatch は送信元プロジェクトとトークンの発行元が一致しないことを表す。
	CodeSenderIDMismatch = "SENDER_ID_MISMATCH"
)

// tokenField はトークン不正時にfieldViolationsに入るフィールド名。
const tokenField = "message.token"

// Error はFCMが返したエラー。
type Error struct {
	// HTTPStatus はHTTPステータスコード。
	HTTPStatus int
	// Status はgRPCステータス名（例: NOT_FOUND）。
	Status string
	// Code はFCMのエラーコード。FcmErrorの詳細がない場合はStatusと同じ。
	Code string
	// Message はエラーメッセージ。
	Message string
	// TokenViolation はmessage.tokenフィールドが不正と判定されたかどうか。
	TokenViolation bool
}

// Error はエラーメッセージを返す。
func (e *Error) Error() string {
	return fmt.Sprintf("FCMエラー: http=%d code=%s message=%s", e.HTTPStatus, e.Code, e.Message)
}

// IsTokenInvalid は送信先トークンが恒久的に無効であることを表すエラーならtrueを返す。
// 一時的な失敗（レート制限、ネットワーク障害など）ではfalseを返す。
func IsTokenInvalid(err error) bool {
	var fcmErr *Error
	if !errors.As(err, &fcmErr) {
		return false
	}
	switch fcmErr.Code {
	case CodeUnregistered:
		return true
	case CodeInvalidArgument:
		return fcmErr.TokenViolation
	default:
		return false
	}
}

// errorResponse はFCMのエラーレスポンスボディ。
type errorResponse struct {
	// Error はエラー本体。
	Error struct {
		// Code はHTTPステータスコード。
		Code int `json:"code"`
		// Message はエラーメッセージ。
		Message string `json:"message"`
		// Status はgRPCステータス名。
		Status string `json:"status"`
		// Details はエラーの詳細。
		Details []errorDetail `json:"details"`
	} `json:"error"`
}

// errorDetail はエラーの詳細1件。
type errorDetail struct {
	// Type は詳細の型URL。
	Type string `json:"@type"`
	// ErrorCode はFcmErrorのエラーコード。
	ErrorCode string `json:"errorCode"`
	// FieldViolations はBadRequestの不正フィールド一覧。
	FieldViolations []struct {
		// Field は不正なフィールド名。
		Field string `json:"field"`
		// Description は不正の説明。
		Description string `json:"description"`
	} `json:"fieldViolations"`
}

// parseError はHTTPエラーレスポンスを*Errorに変換する。
// ボディが解釈できない場合はHTTPステータスのみを持つ*Errorを返す。
func parseError(statusErr *httpclient.StatusError) *Error {
	fcmErr := &Error{HTTPStatus: statusErr.StatusCode, Message: string(statusErr.Body)}

	var resp errorResponse
	if err := json.Unmarshal(statusErr.Body, &resp); err != nil {
		return fcmErr
	}

	fcmErr.Status = resp.Error.Status
	fcmErr.Code = resp.Error.Status
	fcmErr.Message = resp.Error.Message
	for _, d := range resp.Error.Details {
		if d.ErrorCode != "" {
			fcmErr.Code = d.ErrorCode
		}
		for _, v := range d.FieldViolations {
			if v.Field == tokenField {
				fcmErr.TokenViolation = true
			}
		}
	}
	return fcmErr
}
