package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount はJSONの数値・文字列どちらでも受け付ける金額。
// 上流のスキーマ変更（数値→"5,000"のような文字列）に耐えるために使う。
type Amount struct {
	// raw は受け取った値の文字列表現。
	raw string
	// value は数値として解釈できた場合の値。
	value float64
	// numeric はvalueが有効かどうか。
	numeric bool
}

// NewAmount は数値から金額を生成する。
func NewAmount(v float64) Amount {
	return Amount{raw: strconv.FormatFloat(v, 'f', -1, 64), value: v, numeric: true}
}

// ParseAmount は文字列から金額を生成する。数値として解釈できない文字列はそのまま保持する。
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return Amount{raw: s, value: v, numeric: true}
	}
	return Amount{raw: s}
}

// IsZero は金額が指定されていない、または0であればtrueを返す。
func (a Amount) IsZero() bool {
	if a.numeric {
		return a.value == 0
	}
	return a.raw == ""
}

// Float は数値として解釈できた場合にその値を返す。
func (a Amount) Float() (float64, bool) {
	return a.value, a.numeric
}

// String は受け取ったままの文字列表現を返す。
func (a Amount) String() string {
	return a.raw
}

// UnmarshalJSON はJSONの数値・文字列・nullを金額として読み込む。
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("金額文字列のデコードに失敗: %w", err)
		}
		*a = ParseAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("金額は数値または文字列である必要があります: %w", err)
	}
	v, err := n.Float64()
	if err != nil {
		return fmt.Errorf("金額の変換に失敗: %w", err)
	}
	*a = Amount{raw: n.String(), value: v, numeric: true}
	return nil
}

// MarshalJSON は数値なら数値、それ以外は文字列として書き出す。
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.numeric {
		return []byte(a.raw), nil
	}
	if a.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(a.raw)
}
