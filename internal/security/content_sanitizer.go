// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はスライドやAI応答のテキストからHTMLを取り除き、
// フロントエンドでの描画時にマークアップとして解釈されないようにする。
// bluemondayのStrictPolicyを使用し、すべてのタグを除去する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト化のインターフェースを定義する。
// デッキの保存前およびAI応答の返却前に使用される。
type TextSanitizer interface {
	// Sanitize は入力からすべてのHTMLタグを除去したプレーンテキストを返す。
	// script, styleタグは中身ごと除去する。
	// エンティティはデコードした状態で返す（"R&D" は "R&D" のまま）。
	// エンティティで表現されたタグもデコード後に除去される。
	// 空文字列の入力には空文字列を返す。
	Sanitize(raw string) string
}

// contentSanitizer はTextSanitizerの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はデコードと除去を繰り返す回数の上限。
const maxSanitizePasses = 8

// Sanitize はHTMLタグを除去したプレーンテキストを返す。
// デコードで新たなタグが現れなくなるまで除去とデコードを繰り返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return out
		}
		out = next
	}
	// 収束しない入力はエスケープしたまま返す
	return s.policy.Sanitize(out)
}

// compile-time interface check
var _ TextSanitizer = (*contentSanitizer)(nil)
