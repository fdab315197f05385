package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsMarkup はタグが除去されテキストが残ることを検証する。
func TestSanitize_StripsMarkup(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Our TAM is $4.2B",
			want:  "Our TAM is $4.2B",
		},
		{
			name:  "強調タグが除去される",
			input: "<strong>Revenue</strong> grew <em>3x</em>",
			want:  "Revenue grew 3x",
		},
		{
			name:  "リンクはテキストのみ残る",
			input: `See <a href="https://example.com">our site</a>`,
			want:  "See our site",
		},
		{
			name:  "改行と箇条書き記号は保持される",
			input: "• Point one\n• Point two",
			want:  "• Point one\n• Point two",
		},
		{
			name:  "アンパサンドがエスケープされたまま残らない",
			input: "R&D budget",
			want:  "R&D budget",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_RemovesDangerousContent はscript等が中身ごと除去されることを検証する。
func TestSanitize_RemovesDangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	inputs := []string{
		`<script>alert('xss')</script>Problem`,
		`<img src="x" onerror="alert(1)">Problem`,
		`<iframe src="https://evil.example.com"></iframe>Problem`,
		`<style>body{display:none}</style>Problem`,
	}

	for _, input := range inputs {
		got := sanitizer.Sanitize(input)
		for _, bad := range []string{"<script", "alert", "onerror", "<iframe", "display:none"} {
			if strings.Contains(got, bad) {
				t.Errorf("Sanitize(%q) = %q, should not contain %q", input, got, bad)
			}
		}
		if !strings.Contains(got, "Problem") {
			t.Errorf("Sanitize(%q) = %q, expected text to remain", input, got)
		}
	}
}

// TestSanitize_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := "<p>Market <b>size</b></p>"

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}

// TestSanitize_EntityEncodedMarkup はエンティティで送られたタグが復元されずに除去されることを検証する。
func TestSanitize_EntityEncodedMarkup(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "imgのonerror",
			input: "&lt;img src=x onerror=alert(1)&gt;",
			want:  "",
		},
		{
			name:  "scriptは中身ごと除去",
			input: "&lt;script&gt;alert(1)&lt;/script&gt;Problem",
			want:  "Problem",
		},
		{
			name:  "二重エンコード",
			input: "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;Solution",
			want:  "Solution",
		},
		{
			name:  "比較記号は文字として残る",
			input: "CAC &lt; LTV and 5 > 3",
			want:  "CAC < LTV and 5 > 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for _, bad := range []string{"<img", "<script", "onerror", "alert"} {
				if strings.Contains(got, bad) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}
