package export

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var themesYAML []byte

// Color は16進表記のRGB色（例: "1E3A5F"）。
type Color string

// RGB は色を0〜255の3成分に分解する。解釈できない場合は黒を返す。
func (c Color) RGB() (r, g, b int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(string(c), "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(string(c), "#")) != 6 {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// Hex は「#」を除いた大文字6桁の表記を返す。OOXMLのsrgbClrで使う。
func (c Color) Hex() string {
	r, g, b := c.RGB()
	return fmt.Sprintf("%02X%02X%02X", r, g, b)
}

// Theme はテンプレートの配色とフォント。
type Theme struct {
	Name       string `yaml:"-"`
	Primary    Color  `yaml:"primary"`
	Accent     Color  `yaml:"accent"`
	Background Color  `yaml:"background"`
	Text       Color  `yaml:"text"`
	Muted      Color  `yaml:"muted"`
	TitleText  Color  `yaml:"titleText"`
	PPTXFont   string `yaml:"pptxFont"`
}

// Themes はテンプレート名からThemeを引くカタログ。
type Themes map[string]Theme

// LoadThemes は埋め込みのテーマ定義を読み込む。
func LoadThemes() (Themes, error) {
	return parseThemes(themesYAML)
}

func parseThemes(data []byte) (Themes, error) {
	var themes Themes
	if err := yaml.Unmarshal(data, &themes); err != nil {
		return nil, fmt.Errorf("failed to parse themes: %w", err)
	}
	if _, ok := themes[defaultTemplate]; !ok {
		return nil, fmt.Errorf("theme %q is not defined", defaultTemplate)
	}
	for name, t := range themes {
		t.Name = name
		themes[name] = t
	}
	return themes, nil
}

// Lookup はテンプレート名に対応するThemeを返す。未定義の名前は既定テーマになる。
func (t Themes) Lookup(name string) Theme {
	if theme, ok := t[strings.ToLower(name)]; ok {
		return theme
	}
	return t[defaultTemplate]
}
