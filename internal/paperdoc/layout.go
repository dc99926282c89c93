package paperdoc

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/paperforge-backend/internal/types"
)

const (
	NumberingNumeric = "numeric"
	NumberingAlpha   = "alpha"
	NumberingRoman   = "roman"
)

type WatermarkSettings struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Text    string  `json:"text" yaml:"text"`
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// LayoutSettings drives the appearance of all three documents. A new layout
// row changes appearance without code changes.
type LayoutSettings struct {
	LogoURL                  string            `json:"logo_url,omitempty" yaml:"logo_url"`
	Subtitle                 string            `json:"subtitle,omitempty" yaml:"subtitle"`
	ShowStudentInfo          bool              `json:"show_student_info" yaml:"show_student_info"`
	GlobalInstructions       string            `json:"global_instructions,omitempty" yaml:"global_instructions"`
	SectionNumbering         string            `json:"section_numbering" yaml:"section_numbering"`
	PageBreakBetweenSections bool              `json:"page_break_between_sections" yaml:"page_break_between_sections"`
	PrimaryColor             string            `json:"primary_color" yaml:"primary_color"`
	FontFamily               string            `json:"font_family" yaml:"font_family"`
	Watermark                WatermarkSettings `json:"watermark" yaml:"watermark"`
}

//go:embed default_layout.yaml
var defaultLayoutYAML []byte

var (
	defaultOnce   sync.Once
	defaultLayout LayoutSettings
)

// DefaultLayout returns the embedded preset used when an organization has no
// layout of its own.
func DefaultLayout() LayoutSettings {
	defaultOnce.Do(func() {
		if err := yaml.Unmarshal(defaultLayoutYAML, &defaultLayout); err != nil {
			defaultLayout = LayoutSettings{
				ShowStudentInfo:  true,
				SectionNumbering: NumberingNumeric,
				PrimaryColor:     "#1a237e",
				FontFamily:       "Georgia, serif",
			}
		}
	})
	return defaultLayout
}

// SettingsFromModel decodes a layout row, falling back to the preset for any
// missing fields.
func SettingsFromModel(layout *types.PaperLayout) LayoutSettings {
	settings := DefaultLayout()
	if layout == nil || len(layout.Settings) == 0 {
		return settings
	}
	_ = json.Unmarshal(layout.Settings, &settings)
	if settings.SectionNumbering == "" {
		settings.SectionNumbering = NumberingNumeric
	}
	if settings.PrimaryColor == "" {
		settings.PrimaryColor = DefaultLayout().PrimaryColor
	}
	return settings
}

// SectionLabel renders a 0-based section index in the layout's numbering style.
func SectionLabel(style string, index int) string {
	switch style {
	case NumberingAlpha:
		return alphaLabel(index)
	case NumberingRoman:
		return romanLabel(index + 1)
	default:
		return fmt.Sprintf("%d", index+1)
	}
}

func alphaLabel(index int) string {
	var b strings.Builder
	n := index
	for {
		b.WriteByte(byte('A' + n%26))
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	// Built least-significant first.
	runes := []rune(b.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

var romanPairs = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func romanLabel(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range romanPairs {
		for n >= p.value {
			b.WriteString(p.symbol)
			n -= p.value
		}
	}
	return b.String()
}

// OptionLetter labels options A, B, C, ... AA after Z.
func OptionLetter(index int) string {
	return alphaLabel(index)
}
