package paperdoc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// ApplyBranding substitutes the primary color into an already-built document's
// stylesheet.
func ApplyBranding(htmlDoc, primaryColor string) string {
	if strings.TrimSpace(primaryColor) == "" {
		return htmlDoc
	}
	start := strings.Index(htmlDoc, "--primary:")
	if start < 0 {
		return htmlDoc
	}
	end := strings.Index(htmlDoc[start:], ";")
	if end < 0 {
		return htmlDoc
	}
	return htmlDoc[:start] + "--primary: " + primaryColor + htmlDoc[start+end:]
}

// ApplyWatermark rasterizes the watermark text as a rotated translucent PNG
// and injects it as a repeating page background. Applied before PDF rendering
// so the stamp survives into the stored artifact.
func ApplyWatermark(htmlDoc string, wm WatermarkSettings) string {
	if !wm.Enabled || strings.TrimSpace(wm.Text) == "" {
		return htmlDoc
	}
	uri, err := watermarkDataURI(wm)
	if err != nil {
		return htmlDoc
	}
	css := fmt.Sprintf(`body { background-image: url("%s"); background-repeat: repeat; }`, uri)
	idx := strings.Index(htmlDoc, "</style>")
	if idx < 0 {
		return htmlDoc
	}
	return htmlDoc[:idx] + css + htmlDoc[idx:]
}

func watermarkDataURI(wm WatermarkSettings) (string, error) {
	const size = 480
	opacity := wm.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.08
	}
	dc := gg.NewContext(size, size)
	dc.SetRGBA(0.2, 0.2, 0.2, opacity)
	dc.SetFontFace(watermarkFace())
	dc.RotateAbout(gg.Radians(-35), float64(size)/2, float64(size)/2)
	dc.DrawStringAnchored(wm.Text, float64(size)/2, float64(size)/2, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func watermarkFace() font.Face {
	path := strings.TrimSpace(os.Getenv("WATERMARK_FONT_PATH"))
	if path == "" {
		return basicfont.Face7x13
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return basicfont.Face7x13
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: 42})
}
