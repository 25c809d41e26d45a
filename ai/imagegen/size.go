package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"regexp"
	"strconv"
	"strings"

	// Register decoders for reference image dimension probing.
	_ "image/jpeg"
	_ "image/png"
)

// aspectRatios are the tokens the image endpoint accepts.
var aspectRatios = []struct {
	token string
	value float64
}{
	{"1:1", 1.0 / 1.0},
	{"2:3", 2.0 / 3.0},
	{"3:2", 3.0 / 2.0},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"4:5", 4.0 / 5.0},
	{"5:4", 5.0 / 4.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
	{"21:9", 21.0 / 9.0},
}

// Size presets selectable by keyword.
var sizePresets = map[string][2]int{
	"square":    {1024, 1024},
	"landscape": {1024, 768},
	"portrait":  {768, 1024},
	"wide":      {1024, 576},
	"tall":      {576, 1024},
}

var explicitSizeRE = regexp.MustCompile(`(\d{3,4})\s*[x*×]\s*(\d{3,4})`)

// SnapRatio reduces w:h and snaps it to the nearest supported aspect
// ratio token by |w/h - ratio|.
func SnapRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	g := gcd(width, height)
	rw, rh := width/g, height/g
	for _, r := range aspectRatios {
		if r.token == fmt.Sprintf("%d:%d", rw, rh) {
			return r.token
		}
	}

	target := float64(width) / float64(height)
	best := aspectRatios[0].token
	bestDiff := math.Abs(target - aspectRatios[0].value)
	for _, r := range aspectRatios[1:] {
		if diff := math.Abs(target - r.value); diff < bestDiff {
			best, bestDiff = r.token, diff
		}
	}
	return best
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ResolveSize decides output dimensions from, in priority order: the
// reference image's aspect, an explicit WIDTHxHEIGHT in the prompt,
// preset keywords (English or Chinese), then the square default. The
// longest edge is clamped to maxSize.
func ResolveSize(prompt string, reference []byte, maxSize int) (width, height int, ratio string) {
	if maxSize <= 0 {
		maxSize = 1024
	}

	if len(reference) > 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(reference)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
			ratio = SnapRatio(cfg.Width, cfg.Height)
			width, height = dimsForRatio(ratio, maxSize)
			return width, height, ratio
		}
	}

	if m := explicitSizeRE.FindStringSubmatch(prompt); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		w, h = clampMaxEdge(w, h, maxSize)
		return w, h, SnapRatio(w, h)
	}

	if preset := presetFromPrompt(prompt); preset != "" {
		dims := sizePresets[preset]
		w, h := clampMaxEdge(dims[0], dims[1], maxSize)
		return w, h, SnapRatio(w, h)
	}

	w, h := clampMaxEdge(1024, 1024, maxSize)
	return w, h, "1:1"
}

func presetFromPrompt(prompt string) string {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "超宽") || strings.Contains(lower, "wide"):
		return "wide"
	case strings.Contains(lower, "超高") || strings.Contains(lower, "tall"):
		return "tall"
	case strings.Contains(lower, "横") || strings.Contains(lower, "宽") || strings.Contains(lower, "landscape"):
		return "landscape"
	case strings.Contains(lower, "竖") || strings.Contains(lower, "高") || strings.Contains(lower, "portrait"):
		return "portrait"
	case strings.Contains(lower, "方") || strings.Contains(lower, "square"):
		return "square"
	}
	return ""
}

// dimsForRatio sizes the longest edge to maxSize and derives the other.
func dimsForRatio(ratio string, maxSize int) (int, int) {
	parts := strings.SplitN(ratio, ":", 2)
	rw, _ := strconv.Atoi(parts[0])
	rh, _ := strconv.Atoi(parts[1])
	if rw <= 0 || rh <= 0 {
		return maxSize, maxSize
	}
	if rw >= rh {
		return maxSize, maxSize * rh / rw
	}
	return maxSize * rw / rh, maxSize
}

func clampMaxEdge(w, h, maxSize int) (int, int) {
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSize {
		return w, h
	}
	scale := float64(maxSize) / float64(longest)
	return int(float64(w) * scale), int(float64(h) * scale)
}
