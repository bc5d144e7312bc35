package welcome

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/errs"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

const (
	maxImageBytes = 8 << 20
	// maxImagePixels bounds the decoded size; headers are checked before decoding.
	maxImagePixels = 4096 * 4096
)

var ErrImageTooLarge = errors.New("image too large")

type Card struct {
	UserName           string
	ServerName         string
	AvatarURL          string
	BackgroundColor    string
	TextColor          string
	BackgroundImageURL string
}

type Renderer struct {
	client     *http.Client
	logger     *zap.Logger
	width      int
	height     int
	avatarSize int
}

func NewRenderer(cfg config.WelcomeConfig, logger *zap.Logger) *Renderer {
	return &Renderer{
		client:     &http.Client{Timeout: time.Duration(cfg.FetchTimeoutSec) * time.Second},
		logger:     logger,
		width:      cfg.Width,
		height:     cfg.Height,
		avatarSize: cfg.AvatarSize,
	}
}

// Render draws the card as a PNG. A missing avatar or background is skipped;
// any other failure is reported as errs.ErrRenderFailure.
func (r *Renderer) Render(ctx context.Context, card Card) ([]byte, error) {
	bg, err := ParseHexColor(card.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("%w: background: %v", errs.ErrRenderFailure, err)
	}
	fg, err := ParseHexColor(card.TextColor)
	if err != nil {
		return nil, fmt.Errorf("%w: text: %v", errs.ErrRenderFailure, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if card.BackgroundImageURL != "" {
		if background, err := r.fetch(ctx, card.BackgroundImageURL); err != nil {
			r.logger.Warn("welcome background fetch failed", zap.String("url", card.BackgroundImageURL), zap.Error(err))
		} else {
			draw.CatmullRom.Scale(canvas, canvas.Bounds(), background, background.Bounds(), draw.Src, nil)
		}
	}

	avatarTop := 30
	if card.AvatarURL != "" {
		if avatar, err := r.fetch(ctx, card.AvatarURL); err != nil {
			r.logger.Warn("welcome avatar fetch failed", zap.String("url", card.AvatarURL), zap.Error(err))
		} else {
			r.drawAvatar(canvas, avatar, avatarTop)
		}
	}

	y := avatarTop + r.avatarSize + 20
	drawCentered(canvas, "¡Bienvenido!", y, 3, fg)
	drawCentered(canvas, card.UserName, y+45, 3, fg)
	drawCentered(canvas, "a "+card.ServerName, y+85, 2, fg)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", errs.ErrRenderFailure, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if header.Width <= 0 || header.Height <= 0 || header.Width > maxImagePixels/header.Height {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, header.Width, header.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// drawAvatar pastes the avatar scaled into a circle centered horizontally.
func (r *Renderer) drawAvatar(dst *image.RGBA, avatar image.Image, top int) {
	size := r.avatarSize
	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), avatar, avatar.Bounds(), draw.Src, nil)

	left := (r.width - size) / 2
	target := image.Rect(left, top, left+size, top+size)
	draw.DrawMask(dst, target, scaled, image.Point{}, circle{size: size}, image.Point{}, draw.Over)
}

// drawCentered writes text with the 7x13 bitmap face, enlarged by scale.
func drawCentered(dst *image.RGBA, text string, top, scale int, fg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	if width == 0 {
		return
	}
	glyphs := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	scaledWidth := width * scale
	left := (dst.Bounds().Dx() - scaledWidth) / 2
	target := image.Rect(left, top, left+scaledWidth, top+face.Height*scale)
	draw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), draw.Over, nil)
}

type circle struct {
	size int
}

func (c circle) ColorModel() color.Model { return color.AlphaModel }

func (c circle) Bounds() image.Rectangle { return image.Rect(0, 0, c.size, c.size) }

func (c circle) At(x, y int) color.Color {
	r := float64(c.size) / 2
	dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// ParseHexColor reads a #RRGGBB string.
func ParseHexColor(value string) (color.RGBA, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", value)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
}
