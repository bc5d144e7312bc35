package welcome

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFormatMessage(t *testing.T) {
	got := FormatMessage("¡Bienvenido {user} a {server}! Somos {members}. {user}", "<@1>", "Rexy", 42)
	assert.Equal(t, "¡Bienvenido <@1> a Rexy! Somos 42. <@1>", got)
	assert.Equal(t, "sin marcadores {otro}", FormatMessage("sin marcadores {otro}", "<@1>", "Rexy", 1))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#7289da")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x72, G: 0x89, B: 0xda, A: 255}, c)

	_, err = ParseHexColor("blue")
	assert.Error(t, err)
}

func newRenderer() *Renderer {
	return NewRenderer(config.DefaultConfig().Welcome, zap.NewNop())
}

func TestRenderProducesPNG(t *testing.T) {
	avatar := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			avatar.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, avatar)
	}))
	defer server.Close()

	data, err := newRenderer().Render(context.Background(), Card{
		UserName:        "rexy",
		ServerName:      "Rexys",
		AvatarURL:       server.URL + "/avatar.png",
		BackgroundColor: "#7289da",
		TextColor:       "#ffffff",
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())

	// Avatar center is red, the corner keeps the background.
	r, g, b, _ := img.At(400, 30+75).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	r, g, b, _ = img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0x7272, 0x8989, 0xdada}, [3]uint32{r, g, b})
}

func TestRenderSkipsBrokenAvatar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	data, err := newRenderer().Render(context.Background(), Card{
		UserName:        "rexy",
		ServerName:      "Rexys",
		AvatarURL:       server.URL,
		BackgroundColor: "#000000",
		TextColor:       "#ffffff",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderBadColorIsRenderFailure(t *testing.T) {
	_, err := newRenderer().Render(context.Background(), Card{BackgroundColor: "nope", TextColor: "#ffffff"})
	assert.ErrorIs(t, err, errs.ErrRenderFailure)
}

// oversizedPNG encodes a 1x1 image and rewrites its header to claim width x height.
func oversizedPNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	// 8-byte signature, then IHDR: length(4) type(4) width(4) height(4) ... crc(4).
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestFetchRejectsHugeDimensions(t *testing.T) {
	body := oversizedPNG(t, 100000, 100000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	renderer := newRenderer()
	_, err := renderer.fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	// The card still renders on the plain color.
	data, err := renderer.Render(context.Background(), Card{
		UserName:           "rexy",
		ServerName:         "Rexys",
		BackgroundColor:    "#7289da",
		TextColor:          "#ffffff",
		BackgroundImageURL: server.URL,
	})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0x7272, 0x8989, 0xdada}, [3]uint32{r, g, b})
}
