package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// onePixelPNG is a valid 1x1 PNG
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestMockVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects descriptions mentioning fail", func(t *testing.T) {
		verdict, err := Mock{}.Verify(ctx, onePixelPNG, "This should FAIL")
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, ReasonMismatch, verdict.Reason)
		assert.Empty(t, verdict.CarPlate)
	})

	t.Run("accepts everything else with a plate", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			verdict, err := Mock{}.Verify(ctx, onePixelPNG, "front bumper damage")
			require.NoError(t, err)
			assert.True(t, verdict.Valid)
			assert.Regexp(t, `^W[1-9][0-9]{3}X$`, verdict.CarPlate)
			assert.Equal(t, 0.98, verdict.Confidence)
		}
	})
}

func TestDecodeImage(t *testing.T) {
	t.Run("raw base64 is sniffed", func(t *testing.T) {
		data, mimeType, err := DecodeImage(onePixelPNG)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mimeType)
		assert.NotEmpty(t, data)
	})

	t.Run("data URI keeps its type", func(t *testing.T) {
		_, mimeType, err := DecodeImage("data:image/jpeg;base64," + onePixelPNG)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mimeType)
	})

	tests := []struct {
		name  string
		input string
	}{
		{"empty", "  "},
		{"not base64", "%%%"},
		{"non base64 data URI", "data:image/png,abc"},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("hello world"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeImage(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParseVerdict(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		verdict, err := parseVerdict(`{"valid": true, "car_plate": "WXY1234", "confidence": 0.9}`)
		require.NoError(t, err)
		assert.True(t, verdict.Valid)
		assert.Equal(t, "WXY1234", verdict.CarPlate)
	})

	t.Run("fenced JSON with default reason", func(t *testing.T) {
		verdict, err := parseVerdict("```json\n{\"valid\": false}\n```")
		require.NoError(t, err)
		assert.False(t, verdict.Valid)
		assert.Equal(t, ReasonMismatch, verdict.Reason)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseVerdict("I think it is a car")
		assert.Error(t, err)
	})
}

func TestGeminiVerify(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"valid\":true,\"car_plate\":\"WQK4821\",\"confidence\":0.87}"}]}}]}`)
	}))
	defer srv.Close()

	verifier, err := NewGemini(context.Background(), GeminiConfig{APIKey: "test-key", BaseURL: srv.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	verdict, err := verifier.Verify(context.Background(), onePixelPNG, "rear view")
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.Equal(t, "WQK4821", verdict.CarPlate)
	assert.InDelta(t, 0.87, verdict.Confidence, 1e-9)

	require.NotNil(t, gotBody)
	assert.Contains(t, gotBody, "contents")
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
