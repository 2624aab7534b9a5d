package parser

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"mcp-food-log/internal/logging"
	"mcp-food-log/internal/models"
)

const testKey = "sk-test-secret"

// completionServer replies with content wrapped in a chat completion envelope.
func completionServer(t *testing.T, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestClient(baseURL string, logger *logging.Logger) *Client {
	return NewClient(Config{APIKey: testKey, BaseURL: baseURL}, logger)
}

func assertFailure(t *testing.T, resp *models.AIFoodResponse, msg, suggestion string) {
	t.Helper()
	require.NotNil(t, resp)
	assert.True(t, resp.Failed())
	assert.Equal(t, msg, resp.Error)
	assert.Equal(t, suggestion, resp.Suggestion)
	assert.NotNil(t, resp.Foods)
	assert.Empty(t, resp.Foods)
}

func TestParse_SingleFoodIsRoundedToIntegers(t *testing.T) {
	srv, req := completionServer(t, `{
		"foods": [{"name": "Chicken breast", "amount": 170.1, "unit": "g",
		           "calories": 280.6, "protein": 52.7, "carbs": 0.2, "fat": 6.49}],
		"confidence": "high",
		"source": "USDA",
		"notes": "6 oz cooked"
	}`)
	c := newTestClient(srv.URL, nil)

	resp := c.Parse(context.Background(), "  6 oz chicken breast  ")

	require.False(t, resp.Failed(), resp.Error)
	require.Len(t, resp.Foods, 1)
	food := resp.Foods[0]
	assert.Equal(t, "Chicken breast", food.Name)
	assert.Equal(t, models.Grams, food.Unit)
	assert.Equal(t, 170.0, food.Amount)
	assert.Equal(t, 281.0, food.Calories)
	assert.Equal(t, 53.0, food.Protein)
	assert.Equal(t, 0.0, food.Carbs)
	assert.Equal(t, 6.0, food.Fat)
	for _, v := range []float64{food.Amount, food.Calories, food.Protein, food.Carbs, food.Fat} {
		assert.Equal(t, math.Trunc(v), v)
	}
	assert.Equal(t, models.HighConfidence, resp.Confidence)
	assert.Equal(t, "USDA", resp.Source)
	assert.Equal(t, "6 oz cooked", resp.Notes)

	// request carries the fixed instruction and the trimmed user text
	assert.Equal(t, defaultModel, req.Model)
	assert.Equal(t, defaultTemperature, req.Temperature)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, systemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "6 oz chicken breast", req.Messages[1].Content)
}

func TestParse_MultipleFoods(t *testing.T) {
	srv, _ := completionServer(t, `{"foods": [
		{"name": "Apple", "amount": 180, "unit": "g", "calories": 94, "protein": 0, "carbs": 25, "fat": 0},
		{"name": "Peanut butter", "amount": "32g", "unit": "g", "calories": "188", "protein": 8, "carbs": 6, "fat": 16}
	]}`)

	resp := newTestClient(srv.URL, nil).Parse(context.Background(), "an apple with 2 tbsp peanut butter")

	require.False(t, resp.Failed())
	require.Len(t, resp.Foods, 2)
	assert.Equal(t, "Apple", resp.Foods[0].Name)
	assert.Equal(t, 32.0, resp.Foods[1].Amount)
	assert.Equal(t, 188.0, resp.Foods[1].Calories)
}

func TestParse_UnitIsAlwaysGrams(t *testing.T) {
	srv, _ := completionServer(t, `{"foods": [{"name": "Milk", "amount": 240, "unit": "ml", "calories": 122, "protein": 8, "carbs": 12, "fat": 5}]}`)

	resp := newTestClient(srv.URL, nil).Parse(context.Background(), "a glass of milk")

	require.Len(t, resp.Foods, 1)
	assert.Equal(t, models.Grams, resp.Foods[0].Unit)
}

func TestParse_ContentWrappedInFences(t *testing.T) {
	srv, _ := completionServer(t, "```json\n{\"foods\": [{\"name\": \"Egg\", \"amount\": 50, \"unit\": \"g\", \"calories\": 72, \"protein\": 6, \"carbs\": 0, \"fat\": 5}]}\n```")

	resp := newTestClient(srv.URL, nil).Parse(context.Background(), "one egg")

	require.False(t, resp.Failed())
	require.Len(t, resp.Foods, 1)
	assert.Equal(t, "Egg", resp.Foods[0].Name)
}

func TestParse_ModelErrorPassesThrough(t *testing.T) {
	srv, _ := completionServer(t, `{"error": "Could not parse food", "suggestion": "Try describing what you ate more specifically"}`)

	resp := newTestClient(srv.URL, nil).Parse(context.Background(), "my car is blue")

	assertFailure(t, resp, "Could not parse food", "Try describing what you ate more specifically")
}

func TestParse_Failures(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		c := NewClient(Config{}, nil)
		assertFailure(t, c.Parse(context.Background(), "an apple"), errNotConfigured, sugNotConfigured)
	})

	t.Run("empty input", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		resp := newTestClient(srv.URL, nil).Parse(context.Background(), "   \n\t ")
		assertFailure(t, resp, errEmptyInput, sugEmptyInput)
		assert.Zero(t, calls.Load())
	})

	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errAnalyzeFailed, sugAnalyzeFailed)
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		assertFailure(t, newTestClient(url, nil).Parse(context.Background(), "toast"), errNetwork, sugNetwork)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices": []}`))
		}))
		defer srv.Close()

		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errNoContent, sugNoContent)
	})

	t.Run("empty content", func(t *testing.T) {
		srv, _ := completionServer(t, "  ")
		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errNoContent, sugNoContent)
	})

	t.Run("content not json", func(t *testing.T) {
		srv, _ := completionServer(t, "Sure! Toast has about 80 calories.")
		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errUnparseable, sugUnparseable)
	})

	t.Run("envelope not json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>gateway</html>`))
		}))
		defer srv.Close()

		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errUnparseable, sugUnparseable)
	})

	t.Run("foods missing", func(t *testing.T) {
		srv, _ := completionServer(t, `{"confidence": "low"}`)
		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errInvalidFormat, sugInvalidFormat)
	})

	t.Run("foods not a list", func(t *testing.T) {
		srv, _ := completionServer(t, `{"foods": {"name": "toast"}}`)
		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errInvalidFormat, sugInvalidFormat)
	})

	t.Run("foods null", func(t *testing.T) {
		srv, _ := completionServer(t, `{"foods": null}`)
		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errInvalidFormat, sugInvalidFormat)
	})

	t.Run("non-numeric field", func(t *testing.T) {
		srv, _ := completionServer(t, `{"foods": [{"name": "toast", "amount": "a slice", "calories": 80, "protein": 3, "carbs": 15, "fat": 1}]}`)
		assertFailure(t, newTestClient(srv.URL, nil).Parse(context.Background(), "toast"), errInvalidFormat, sugInvalidFormat)
	})

	t.Run("non-finite numbers", func(t *testing.T) {
		for _, content := range []string{
			`{"foods": [{"name": "toast", "amount": "NaN", "calories": 80, "protein": 3, "carbs": 15, "fat": 1}]}`,
			`{"foods": [{"name": "toast", "amount": 30, "calories": "Infinity", "protein": 3, "carbs": 15, "fat": 1}]}`,
			`{"foods": [{"name": "toast", "amount": 30, "calories": 80, "protein": "-inf", "carbs": 15, "fat": 1}]}`,
			`{"foods": [{"name": "toast", "amount": 30, "calories": "1e999", "protein": 3, "carbs": 15, "fat": 1}]}`,
		} {
			srv, _ := completionServer(t, content)
			resp := newTestClient(srv.URL, nil).Parse(context.Background(), "toast")
			assertFailure(t, resp, errInvalidFormat, sugInvalidFormat)
			_, err := json.Marshal(resp)
			assert.NoError(t, err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv, _ := completionServer(t, `{"foods": []}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assertFailure(t, newTestClient(srv.URL, nil).Parse(ctx, "toast"), errNetwork, sugNetwork)
	})
}

func TestParse_NonStringAnnotationsAreDropped(t *testing.T) {
	srv, _ := completionServer(t, `{
		"foods": [{"name": "Banana", "amount": 118, "unit": "g", "calories": 105, "protein": 1, "carbs": 27, "fat": 0}],
		"confidence": 0.9,
		"source": {"db": "USDA"},
		"notes": ["medium banana"]
	}`)

	resp := newTestClient(srv.URL, nil).Parse(context.Background(), "a banana")

	require.False(t, resp.Failed(), resp.Error)
	require.Len(t, resp.Foods, 1)
	assert.Equal(t, "Banana", resp.Foods[0].Name)
	assert.Equal(t, float64(105), resp.Foods[0].Calories)
	assert.Empty(t, resp.Confidence)
	assert.Empty(t, resp.Source)
	assert.Empty(t, resp.Notes)
}

func TestParse_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	newTestClient(srv.URL, nil).Parse(context.Background(), "toast")
	assert.Equal(t, int32(1), calls.Load())
}

func TestParse_EmptyFoodListIsNotAnError(t *testing.T) {
	srv, _ := completionServer(t, `{"foods": []}`)

	resp := newTestClient(srv.URL, nil).Parse(context.Background(), "water")

	assert.False(t, resp.Failed())
	assert.Empty(t, resp.Foods)
}

func TestParse_DoesNotLogAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tl := logging.NewTestLogger()
	resp := newTestClient(srv.URL, tl.Logger).Parse(context.Background(), "toast")

	assert.True(t, resp.Failed())
	tl.AssertLogged(t, zapcore.WarnLevel, "error status")
	tl.AssertNoSubstring(t, testKey)
}

func TestParse_RateLimited(t *testing.T) {
	srv, _ := completionServer(t, `{"foods": []}`)
	c := NewClient(Config{APIKey: testKey, BaseURL: srv.URL, RateLimit: 0.001, Burst: 1}, nil)

	// first call consumes the burst token
	assert.False(t, c.Parse(context.Background(), "water").Failed())

	// second call would wait far past the deadline
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assertFailure(t, c.Parse(ctx, "water"), errNetwork, sugNetwork)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: testKey, BaseURL: "http://example.test/v1/"}, nil)

	assert.Equal(t, "http://example.test/v1", c.baseURL)
	assert.Equal(t, defaultModel, c.model)
	assert.Nil(t, c.limiter)
	assert.NotContains(t, c.String(), testKey)
}
