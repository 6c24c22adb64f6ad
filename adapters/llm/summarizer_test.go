package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relialab/domain/lifedata"
	"relialab/internal"
	"relialab/internal/config"
	"relialab/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, reply string, captured *chatRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   captured.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
}

func testAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		OpenAIKey:   "test-key",
		OpenAIModel: "gpt-4o-mini",
		BaseURL:     baseURL,
		MaxTokens:   300,
		Temperature: 0.2,
		Timeout:     5 * time.Second,
	}
}

func weibullRequest() ports.SummaryRequest {
	return ports.SummaryRequest{
		Name:            "Pump seals",
		Distribution:    lifedata.Weibull,
		Method:          lifedata.MethodSRM,
		Parameters:      map[string]float64{"beta": 2.31, "eta": 1450},
		RSquared:        0.9712,
		LogLikelihood:   -88.2,
		FailureCount:    12,
		SuspensionCount: 3,
		BLives:          map[string]float64{"B10": 550.4},
	}
}

func TestSummarizerSendsScalarPrompt(t *testing.T) {
	var captured chatRequest
	server := newChatServer(t, "  Wear-out failures dominate.  ", &captured)
	defer server.Close()

	client, err := NewOpenAIClient(testAIConfig(server.URL + "/"))
	require.NoError(t, err)
	s := NewSummarizer(client, "You are a reliability engineer.", internal.NewLogger(internal.LogLevelError))

	text, err := s.Summarize(context.Background(), weibullRequest())
	require.NoError(t, err)
	assert.Equal(t, "Wear-out failures dominate.", text)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "You are a reliability engineer.", captured.Messages[0].Content)
	prompt := captured.Messages[1].Content
	assert.Contains(t, prompt, "Pump seals")
	assert.Contains(t, prompt, "shape β = 2.31")
	assert.Contains(t, prompt, "scale η = 1450")
	assert.Contains(t, prompt, "12 failures, 3 suspensions")
	assert.Contains(t, prompt, "B10 life = 550.4")
	assert.Contains(t, prompt, "rank regression on Y")
}

func TestSummarizerRejectsEmptyParameters(t *testing.T) {
	s := NewSummarizer(nil, "", nil)
	_, err := s.Summarize(context.Background(), ports.SummaryRequest{Distribution: lifedata.Weibull})
	assert.Error(t, err)
}

type failingClient struct{}

func (failingClient) ChatCompletion(context.Context, string, string) (string, error) {
	return "", errors.New("rate limited")
}

func TestSummarizerPropagatesClientErrors(t *testing.T) {
	s := NewSummarizer(failingClient{}, "", internal.NewLogger(internal.LogLevelError))
	_, err := s.Summarize(context.Background(), weibullRequest())
	assert.EqualError(t, err, "rate limited")
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(config.AIConfig{OpenAIModel: "gpt-4o-mini"})
	assert.Error(t, err)
}

func TestBuildSummaryPromptOmitsUndefinedStatistics(t *testing.T) {
	req := weibullRequest()
	req.RSquared = math.NaN()
	req.LogLikelihood = math.Inf(-1)
	req.BLives = nil
	prompt := BuildSummaryPrompt(req)
	assert.NotContains(t, prompt, "R²")
	assert.NotContains(t, prompt, "Log-likelihood")
	assert.NotContains(t, prompt, "Characteristic lives")
}
