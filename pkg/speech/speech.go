package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	openrouterx "github.com/tanpawarit/outreach-orchestrator/pkg/openrouter"
)

const maxAudioBytes = 16 << 20

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini-tts"`
	Voice   string        `envconfig:"VOICE" split_words:"true" default:"alloy"`
	Format  string        `envconfig:"FORMAT" split_words:"true" default:"wav"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
}

// Synthesizer turns agent replies into encoded audio through the OpenAI speech endpoint.
type Synthesizer struct {
	client  openaisdk.Client
	model   string
	voice   string
	format  string
	timeout time.Duration
}

func New(cfg Config, opts ...option.RequestOption) (*Synthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("speech api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	voice := strings.TrimSpace(cfg.Voice)
	if voice == "" {
		voice = "alloy"
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "wav"
	}

	reqOpts := openrouterx.ClientOptions(cfg.BaseURL, cfg.APIKey, nil)
	reqOpts = append(reqOpts, option.WithMaxRetries(0))
	reqOpts = append(reqOpts, opts...)

	return &Synthesizer{
		client:  openaisdk.NewClient(reqOpts...),
		model:   model,
		voice:   voice,
		format:  format,
		timeout: cfg.Timeout,
	}, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("speech: empty text")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Input:          text,
		Model:          openaisdk.SpeechModel(s.model),
		Voice:          openaisdk.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openaisdk.AudioSpeechNewParamsResponseFormat(s.format),
	})
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("speech: http status=%d", resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("speech: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("speech: empty audio")
	}
	return audio, nil
}
