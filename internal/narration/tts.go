package narration

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/jihopark/mathshorts/internal/config"
)

// SpeechRequest is one synthesis call against the TTS provider.
type SpeechRequest struct {
	SSML         string
	LanguageCode string
	VoiceName    string
}

// Synthesizer converts an SSML script into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
	Close() error
}

type googleSynthesizer struct {
	client       *texttospeech.Client
	speakingRate float64
	volumeGainDb float64
}

// NewGoogleSynthesizer builds a Google Cloud text-to-speech client.
func NewGoogleSynthesizer(ctx context.Context, cfg config.TTSConfig) (Synthesizer, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts client: %w", err)
	}

	rate := cfg.SpeakingRate
	if rate <= 0 {
		rate = 1.0
	}

	return &googleSynthesizer{
		client:       client,
		speakingRate: rate,
		volumeGainDb: cfg.VolumeGainDb,
	}, nil
}

func (g *googleSynthesizer) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.SSML) == "" {
		return nil, fmt.Errorf("ssml must not be empty")
	}
	if strings.TrimSpace(req.LanguageCode) == "" {
		return nil, fmt.Errorf("language code must not be empty")
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: req.SSML},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: req.LanguageCode,
			Name:         req.VoiceName,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  g.speakingRate,
			VolumeGainDb:  g.volumeGainDb,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("synthesize speech: empty audio payload")
	}
	return resp.AudioContent, nil
}

func (g *googleSynthesizer) Close() error {
	return g.client.Close()
}
