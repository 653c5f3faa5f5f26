package narration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bpradana/weave"

	"github.com/jihopark/mathshorts/internal/config"
	"github.com/jihopark/mathshorts/internal/content"
)

// Source localizes a narration script per language and synthesizes audio.
// Synthesis is fails-soft: a failed language is reported in the result value
// so sibling languages keep going.
type Source struct {
	synth     Synthesizer
	voices    map[string]config.VoiceConfig
	outputDir string
	timeout   time.Duration

	now func() time.Time
}

// NewSource creates a narration source. synth may be nil, in which case every
// synthesis reports failure but scripts are still produced.
func NewSource(synth Synthesizer, cfg config.TTSConfig, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		synth:     synth,
		voices:    cfg.Voices,
		outputDir: cfg.OutputDir,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Synthesize produces the narration result for one language.
func (s *Source) Synthesize(ctx context.Context, problem content.Problem, languageTag string) content.NarrationResult {
	script := BuildScript(problem, languageTag)
	result := content.NarrationResult{
		LanguageTag:         languageTag,
		ScriptText:          script.Text(),
		DurationEstimateSec: script.DurationEstimateSec(),
	}

	voice, ok := s.voices[languageTag]
	if !ok {
		result.ErrorDetail = fmt.Sprintf("no voice configured for language %q", languageTag)
		return result
	}
	if s.synth == nil {
		result.ErrorDetail = "no synthesizer configured"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	audio, err := s.synth.Synthesize(ctx, SpeechRequest{
		SSML:         script.SSML(),
		LanguageCode: voice.LanguageCode,
		VoiceName:    voice.VoiceName,
	})
	if err != nil {
		slog.Warn("narration synthesis failed", "language", languageTag, "error", err)
		result.ErrorDetail = err.Error()
		return result
	}

	ref, err := s.writeAudio(languageTag, audio)
	if err != nil {
		slog.Warn("narration audio write failed", "language", languageTag, "error", err)
		result.ErrorDetail = err.Error()
		return result
	}

	result.AudioRef = ref
	result.Succeeded = true
	return result
}

// SynthesizeAll fans out over the language set concurrently and joins before
// returning. The output has exactly one entry per requested language, in the
// requested order, regardless of individual failures.
func (s *Source) SynthesizeAll(ctx context.Context, problem content.Problem, languageTags []string) []content.NarrationResult {
	graph := weave.NewGraph()

	handles := make([]*weave.Handle[content.NarrationResult], 0, len(languageTags))
	for _, tag := range languageTags {
		tag := tag
		handle, err := weave.AddTask(graph, "narrate-"+tag, func(taskCtx context.Context, deps weave.DependencyResolver) (content.NarrationResult, error) {
			return s.Synthesize(taskCtx, problem, tag), nil
		})
		if err != nil {
			// Duplicate language tags cannot register twice; report in the result.
			handles = append(handles, nil)
			continue
		}
		handles = append(handles, handle)
	}

	results, _, runErr := graph.Run(ctx, weave.WithErrorStrategy(weave.ContinueOnError))

	out := make([]content.NarrationResult, 0, len(languageTags))
	for i, tag := range languageTags {
		handle := handles[i]
		if handle == nil {
			out = append(out, content.NarrationResult{
				LanguageTag: tag,
				ErrorDetail: "duplicate language tag in fan-out",
			})
			continue
		}
		if results != nil {
			if value, err := handle.Value(results); err == nil {
				out = append(out, value)
				continue
			}
		}
		detail := "narration task did not run"
		if runErr != nil {
			detail = runErr.Error()
		}
		out = append(out, content.NarrationResult{
			LanguageTag: tag,
			ErrorDetail: detail,
		})
	}
	return out
}

func (s *Source) writeAudio(languageTag string, audio []byte) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	name := fmt.Sprintf("voice_%s_%d.mp3", languageTag, s.now().UnixMilli())
	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return path, nil
}
