package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/jihopark/mathshorts/internal/config"
	"github.com/jihopark/mathshorts/internal/content"
)

var languageNames = map[string]string{
	"ko": "한국어",
	"en": "English",
	"zh": "中文",
	"ja": "日本語",
	"es": "Español",
}

// YouTube uploads one video per language to the configured channel.
type YouTube struct {
	service       *youtube.Service
	privacyStatus string
	categoryID    string
	timeout       time.Duration
}

// NewYouTube builds the upload client.
func NewYouTube(ctx context.Context, cfg config.YouTubeConfig, timeout time.Duration) (*YouTube, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}

	privacy := cfg.PrivacyStatus
	if privacy == "" {
		privacy = "public"
	}
	category := cfg.CategoryID
	if category == "" {
		category = "27" // Education
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &YouTube{
		service:       service,
		privacyStatus: privacy,
		categoryID:    category,
		timeout:       timeout,
	}, nil
}

// Publish uploads the media for one language. Fails-soft.
func (y *YouTube) Publish(ctx context.Context, bundle content.Bundle, languageTag string) Result {
	result := Result{LanguageTag: languageTag}

	narration, ok := bundle.Narration(languageTag)
	if !ok || !narration.Succeeded {
		result.ErrorDetail = fmt.Sprintf("no narration artifact for language %q", languageTag)
		return result
	}

	media, err := os.Open(narration.AudioRef)
	if err != nil {
		result.ErrorDetail = fmt.Sprintf("open media: %v", err)
		return result
	}
	defer media.Close()

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                BuildTitle(bundle, languageTag),
			Description:          BuildDescription(bundle, languageTag),
			Tags:                 BuildTags(bundle, languageTag),
			CategoryId:           y.categoryID,
			DefaultAudioLanguage: languageTag,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: y.privacyStatus,
		},
	}

	call := y.service.Videos.Insert([]string{"snippet", "status"}, video)
	uploaded, err := call.Context(ctx).Media(media).Do()
	if err != nil {
		slog.Warn("youtube upload failed",
			"bundle_id", bundle.ID,
			"language", languageTag,
			"error", err,
		)
		result.ErrorDetail = err.Error()
		return result
	}

	result.Succeeded = true
	result.ExternalRef = "https://youtu.be/" + uploaded.Id
	slog.Info("youtube upload complete",
		"bundle_id", bundle.ID,
		"language", languageTag,
		"video_id", uploaded.Id,
	)
	return result
}

// BuildTitle renders the per-language video title.
func BuildTitle(bundle content.Bundle, languageTag string) string {
	name, ok := languageNames[languageTag]
	if !ok {
		name = languageTag
	}
	return fmt.Sprintf("[%s] 오늘의 수학 %s | %s %s",
		name,
		bundle.Request.Topic,
		bundle.CreatedAt.Format("2006-01-02"),
		bundle.TimeSlot,
	)
}

// BuildDescription renders the per-language video description.
func BuildDescription(bundle content.Bundle, languageTag string) string {
	var b strings.Builder
	b.WriteString(bundle.Problem.StatementText)
	b.WriteString("\n\n")
	b.WriteString(bundle.Problem.EquationText)
	b.WriteString("\n\n")
	if narration, ok := bundle.Narration(languageTag); ok {
		b.WriteString(narration.ScriptText)
	}
	return b.String()
}

// BuildTags renders the video tags.
func BuildTags(bundle content.Bundle, languageTag string) []string {
	return []string{
		"math",
		"shorts",
		bundle.Request.Topic,
		fmt.Sprintf("grade%d", bundle.Request.Grade),
		bundle.TimeSlot,
		languageTag,
	}
}
