package narration

import (
	"fmt"
	"strings"

	"github.com/jihopark/mathshorts/internal/content"
)

// sourceLanguage is the language problems are authored in. Fragments with no
// translation resource fall back to this language's text, never fail.
const sourceLanguage = "ko"

// Script is the narration script for one language, one fragment per section.
type Script struct {
	LanguageTag   string
	Intro         string
	ProblemIntro  string
	Problem       string
	SolutionIntro string
	Steps         []string
	Conclusion    string
}

// fragments holds the localized template text for one language.
type fragments struct {
	intro         string
	problemIntro  string
	solutionIntro string
	conclusion    string // fmt verb receives the final answer
}

var fragmentTemplates = map[string]fragments{
	"ko": {
		intro:         "안녕하세요! 오늘의 수학 문제를 함께 풀어보겠습니다.",
		problemIntro:  "문제를 읽어드릴게요.",
		solutionIntro: "이제 단계별로 풀어보겠습니다.",
		conclusion:    "정답은 %s입니다. 잘하셨어요!",
	},
	"en": {
		intro:         "Hello! Let's solve today's math problem together.",
		problemIntro:  "Here is the problem.",
		solutionIntro: "Now let's solve this step by step.",
		conclusion:    "The answer is %s. Well done!",
	},
	"zh": {
		intro:         "大家好！我们一起来解今天的数学题吧。",
		problemIntro:  "请听题目。",
		solutionIntro: "现在我们一步一步来解。",
		conclusion:    "答案是 %s。做得好！",
	},
	"ja": {
		intro:         "こんにちは！今日の数学の問題を一緒に解きましょう。",
		problemIntro:  "問題を読みます。",
		solutionIntro: "では、順番に解いていきましょう。",
		conclusion:    "答えは %s です。よくできました！",
	},
	"es": {
		intro:         "¡Hola! Resolvamos juntos el problema de matemáticas de hoy.",
		problemIntro:  "Aquí está el problema.",
		solutionIntro: "Ahora resolvámoslo paso a paso.",
		conclusion:    "La respuesta es %s. ¡Bien hecho!",
	},
}

// fragment timing model in seconds, used for the duration estimate.
const (
	introSec         = 2
	problemIntroSec  = 1
	problemSec       = 4
	solutionIntroSec = 1
	stepsSec         = 5
	conclusionSec    = 2
)

// BuildScript localizes the narration template for a language. A missing
// translation falls back to the source-language text fragment by fragment.
func BuildScript(problem content.Problem, languageTag string) Script {
	tpl, ok := fragmentTemplates[languageTag]
	source := fragmentTemplates[sourceLanguage]
	if !ok {
		tpl = fragments{}
	}

	pick := func(localized, fallback string) string {
		if strings.TrimSpace(localized) != "" {
			return localized
		}
		return fallback
	}

	// Problem statement and steps stay in the authored language; a
	// translation layer for them is an external concern.
	return Script{
		LanguageTag:   languageTag,
		Intro:         pick(tpl.intro, source.intro),
		ProblemIntro:  pick(tpl.problemIntro, source.problemIntro),
		Problem:       problem.StatementText,
		SolutionIntro: pick(tpl.solutionIntro, source.solutionIntro),
		Steps:         problem.SolutionSteps,
		Conclusion:    fmt.Sprintf(pick(tpl.conclusion, source.conclusion), problem.FinalAnswer),
	}
}

// Text returns the script as plain text, one fragment per line.
func (s Script) Text() string {
	parts := make([]string, 0, len(s.Steps)+5)
	parts = append(parts, s.Intro, s.ProblemIntro, s.Problem, s.SolutionIntro)
	parts = append(parts, s.Steps...)
	parts = append(parts, s.Conclusion)
	return strings.Join(parts, "\n")
}

// DurationEstimateSec estimates the spoken length of the script.
func (s Script) DurationEstimateSec() float64 {
	return float64(introSec + problemIntroSec + problemSec + solutionIntroSec + stepsSec + conclusionSec)
}

// SSML renders the script with the prosody and pauses used for synthesis.
func (s Script) SSML() string {
	var b strings.Builder
	b.WriteString("<speak>\n")
	fmt.Fprintf(&b, "  <prosody rate=\"medium\" pitch=\"+2st\">%s</prosody>\n", escapeSSML(s.Intro))
	b.WriteString("  <break time=\"1s\"/>\n")
	fmt.Fprintf(&b, "  <prosody rate=\"slow\" volume=\"loud\">%s</prosody>\n", escapeSSML(s.ProblemIntro))
	b.WriteString("  <break time=\"0.5s\"/>\n")
	fmt.Fprintf(&b, "  <prosody rate=\"medium\">%s</prosody>\n", escapeSSML(s.Problem))
	b.WriteString("  <break time=\"2s\"/>\n")
	fmt.Fprintf(&b, "  <prosody rate=\"slow\" pitch=\"+1st\">%s</prosody>\n", escapeSSML(s.SolutionIntro))
	b.WriteString("  <break time=\"0.5s\"/>\n")
	for _, step := range s.Steps {
		fmt.Fprintf(&b, "  <prosody rate=\"slow\">%s</prosody>\n", escapeSSML(step))
		b.WriteString("  <break time=\"1s\"/>\n")
	}
	fmt.Fprintf(&b, "  <prosody rate=\"medium\" pitch=\"+3st\" volume=\"loud\">%s</prosody>\n", escapeSSML(s.Conclusion))
	b.WriteString("</speak>")
	return b.String()
}

func escapeSSML(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(text)
}
