package problem

import (
	"github.com/jihopark/mathshorts/internal/content"
)

const defaultFallbackTopic = "일차방정식"

// fallbackProblems is the static problem table used when the external
// generator is unavailable. Keyed by topic name.
var fallbackProblems = map[string]content.Problem{
	"일차방정식": {
		StatementText: "지민이가 피자를 3개 주문했습니다. 배송비 5원을 포함해서 총 20원을 지불했다면, 피자 한 개의 가격은?",
		EquationText:  "3x + 5 = 20",
		SolutionSteps: []string{
			"3x + 5 = 20",
			"3x = 20 - 5",
			"3x = 15",
			"x = 5",
		},
		FinalAnswer: "x = 5",
	},
	"이차방정식": {
		StatementText: "직사각형의 가로가 x미터, 세로가 (x+2)미터일 때, 넓이가 15제곱미터라면 가로의 길이는?",
		EquationText:  "x(x + 2) = 15",
		SolutionSteps: []string{
			"x(x + 2) = 15",
			"x² + 2x = 15",
			"x² + 2x - 15 = 0",
			"(x + 5)(x - 3) = 0",
			"x = 3 (양수 해)",
		},
		FinalAnswer: "x = 3",
	},
	"연립방정식": {
		StatementText: "사과와 배를 합해서 7개 샀습니다. 사과는 배보다 3개 더 많습니다. 사과는 몇 개일까요?",
		EquationText:  "x + y = 7, x = y + 3",
		SolutionSteps: []string{
			"x + y = 7",
			"x = y + 3",
			"(y + 3) + y = 7",
			"2y = 4",
			"y = 2, x = 5",
		},
		FinalAnswer: "x = 5",
	},
	"부등식": {
		StatementText: "한 번에 2원씩 저금합니다. 10원 넘게 모으려면 최소 몇 번 저금해야 할까요?",
		EquationText:  "2x > 10",
		SolutionSteps: []string{
			"2x > 10",
			"x > 5",
			"x는 자연수이므로 최소 6",
		},
		FinalAnswer: "x = 6",
	},
}

// Fallback returns the deterministic fallback problem for a topic. Topics
// without a dedicated entry fall back to the linear-equation problem so the
// caller always receives a well-formed problem.
func Fallback(req content.ProblemRequest) content.Problem {
	p, ok := fallbackProblems[req.Topic]
	if !ok {
		p = fallbackProblems[defaultFallbackTopic]
	}
	p.Metadata = content.ProblemMetadata{
		Difficulty: "basic",
		Tags:       []string{req.Topic, req.TimeSlot, req.Region, "fallback"},
	}
	return p
}
