package survey

import (
	"strconv"

	"github.com/goccy/go-json"
	"github.com/mbolis/uss/model"
	"github.com/samber/lo"
)

const (
	answersTotalCountKey = "answersTotalCount"
	textAnswersCountKey  = "textAnswersCount"
)

// Statistics tallies a set of answers. It marshals to a flat object whose keys
// are the observed choice indices plus answersTotalCount and textAnswersCount.
type Statistics struct {
	Choices           map[int]int
	AnswersTotalCount int
	TextAnswersCount  int
}

// Aggregate counts how often each choice index was selected across answers.
func Aggregate(answers []model.Answer) Statistics {
	choices := lo.FlatMap(answers, func(a model.Answer, _ int) []int {
		return a.Choices
	})

	return Statistics{
		Choices:           lo.CountValues(choices),
		AnswersTotalCount: len(answers),
		TextAnswersCount: lo.CountBy(answers, func(a model.Answer) bool {
			return a.Text != ""
		}),
	}
}

func (s Statistics) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int, len(s.Choices)+2)
	for choice, n := range s.Choices {
		flat[strconv.Itoa(choice)] = n
	}
	flat[answersTotalCountKey] = s.AnswersTotalCount
	flat[textAnswersCountKey] = s.TextAnswersCount
	return json.Marshal(flat)
}
