package survey

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/mbolis/uss/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)

	b, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answersTotalCount": 0, "textAnswersCount": 0}`, string(b))
}

func TestAggregateChoices(t *testing.T) {
	answers := []model.Answer{
		{Choices: []int{1}},
		{Choices: []int{1}},
		{Choices: []int{2}},
	}

	b, err := json.Marshal(Aggregate(answers))
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": 2, "2": 1, "answersTotalCount": 3, "textAnswersCount": 0}`, string(b))
}

func TestAggregateMixed(t *testing.T) {
	answers := []model.Answer{
		{Choices: []int{0, 2, 3}},
		{Choices: []int{0, 3}},
		{Text: "something else"},
		{Text: ""},
	}

	stats := Aggregate(answers)
	assert.Equal(t, map[int]int{0: 2, 2: 1, 3: 2}, stats.Choices)
	assert.Equal(t, 4, stats.AnswersTotalCount)
	assert.Equal(t, 1, stats.TextAnswersCount)
}

func TestAggregateIdempotent(t *testing.T) {
	answers := []model.Answer{
		{Choices: []int{0, 1}},
		{Choices: []int{1}},
		{Text: "x"},
	}

	first, err := json.Marshal(Aggregate(answers))
	require.NoError(t, err)
	second, err := json.Marshal(Aggregate(answers))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}
