// Package survey holds the rules surveys are checked against: question and answer
// validation, anonymous respondent identities and answer statistics.
package survey

import (
	"errors"
	"fmt"

	"github.com/mbolis/uss/model"
	"github.com/samber/lo"
)

var (
	ErrInvalidQuestionDefinition = errors.New("invalid question definition")
	ErrInvalidAnswer             = errors.New("invalid answer")
	ErrInvalidSurvey             = errors.New("invalid survey")
)

// MinPoolSize is the smallest answers pool a choice question may carry.
const MinPoolSize = 2

func invalidQuestion(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestionDefinition, reason)
}

func invalidAnswer(reason string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAnswer, fmt.Sprintf(reason, args...))
}

// ValidateQuestion checks that the answers pool agrees with the answer type:
// open questions take no pool, choice questions need at least MinPoolSize entries.
func ValidateQuestion(answerType model.AnswerType, pool []string) error {
	switch {
	case answerType == model.OpenAnswer:
		if len(pool) > 0 {
			return invalidQuestion("only question text should be provided for an open question")
		}
	case answerType.IsChoice():
		if len(pool) == 0 {
			return invalidQuestion("answers not provided")
		}
		if len(pool) < MinPoolSize {
			return invalidQuestion(fmt.Sprintf("answers pool should provide at least %d answers", MinPoolSize))
		}
	default:
		return invalidQuestion(fmt.Sprintf("unknown answer type %q", answerType))
	}
	return nil
}

// NormalizePool drops an empty pool on open questions so that "no pool" has a
// single representation.
func NormalizePool(answerType model.AnswerType, pool []string) []string {
	if answerType == model.OpenAnswer && len(pool) == 0 {
		return nil
	}
	return pool
}

// ValidateChoices rejects repeated choice indices whatever the question type.
func ValidateChoices(choices []int) error {
	if len(lo.Uniq(choices)) != len(choices) {
		return invalidAnswer("choices should not be repeated")
	}
	return nil
}

// ValidateAnswer checks a submitted answer against the type and pool size of the
// question it answers. It never touches storage.
func ValidateAnswer(answerType model.AnswerType, poolSize int, text string, choices []int) error {
	if err := ValidateChoices(choices); err != nil {
		return err
	}

	switch answerType {
	case model.OpenAnswer:
		if text == "" || len(choices) > 0 {
			return invalidAnswer("wrong open answer")
		}
	case model.SingleChoice:
		if text != "" || len(choices) != 1 {
			return invalidAnswer("wrong single choice answer")
		}
		if !inPool(choices[0], poolSize) {
			return invalidAnswer("choice %d out of range [0, %d)", choices[0], poolSize)
		}
	case model.MultipleChoice:
		if text != "" || len(choices) == 0 {
			return invalidAnswer("wrong multiple choice answer")
		}
		if c, found := lo.Find(choices, func(c int) bool { return !inPool(c, poolSize) }); found {
			return invalidAnswer("choice %d out of range [0, %d)", c, poolSize)
		}
	default:
		return invalidAnswer("wrong answer type %q", answerType)
	}
	return nil
}

func inPool(choice, poolSize int) bool {
	return choice >= 0 && choice < poolSize
}

// ValidateDates enforces that a survey does not end before it starts.
func ValidateDates(start, end model.Date) error {
	if end.Before(start) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidSurvey, end, start)
	}
	return nil
}
