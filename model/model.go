package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type AnswerType string

const (
	SingleChoice   AnswerType = "single"
	MultipleChoice AnswerType = "multiple"
	OpenAnswer     AnswerType = "open"
)

func (t AnswerType) IsChoice() bool {
	return t == SingleChoice || t == MultipleChoice
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Question struct {
	ID          int        `json:"id"`
	Text        string     `json:"text"`
	AnswerType  AnswerType `json:"answer_type"`
	AnswersPool []string   `json:"answers_pool"`
}

type Survey struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    *Category  `json:"category"`
	StartDate   Date       `json:"start_date"`
	EndDate     Date       `json:"end_date"`
	Questions   []Question `json:"questions"`
}

// Active reports whether day falls within the survey's start and end dates.
func (s Survey) Active(day Date) bool {
	return !day.Before(s.StartDate) && !day.After(s.EndDate)
}

type Answer struct {
	ID         int     `json:"id"`
	UserID     *int    `json:"-"`
	Username   *string `json:"user"`
	SurveyID   int     `json:"survey"`
	QuestionID int     `json:"question"`
	Text       string  `json:"text"`
	Choices    []int   `json:"choices"`
	AnonymID   int     `json:"anonym_id"`
}

func (a Answer) IsAnonymous() bool {
	return a.UserID == nil
}

// AnswerFilter narrows an answer listing. Nil fields do not filter.
type AnswerFilter struct {
	Anonym   *bool
	User     *string
	AnonymID *int
}

// AnonymUser is the user filter value selecting every anonymous answer.
const AnonymUser = "anonym"

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash []byte `json:"-"`
	IsStaff      bool   `json:"is_staff"`
}

const dateLayout = "2006-01-02"

// Date is a calendar day, serialized as YYYY-MM-DD both in JSON and in the database.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	return NewDate(time.Now())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) (err error) {
	switch v := src.(type) {
	case string:
		*d, err = ParseDate(v[:min(len(v), len(dateLayout))])
	case []byte:
		*d, err = ParseDate(string(v[:min(len(v), len(dateLayout))]))
	case time.Time:
		*d = NewDate(v)
	default:
		err = fmt.Errorf("cannot scan %T into Date", src)
	}
	return
}
