package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/mbolis/uss/model"
	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Categories interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategory(ctx context.Context, id int) (model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DeleteCategory(ctx context.Context, id int) error
}

type Questions interface {
	// CreateQuestion inserts q and, when surveyID is not nil, attaches it to that survey.
	CreateQuestion(ctx context.Context, q *model.Question, surveyID *int) error
	GetQuestion(ctx context.Context, id int) (model.Question, error)
	ListQuestions(ctx context.Context) ([]model.Question, error)
	ListSurveyQuestions(ctx context.Context, surveyID int) ([]model.Question, error)
	SurveyHasQuestion(ctx context.Context, surveyID, questionID int) (bool, error)
	UpdateQuestion(ctx context.Context, q model.Question) error
	DeleteQuestion(ctx context.Context, id int) error
	CountQuestionAnswers(ctx context.Context, id int) (int, error)
}

type Surveys interface {
	CreateSurvey(ctx context.Context, s *model.Survey, questionIDs []int) error
	GetSurvey(ctx context.Context, id int) (model.Survey, error)
	// ListSurveys filters on activity at day when active is not nil.
	ListSurveys(ctx context.Context, active *bool, day model.Date) ([]model.Survey, error)
	// UpdateSurvey saves s; a nil questionIDs leaves the survey's questions untouched.
	UpdateSurvey(ctx context.Context, s *model.Survey, questionIDs []int) error
	DeleteSurvey(ctx context.Context, id int) error
}

type Answers interface {
	CreateAnswer(ctx context.Context, a *model.Answer) error
	GetAnswer(ctx context.Context, surveyID, questionID, id int) (model.Answer, error)
	ListAnswers(ctx context.Context, surveyID, questionID int, f model.AnswerFilter) ([]model.Answer, error)
	DeleteAnswer(ctx context.Context, id int) error
	NextAnonymID(ctx context.Context) (int, error)
}

type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	SetStaff(ctx context.Context, username string, staff bool) error
}

type Tokens interface {
	StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error
	// ConsumeToken deletes the matching refresh token and returns its expiration.
	ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (time.Time, error)
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Repository is everything the API needs from persistent storage.
type Repository interface {
	Categories
	Questions
	Surveys
	Answers
	Users
	Tokens
}

// Store implements Repository on top of a SQLite3 database.
type Store struct {
	db *sql.DB
}

var _ Repository = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func translate(err error, code string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, code)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Wrap(ErrConflict, code+": "+sqliteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return errors.Wrap(ErrNotFound, code+": referenced row")
		}
	}

	return errors.Wrap(err, code)
}

func expectOne(res sql.Result, code string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, code+".verify")
	}
	if n < 1 {
		return errors.Wrap(ErrNotFound, code)
	}
	return nil
}
