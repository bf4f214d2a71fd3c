package database

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/mbolis/uss/model"
	"github.com/pkg/errors"
)

const questionColumns = `q.id, q.text, q.answer_type, q.answers_pool`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (q model.Question, err error) {
	var pool sql.NullString
	err = row.Scan(&q.ID, &q.Text, &q.AnswerType, &pool)
	if err != nil {
		return
	}
	if pool.Valid && pool.String != "" {
		err = json.Unmarshal([]byte(pool.String), &q.AnswersPool)
		if err != nil {
			err = errors.Wrap(err, "parse answers_pool")
		}
	}
	return
}

func encodePool(pool []string) (sql.NullString, error) {
	if pool == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(pool)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func surveyExists(ctx context.Context, q execQuerier, surveyID int) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM survey WHERE id = ?`, surveyID).Scan(&one)
	if err != nil {
		return translate(err, "db.get_survey")
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, q *model.Question, surveyID *int) error {
	pool, err := encodePool(q.AnswersPool)
	if err != nil {
		return errors.Wrap(err, "db.insert_question.encode_pool")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	if surveyID != nil {
		err = surveyExists(ctx, tx, *surveyID)
		if err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO question (text, answer_type, answers_pool) VALUES (?, ?, ?)
		RETURNING id`,
		q.Text,
		q.AnswerType,
		pool,
	).Scan(&q.ID)
	if err != nil {
		return translate(err, "db.insert_question")
	}

	if surveyID != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_survey (question_id, survey_id) VALUES (?, ?)`,
			q.ID,
			*surveyID,
		)
		if err != nil {
			return translate(err, "db.insert_question.attach")
		}
	}

	return errors.Wrap(tx.Commit(), "db.insert_question.commit")
}

func (s *Store) GetQuestion(ctx context.Context, id int) (model.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `
		SELECT `+questionColumns+`
		FROM question q
		WHERE q.id = ?`,
		id,
	))
	if err != nil {
		return q, translate(err, "db.get_question")
	}
	return q, nil
}

func (s *Store) queryQuestions(ctx context.Context, code string, query string, args ...any) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, code)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, translate(err, code+".scan")
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) ListQuestions(ctx context.Context) ([]model.Question, error) {
	return s.queryQuestions(ctx, "db.get_questions", `
		SELECT `+questionColumns+`
		FROM question q
		ORDER BY q.answer_type, q.text`)
}

func (s *Store) ListSurveyQuestions(ctx context.Context, surveyID int) ([]model.Question, error) {
	return s.queryQuestions(ctx, "db.get_survey_questions", `
		SELECT `+questionColumns+`
		FROM question q
		INNER JOIN question_survey qs ON (q.id = qs.question_id)
		WHERE qs.survey_id = ?
		ORDER BY q.answer_type, q.text`,
		surveyID,
	)
}

func (s *Store) SurveyHasQuestion(ctx context.Context, surveyID, questionID int) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM question_survey
			WHERE survey_id = ? AND question_id = ?
		)`,
		surveyID,
		questionID,
	).Scan(&found)
	if err != nil {
		return false, translate(err, "db.get_question_survey")
	}
	return found, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) error {
	pool, err := encodePool(q.AnswersPool)
	if err != nil {
		return errors.Wrap(err, "db.update_question.encode_pool")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE question
		SET
			text = ?,
			answer_type = ?,
			answers_pool = ?
		WHERE id = ?`,
		q.Text,
		q.AnswerType,
		pool,
		q.ID,
	)
	if err != nil {
		return translate(err, "db.update_question")
	}
	return expectOne(res, "db.update_question")
}

func (s *Store) DeleteQuestion(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM question WHERE id = ?`,
		id,
	)
	if err != nil {
		return translate(err, "db.delete_question")
	}
	return expectOne(res, "db.delete_question")
}

func (s *Store) CountQuestionAnswers(ctx context.Context, id int) (n int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM answer WHERE question_id = ?`,
		id,
	).Scan(&n)
	if err != nil {
		err = translate(err, "db.count_question_answers")
	}
	return
}
