package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mbolis/uss/model"
	"github.com/pkg/errors"
)

const answerColumns = `
	a.id, a.user_id, u.username, a.survey_id, a.question_id,
	a.text, a.choices, a.anonym_id`

func scanAnswer(row scanner) (a model.Answer, err error) {
	var userID sql.NullInt64
	var username, choices sql.NullString
	err = row.Scan(
		&a.ID, &userID, &username, &a.SurveyID, &a.QuestionID,
		&a.Text, &choices, &a.AnonymID,
	)
	if err != nil {
		return
	}
	if userID.Valid {
		id := int(userID.Int64)
		a.UserID = &id
		a.Username = &username.String
	}
	if choices.Valid && choices.String != "" {
		err = json.Unmarshal([]byte(choices.String), &a.Choices)
		if err != nil {
			err = errors.Wrap(err, "parse choices")
		}
	}
	return
}

func encodeChoices(choices []int) (sql.NullString, error) {
	if len(choices) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(choices)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (s *Store) CreateAnswer(ctx context.Context, a *model.Answer) error {
	choices, err := encodeChoices(a.Choices)
	if err != nil {
		return errors.Wrap(err, "db.insert_answer.encode_choices")
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO answer (user_id, survey_id, question_id, text, choices, anonym_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		a.UserID,
		a.SurveyID,
		a.QuestionID,
		a.Text,
		choices,
		a.AnonymID,
	).Scan(&a.ID)
	if err != nil {
		return translate(err, "db.insert_answer")
	}

	if a.UserID != nil && a.Username == nil {
		var username string
		err = s.db.QueryRowContext(ctx, `SELECT username FROM user WHERE id = ?`, *a.UserID).Scan(&username)
		if err != nil {
			return translate(err, "db.insert_answer.get_user")
		}
		a.Username = &username
	}
	return nil
}

func (s *Store) GetAnswer(ctx context.Context, surveyID, questionID, id int) (model.Answer, error) {
	a, err := scanAnswer(s.db.QueryRowContext(ctx, `
		SELECT `+answerColumns+`
		FROM answer a
		LEFT OUTER JOIN user u ON (a.user_id = u.id)
		WHERE a.id = ? AND a.survey_id = ? AND a.question_id = ?`,
		id,
		surveyID,
		questionID,
	))
	if err != nil {
		return a, translate(err, "db.get_answer")
	}
	return a, nil
}

func (s *Store) ListAnswers(ctx context.Context, surveyID, questionID int, f model.AnswerFilter) ([]model.Answer, error) {
	where := []string{"a.survey_id = ?", "a.question_id = ?"}
	args := []any{surveyID, questionID}

	if f.Anonym != nil {
		if *f.Anonym {
			where = append(where, "a.user_id IS NULL")
		} else {
			where = append(where, "a.user_id IS NOT NULL")
		}
	}
	if f.User != nil {
		if *f.User == model.AnonymUser {
			where = append(where, "a.user_id IS NULL")
		} else {
			where = append(where, "u.username = ?")
			args = append(args, *f.User)
		}
	}
	if f.AnonymID != nil {
		where = append(where, "a.anonym_id = ?")
		args = append(args, *f.AnonymID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+answerColumns+`
		FROM answer a
		LEFT OUTER JOIN user u ON (a.user_id = u.id)
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY a.id`,
		args...,
	)
	if err != nil {
		return nil, translate(err, "db.get_answers")
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, translate(err, "db.get_answers.scan")
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *Store) DeleteAnswer(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM answer WHERE id = ?`,
		id,
	)
	if err != nil {
		return translate(err, "db.delete_answer")
	}
	return expectOne(res, "db.delete_answer")
}

// NextAnonymID hands out the next anonymous respondent id.
// The increment is a single statement, so concurrent callers never share an id.
func (s *Store) NextAnonymID(ctx context.Context) (id int, err error) {
	err = s.db.QueryRowContext(ctx, `
		UPDATE anonym_sequence
		SET value = value + 1
		WHERE id = 1
		RETURNING value`,
	).Scan(&id)
	if err != nil {
		err = translate(err, "db.next_anonym_id")
	}
	return
}
