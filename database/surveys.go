package database

import (
	"context"
	"database/sql"

	"github.com/mbolis/uss/model"
	"github.com/pkg/errors"
)

const surveyColumns = `
	s.id, s.name, s.description, s.start_date, s.end_date,
	c.id, c.name, c.slug`

func scanSurvey(row scanner) (s model.Survey, err error) {
	var catID sql.NullInt64
	var catName, catSlug sql.NullString
	err = row.Scan(
		&s.ID, &s.Name, &s.Description, &s.StartDate, &s.EndDate,
		&catID, &catName, &catSlug,
	)
	if err != nil {
		return
	}
	if catID.Valid {
		s.Category = &model.Category{
			ID:   int(catID.Int64),
			Name: catName.String,
			Slug: catSlug.String,
		}
	}
	return
}

func categoryID(s *model.Survey) *int {
	if s.Category == nil {
		return nil
	}
	return &s.Category.ID
}

func attachQuestions(ctx context.Context, tx *sql.Tx, surveyID int, questionIDs []int) error {
	for _, qID := range questionIDs {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM question WHERE id = ?`, qID).Scan(&one)
		if err != nil {
			return translate(err, "db.attach_questions.get_question")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_survey (question_id, survey_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING`,
			qID,
			surveyID,
		)
		if err != nil {
			return translate(err, "db.attach_questions.insert")
		}
	}
	return nil
}

func (s *Store) CreateSurvey(ctx context.Context, survey *model.Survey, questionIDs []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO survey (name, description, category_id, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		survey.Name,
		survey.Description,
		categoryID(survey),
		survey.StartDate,
		survey.EndDate,
	).Scan(&survey.ID)
	if err != nil {
		return translate(err, "db.insert_survey")
	}

	err = attachQuestions(ctx, tx, survey.ID, questionIDs)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "db.insert_survey.commit")
	}

	survey.Questions, err = s.ListSurveyQuestions(ctx, survey.ID)
	return err
}

func (s *Store) GetSurvey(ctx context.Context, id int) (model.Survey, error) {
	survey, err := scanSurvey(s.db.QueryRowContext(ctx, `
		SELECT `+surveyColumns+`
		FROM survey s
		LEFT OUTER JOIN category c ON (s.category_id = c.id)
		WHERE s.id = ?`,
		id,
	))
	if err != nil {
		return survey, translate(err, "db.get_survey")
	}

	survey.Questions, err = s.ListSurveyQuestions(ctx, survey.ID)
	return survey, err
}

func (s *Store) ListSurveys(ctx context.Context, active *bool, day model.Date) ([]model.Survey, error) {
	query := `
		SELECT ` + surveyColumns + `
		FROM survey s
		LEFT OUTER JOIN category c ON (s.category_id = c.id)`
	var args []any
	if active != nil {
		if *active {
			query += `
		WHERE s.start_date <= ? AND s.end_date >= ?`
		} else {
			// not started yet, or already over
			query += `
		WHERE s.start_date > ? OR s.end_date < ?`
		}
		args = append(args, day, day)
	}
	query += `
		ORDER BY s.start_date, s.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "db.get_surveys")
	}
	defer rows.Close()

	surveys := []model.Survey{}
	for rows.Next() {
		survey, err := scanSurvey(rows)
		if err != nil {
			return nil, translate(err, "db.get_surveys.scan")
		}
		surveys = append(surveys, survey)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(err, "db.get_surveys")
	}
	rows.Close()

	for i := range surveys {
		surveys[i].Questions, err = s.ListSurveyQuestions(ctx, surveys[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return surveys, nil
}

func (s *Store) UpdateSurvey(ctx context.Context, survey *model.Survey, questionIDs []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	// start_date is fixed at creation
	res, err := tx.ExecContext(ctx, `
		UPDATE survey
		SET
			name = ?,
			description = ?,
			category_id = ?,
			end_date = ?
		WHERE id = ?`,
		survey.Name,
		survey.Description,
		categoryID(survey),
		survey.EndDate,
		survey.ID,
	)
	if err != nil {
		return translate(err, "db.update_survey")
	}
	err = expectOne(res, "db.update_survey")
	if err != nil {
		return err
	}

	if questionIDs != nil {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM question_survey
			WHERE survey_id = ?`,
			survey.ID,
		)
		if err != nil {
			return translate(err, "db.update_survey.detach_questions")
		}

		err = attachQuestions(ctx, tx, survey.ID, questionIDs)
		if err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return errors.Wrap(err, "db.update_survey.commit")
	}

	survey.Questions, err = s.ListSurveyQuestions(ctx, survey.ID)
	return err
}

func (s *Store) DeleteSurvey(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM survey WHERE id = ?`,
		id,
	)
	if err != nil {
		return translate(err, "db.delete_survey")
	}
	return expectOne(res, "db.delete_survey")
}
