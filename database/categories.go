package database

import (
	"context"

	"github.com/mbolis/uss/model"
)

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO category (name, slug) VALUES (?, ?)
		RETURNING id`,
		c.Name,
		c.Slug,
	).Scan(&c.ID)
	if err != nil {
		return translate(err, "db.insert_category")
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id int) (c model.Category, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, slug FROM category
		WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		err = translate(err, "db.get_category")
	}
	return
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (c model.Category, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, slug FROM category
		WHERE slug = ?`,
		slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		err = translate(err, "db.get_category_by_slug")
	}
	return
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, slug FROM category
		ORDER BY name`)
	if err != nil {
		return nil, translate(err, "db.get_categories")
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c := model.Category{}
		err = rows.Scan(&c.ID, &c.Name, &c.Slug)
		if err != nil {
			return nil, translate(err, "db.get_categories.scan")
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) DeleteCategory(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM category WHERE id = ?`,
		id,
	)
	if err != nil {
		return translate(err, "db.delete_category")
	}
	return expectOne(res, "db.delete_category")
}
