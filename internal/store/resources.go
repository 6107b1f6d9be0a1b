package store

import (
	"github.com/rsharan/examgate/internal/model"
)

// InsertResource stores a learning resource.
func (s *Store) InsertResource(r model.LearningResource) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO learning_resources (stream, subject_name, performance_category, title, url, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Stream, r.Subject, r.Category, r.Title, r.URL, r.Description,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListResources returns the resources for a (stream, subject, tier) triple.
func (s *Store) ListResources(stream, subject string, category model.PerformanceCategory) ([]model.LearningResource, error) {
	rows, err := s.db.Query(
		`SELECT id, stream, subject_name, performance_category, title, url, description
		 FROM learning_resources
		 WHERE stream = ? AND subject_name = ? AND performance_category = ?
		 ORDER BY id`,
		stream, subject, category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var resources []model.LearningResource
	for rows.Next() {
		var r model.LearningResource
		if err := rows.Scan(&r.ID, &r.Stream, &r.Subject, &r.Category, &r.Title, &r.URL, &r.Description); err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// DeleteResource removes a learning resource.
func (s *Store) DeleteResource(id int64) error {
	_, err := s.db.Exec(`DELETE FROM learning_resources WHERE id = ?`, id)
	return err
}
