package store

import (
	"github.com/rsharan/examgate/internal/model"
	"github.com/rsharan/examgate/internal/scoring"
)

// AdminStats aggregates the numbers shown on the admin dashboard.
type AdminStats struct {
	Students          int                               `json:"students"`
	Exams             int                               `json:"exams"`
	CompletedExams    int                               `json:"completed_exams"`
	FallbackExams     int                               `json:"fallback_exams"`
	AveragePercentage float64                           `json:"average_percentage"`
	TierDistribution  map[model.PerformanceCategory]int `json:"tier_distribution"`
}

// GetAdminStats computes aggregate statistics across all students and exams.
func (s *Store) GetAdminStats() (AdminStats, error) {
	stats := AdminStats{
		TierDistribution: map[model.PerformanceCategory]int{
			model.CategoryBelow40: 0,
			model.Category40To80:  0,
			model.CategoryAbove80: 0,
		},
	}

	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE role = ?`, model.UserRoleStudent).
		Scan(&stats.Students)
	if err != nil {
		return stats, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&stats.Exams); err != nil {
		return stats, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM exams WHERE source = 'fallback'`).Scan(&stats.FallbackExams); err != nil {
		return stats, err
	}

	rows, err := s.db.Query(`SELECT percentage FROM exams WHERE status = 'completed'`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	var sum float64
	for rows.Next() {
		var pct float64
		if err := rows.Scan(&pct); err != nil {
			return stats, err
		}
		stats.CompletedExams++
		sum += pct
		stats.TierDistribution[scoring.Classify(pct)]++
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if stats.CompletedExams > 0 {
		stats.AveragePercentage = scoring.Round2(sum / float64(stats.CompletedExams))
	}
	return stats, nil
}
