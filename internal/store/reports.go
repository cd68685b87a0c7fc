package store

import "fmt"

// SaveReport upserts the persisted report blob for a plan
// (cleanup_reports: FK->plans unique, three JSON columns).
func (s *Store) SaveReport(planID, summaryJSON, statisticsJSON, failuresJSON string) error {
	_, err := s.writeDB.Exec(
		`INSERT INTO cleanup_reports (plan_id, summary, statistics, failures) VALUES (?, ?, ?, ?)
		 ON CONFLICT(plan_id) DO UPDATE SET summary = excluded.summary, statistics = excluded.statistics, failures = excluded.failures`,
		planID, summaryJSON, statisticsJSON, failuresJSON,
	)
	if err != nil {
		return fmt.Errorf("save report for plan %s: %w", planID, err)
	}
	return nil
}

// LoadReport returns the three raw JSON columns for planID's report.
func (s *Store) LoadReport(planID string) (summaryJSON, statisticsJSON, failuresJSON string, err error) {
	err = s.readDB.QueryRow(
		`SELECT summary, statistics, failures FROM cleanup_reports WHERE plan_id = ?`, planID,
	).Scan(&summaryJSON, &statisticsJSON, &failuresJSON)
	if err != nil {
		return "", "", "", fmt.Errorf("load report for plan %s: %w", planID, err)
	}
	return summaryJSON, statisticsJSON, failuresJSON, nil
}
