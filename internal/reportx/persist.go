package reportx

import "encoding/json"

// reportStore is the subset of *store.Store that Persist/Load need,
// letting tests substitute a fake without pulling in modernc.org/sqlite.
type reportStore interface {
	SaveReport(planID, summaryJSON, statisticsJSON, failuresJSON string) error
	LoadReport(planID string) (summaryJSON, statisticsJSON, failuresJSON string, err error)
}

// Persist serializes Summary, Statistics, and Failures independently and
// stores them via db: one row per plan, three JSON columns.
func Persist(db reportStore, planID string, r Report) error {
	summaryJSON, err := json.Marshal(r.Summary)
	if err != nil {
		return err
	}
	statsJSON, err := json.Marshal(r.Statistics)
	if err != nil {
		return err
	}
	failuresJSON, err := json.Marshal(r.Failures)
	if err != nil {
		return err
	}
	return db.SaveReport(planID, string(summaryJSON), string(statsJSON), string(failuresJSON))
}

// Load reconstructs the persisted Summary/Statistics/Failures for planID.
// ReportID, ScanType, GeneratedAt, and Recommendations are not persisted
// columns and are left zero; callers that need them should keep the
// original Report from BuildReport.
func Load(db reportStore, planID string) (Report, error) {
	summaryJSON, statsJSON, failuresJSON, err := db.LoadReport(planID)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return Report{}, err
	}
	if err := json.Unmarshal([]byte(statsJSON), &r.Statistics); err != nil {
		return Report{}, err
	}
	if err := json.Unmarshal([]byte(failuresJSON), &r.Failures); err != nil {
		return Report{}, err
	}
	return r, nil
}
