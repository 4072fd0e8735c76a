package db

import "github.com/jmoiron/sqlx"

// getNextSubmissionID advances the shared submission counter inside tx and returns the new value.
// Link and attachment submissions share this sequence so a vote's submission_id is unambiguous.
func getNextSubmissionID(tx *sqlx.Tx) (int64, error) {
	var currentID int64
	err := tx.Get(&currentID, "SELECT current_value FROM id_counter WHERE counter_name = 'submission_id'")
	if err != nil {
		return 0, err
	}

	newID := currentID + 1
	_, err = tx.Exec("UPDATE id_counter SET current_value = ? WHERE counter_name = 'submission_id'", newID)
	if err != nil {
		return 0, err
	}

	return newID, nil
}
