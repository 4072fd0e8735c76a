package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"loopbot/model"
)

// submissionsUnion presents both submission tables with a common column set.
const submissionsUnion = `
	SELECT id, user_id, link AS payload, 'link' AS kind, timestamp, tags, thread_id,
		CAST(message_id AS TEXT) AS message_id, CAST(orig_message_id AS TEXT) AS orig_message_id
	FROM link_submissions
	UNION ALL
	SELECT id, user_id, filename AS payload, 'attachment' AS kind, timestamp, tags, thread_id,
		CAST(message_id AS TEXT) AS message_id, CAST(orig_message_id AS TEXT) AS orig_message_id
	FROM audio_submissions`

type submissionRow struct {
	ID            int64          `db:"id"`
	UserID        string         `db:"user_id"`
	Payload       sql.NullString `db:"payload"`
	Kind          string         `db:"kind"`
	Timestamp     sql.NullString `db:"timestamp"`
	Tags          sql.NullString `db:"tags"`
	ThreadID      sql.NullString `db:"thread_id"`
	MessageID     sql.NullString `db:"message_id"`
	OrigMessageID sql.NullString `db:"orig_message_id"`
}

func (r submissionRow) toModel() (*model.Submission, error) {
	var createdAt time.Time
	if r.Timestamp.String != "" {
		ts, err := parseTime(r.Timestamp.String)
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", r.ID, err)
		}
		createdAt = ts
	}
	return &model.Submission{
		ID:        r.ID,
		AuthorID:  r.UserID,
		Kind:      model.SubmissionKind(r.Kind),
		Payload:   r.Payload.String,
		Tags:      strings.Fields(r.Tags.String),
		CreatedAt: createdAt,
		PublicRef: r.MessageID.String,
		SourceRef: r.OrigMessageID.String,
		ThreadID:  r.ThreadID.String,
	}, nil
}

func tableFor(kind model.SubmissionKind) (table, payloadColumn string, err error) {
	switch kind {
	case model.SubmissionLink:
		return "link_submissions", "link", nil
	case model.SubmissionAttachment:
		return "audio_submissions", "filename", nil
	}
	return "", "", fmt.Errorf("unknown submission kind %q", kind)
}

// InsertSubmission stores sub under a fresh id unless a submission with the same
// SourceRef already exists, in which case the existing record is returned with created=false.
func (s *Store) InsertSubmission(sub model.Submission) (*model.Submission, bool, error) {
	table, payloadColumn, err := tableFor(sub.Kind)
	if err != nil {
		return nil, false, err
	}

	tx, err := s.DB.Beginx()
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	if sub.SourceRef != "" {
		existing, err := findBySourceRefInTx(tx, sub.SourceRef)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	id, err := getNextSubmissionID(tx)
	if err != nil {
		return nil, false, err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, %s, timestamp, tags, thread_id, orig_message_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, table, payloadColumn)
	_, err = tx.Exec(query, id, sub.AuthorID, sub.Payload, formatTime(sub.CreatedAt),
		sub.TagString(), nullString(sub.ThreadID), nullString(sub.SourceRef))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrConflict
		}
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	sub.ID = id
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.PublicRef = ""
	return &sub, true, nil
}

// GetSubmission returns the submission with the given id, or nil if none exists.
func (s *Store) GetSubmission(id int64) (*model.Submission, error) {
	var row submissionRow
	err := s.DB.Get(&row, `SELECT * FROM (`+submissionsUnion+`) WHERE id = ? ORDER BY kind = 'link' DESC LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// FindByPublicRef returns the submission whose voting hall post has the given message ID.
func (s *Store) FindByPublicRef(ref string) (*model.Submission, error) {
	return s.findByColumn("message_id", ref)
}

// FindBySourceRef returns the submission created from the given chat message.
func (s *Store) FindBySourceRef(ref string) (*model.Submission, error) {
	return s.findByColumn("orig_message_id", ref)
}

func (s *Store) findByColumn(column, ref string) (*model.Submission, error) {
	if ref == "" {
		return nil, nil
	}
	// Each table is queried on its own so the message indexes are used.
	for _, kind := range []model.SubmissionKind{model.SubmissionLink, model.SubmissionAttachment} {
		row, err := selectOneByColumn(s.DB, kind, column, ref)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row.toModel()
		}
	}
	return nil, nil
}

func findBySourceRefInTx(tx *sqlx.Tx, ref string) (*model.Submission, error) {
	for _, kind := range []model.SubmissionKind{model.SubmissionLink, model.SubmissionAttachment} {
		row, err := selectOneByColumn(tx, kind, "orig_message_id", ref)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row.toModel()
		}
	}
	return nil, nil
}

func selectOneByColumn(q sqlx.Queryer, kind model.SubmissionKind, column, value string) (*submissionRow, error) {
	table, payloadColumn, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, user_id, %s AS payload, '%s' AS kind, timestamp, tags, thread_id,
			CAST(message_id AS TEXT) AS message_id, CAST(orig_message_id AS TEXT) AS orig_message_id
		FROM %s WHERE %s = ? ORDER BY id LIMIT 1`, payloadColumn, kind, table, column)

	var row submissionRow
	if err := sqlx.Get(q, &row, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// AttachPublicRef binds the voting hall message ID to a submission that has none yet.
// It reports false when the submission already had a reference or does not exist.
func (s *Store) AttachPublicRef(sub *model.Submission, ref string) (bool, error) {
	table, _, err := tableFor(sub.Kind)
	if err != nil {
		return false, err
	}
	res, err := s.DB.Exec(fmt.Sprintf(
		"UPDATE %s SET message_id = ? WHERE id = ? AND (message_id IS NULL OR message_id = '')", table),
		ref, sub.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SearchByTag returns submissions whose tag string contains tag, newest first.
// Matching is by substring, so "#jazz" also matches a submission tagged "acidjazz".
func (s *Store) SearchByTag(tag string, limit int) ([]*model.Submission, error) {
	pattern := "%" + escapeLike(tag) + "%"
	var rows []submissionRow
	err := s.DB.Select(&rows, `SELECT * FROM (`+submissionsUnion+`)
		WHERE tags LIKE ? ESCAPE '\'
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, err
	}
	return rowsToModels(rows)
}

// CountSubmissions returns the number of submissions by author.
func (s *Store) CountSubmissions(authorID string) (int, error) {
	var n int
	err := s.DB.Get(&n, `SELECT COUNT(*) FROM (`+submissionsUnion+`) WHERE user_id = ?`, authorID)
	return n, err
}

func rowsToModels(rows []submissionRow) ([]*model.Submission, error) {
	subs := make([]*model.Submission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.toModel()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
