// Package submission records challenge submissions and credits their authors.
package submission

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"loopbot/apperror"
	"loopbot/db"
	"loopbot/model"
	"loopbot/ranking"
)

// PointsPerSubmission is credited to the author once per submission.
const PointsPerSubmission = 1

// Request describes a candidate submission.
type Request struct {
	AuthorID  string
	Kind      model.SubmissionKind
	Payload   string
	Tags      []string
	SourceRef string
	ThreadID  string
	Now       time.Time
}

// Result is the outcome of Submit.
type Result struct {
	Submission *model.Submission
	// Created is false when the source message was already recorded.
	Created bool
	// Credited is true when this call granted the submission point.
	Credited bool
	Streak   model.Streak
}

// Ledger is the append-only record of submissions.
type Ledger struct {
	store   *db.Store
	ranking *ranking.Engine
	prefix  string
}

// NewLedger creates a ledger. prefix is the chat command prefix, which link payloads may not start with.
func NewLedger(store *db.Store, rank *ranking.Engine, prefix string) *Ledger {
	return &Ledger{store: store, ranking: rank, prefix: prefix}
}

// Record validates and stores a submission. Recording the same source message
// twice returns the first record with created=false.
func (l *Ledger) Record(req Request) (*model.Submission, bool, error) {
	payload := strings.TrimSpace(req.Payload)
	if !req.Kind.Valid() {
		return nil, false, apperror.Validation(fmt.Sprintf("unknown submission kind %q", req.Kind))
	}
	if payload == "" {
		return nil, false, apperror.Validation("Nothing to submit. Attach a file or include a link.")
	}
	if req.Kind == model.SubmissionLink && l.prefix != "" && strings.HasPrefix(payload, l.prefix) {
		return nil, false, apperror.Validation("That looks like a command, not a link.")
	}
	if req.AuthorID == "" {
		return nil, false, apperror.Validation("submission has no author")
	}

	sub, created, err := l.store.InsertSubmission(model.Submission{
		AuthorID:  req.AuthorID,
		Kind:      req.Kind,
		Payload:   payload,
		Tags:      req.Tags,
		CreatedAt: req.Now.UTC(),
		SourceRef: req.SourceRef,
		ThreadID:  req.ThreadID,
	})
	if errors.Is(err, db.ErrConflict) {
		// Lost a race with another handler for the same source message.
		existing, findErr := l.store.FindBySourceRef(req.SourceRef)
		if findErr != nil {
			return nil, false, apperror.Storage("record submission", findErr)
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, apperror.Storage("record submission", err)
	}
	return sub, created, nil
}

// Submit records the submission, credits the author and advances their streak.
// Credit is keyed by the submission and the streak by its date, so a retried event grants nothing twice.
func (l *Ledger) Submit(req Request) (*Result, error) {
	sub, created, err := l.Record(req)
	if err != nil {
		return nil, err
	}
	res := &Result{Submission: sub, Created: created}

	key := fmt.Sprintf("submission:%d", sub.ID)
	res.Credited, err = l.ranking.CreditPoints(sub.AuthorID, PointsPerSubmission, key, "submission", req.Now)
	if err != nil {
		return res, err
	}

	// Applied on every call so a retry after a failed update still counts the day.
	res.Streak, err = l.ranking.UpdateStreak(sub.AuthorID, sub.CreatedAt)
	if err != nil {
		return res, err
	}
	return res, nil
}

// AttachPublicRef binds the voting hall post to the submission. Binding the same
// reference again is a no-op; binding a different one is rejected.
func (l *Ledger) AttachPublicRef(sub *model.Submission, ref string) error {
	if ref == "" {
		return apperror.Validation("empty public message reference")
	}
	bound, err := l.store.AttachPublicRef(sub, ref)
	if err != nil {
		return apperror.Storage("attach public reference", err)
	}
	if bound {
		sub.PublicRef = ref
		return nil
	}

	current, err := l.store.GetSubmission(sub.ID)
	if err != nil {
		return apperror.Storage("attach public reference", err)
	}
	if current == nil {
		return apperror.NotFound(fmt.Sprintf("submission %d does not exist", sub.ID))
	}
	if current.PublicRef == ref {
		sub.PublicRef = ref
		return nil
	}
	return apperror.Duplicate(fmt.Sprintf("submission %d is already published", sub.ID))
}

// FindByPublicRef returns the submission posted as the given voting hall message, or nil.
func (l *Ledger) FindByPublicRef(ref string) (*model.Submission, error) {
	sub, err := l.store.FindByPublicRef(ref)
	if err != nil {
		return nil, apperror.Storage("find submission", err)
	}
	return sub, nil
}

// FindBySourceRef returns the submission recorded from the given chat message, or nil.
func (l *Ledger) FindBySourceRef(ref string) (*model.Submission, error) {
	sub, err := l.store.FindBySourceRef(ref)
	if err != nil {
		return nil, apperror.Storage("find submission", err)
	}
	return sub, nil
}

// Get returns a submission by id.
func (l *Ledger) Get(id int64) (*model.Submission, error) {
	sub, err := l.store.GetSubmission(id)
	if err != nil {
		return nil, apperror.Storage("load submission", err)
	}
	if sub == nil {
		return nil, apperror.NotFound(fmt.Sprintf("Submission %d not found.", id))
	}
	return sub, nil
}

// Search returns up to limit submissions whose tags contain tag.
func (l *Ledger) Search(tag string, limit int) ([]*model.Submission, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil, apperror.Validation("Give me a tag to search for, like #music.")
	}
	subs, err := l.store.SearchByTag(tag, limit)
	if err != nil {
		return nil, apperror.Storage("search submissions", err)
	}
	return subs, nil
}

// Count returns how many submissions authorID has made.
func (l *Ledger) Count(authorID string) (int, error) {
	n, err := l.store.CountSubmissions(authorID)
	if err != nil {
		return 0, apperror.Storage("count submissions", err)
	}
	return n, nil
}

// CheckOwnership rejects submitting a message that somebody else wrote.
func CheckOwnership(submitterID, messageAuthorID string) error {
	if submitterID != messageAuthorID {
		return apperror.Permission("You can only submit your own messages.")
	}
	return nil
}
