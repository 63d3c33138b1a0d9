package mutation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/txn2/gamebuddy/pkg/backend"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

const (
	msgReviewCreated    = "Review submitted."
	msgReviewUpdated    = "Review updated."
	msgReviewDeleted    = "Review deleted."
	msgReviewFailed     = "Failed to submit review. Please try again."
	msgReviewDelFailed  = "Failed to delete review. Please try again."
	msgRatingRequired   = "Please select a rating between 1 and 5."
	msgTextRequired     = "Please write a review."
	msgNoReviewToDelete = "You have not reviewed this game."
)

// ReviewAPI is the backend surface used by ReviewEditor.
type ReviewAPI interface {
	MyReview(ctx context.Context, gameID int64) (*backend.Review, error)
	CreateReview(ctx context.Context, in backend.ReviewInput) (backend.Review, error)
	UpdateReview(ctx context.Context, id int64, in backend.ReviewInput) (backend.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

// Draft is the review being edited.
type Draft struct {
	Rating int
	Text   string
}

// Validate checks the draft before anything is sent.
func (d Draft) Validate() error {
	if d.Rating < MinRating || d.Rating > MaxRating {
		return invalid("rating", msgRatingRequired)
	}
	if strings.TrimSpace(d.Text) == "" {
		return invalid("review", msgTextRequired)
	}
	return nil
}

// ReviewEditor creates or updates the signed-in user's single review of one
// game. Whether a review already exists is looked up once per editor and
// cached, and the id of a newly created review is kept, so repeated submits
// update the same record.
//
// If the lookup fails the editor proceeds as if no review exists and the
// server's duplicate check decides; its message is shown verbatim.
type ReviewEditor struct {
	api    ReviewAPI
	gameID int64

	// submitMu serializes Prepare, Submit and Delete.
	submitMu sync.Mutex

	mu         sync.Mutex
	prepared   bool
	prepareErr error
	existing   *backend.Review
	draft      Draft
	result     Result
}

// NewReviewEditor creates an editor for gameID.
func NewReviewEditor(api ReviewAPI, gameID int64) *ReviewEditor {
	return &ReviewEditor{api: api, gameID: gameID}
}

// Prepare looks up an existing review and loads it into the draft. Only the
// first call reaches the server. The returned error is the lookup failure,
// if any; the editor stays usable either way.
func (e *ReviewEditor) Prepare(ctx context.Context) error {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()
	return e.prepareLocked(ctx)
}

func (e *ReviewEditor) prepareLocked(ctx context.Context) error {
	e.mu.Lock()
	if e.prepared {
		err := e.prepareErr
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	existing, err := e.api.MyReview(ctx, e.gameID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.prepared = true
	e.prepareErr = err
	if err != nil {
		slog.Warn("review lookup failed, assuming no review", "game_id", e.gameID, slogKeyError, err)
		return err
	}
	e.existing = existing
	if existing != nil {
		e.draft = Draft{Rating: existing.Rating, Text: existing.Text}
	}
	return nil
}

// Existing returns the review being edited, or nil when the next submit
// creates one.
func (e *ReviewEditor) Existing() *backend.Review {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.existing == nil {
		return nil
	}
	r := *e.existing
	return &r
}

// Draft returns the current draft.
func (e *ReviewEditor) Draft() Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// SetRating edits the draft rating.
func (e *ReviewEditor) SetRating(rating int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Rating = rating
}

// SetText edits the draft text.
func (e *ReviewEditor) SetText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Text = text
}

// Result returns the latest submit or delete outcome.
func (e *ReviewEditor) Result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Submit validates the draft, then updates the existing review or creates a
// new one. After a create the draft is cleared and the new id is kept; after
// an update the draft keeps the submitted values.
func (e *ReviewEditor) Submit(ctx context.Context) Result {
	draft := e.Draft()
	if err := draft.Validate(); err != nil {
		return e.setResult(failed(err, msgReviewFailed))
	}

	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	// Lookup failures are already logged and recorded.
	_ = e.prepareLocked(ctx)

	e.mu.Lock()
	e.result = pending()
	var existingID int64
	if e.existing != nil {
		existingID = e.existing.ID
	}
	e.mu.Unlock()

	in := backend.ReviewInput{GameID: e.gameID, Rating: draft.Rating, Text: strings.TrimSpace(draft.Text)}

	if existingID != 0 {
		r, err := e.api.UpdateReview(ctx, existingID, in)
		if err != nil {
			return e.setResult(failed(err, msgReviewFailed))
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		e.existing = &r
		e.result = succeeded(msgReviewUpdated)
		return e.result
	}

	r, err := e.api.CreateReview(ctx, in)
	if err != nil {
		return e.setResult(failed(err, msgReviewFailed))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.existing = &r
	e.draft = Draft{}
	e.result = succeeded(msgReviewCreated)
	return e.result
}

// Delete removes the existing review. The editor then forgets its id so the
// next submit creates a new review.
func (e *ReviewEditor) Delete(ctx context.Context) Result {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	_ = e.prepareLocked(ctx)

	e.mu.Lock()
	if e.existing == nil {
		e.result = failed(invalid("review", msgNoReviewToDelete), msgReviewDelFailed)
		r := e.result
		e.mu.Unlock()
		return r
	}
	id := e.existing.ID
	e.result = pending()
	e.mu.Unlock()

	if err := e.api.DeleteReview(ctx, id); err != nil {
		return e.setResult(failed(err, msgReviewDelFailed))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.existing = nil
	e.draft = Draft{}
	e.result = succeeded(msgReviewDeleted)
	return e.result
}

func (e *ReviewEditor) setResult(r Result) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = r
	return r
}
