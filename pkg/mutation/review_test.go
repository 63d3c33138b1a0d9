package mutation

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{"missing rating", Draft{Text: "fine"}, "rating"},
		{"rating too high", Draft{Rating: 6, Text: "fine"}, "rating"},
		{"blank text", Draft{Rating: 3, Text: " \n\t"}, "review"},
		{"valid", Draft{Rating: 5, Text: "fine"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestReviewEditor_CreateThenUpdateSameIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := NewReviewEditor(f.backend, testGameID)

	require.NoError(t, e.Prepare(ctx))
	assert.Nil(t, e.Existing())

	e.SetRating(4)
	e.SetText("  Great dungeons.  ")
	r := e.Submit(ctx)
	require.True(t, r.OK(), r.Message)
	assert.Equal(t, msgReviewCreated, r.Message)
	created := e.Existing()
	require.NotNil(t, created)
	assert.Equal(t, "Great dungeons.", created.Text)
	assert.Equal(t, Draft{}, e.Draft(), "draft resets after a create")

	e.SetRating(2)
	e.SetText("Worse on replay.")
	r = e.Submit(ctx)
	require.True(t, r.OK(), r.Message)
	assert.Equal(t, msgReviewUpdated, r.Message)
	assert.Equal(t, created.ID, e.Existing().ID)
	assert.Equal(t, Draft{Rating: 2, Text: "Worse on replay."}, e.Draft(), "draft is kept after an update")

	assert.Equal(t, 1, f.srv.CountCalls(http.MethodPost, "/reviews/"))
	assert.Equal(t, 1, f.srv.CountCalls(http.MethodPut, "/reviews/"))
	assert.Equal(t, 1, f.srv.CountCalls(http.MethodGet, "/reviews/game/3/user/"), "lookup is cached")
	assert.Equal(t, 1, f.srv.ReviewCount(f.userID, testGameID))
}

func TestReviewEditor_PrepareLoadsExisting(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddReview(f.userID, testGameID, 5, "Masterpiece.")
	e := NewReviewEditor(f.backend, testGameID)

	require.NoError(t, e.Prepare(context.Background()))
	require.NotNil(t, e.Existing())
	assert.Equal(t, id, e.Existing().ID)
	assert.Equal(t, Draft{Rating: 5, Text: "Masterpiece."}, e.Draft())

	e.SetText("Still a masterpiece.")
	r := e.Submit(context.Background())
	require.True(t, r.OK(), r.Message)
	assert.Zero(t, f.srv.CountCalls(http.MethodPost, "/reviews/"))
}

func TestReviewEditor_SubmitWithoutPrepareLooksUpFirst(t *testing.T) {
	f := newFixture(t)
	id := f.srv.AddReview(f.userID, testGameID, 3, "Okay.")
	e := NewReviewEditor(f.backend, testGameID)

	e.SetRating(4)
	e.SetText("Better than I remembered.")
	r := e.Submit(context.Background())
	require.True(t, r.OK(), r.Message)
	assert.Equal(t, id, e.Existing().ID)
	assert.Zero(t, f.srv.CountCalls(http.MethodPost, "/reviews/"))
}

func TestReviewEditor_ValidationNeverReachesNetwork(t *testing.T) {
	f := newFixture(t)
	e := NewReviewEditor(f.backend, testGameID)
	f.srv.ResetCalls()

	e.SetRating(0)
	e.SetText("text")
	r := e.Submit(context.Background())
	assert.Equal(t, StatusFailed, r.Status)
	assert.ErrorIs(t, r.Err, ErrValidation)
	assert.Equal(t, msgRatingRequired, r.Message)

	e.SetRating(3)
	e.SetText("   ")
	r = e.Submit(context.Background())
	assert.Equal(t, msgTextRequired, r.Message)
	assert.Empty(t, f.srv.Calls())
}

func TestReviewEditor_LookupFailureFallsBackToServerCheck(t *testing.T) {
	f := newFixture(t)
	f.srv.AddReview(f.userID, testGameID, 3, "Okay.")
	e := NewReviewEditor(f.backend, testGameID)

	f.srv.Fail(http.MethodGet, "/reviews/game/3/user/", http.StatusInternalServerError, `{"error":"boom"}`, 1)
	require.Error(t, e.Prepare(context.Background()))
	assert.Nil(t, e.Existing())

	e.SetRating(5)
	e.SetText("Again.")
	r := e.Submit(context.Background())
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "You have already reviewed this game", r.Message)
	assert.Equal(t, 1, f.srv.ReviewCount(f.userID, testGameID))
}

func TestReviewEditor_ServerRejectionAndTransport(t *testing.T) {
	f := newFixture(t)
	e := NewReviewEditor(f.backend, testGameID)
	require.NoError(t, e.Prepare(context.Background()))
	e.SetRating(4)
	e.SetText("ok")

	f.srv.Fail(http.MethodPost, "/reviews/", 0, "", 1)
	r := e.Submit(context.Background())
	assert.Equal(t, msgReviewFailed, r.Message)
	assert.Nil(t, e.Existing())
	assert.Equal(t, Draft{Rating: 4, Text: "ok"}, e.Draft(), "draft survives a failure")
}

func TestReviewEditor_DeleteForgetsIdentity(t *testing.T) {
	f := newFixture(t)
	f.srv.AddReview(f.userID, testGameID, 2, "Meh.")
	e := NewReviewEditor(f.backend, testGameID)
	ctx := context.Background()

	r := e.Delete(ctx)
	require.True(t, r.OK(), r.Message)
	assert.Nil(t, e.Existing())
	assert.Zero(t, f.srv.ReviewCount(f.userID, testGameID))

	r = e.Delete(ctx)
	assert.ErrorIs(t, r.Err, ErrValidation)

	e.SetRating(4)
	e.SetText("Gave it another go.")
	r = e.Submit(ctx)
	require.True(t, r.OK(), r.Message)
	assert.Equal(t, msgReviewCreated, r.Message)
	assert.Equal(t, 1, f.srv.CountCalls(http.MethodPost, "/reviews/"))
}
