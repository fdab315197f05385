package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/pitchdeck/internal/model"
)

var deckRowColumns = []string{"id", "user_id", "title", "description", "slides", "status", "thumbnail", "created_at", "updated_at"}

func TestPostgresDeckRepo_ImplementsInterface(t *testing.T) {
	var _ DeckRepository = (*PostgresDeckRepo)(nil)
}

func TestPostgresDeckRepo_FindByIDAndUser_DecodesSlides(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)
	now := time.Now()

	slides := `[{"id":"slide-1","title":"Cover","content":"Acme","type":"title","order":1},
		{"id":"slide-2","title":"Problem","content":"Pain","order":2,"speakerNotes":"say this"}]`

	mock.ExpectQuery(regexp.QuoteMeta(`FROM decks WHERE id = $1 AND user_id = $2`)).
		WithArgs("deck-1", "user-1").
		WillReturnRows(sqlmock.NewRows(deckRowColumns).
			AddRow("deck-1", "user-1", "Acme Pitch Deck", "desc", []byte(slides), "draft", nil, now, now))

	deck, err := repo.FindByIDAndUser(context.Background(), "deck-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, deck)

	assert.Equal(t, model.DeckStatusDraft, deck.Status)
	require.NotNil(t, deck.Description)
	assert.Equal(t, "desc", *deck.Description)
	assert.Nil(t, deck.Thumbnail)
	require.Len(t, deck.Slides, 2)
	assert.Equal(t, model.SlideTypeTitle, deck.Slides[0].Type)
	assert.Equal(t, "say this", deck.Slides[1].SpeakerNotes)
}

func TestPostgresDeckRepo_FindByIDAndUser_OtherOwnerReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)

	mock.ExpectQuery(`FROM decks WHERE id`).
		WithArgs("deck-1", "intruder").
		WillReturnError(sql.ErrNoRows)

	deck, err := repo.FindByIDAndUser(context.Background(), "deck-1", "intruder")
	require.NoError(t, err)
	assert.Nil(t, deck)
}

func TestPostgresDeckRepo_FindByIDAndUser_BrokenSlidesJSON(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)
	now := time.Now()

	mock.ExpectQuery(`FROM decks WHERE id`).
		WillReturnRows(sqlmock.NewRows(deckRowColumns).
			AddRow("deck-1", "user-1", "T", nil, []byte(`{not json`), "draft", nil, now, now))

	_, err := repo.FindByIDAndUser(context.Background(), "deck-1", "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode slides")
}

func TestPostgresDeckRepo_ListByUser_OrdersByUpdatedAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM decks WHERE user_id = $1 ORDER BY updated_at DESC`)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(deckRowColumns).
			AddRow("deck-2", "user-1", "Newer", nil, []byte(`[]`), "published", "bg-red", now, now).
			AddRow("deck-1", "user-1", "Older", nil, []byte(`[]`), "draft", nil, now.Add(-time.Hour), now.Add(-time.Hour)))

	decks, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "deck-2", decks[0].ID)
	require.NotNil(t, decks[0].Thumbnail)
	assert.Equal(t, "bg-red", *decks[0].Thumbnail)
	assert.Empty(t, decks[1].Slides)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeckRepo_Create_EncodesNilSlidesAsEmptyArray(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)
	now := time.Now()

	deck := &model.Deck{
		ID: "deck-1", UserID: "user-1", Title: "T",
		Status: model.DeckStatusDraft, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO decks`).
		WithArgs("deck-1", "user-1", "T", nil, []byte(`[]`), "draft", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), deck))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeckRepo_Update_ScopedByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $7 AND user_id = $8`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "deck-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.Deck{ID: "deck-1", UserID: "intruder", Status: model.DeckStatusDraft})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDeckRepo_DeleteByIDAndUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresDeckRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM decks WHERE id = $1 AND user_id = $2`)).
		WithArgs("deck-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteByIDAndUser(context.Background(), "deck-1", "user-1"))

	mock.ExpectExec(`DELETE FROM decks`).
		WithArgs("deck-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteByIDAndUser(context.Background(), "deck-1", "user-2"), ErrNotFound)
}
