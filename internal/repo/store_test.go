package repo

import (
	"context"
	"net/url"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"natours/internal/core/errs"
	"natours/internal/core/query"
	"natours/internal/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestVisibilityScopes(t *testing.T) {
	db, _ := newMockDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&domain.Tour{}).Scopes(VisibleTours).Find(&[]domain.Tour{})
	})
	assert.Contains(t, sql, `"secret_tour" = false`)

	sql = db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&domain.User{}).Scopes(ActiveUsers).Find(&[]domain.User{})
	})
	assert.Contains(t, sql, `"active" = true`)
}

func TestTourRepo_FindByID_VisibleAndExpanded(t *testing.T) {
	db, mock := newMockDB(t)
	users, err := NewUserRepo(db)
	require.NoError(t, err)
	tours, err := NewTourRepo(db, users)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "tours" WHERE .*"tours"\."id" = \$\d.*"secret_tour" = \$\d|SELECT \* FROM "tours" WHERE .*"secret_tour" = \$\d.*"tours"\."id" = \$\d`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "duration", "guide_ids"}).
			AddRow("t1", "The Forest Hiker", 14, `["u1","u2"]`))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE .*"active" = .*`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active"}).
			AddRow("u2", "Lead Guide", true))

	got, err := tours.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "The Forest Hiker", got.Name)
	assert.Equal(t, 2.0, got.DurationWeeks)
	require.Len(t, got.Guides, 1)
	assert.Equal(t, "u2", got.Guides[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	users, err := NewUserRepo(db)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = users.FindByID(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, "No document found with that ID", errs.Classify(err).Msg)
}

func TestStore_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	reviews, err := NewReviewRepo(db)
	require.NoError(t, err)

	mock.ExpectExec(`DELETE FROM "reviews" WHERE "reviews"\."id" = \$1`).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = reviews.Delete(context.Background(), "r1")
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindMany_PreFilterAndSpec(t *testing.T) {
	db, mock := newMockDB(t)
	reviews, err := NewReviewRepo(db)
	require.NoError(t, err)

	spec := query.Parse(url.Values{"rating[gte]": {"4"}, "limit": {"10"}})
	mock.ExpectQuery(`SELECT \* FROM "reviews" WHERE "tour_id" = \$1 AND "rating" >= \$2 ORDER BY "created_at" DESC,"id" LIMIT (\$3|10)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "review", "rating", "tour_id", "user_id"}).
			AddRow("r1", "Great", 5, "t1", "u1"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("u1", "Jonas"))

	got, err := reviews.FindMany(context.Background(), map[string]any{"tour_id": "t1"}, spec)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Author)
	assert.Equal(t, "Jonas", got[0].Author.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindMany_CastError(t *testing.T) {
	db, _ := newMockDB(t)
	reviews, err := NewReviewRepo(db)
	require.NoError(t, err)

	_, err = reviews.FindMany(context.Background(), nil, query.Parse(url.Values{"rating": {"five"}}))
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestReviewRepo_Stats(t *testing.T) {
	db, mock := newMockDB(t)
	reviews, err := NewReviewRepo(db)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT COUNT\(\*\) AS quantity, COALESCE\(AVG\(rating\), 0\) AS average FROM "reviews" WHERE tour_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"quantity", "average"}).AddRow(3, 4.333))

	st, err := reviews.Stats(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.RatingStats{Quantity: 3, Average: 4.333}, st)
}

func TestTourRepo_Stats(t *testing.T) {
	db, mock := newMockDB(t)
	users, _ := NewUserRepo(db)
	tours, err := NewTourRepo(db, users)
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)SELECT UPPER\(difficulty\) AS difficulty.*FROM "tours" WHERE .*ratings_average >= \$\d.*GROUP BY UPPER\(difficulty\) ORDER BY avg_price`).
		WillReturnRows(sqlmock.NewRows([]string{"difficulty", "num_tours", "num_ratings", "avg_rating", "avg_price", "min_price", "max_price"}).
			AddRow("EASY", 4, 26, 4.7, 1272, 397, 1997))

	got, err := tours.Stats(context.Background(), 4.5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EASY", got[0].Difficulty)
	assert.Equal(t, int64(4), got[0].NumTours)
	assert.Equal(t, 397.0, got[0].MinPrice)
}

func TestTourRepo_UpdateRatings(t *testing.T) {
	db, mock := newMockDB(t)
	users, _ := NewUserRepo(db)
	tours, err := NewTourRepo(db, users)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE "tours" SET .*"ratings_average"=.*"ratings_quantity"=.* WHERE "tours"\."id" = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, tours.UpdateRatings(context.Background(), "t1", 0, 4.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
