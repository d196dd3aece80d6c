package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BidReview (Отзыв)
// AuthorID — автор отзыва, BidCreatorID — автор предложения
// (денормализован для быстрого поиска отзывов по автору предложений).
type BidReview struct {
	ID           string    `db:"id" json:"id"`
	BidID        string    `db:"bid_id" json:"-"`
	AuthorID     string    `db:"author_id" json:"-"`
	BidCreatorID string    `db:"bid_creator_id" json:"-"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// CreateBidReview добавляет отзыв. Отзывы не редактируются и не удаляются.
func (s *Storage) CreateBidReview(ctx context.Context, r *BidReview) error {
	r.ID = uuid.NewString()
	query := `
        INSERT INTO bid_review (id, bid_id, author_id, bid_creator_id, description)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query,
		r.ID, r.BidID, r.AuthorID, r.BidCreatorID, r.Description).
		Scan(&r.CreatedAt)
}

// GetTenderBidReviews возвращает отзывы по всем предложениям тендера.
func (s *Storage) GetTenderBidReviews(ctx context.Context, tenderID string) ([]BidReview, error) {
	var reviews []BidReview
	query := `
        SELECT r.*
        FROM bid_review r
        JOIN bid b ON r.bid_id = b.id
        WHERE b.tender_id = $1
        ORDER BY r.created_at DESC`
	err := s.db.SelectContext(ctx, &reviews, query, tenderID)
	return reviews, err
}
