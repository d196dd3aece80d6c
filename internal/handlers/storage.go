package handlers

import (
	"context"

	"github.com/SoloMen88/tenderServise/db"
)

// StorageInterface описывает контракт хранилища, который нужен обработчикам.
type StorageInterface interface {
	GetEmployeeByUsername(ctx context.Context, username string) (*db.Employee, error)
	GetEmployeeByID(ctx context.Context, id string) (*db.Employee, error)
	IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error)
	GetResponsibleOrganization(ctx context.Context, userID string) (string, error)

	CreateTender(ctx context.Context, tender *db.Tender) error
	GetTender(ctx context.Context, tenderID string) (*db.Tender, error)
	UpdateTender(ctx context.Context, tender *db.Tender) error
	SetTenderStatus(ctx context.Context, tender *db.Tender) error
	GetTenders(ctx context.Context, creatorID string, serviceTypes []string, limit, offset int) ([]db.Tender, error)
	GetUserTenders(ctx context.Context, creatorID string, limit, offset int) ([]db.Tender, error)
	GetTenderVersion(ctx context.Context, tenderID string, version int) (*db.Tender, error)

	CreateBid(ctx context.Context, bid *db.Bid) error
	GetBid(ctx context.Context, bidID string) (*db.Bid, error)
	UpdateBid(ctx context.Context, bid *db.Bid) error
	SetBidStatus(ctx context.Context, bid *db.Bid) error
	GetBids(ctx context.Context, creatorID string, limit, offset int) ([]db.Bid, error)
	GetUserBids(ctx context.Context, creatorID string, limit, offset int) ([]db.Bid, error)
	GetBidsForTender(ctx context.Context, tenderID string) ([]db.Bid, error)
	GetFirstBidForTender(ctx context.Context, tenderID string) (*db.Bid, error)
	GetBidVersion(ctx context.Context, bidID string, version int) (*db.Bid, error)
	SubmitBidDecision(ctx context.Context, bidID, voterID, decision string) (*db.Bid, error)

	CreateBidReview(ctx context.Context, review *db.BidReview) error
	GetTenderBidReviews(ctx context.Context, tenderID string) ([]db.BidReview, error)
}
