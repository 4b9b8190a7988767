package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"courtbooking/internal/domain/courts"
)

var ErrInvalidCourt = errors.New("invalid court")

type CourtsWriter interface {
	GetVenue(ctx context.Context, id int64) (*courts.Venue, error)
	CreateVenue(ctx context.Context, venue courts.Venue) (int64, error)
	CreateCourt(ctx context.Context, court courts.Court) (int64, error)
}

type CourtsService struct {
	courtsRepo CourtsWriter
}

func NewCourtsService(courtsRepo CourtsWriter) *CourtsService {
	return &CourtsService{
		courtsRepo: courtsRepo,
	}
}

func (s *CourtsService) CreateVenue(ctx context.Context, venue courts.Venue) (int64, error) {
	if strings.TrimSpace(venue.Name) == "" {
		return 0, fmt.Errorf("%w: venue name is required", ErrInvalidCourt)
	}
	return s.courtsRepo.CreateVenue(ctx, venue)
}

// CreateCourt adds a court to a venue. An empty ownerID skips the ownership check (admins).
func (s *CourtsService) CreateCourt(ctx context.Context, ownerID string, court courts.Court) (int64, error) {
	if strings.TrimSpace(court.Name) == "" {
		return 0, fmt.Errorf("%w: court name is required", ErrInvalidCourt)
	}
	if court.PricePerHour.IsNegative() {
		return 0, fmt.Errorf("%w: price per hour must not be negative", ErrInvalidCourt)
	}
	if len(court.Currency) != 3 {
		return 0, fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidCourt)
	}
	court.Currency = strings.ToLower(court.Currency)

	if ownerID != "" {
		venue, err := s.courtsRepo.GetVenue(ctx, court.VenueID)
		if err != nil {
			return 0, err
		}
		if venue.OwnerID != ownerID {
			return 0, courts.ErrNotVenueOwner
		}
	}

	return s.courtsRepo.CreateCourt(ctx, court)
}
