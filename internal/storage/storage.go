// Package storage is the devstack's persistence layer: accounts, rides and
// chat history in PostgreSQL, channel bookkeeping and idempotency keys in
// redis.
package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"hopalong/core/internal/models"
)

// ErrRideNotFound is returned for lookups of unknown ride ids.
var ErrRideNotFound = errors.New("storage: ride not found")

const (
	activeChannelsKey = "chat:active"
	idempotencyTTL    = time.Hour
)

// Storage is the interface the handlers depend on; tests mock it.
type Storage interface {
	SaveAccount(a *models.Account) error
	AccountByID(id string) (*models.Account, error)
	AccountByEmail(email string) (*models.Account, error)

	CreateRide(r *models.RideRecord) error
	RideByID(id string) (*models.RideRecord, error)
	AppendMember(rideID, accountID string) error
	RidesStartingBetween(from, to time.Time) ([]models.RideRecord, error)
	RidesForAccount(accountID string) ([]models.RideRecord, error)

	SaveMessage(h *models.ChatHistory) error
	PreviousMessages(rideID string, limit, offset int) ([]models.ChatHistory, error)

	MarkChannelActive(rideID string) error
	ActiveRideIDs() ([]string, error)
	ClaimIdempotencyKey(key string) (bool, error)
}

// Service implements Storage on gorm + redis. Redis may be nil; the
// redis-backed methods then degrade to no-ops.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb, Ctx: context.Background()}
}

func (s *Service) SaveAccount(a *models.Account) error {
	return s.DB.Save(a).Error
}

func (s *Service) AccountByID(id string) (*models.Account, error) {
	var account models.Account
	if err := s.DB.First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Service) AccountByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := s.DB.First(&account, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Service) CreateRide(r *models.RideRecord) error {
	return s.DB.Create(r).Error
}

func (s *Service) RideByID(id string) (*models.RideRecord, error) {
	var ride models.RideRecord
	err := s.DB.First(&ride, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRideNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// AppendMember adds an account to a ride's member list. Re-adding an
// existing member is a no-op so a deduplicated merge retry stays harmless.
func (s *Service) AppendMember(rideID, accountID string) error {
	ride, err := s.RideByID(rideID)
	if err != nil {
		return err
	}
	for _, id := range ride.MemberIDs {
		if id == accountID {
			return nil
		}
	}
	ride.MemberIDs = append(ride.MemberIDs, accountID)
	return s.DB.Save(ride).Error
}

func (s *Service) RidesStartingBetween(from, to time.Time) ([]models.RideRecord, error) {
	var rides []models.RideRecord
	err := s.DB.
		Where("start_at BETWEEN ? AND ?", from, to).
		Order("start_at asc").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}
	return rides, nil
}

func (s *Service) RidesForAccount(accountID string) ([]models.RideRecord, error) {
	var rides []models.RideRecord
	err := s.DB.
		Where("owner_id = ? OR ? = ANY(member_ids)", accountID, accountID).
		Order("start_at desc").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}
	return rides, nil
}

func (s *Service) SaveMessage(h *models.ChatHistory) error {
	if err := s.DB.Create(h).Error; err != nil {
		log.Printf("storage: failed to save message for ride %s: %v", h.RideID, err)
		return err
	}
	return nil
}

// PreviousMessages returns a newest-first bounded window, reversed into
// chronological order for the caller.
func (s *Service) PreviousMessages(rideID string, limit, offset int) ([]models.ChatHistory, error) {
	var history []models.ChatHistory
	err := s.DB.
		Where("ride_id = ?", rideID).
		Order("sent_at desc").
		Limit(limit).
		Offset(offset).
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// MarkChannelActive records that a ride's channel has a subscriber, so a
// restarted devstack can report which channels were live.
func (s *Service) MarkChannelActive(rideID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.SAdd(s.Ctx, activeChannelsKey, rideID).Err()
}

func (s *Service) ActiveRideIDs() ([]string, error) {
	if s.Redis == nil {
		return nil, nil
	}
	return s.Redis.SMembers(s.Ctx, activeChannelsKey).Result()
}

// ClaimIdempotencyKey reports whether this key is seen for the first time.
// Without redis every key is treated as fresh.
func (s *Service) ClaimIdempotencyKey(key string) (bool, error) {
	if s.Redis == nil || key == "" {
		return true, nil
	}
	return s.Redis.SetNX(s.Ctx, "idem:"+key, 1, idempotencyTTL).Result()
}
