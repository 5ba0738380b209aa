// Package accounts implements driver registration and login (spec
// §6 "register"/"login" actions). Credential hashing and account
// bookkeeping are explicitly out of scope for the charging core
// (spec §1); this package is the external collaborator the wire
// router calls into before handing off to internal/service/charging.
package accounts

import (
	"context"

	"github.com/evstation/charge-station/internal/domain"
	"github.com/evstation/charge-station/internal/service/auth"
	"github.com/evstation/charge-station/internal/service/email"
	"github.com/evstation/charge-station/internal/station"
)

// Service registers and authenticates drivers against the station's
// Users store.
type Service struct {
	st          *station.Station
	credentials *auth.CredentialStore
	email       *email.Service
}

func New(st *station.Station, credentials *auth.CredentialStore, emailSvc *email.Service) *Service {
	return &Service{st: st, credentials: credentials, email: emailSvc}
}

// Register creates a new driver account with exactly one car. Fails
// with ErrConflict if userID is already registered.
func (s *Service) Register(ctx context.Context, userID, password, carID string, batteryCapacityKWh float64) error {
	if userID == "" || password == "" || carID == "" {
		return domain.NewError(domain.ErrValidation, "user_id, password, and car_id are required")
	}
	if batteryCapacityKWh <= 0 {
		return domain.NewError(domain.ErrValidation, "battery_capacity must be > 0")
	}

	digest, err := s.credentials.Hash(password)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to hash password", err)
	}

	user := domain.User{
		UserID:         userID,
		PasswordDigest: digest,
		Car: domain.Car{
			CarID:              carID,
			UserID:             userID,
			BatteryCapacityKWh: batteryCapacityKWh,
		},
	}

	if !s.st.Users.PutIfAbsent(userID, user) {
		return domain.NewError(domain.ErrConflict, "user_id already registered")
	}

	if s.email != nil {
		_ = s.email.SendWelcome(ctx, &user)
	}
	return nil
}

// Login verifies userID/password and returns the account's car_id.
func (s *Service) Login(userID, password string) (carID string, err error) {
	user, ok := s.st.Users.Get(userID)
	if !ok {
		return "", domain.NewError(domain.ErrAuth, "invalid credentials")
	}
	if verr := s.credentials.Verify(user.PasswordDigest, password); verr != nil {
		return "", domain.NewError(domain.ErrAuth, "invalid credentials")
	}
	return user.Car.CarID, nil
}
