package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallgrid/voltera/internal/auth/domain"
)

type Service interface {
	// Register creates the user and its client record in one transaction.
	Register(ctx context.Context, req RegisterRequest) (*Profile, error)
	// Login verifies credentials and returns the authenticated user.
	Login(ctx context.Context, username, password string) (*authdomain.User, error)
	GetByUserID(ctx context.Context, userID snowflake.ID) (*Client, error)
	GetProfile(ctx context.Context, username string) (*Profile, error)
	// UpdateProfile updates user display fields and the client record
	// atomically: both succeed or both roll back.
	UpdateProfile(ctx context.Context, userID snowflake.ID, req UpdateProfileRequest) (*Profile, error)
}

type RegisterRequest struct {
	Username       string
	Email          string
	FirstName      string
	LastName       string
	Password       string
	ClientType     ClientType
	ContractNumber string
	TariffID       string
}

type UpdateProfileRequest struct {
	Email          *string
	FirstName      *string
	LastName       *string
	ClientType     *ClientType
	ContractNumber *string
	TariffID       *string
}

// Profile bundles a user with its client record for the profile view.
type Profile struct {
	User   authdomain.User `json:"user"`
	Client Client          `json:"client"`
}

var (
	ErrClientNotFound        = errors.New("client_not_found")
	ErrUserNotFound          = errors.New("user_not_found")
	ErrInvalidUsername       = errors.New("invalid_username")
	ErrUsernameTaken         = errors.New("username_taken")
	ErrInvalidPassword       = errors.New("invalid_password")
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrInvalidClientType     = errors.New("invalid_client_type")
	ErrMissingContractNumber = errors.New("missing_contract_number")
	ErrContractNumberTaken   = errors.New("contract_number_taken")
	ErrInvalidTariff         = errors.New("invalid_tariff")
	ErrTariffNotAvailable    = errors.New("tariff_not_available")
)
