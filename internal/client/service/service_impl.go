package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallgrid/voltera/internal/auth/domain"
	"github.com/smallgrid/voltera/internal/auth/password"
	clientdomain "github.com/smallgrid/voltera/internal/client/domain"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

func NewService(p Params) clientdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
	}
}

func (s *Service) Register(ctx context.Context, req clientdomain.RegisterRequest) (*clientdomain.Profile, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, clientdomain.ErrInvalidUsername
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, clientdomain.ErrInvalidPassword
	}
	if !req.ClientType.Valid() {
		return nil, clientdomain.ErrInvalidClientType
	}
	contractNumber := strings.TrimSpace(req.ContractNumber)
	if contractNumber == "" {
		return nil, clientdomain.ErrMissingContractNumber
	}

	tariffID, err := snowflake.ParseString(strings.TrimSpace(req.TariffID))
	if err != nil || tariffID == 0 {
		return nil, clientdomain.ErrInvalidTariff
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var profile clientdomain.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Hidden tariffs are not offered to new signups.
		var tariff tariffdomain.Tariff
		if err := tx.Where("id = ? AND is_hidden = false", tariffID).First(&tariff).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return clientdomain.ErrTariffNotAvailable
			}
			return err
		}

		var count int64
		if err := tx.Model(&authdomain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return clientdomain.ErrUsernameTaken
		}

		if err := tx.Model(&clientdomain.Client{}).Where("contract_number = ?", contractNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return clientdomain.ErrContractNumberTaken
		}

		now := time.Now().UTC()
		user := authdomain.User{
			ID:           s.genID.Generate(),
			Username:     username,
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			PasswordHash: hashed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		client := clientdomain.Client{
			ID:             s.genID.Generate(),
			UserID:         user.ID,
			ClientType:     req.ClientType,
			TariffID:       &tariffID,
			ContractNumber: contractNumber,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}

		client.Tariff = &tariff
		profile = clientdomain.Profile{User: user, Client: client}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("client registered",
		zap.String("username", username),
		zap.String("client_id", profile.Client.ID.String()),
	)
	return &profile, nil
}

func (s *Service) Login(ctx context.Context, username, pass string) (*authdomain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || pass == "" {
		return nil, clientdomain.ErrInvalidCredentials
	}

	var user authdomain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clientdomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(pass, user.PasswordHash) {
		return nil, clientdomain.ErrInvalidCredentials
	}
	return &user, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID snowflake.ID) (*clientdomain.Client, error) {
	var client clientdomain.Client
	err := s.db.WithContext(ctx).
		Preload("Tariff").
		Where("user_id = ?", userID).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clientdomain.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *Service) GetProfile(ctx context.Context, username string) (*clientdomain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, clientdomain.ErrInvalidUsername
	}

	var user authdomain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clientdomain.ErrUserNotFound
		}
		return nil, err
	}

	client, err := s.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &clientdomain.Profile{User: user, Client: *client}, nil
}

// UpdateProfile applies user and client changes in a single transaction
// so a failure midway never leaves the two records inconsistent.
func (s *Service) UpdateProfile(ctx context.Context, userID snowflake.ID, req clientdomain.UpdateProfileRequest) (*clientdomain.Profile, error) {
	var profile clientdomain.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return clientdomain.ErrUserNotFound
			}
			return err
		}

		var client clientdomain.Client
		if err := tx.Where("user_id = ?", userID).First(&client).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return clientdomain.ErrClientNotFound
			}
			return err
		}

		if req.Email != nil {
			user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.FirstName != nil {
			user.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			user.LastName = strings.TrimSpace(*req.LastName)
		}

		if req.ClientType != nil {
			if !req.ClientType.Valid() {
				return clientdomain.ErrInvalidClientType
			}
			client.ClientType = *req.ClientType
		}
		if req.ContractNumber != nil {
			next := strings.TrimSpace(*req.ContractNumber)
			if next == "" {
				return clientdomain.ErrMissingContractNumber
			}
			var count int64
			if err := tx.Model(&clientdomain.Client{}).
				Where("contract_number = ? AND id <> ?", next, client.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return clientdomain.ErrContractNumberTaken
			}
			client.ContractNumber = next
		}
		if req.TariffID != nil {
			raw := strings.TrimSpace(*req.TariffID)
			if raw == "" {
				client.TariffID = nil
			} else {
				tariffID, err := snowflake.ParseString(raw)
				if err != nil || tariffID == 0 {
					return clientdomain.ErrInvalidTariff
				}
				// Existing clients may keep or choose hidden tariffs.
				var count int64
				if err := tx.Model(&tariffdomain.Tariff{}).Where("id = ?", tariffID).Count(&count).Error; err != nil {
					return err
				}
				if count == 0 {
					return clientdomain.ErrInvalidTariff
				}
				client.TariffID = &tariffID
			}
		}

		now := time.Now().UTC()
		user.UpdatedAt = now
		client.UpdatedAt = now

		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		if err := tx.Save(&client).Error; err != nil {
			return err
		}

		profile = clientdomain.Profile{User: user, Client: client}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if profile.Client.TariffID != nil {
		var tariff tariffdomain.Tariff
		if err := s.db.WithContext(ctx).Where("id = ?", *profile.Client.TariffID).First(&tariff).Error; err == nil {
			profile.Client.Tariff = &tariff
		}
	}

	return &profile, nil
}
