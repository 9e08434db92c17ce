package repositories

import (
	"context"
	"errors"
	"votuna/internal/constants"
	"votuna/internal/database"
	. "votuna/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	// GetByID serves from the user cache. Provider tokens are never cached, so
	// callers that need to talk to the provider use GetWithCredentials.
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error)
	GetWithCredentials(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*User, error)
	Create(ctx context.Context, tx *gorm.DB, user *User) error
	ClearUserCache(ctx context.Context, id uuid.UUID)
}

type userRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewUserRepository(cache database.CacheClient) UserRepository {
	return &userRepository{
		cache: cache,
		log:   logger.New("userRepository"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*User, error) {
	log := r.log.Function("GetByID")

	if r.cache != nil {
		var cached User
		found, err := database.NewCacheBuilder(r.cache, id).
			WithContext(ctx).
			WithHash(constants.UserCachePrefix).
			Get(&cached)
		if err != nil {
			log.Warn("failed to get user from cache", "userID", id, "error", err)
		}
		if found {
			return &cached, nil
		}
	}

	user, err := r.GetWithCredentials(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		err = database.NewCacheBuilder(r.cache, id).
			WithContext(ctx).
			WithHash(constants.UserCachePrefix).
			WithStruct(user).
			WithTTL(constants.UserCacheExpiry).
			Set()
		if err != nil {
			log.Warn("failed to add user to cache", "userID", id, "error", err)
		}
	}

	return user, nil
}

func (r *userRepository) GetWithCredentials(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
) (*User, error) {
	log := r.log.Function("GetWithCredentials")

	user, err := gorm.G[User](tx).Where("id = ?", id).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, log.Err("failed to get user", err, "userID", id)
	}

	return &user, nil
}

func (r *userRepository) GetByIDs(
	ctx context.Context,
	tx *gorm.DB,
	ids []uuid.UUID,
) (map[uuid.UUID]*User, error) {
	log := r.log.Function("GetByIDs")

	result := make(map[uuid.UUID]*User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	users, err := gorm.G[User](tx).Where("id IN ?", ids).Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get users", err, "count", len(ids))
	}

	for i := range users {
		result[users[i].ID] = &users[i]
	}

	return result, nil
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *User) error {
	log := r.log.Function("Create")

	if err := gorm.G[User](tx).Create(ctx, user); err != nil {
		return log.Err("failed to create user", err, "providerUserID", user.ProviderUserID)
	}

	return nil
}

func (r *userRepository) ClearUserCache(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}

	err := database.NewCacheBuilder(r.cache, id).
		WithContext(ctx).
		WithHash(constants.UserCachePrefix).
		Delete()
	if err != nil {
		r.log.Function("ClearUserCache").Warn("failed to clear user cache", "userID", id, "error", err)
	}
}
