package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

const (
	MsgProfileUpdated  = "Perfil actualizado exitosamente"
	MsgAvatarUpdated   = "Avatar actualizado exitosamente"
	MsgAddressAdded    = "Dirección agregada exitosamente"
	MsgAddressUpdated  = "Dirección actualizada exitosamente"
	MsgAddressRemoved  = "Dirección eliminada exitosamente"
	MsgAddressNotFound = "Dirección no encontrada"
	MsgStorageDisabled = "Almacenamiento de archivos no configurado"
	msgUpdateFailed    = "Error al actualizar usuario"
	msgUploadFailed    = "Error al subir avatar"
	msgSearchFailed    = "Error al buscar usuarios"
	defaultSearchSize  = 10
	maxSearchSize      = 50
	avatarObjectPrefix = "avatars"
)

type UserService struct {
	Repo         repo.UserRepository
	GCS          *storage.Client
	GCSBucket    string
	ES           *elasticsearch.Client
	ESUsersIndex string
	Logger       *logrus.Logger
}

func NewUserService(r repo.UserRepository, gcs *storage.Client, gcsBucket string, es *elasticsearch.Client, esUsersIndex string, logger *logrus.Logger) *UserService {
	return &UserService{
		Repo:         r,
		GCS:          gcs,
		GCSBucket:    gcsBucket,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		Logger:       logger,
	}
}

type UpdateProfileInput struct {
	Name   *string
	Avatar *string
}

type AddressInput struct {
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
	IsDefault bool
}

func (in AddressInput) toEntity(id string) entity.Address {
	return entity.Address{
		ID:        id,
		Street:    strings.TrimSpace(in.Street),
		City:      strings.TrimSpace(in.City),
		State:     strings.TrimSpace(in.State),
		ZipCode:   strings.TrimSpace(in.ZipCode),
		Country:   strings.TrimSpace(in.Country),
		IsDefault: in.IsDefault,
	}
}

func (s *UserService) load(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, apperror.Internal(msgUpdateFailed, err)
	}
	return u, nil
}

func (s *UserService) save(ctx context.Context, u *entity.User) error {
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.NotFound(MsgUserNotFound)
		}
		return apperror.Internal(msgUpdateFailed, err)
	}
	if err := s.IndexUser(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
	return nil
}

// UpdateProfile changes name and avatar reference. Nil fields are left as they are;
// an empty avatar string clears it.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*UserProfile, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Avatar != nil {
		if v := strings.TrimSpace(*in.Avatar); v != "" {
			u.Avatar = &v
		} else {
			u.Avatar = nil
		}
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	p := NewUserProfile(u)
	return &p, nil
}

func (s *UserService) AddAddress(ctx context.Context, userID string, in AddressInput) ([]AddressView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	// the store assigns the new address ID during save
	u.AddAddress(in.toEntity(""))
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return NewAddressViews(u.Addresses), nil
}

func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID string, in AddressInput) ([]AddressView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.UpdateAddress(in.toEntity(addressID)) {
		return nil, apperror.NotFound(MsgAddressNotFound)
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return NewAddressViews(u.Addresses), nil
}

func (s *UserService) RemoveAddress(ctx context.Context, userID, addressID string) ([]AddressView, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.RemoveAddress(addressID) {
		return nil, apperror.NotFound(MsgAddressNotFound)
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return NewAddressViews(u.Addresses), nil
}

// UploadAvatar stores r in GCS under avatars/<userID>/ and points the profile at it.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", apperror.Unavailable(MsgStorageDisabled)
	}
	u, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join(avatarObjectPrefix, userID, uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", apperror.Internal(msgUploadFailed, err)
	}

	var previous string
	if u.Avatar != nil {
		previous = *u.Avatar
	}
	u.Avatar = &url
	if err := s.save(ctx, u); err != nil {
		return "", err
	}
	s.deleteStoredAvatar(ctx, userID, previous)
	return url, nil
}

// deleteStoredAvatar removes a replaced avatar when it lives in our bucket.
// External avatar URLs are left alone.
func (s *UserService) deleteStoredAvatar(ctx context.Context, userID, url string) {
	objectPath, ok := helpers.ObjectPathFromURL(s.GCSBucket, url)
	if !ok || !strings.HasPrefix(objectPath, avatarObjectPrefix+"/"+userID+"/") {
		return
	}
	if err := helpers.DeleteObject(ctx, s.GCS, s.GCSBucket, objectPath); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("old avatar delete failed")
	}
}

// IndexUser upserts the searchable part of u. It is a no-op without Elasticsearch.
func (s *UserService) IndexUser(ctx context.Context, u *entity.User) error {
	if s == nil || s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.Name,
		"role":       u.Role.String(),
		"avatar":     u.Avatar,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	return helpers.ESIndexDocument(ctx, s.ES, s.ESUsersIndex, u.ID, doc)
}

// SearchUsers performs a multi_match on email and name.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  strings.TrimSpace(q),
				"fields": []string{"email^2", "name"},
			},
		},
		"size": size,
	}
	hits, err := helpers.ESSearchSources(ctx, s.ES, s.ESUsersIndex, query)
	if err != nil {
		return nil, apperror.Internal(msgSearchFailed, err)
	}
	return hits, nil
}

var _ UserIndexer = (*UserService)(nil)
