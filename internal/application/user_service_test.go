package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	"github.com/oksasatya/go-ecommerce-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-ecommerce-auth/pkg/apperror"
	"github.com/oksasatya/go-ecommerce-auth/pkg/helpers"
)

func newUserService(t *testing.T) (*UserService, string) {
	t.Helper()
	r := memory.NewUserRepository()
	u := entity.NewUser("Ana", "ana@x.com", "hash")
	require.NoError(t, r.Create(context.Background(), u))
	return NewUserService(r, nil, "", nil, "", helpers.NewDiscardLogger()), u.ID
}

func strPtr(s string) *string { return &s }

func TestUserService_UpdateProfile(t *testing.T) {
	svc, id := newUserService(t)
	ctx := context.Background()

	p, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{Name: strPtr("  Ana María "), Avatar: strPtr("https://cdn/a.png")})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", p.Name)
	require.NotNil(t, p.Avatar)

	p, err = svc.UpdateProfile(ctx, id, UpdateProfileInput{Avatar: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", p.Name)
	assert.Nil(t, p.Avatar)

	_, err = svc.UpdateProfile(ctx, "ghost", UpdateProfileInput{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUserService_Addresses(t *testing.T) {
	svc, id := newUserService(t)
	ctx := context.Background()

	list, err := svc.AddAddress(ctx, id, AddressInput{Street: "Calle 1", City: "Puebla", State: "Puebla", ZipCode: "72000"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, entity.DefaultCountry, list[0].Country)

	list, err = svc.AddAddress(ctx, id, AddressInput{Street: "Calle 2", City: "CDMX", State: "CDMX", ZipCode: "06000", IsDefault: true})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].IsDefault)
	assert.True(t, list[1].IsDefault)

	list, err = svc.UpdateAddress(ctx, id, list[0].ID, AddressInput{Street: "Calle 1B", City: "Puebla", State: "Puebla", ZipCode: "72000"})
	require.NoError(t, err)
	assert.Equal(t, "Calle 1B", list[0].Street)

	list, err = svc.RemoveAddress(ctx, id, list[1].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault, "default moves to the remaining address")

	_, err = svc.RemoveAddress(ctx, id, "missing")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = svc.UpdateAddress(ctx, id, "missing", AddressInput{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUserService_OptionalBackends(t *testing.T) {
	svc, id := newUserService(t)
	ctx := context.Background()

	hits, err := svc.SearchUsers(ctx, "ana", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = svc.UploadAvatar(ctx, id, strings.NewReader("png"), "a.png", "image/png")
	require.True(t, apperror.Is(err, apperror.KindUnavailable))
	assert.Equal(t, MsgStorageDisabled, apperror.As(err).Message)

	var nilSvc *UserService
	assert.NoError(t, nilSvc.IndexUser(ctx, entity.NewUser("x", "x@x.com", "")))
}

func TestUserService_AddAddressReturnsStoredID(t *testing.T) {
	svc, id := newUserService(t)
	ctx := context.Background()

	list, err := svc.AddAddress(ctx, id, AddressInput{Street: "Calle 1", City: "Puebla", State: "Puebla", ZipCode: "72000"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotEmpty(t, list[0].ID)

	stored, err := svc.Repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored.Addresses, 1)
	assert.Equal(t, list[0].ID, stored.Addresses[0].ID)

	list, err = svc.RemoveAddress(ctx, id, list[0].ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
