package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oksasatya/go-ecommerce-auth/internal/domain/entity"
	"github.com/oksasatya/go-ecommerce-auth/internal/domain/repository"
)

const usersCollection = "users"

type userDocument struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty"`
	Name                   string             `bson:"name"`
	Email                  string             `bson:"email"`
	PasswordHash           string             `bson:"passwordHash,omitempty"`
	Role                   string             `bson:"role"`
	Avatar                 *string            `bson:"avatar,omitempty"`
	Addresses              []addressDocument  `bson:"addresses"`
	IsActive               bool               `bson:"isActive"`
	EmailVerified          bool               `bson:"emailVerified"`
	ResetPasswordTokenHash *string            `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpiresAt *time.Time         `bson:"resetPasswordExpires,omitempty"`
	LastLoginAt            *time.Time         `bson:"lastLogin,omitempty"`
	PasswordChangedAt      *time.Time         `bson:"passwordChangedAt,omitempty"`
	CreatedAt              time.Time          `bson:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt"`
}

type addressDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Street    string             `bson:"street"`
	City      string             `bson:"city"`
	State     string             `bson:"state"`
	ZipCode   string             `bson:"zipCode"`
	Country   string             `bson:"country"`
	IsDefault bool               `bson:"isDefault"`
}

func toDocument(u *entity.User) userDocument {
	doc := userDocument{
		Name:                   u.Name,
		Email:                  entity.NormalizeEmail(u.Email),
		PasswordHash:           u.PasswordHash,
		Role:                   string(u.Role),
		Avatar:                 u.Avatar,
		Addresses:              make([]addressDocument, 0, len(u.Addresses)),
		IsActive:               u.IsActive,
		EmailVerified:          u.EmailVerified,
		ResetPasswordTokenHash: u.ResetPasswordTokenHash,
		ResetPasswordExpiresAt: u.ResetPasswordExpiresAt,
		LastLoginAt:            u.LastLoginAt,
		PasswordChangedAt:      u.PasswordChangedAt,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
		doc.ID = oid
	}
	for _, a := range u.Addresses {
		aid, _ := primitive.ObjectIDFromHex(a.ID)
		doc.Addresses = append(doc.Addresses, addressDocument{
			ID: aid, Street: a.Street, City: a.City, State: a.State,
			ZipCode: a.ZipCode, Country: a.Country, IsDefault: a.IsDefault,
		})
	}
	return doc
}

func (d userDocument) toEntity() *entity.User {
	u := &entity.User{
		ID:                     d.ID.Hex(),
		Name:                   d.Name,
		Email:                  d.Email,
		PasswordHash:           d.PasswordHash,
		Role:                   entity.Role(d.Role),
		Avatar:                 d.Avatar,
		Addresses:              make([]entity.Address, 0, len(d.Addresses)),
		IsActive:               d.IsActive,
		EmailVerified:          d.EmailVerified,
		ResetPasswordTokenHash: d.ResetPasswordTokenHash,
		ResetPasswordExpiresAt: d.ResetPasswordExpiresAt,
		LastLoginAt:            d.LastLoginAt,
		PasswordChangedAt:      d.PasswordChangedAt,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
	for _, a := range d.Addresses {
		u.Addresses = append(u.Addresses, entity.Address{
			ID: a.ID.Hex(), Street: a.Street, City: a.City, State: a.State,
			ZipCode: a.ZipCode, Country: a.Country, IsDefault: a.IsDefault,
		})
	}
	return u
}

// assignAddressIDs replaces missing or foreign address IDs with ObjectIDs in
// place, so the caller holds exactly what was stored.
func assignAddressIDs(addrs []entity.Address) {
	for i := range addrs {
		if !primitive.IsValidObjectID(addrs[i].ID) {
			addrs[i].ID = primitive.NewObjectID().Hex()
		}
	}
}

// projection hides credential fields that were not selected.
func projection(mask repository.Select) bson.M {
	p := bson.M{}
	if !mask.Has(repository.SelectPassword) {
		p["passwordHash"] = 0
	}
	if !mask.Has(repository.SelectResetToken) {
		p["resetPasswordToken"] = 0
		p["resetPasswordExpires"] = 0
	}
	return p
}

type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection), now: time.Now}
}

// EnsureIndexes creates the unique email index and the sparse reset-token index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true).SetName("reset_token")},
	})
	return err
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	now := r.now().UTC()
	u.Email = entity.NormalizeEmail(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = entity.RoleUser
	}
	assignAddressIDs(u.Addresses)
	doc := toDocument(u)
	doc.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailTaken
		}
		return err
	}
	u.ID = doc.ID.Hex()
	if u.Addresses == nil {
		u.Addresses = []entity.Address{}
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, mask repository.Select) (*entity.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetProjection(projection(mask))).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toEntity(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string, sel ...repository.Select) (*entity.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, repository.Merge(sel))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, sel ...repository.Select) (*entity.User, error) {
	return r.findOne(ctx, bson.M{"email": entity.NormalizeEmail(email)}, repository.Merge(sel))
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, hash string, now time.Time) (*entity.User, error) {
	return r.findOne(ctx, bson.M{
		"resetPasswordToken":   hash,
		"resetPasswordExpires": bson.M{"$gt": now},
	}, repository.SelectResetToken)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return repository.ErrNotFound
	}
	u.Email = entity.NormalizeEmail(u.Email)
	u.UpdatedAt = r.now().UTC()
	assignAddressIDs(u.Addresses)
	doc := toDocument(u)

	set := bson.M{
		"name":          doc.Name,
		"email":         doc.Email,
		"role":          doc.Role,
		"addresses":     doc.Addresses,
		"isActive":      doc.IsActive,
		"emailVerified": doc.EmailVerified,
		"updatedAt":     doc.UpdatedAt,
	}
	unset := bson.M{}
	if doc.Avatar != nil {
		set["avatar"] = *doc.Avatar
	} else {
		unset["avatar"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrEmailTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"lastLogin": at,
		"updatedAt": r.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func passwordUpdate(hash string, changedAt, now time.Time) bson.M {
	return bson.M{
		"$set":   bson.M{"passwordHash": hash, "passwordChangedAt": changedAt, "updatedAt": now},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
	}
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, passwordUpdate(hash, changedAt, r.now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"resetPasswordToken":   hash,
		"resetPasswordExpires": expiresAt,
		"updatedAt":            r.now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConsumeResetToken filters on the stored digest so only one concurrent reset can match.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, newHash string, changedAt time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "resetPasswordToken": tokenHash},
		passwordUpdate(newHash, changedAt, r.now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrResetTokenMismatch
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
