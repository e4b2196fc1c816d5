// Package credentials persists the session token and the cached user record
// in the local metadata store so a restarted client can resume its session
// without a network round trip.
package credentials

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/obyektivka/internal/common"
	"github.com/dmitrijs2005/obyektivka/internal/cryptox"
	"github.com/dmitrijs2005/obyektivka/internal/dbx"
)

const (
	saltKey  = "seal_salt"
	saltSize = 16
)

var sealedPrefix = []byte("sealed:v1:")

// Credentials is what Load returns. Both fields are empty when nothing is stored.
type Credentials struct {
	Token string
	User  *models.User
}

// Complete reports whether both the token and the user are present.
func (c Credentials) Complete() bool {
	return c.Token != "" && c.User != nil
}

// Store reads and writes the two credential keys.
type Store struct {
	db   *sql.DB
	repo metadata.Repository
	key  []byte
}

// NewStore returns a store that keeps values in plain form.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repo: metadata.NewSQLiteRepository(db)}
}

// NewSealedStore returns a store that encrypts values at rest with a key
// derived from passphrase. The salt is created on first use and kept in the
// metadata table. An empty passphrase yields a plain store.
func NewSealedStore(ctx context.Context, db *sql.DB, passphrase []byte) (*Store, error) {
	s := NewStore(db)
	if len(passphrase) == 0 {
		return s, nil
	}

	salt, err := s.repo.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(saltSize)
		if err := s.repo.Set(ctx, saltKey, salt); err != nil {
			return nil, err
		}
	}

	s.key = cryptox.DeriveKey(passphrase, salt)
	return s, nil
}

// Sealed reports whether values are encrypted at rest.
func (s *Store) Sealed() bool {
	return s.key != nil
}

// Load reads the persisted credentials.
func (s *Store) Load(ctx context.Context) (Credentials, error) {
	var c Credentials

	token, err := s.get(ctx, common.TokenMetadataKey)
	if err != nil {
		return c, err
	}
	c.Token = string(token)

	raw, err := s.get(ctx, common.UserMetadataKey)
	if err != nil {
		return c, err
	}
	if raw != nil {
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return c, fmt.Errorf("decode stored user: %w", err)
		}
		c.User = &u
	}
	return c, nil
}

// Save writes the token and the user in one transaction.
func (s *Store) Save(ctx context.Context, token string, user models.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	sealedToken, err := s.seal([]byte(token))
	if err != nil {
		return err
	}
	sealedUser, err := s.seal(userJSON)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.TokenMetadataKey, sealedToken); err != nil {
			return err
		}
		return repo.Set(ctx, common.UserMetadataKey, sealedUser)
	})
}

// SaveUser replaces the stored user and leaves the token alone.
func (s *Store) SaveUser(ctx context.Context, user models.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	sealed, err := s.seal(userJSON)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, common.UserMetadataKey, sealed)
}

// Clear removes both keys.
func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, common.TokenMetadataKey, common.UserMetadataKey)
}

// HasToken reports whether a token is persisted.
func (s *Store) HasToken(ctx context.Context) (bool, error) {
	v, err := s.repo.Get(ctx, common.TokenMetadataKey)
	if err != nil {
		return false, err
	}
	return len(v) > 0, nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.repo.Get(ctx, key)
	if err != nil || v == nil {
		return v, err
	}
	return s.open(v)
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	if s.key == nil {
		return plain, nil
	}
	ct, err := cryptox.Seal(plain, s.key)
	if err != nil {
		return nil, fmt.Errorf("seal credentials: %w", err)
	}
	return append(bytes.Clone(sealedPrefix), ct...), nil
}

func (s *Store) open(v []byte) ([]byte, error) {
	if !bytes.HasPrefix(v, sealedPrefix) {
		return v, nil
	}
	if s.key == nil {
		return nil, common.ErrSealedValue
	}
	plain, err := cryptox.Open(v[len(sealedPrefix):], s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSealedValue, err)
	}
	return plain, nil
}
