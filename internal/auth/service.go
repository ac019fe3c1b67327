// Package auth registers users, checks passwords and issues sessions.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/onepuzle/puzle-ai/internal/chat"
	"github.com/onepuzle/puzle-ai/internal/common"
)

const MinPasswordLen = 6

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrWeakPassword    = errors.New("weak password")
	ErrUsernameTaken   = chat.ErrUsernameTaken
	ErrBadCredentials  = errors.New("bad credentials")
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

type Users interface {
	CreateUser(ctx context.Context, u *chat.User) error
	GetUserByUsername(ctx context.Context, username string) (*chat.User, error)
	GetUserByID(ctx context.Context, id uint64) (*chat.User, error)
}

type Service struct {
	users Users
}

func NewService(users Users) *Service {
	return &Service{users: users}
}

// NormalizeUsername validates the username and lower-cases it.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return "", common.E(common.KindValidation, "Kullanıcı adı 3-20 karakter olmalı; sadece harf, rakam ve _ içerebilir.", ErrInvalidUsername)
	}
	return strings.ToLower(username), nil
}

func (s *Service) Register(ctx context.Context, username, password string) (*chat.User, error) {
	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return nil, common.E(common.KindValidation, "Şifre en az 6 karakter olmalı.", ErrWeakPassword)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, common.E(common.KindInternal, "Sunucu hatası oluştu.", err)
	}

	u := &chat.User{Username: name, PassHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, chat.ErrUsernameTaken) {
			return nil, common.E(common.KindConflict, "Bu kullanıcı adı alınmış.", ErrUsernameTaken)
		}
		return nil, common.E(common.KindPersistence, "Sunucu hatası oluştu.", err)
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*chat.User, error) {
	bad := common.E(common.KindUnauthorized, "Kullanıcı adı veya şifre hatalı.", ErrBadCredentials)

	name, err := NormalizeUsername(username)
	if err != nil {
		return nil, bad
	}
	u, err := s.users.GetUserByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bad
		}
		return nil, common.E(common.KindPersistence, "Sunucu hatası oluştu.", err)
	}
	if !CheckPassword(u.PassHash, password) {
		return nil, bad
	}
	return u, nil
}

func (s *Service) User(ctx context.Context, id uint64) (*chat.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.E(common.KindUnauthorized, "Oturum geçersiz.", err)
		}
		return nil, common.E(common.KindPersistence, "Sunucu hatası oluştu.", err)
	}
	return u, nil
}
