package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch はパスワードがハッシュと一致しないことを表す。
var ErrPasswordMismatch = errors.New("パスワードが一致しません")

// PasswordHasher はパスワードのハッシュ化と照合を行う。
type PasswordHasher interface {
	// Hash は平文パスワードのハッシュを返す。
	Hash(password string) (string, error)
	// Compare はハッシュと平文を照合する。一致しない場合はErrPasswordMismatchを返す。
	Compare(hashed, password string) error
}

// BcryptHasher はbcryptによるPasswordHasherの実装。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher は新しいBcryptHasherを生成する。
// costが範囲外の場合はbcrypt.DefaultCostを使う。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash はパスワードをbcryptでハッシュ化する。
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return string(hashed), nil
}

// Compare はbcryptハッシュと平文パスワードを照合する。
func (h *BcryptHasher) Compare(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("パスワードの照合に失敗: %w", err)
	}
	return nil
}
