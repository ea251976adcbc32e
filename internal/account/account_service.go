package account

import (
	"context"
	"errors"
	"strings"

	"shipdesk/db"
	"shipdesk/internal/validation"
	"shipdesk/models"
)

var (
	ErrInvalidNumber = errors.New("account number must be at least 9 digits")
	ErrDuplicate     = errors.New("account number already saved")
	ErrNotFound      = errors.New("account not found")
)

// AccountService manages the carrier account numbers an operator bills against
type AccountService struct {
	repo      db.AccountRepository
	dbManager *db.DBManager
}

func NewAccountService(repo db.AccountRepository, dbManager *db.DBManager) *AccountService {
	return &AccountService{repo: repo, dbManager: dbManager}
}

func (s *AccountService) FindAll(ctx context.Context, username string) ([]*models.Account, error) {
	return s.repo.FindAllByUsername(ctx, username)
}

// Exists reports whether the operator saved number
func (s *AccountService) Exists(ctx context.Context, username, number string) (bool, error) {
	_, err := s.repo.FindByNumber(ctx, username, number)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *AccountService) Add(ctx context.Context, username, number, label string) (*models.Account, error) {
	number = strings.TrimSpace(number)
	if !validation.ValidAccountNumber(number) {
		return nil, ErrInvalidNumber
	}

	account := &models.Account{
		Username: username,
		Number:   number,
		Label:    strings.TrimSpace(label),
	}
	err := s.dbManager.CreateAccount(s.repo, ctx, account)
	if errors.Is(err, db.ErrDuplicate) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) Remove(ctx context.Context, username, number string) error {
	err := s.dbManager.DeleteAccount(s.repo, ctx, username, strings.TrimSpace(number))
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
