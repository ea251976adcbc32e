package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdesk/internal/testutils"
)

func newTestService(t *testing.T) *AccountService {
	factory := testutils.SetupTestRepositoryFactory(t)
	return NewAccountService(factory.NewAccountRepository(), testutils.SetupTestDBManager(t))
}

func TestAccountService_Add(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	account, err := s.Add(ctx, "ada", " 706065602 ", " Main ")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "706065602", account.Number)
	assert.Equal(t, "Main", account.Label)

	_, err = s.Add(ctx, "ada", "706065602", "")
	assert.ErrorIs(t, err, ErrDuplicate)

	// another operator may save the same number
	_, err = s.Add(ctx, "bob", "706065602", "")
	assert.NoError(t, err)

	for _, number := range []string{"", "12345", "70606560A", "706 065 602"} {
		_, err = s.Add(ctx, "ada", number, "")
		assert.ErrorIs(t, err, ErrInvalidNumber, number)
	}
}

func TestAccountService_FindAllAndExists(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	accounts, err := s.FindAll(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = s.Add(ctx, "ada", "706065602", "")
	require.NoError(t, err)
	_, err = s.Add(ctx, "ada", "800000001", "")
	require.NoError(t, err)
	_, err = s.Add(ctx, "bob", "900000009", "")
	require.NoError(t, err)

	accounts, err = s.FindAll(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.Equal(t, "ada", a.Username)
	}

	ok, err := s.Exists(ctx, "ada", "800000001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "ada", "900000009")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountService_Remove(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	_, err := s.Add(ctx, "ada", "706065602", "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Remove(ctx, "bob", "706065602"), ErrNotFound)
	require.NoError(t, s.Remove(ctx, "ada", " 706065602"))
	assert.ErrorIs(t, s.Remove(ctx, "ada", "706065602"), ErrNotFound)

	ok, err := s.Exists(ctx, "ada", "706065602")
	require.NoError(t, err)
	assert.False(t, ok)
}
