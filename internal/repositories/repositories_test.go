package repositories_test

import (
	"context"
	"fmt"
	"testing"

	"estoque/internal/models"
	"estoque/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoPair struct {
	products repositories.ProductRepository
	users    repositories.UserRepository
}

func newSQLiteRepos(t *testing.T) repoPair {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenGORM("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repoPair{
		products: repositories.NewGORMProductRepository(db),
		users:    repositories.NewGORMUserRepository(db),
	}
}

func newMemoryRepos(t *testing.T) repoPair {
	t.Helper()
	return repoPair{
		products: repositories.NewMemoryProductRepository(),
		users:    repositories.NewMemoryUserRepository(),
	}
}

var backends = map[string]func(t *testing.T) repoPair{
	"sqlite": newSQLiteRepos,
	"memory": newMemoryRepos,
}

func TestOpenGORM_UnsupportedDriver(t *testing.T) {
	_, err := repositories.OpenGORM("oracle", "whatever")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported gorm driver")
}

func TestProductRepository_CreateAndFind(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			repo := setup(t).products
			ctx := context.Background()

			p := &models.Product{Name: "Mouse", Quantity: 3}
			require.NoError(t, repo.Create(ctx, p))
			assert.NotEmpty(t, p.ID)

			found, err := repo.FindByName(ctx, "Mouse")
			require.NoError(t, err)
			assert.Equal(t, p.ID, found.ID)
			assert.Equal(t, 3, found.Quantity)

			byID, err := repo.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, "Mouse", byID.Name)

			_, err = repo.FindByName(ctx, "Teclado")
			assert.ErrorIs(t, err, repositories.ErrNotFound)

			_, err = repo.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

func TestProductRepository_CreateDuplicateName(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			repo := setup(t).products
			ctx := context.Background()

			require.NoError(t, repo.Create(ctx, &models.Product{Name: "Mouse", Quantity: 3}))
			err := repo.Create(ctx, &models.Product{Name: "Mouse", Quantity: 7})
			assert.ErrorIs(t, err, repositories.ErrDuplicate)
		})
	}
}

func TestProductRepository_ListFiltersAndPages(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			repo := setup(t).products
			ctx := context.Background()

			for _, p := range []models.Product{
				{Name: "Mouse", Quantity: 3},
				{Name: "Mousepad", Quantity: 20},
				{Name: "Teclado", Quantity: 12},
				{Name: "Monitor", Quantity: 1},
				{Name: "100%_algodao", Quantity: 4},
			} {
				p := p
				require.NoError(t, repo.Create(ctx, &p))
			}

			all, err := repo.List(ctx, models.ProductFilter{Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, all, 5)

			byName, err := repo.List(ctx, models.ProductFilter{Name: "mou", Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"Mouse", "Mousepad"}, names(byName))

			byQty, err := repo.List(ctx, models.ProductFilter{MinQuantity: 10, Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"Mousepad", "Teclado"}, names(byQty))

			literal, err := repo.List(ctx, models.ProductFilter{Name: "0%_", Page: 1, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, []string{"100%_algodao"}, names(literal))

			first, err := repo.List(ctx, models.ProductFilter{Page: 1, Limit: 2})
			require.NoError(t, err)
			assert.Len(t, first, 2)
			third, err := repo.List(ctx, models.ProductFilter{Page: 3, Limit: 2})
			require.NoError(t, err)
			assert.Len(t, third, 1)
			beyond, err := repo.List(ctx, models.ProductFilter{Page: 9, Limit: 2})
			require.NoError(t, err)
			assert.Empty(t, beyond)
			overflow, err := repo.List(ctx, models.ProductFilter{Page: 4611686018427387904, Limit: 4})
			require.NoError(t, err)
			assert.Empty(t, overflow)
		})
	}
}

func TestProductRepository_UpdateAndDelete(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			repo := setup(t).products
			ctx := context.Background()

			p := &models.Product{Name: "Mouse", Quantity: 3}
			require.NoError(t, repo.Create(ctx, p))
			require.NoError(t, repo.Create(ctx, &models.Product{Name: "Teclado", Quantity: 8}))

			n, err := repo.Update(ctx, p.ID, models.ProductInput{Name: "Mouse", Quantity: 10})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			updated, err := repo.GetByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, 10, updated.Quantity)

			_, err = repo.Update(ctx, p.ID, models.ProductInput{Name: "Teclado", Quantity: 1})
			assert.ErrorIs(t, err, repositories.ErrDuplicate)

			n, err = repo.Update(ctx, "missing", models.ProductInput{Name: "Nada", Quantity: 1})
			require.NoError(t, err)
			assert.Equal(t, int64(0), n)

			n, err = repo.Delete(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			_, err = repo.GetByID(ctx, p.ID)
			assert.ErrorIs(t, err, repositories.ErrNotFound)

			n, err = repo.Delete(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(0), n)
		})
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	for name, setup := range backends {
		t.Run(name, func(t *testing.T) {
			repo := setup(t).users
			ctx := context.Background()

			u := &models.User{Username: "fabio", Password: "$2a$10$hash"}
			require.NoError(t, repo.Create(ctx, u))
			assert.NotEmpty(t, u.ID)

			found, err := repo.FindByUsername(ctx, "fabio")
			require.NoError(t, err)
			assert.Equal(t, u.ID, found.ID)
			assert.Equal(t, "$2a$10$hash", found.Password)

			err = repo.Create(ctx, &models.User{Username: "fabio", Password: "x"})
			assert.ErrorIs(t, err, repositories.ErrDuplicate)

			_, err = repo.FindByUsername(ctx, "ninguem")
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

func names(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}
