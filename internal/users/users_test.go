package users_test

import (
	"bugpilot/internal/database/memory"
	"bugpilot/internal/models"
	"bugpilot/internal/users"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectory(t *testing.T) (*users.Directory, *memory.DB) {
	t.Helper()
	db, err := memory.New()
	require.NoError(t, err)
	return users.NewDirectory(db, db), db
}

func createUser(t *testing.T, db *memory.DB, name, email string) *models.User {
	t.Helper()
	u := models.NewUser(name, email, "hash")
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func emails(refs []models.UserRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Email)
	}
	return out
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)

	actor := createUser(t, db, "Actor", "actor@firma.de")
	member := createUser(t, db, "Member", "member@firma.de")
	createUser(t, db, "Extern", "Extern@Partner.de")
	createUser(t, db, "Zoe", "zoe@firma.de")

	project := models.NewProject("P", "", actor.ID)
	project.Members = append(project.Members, models.ProjectMember{UserID: member.ID, Role: models.ProjectRoleViewer})
	require.NoError(t, db.CreateProject(ctx, project))

	t.Run("case insensitive and sorted", func(t *testing.T) {
		refs, err := dir.Search(ctx, actor.ID, "FIRMA", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"member@firma.de", "zoe@firma.de"}, emails(refs))
	})

	t.Run("project members excluded", func(t *testing.T) {
		refs, err := dir.Search(ctx, actor.ID, "firma", project.ID.String())
		require.NoError(t, err)
		assert.Equal(t, []string{"zoe@firma.de"}, emails(refs))
	})

	t.Run("unknown or invalid project is ignored", func(t *testing.T) {
		refs, err := dir.Search(ctx, actor.ID, "firma", uuid.NewString())
		require.NoError(t, err)
		assert.Len(t, refs, 2)

		refs, err = dir.Search(ctx, actor.ID, "firma", "kein-projekt")
		require.NoError(t, err)
		assert.Len(t, refs, 2)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		refs, err := dir.Search(ctx, actor.ID, "%", "")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("empty fragment", func(t *testing.T) {
		_, err := dir.Search(ctx, actor.ID, "  ", "")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestSearchLimit(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	actor := createUser(t, db, "Actor", "actor@example.org")
	for i := 0; i < users.SearchLimit+5; i++ {
		createUser(t, db, fmt.Sprintf("U%d", i), fmt.Sprintf("user%03d@example.com", i))
	}

	refs, err := dir.Search(ctx, actor.ID, "example.com", "")
	require.NoError(t, err)
	assert.Len(t, refs, users.SearchLimit)
	assert.Equal(t, "user000@example.com", refs[0].Email)
}

func TestResolveRefs(t *testing.T) {
	ctx := context.Background()
	dir, db := newDirectory(t)
	anna := createUser(t, db, "Anna", "anna@example.com")
	ghost := uuid.New()

	refs, err := dir.ResolveRefs(ctx, []uuid.UUID{anna.ID, ghost, anna.ID})
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, "Anna", refs[anna.ID].Name)
	assert.Equal(t, models.UserRef{ID: ghost}, refs[ghost])

	refs, err = dir.ResolveRefs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
