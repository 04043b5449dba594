package database

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub-dev/staffhub/internal/config"
	"github.com/staffhub-dev/staffhub/internal/models"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	url := "file:" + ulid.Make().String() + "?mode=memory&cache=shared"

	db, err := Open(config.DatabaseConfig{URL: url}, zerolog.Nop())
	require.NoError(t, err)

	for _, model := range []any{&models.User{}, &models.Tenant{}, &models.Membership{}, &models.RevokedToken{}, &models.ActionToken{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}

	user := models.User{Email: "a@b.com", PasswordHash: "x", UserType: models.UserTypeCompany}
	require.NoError(t, db.Create(&user).Error)
	assert.Len(t, user.ID, 26)

	var found models.User
	require.NoError(t, models.FindByID(db, user.ID, &found))
	assert.Equal(t, "a@b.com", found.Email)
}
