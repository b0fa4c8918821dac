package mysql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosyt-lien/preql/internal/database"
	"github.com/nosyt-lien/preql/internal/database/mysql"
)

func TestDSN(t *testing.T) {
	u, err := database.ParseURI("mysql://user:pw@localhost/movies")
	require.NoError(t, err)
	assert.Contains(t, mysql.DSN(u), "user:pw@tcp(localhost:3306)/movies")

	u, err = database.ParseURI("mysql://root@db.internal:3307/app")
	require.NoError(t, err)
	assert.Contains(t, mysql.DSN(u), "root@tcp(db.internal:3307)/app")
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, database.Schemes(), "mysql")
}
