package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/accesscodes"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/personalizations"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/threads"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same code inside and outside transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Personalizations(db dbx.DBTX) personalizations.Repository
	Threads(db dbx.DBTX) threads.Repository
	Messages(db dbx.DBTX) messages.Repository
	AccessCodes(db dbx.DBTX) accesscodes.Repository
}
