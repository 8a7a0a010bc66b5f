package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/secureshare/internal/dbx"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/files"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/otps"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/sharedfiles"
	"github.com/dmitrijs2005/secureshare/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can
// run the same repository code against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	SharedFiles(db dbx.DBTX) sharedfiles.Repository
	Otps(db dbx.DBTX) otps.Repository
	AuditLogs(db dbx.DBTX) auditlogs.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
