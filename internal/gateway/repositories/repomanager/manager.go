package repomanager

import (
	"context"
	"database/sql"

	"github.com/aquemenida/caliope-ai-studio/internal/dbx"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/repositories/refreshtokens"
	"github.com/aquemenida/caliope-ai-studio/internal/gateway/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// run several of them inside one dbx.WithTx call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
