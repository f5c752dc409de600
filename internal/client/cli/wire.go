package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/auth"
	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/client"
	"github.com/aquemenida/caliope-ai-studio/internal/client/config"
	"github.com/aquemenida/caliope-ai-studio/internal/client/docstore"
	"github.com/aquemenida/caliope-ai-studio/internal/client/federated"
	"github.com/aquemenida/caliope-ai-studio/internal/client/media"
	"github.com/aquemenida/caliope-ai-studio/internal/client/notify"
	"github.com/aquemenida/caliope-ai-studio/internal/client/persistence"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/client/repositories/metadata"
	"github.com/aquemenida/caliope-ai-studio/internal/client/services"
	"github.com/aquemenida/caliope-ai-studio/internal/client/tipcache"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"

	_ "modernc.org/sqlite"
)

// NewApp opens the local database and builds the service graph for the
// backend selected in c. On error everything opened so far is closed.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (app *App, err error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:  c,
		catalog: catalog.Default(),
		logger:  l,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	db, err := client.InitDatabase(ctx, c.DatabaseFile)
	if err != nil {
		l.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}
	a.closers = append(a.closers, db.Close)

	google := federated.NewGoogle(c.GoogleClientID, c.GoogleClientSecret, c.GoogleRedirectURL)

	var (
		provider auth.Provider
		adapter  persistence.Adapter
		uploader media.Uploader
	)
	switch c.Backend {
	case config.BackendRemote:
		gw, err := client.NewGRPCClient(c.GatewayAddr)
		if err != nil {
			return nil, fmt.Errorf("connect gateway: %w", err)
		}
		docs, err := docstore.Open(ctx, c.DocumentStoreDSN)
		if err != nil {
			_ = gw.Close()
			return nil, fmt.Errorf("open document store: %w", err)
		}
		if docs == nil {
			l.Warn(ctx, "no document store configured; remote profiles are unavailable")
		} else {
			a.closers = append(a.closers, func() error { return docs.Close(context.Background()) })
		}
		remote := auth.NewRemoteProvider(gw, db, google, l)
		a.closers = append(a.closers, remote.Close)
		provider = remote
		adapter = persistence.NewRemoteAdapter(docs)
		uploader = media.NewPresignedUploader(gw)
		a.gateway = gw
	default:
		local := persistence.NewLocalAdapter(db)
		lp := auth.NewLocalProvider(local, google, l)
		a.closers = append(a.closers, lp.Close)
		provider = lp
		adapter = local
		uploader = media.DataURLUploader{}
	}

	a.localData = metadata.NewSQLiteRepository(db)

	var cache tipcache.Cache = tipcache.NewMetadataCache(metadata.NewSQLiteRepository(db))
	if c.RedisAddr != "" {
		rc, err := tipcache.NewRedisCache(ctx, c.RedisAddr)
		if err != nil {
			l.Warn(ctx, "redis unavailable, caching tips locally", "error", err)
		} else {
			a.closers = append(a.closers, rc.Close)
			cache = rc
		}
	}

	notices := notify.NewQueue(c.NotificationTTL)
	a.closers = append(a.closers, func() error { notices.Close(); return nil })
	a.notices = notices

	store := profile.NewStore()
	collab := ai.NewGemini(ai.Config{APIKey: c.AIAPIKey, Model: c.AIModel}, a.catalog, l)
	if !collab.Enabled() {
		l.Warn(ctx, "no AI API key configured; chat and journal analysis are disabled")
	}

	mutations := services.NewMutations(services.MutationsConfig{
		Store:    store,
		Adapter:  adapter,
		Notifier: notices,
		Catalog:  a.catalog,
		Logger:   l,
	})
	session := services.NewSession(services.SessionConfig{
		Provider:      provider,
		Adapter:       adapter,
		Store:         store,
		Notifier:      notices,
		Catalog:       a.catalog,
		Logger:        l,
		LogoutTimeout: c.LogoutTimeout,
	})
	a.closers = append(a.closers, func() error { session.Close(); return nil })

	tips := services.NewTips(collab, cache, l)

	a.session = session
	a.mutations = mutations
	a.chat = services.NewChat(collab, store, mutations, notices, l)
	a.journal = services.NewJournal(collab, uploader, store, mutations, notices, l)
	a.insights = services.NewInsights(collab, tips, store, a.catalog)
	a.admin = services.NewAdmin(adapter, store, a.catalog)

	if a.gateway == nil {
		a.mode = ModeLocal
	}
	return a, nil
}
