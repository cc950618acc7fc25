package app

import (
	"plugin-router/internal/catalog"
	"plugin-router/internal/common/logging"
)

func (app *App) initializeCatalog() error {
	paths := catalog.Paths{
		ACL:        app.Config.ACLPath,
		Sources:    app.Config.SourcesPath,
		Ressources: app.Config.RessourcesPath,
	}

	store, err := catalog.NewStore(catalog.FileLoader{Paths: paths}, app.Logger)
	if err != nil {
		return err
	}
	app.Catalog = store

	if !app.Config.WatchConfig {
		app.Logger.Info("Catalog watch: Disabled")
		return nil
	}

	watcher, err := catalog.NewWatcher(paths.Files(), store, catalog.WithWatcherLogger(app.Logger))
	if err != nil {
		return err
	}
	if err := watcher.Start(app.ctx); err != nil {
		return err
	}
	app.Watcher = watcher
	app.Logger.Info("Catalog watch: Enabled", logging.Strings("files", paths.Files()))

	return nil
}
