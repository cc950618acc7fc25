package app

import (
	"plugin-router/internal/common/logging"
	"plugin-router/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.RedisEnabled() {
		app.Logger.Info("Redis: Not configured (shared rate limits and reload broadcast disabled)")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDBNumber(),
		PoolSize: app.Config.RedisPool(),
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.String("address", app.Config.RedisAddress))

	return app.subscribeReloads()
}

// subscribeReloads reloads the local catalog whenever another replica
// announces a reload on the shared channel.
func (app *App) subscribeReloads() error {
	channel := app.Config.ReloadChannel

	err := app.RedisClient.Subscribe(app.ctx, channel, func(payload string) {
		app.Logger.Info("Reload requested by peer", logging.String("channel", channel))
		if err := app.Catalog.Reload(); err != nil {
			app.Logger.Warn("Peer-requested reload failed", logging.Err(err))
		}
	})
	if err != nil {
		return err
	}

	app.Logger.Info("Reload broadcast: Subscribed", logging.String("channel", channel))
	return nil
}
