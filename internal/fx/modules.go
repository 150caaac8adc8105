package fx

import (
	"battle-arena/internal/api"
	"battle-arena/internal/config"
	"battle-arena/internal/database"
	"battle-arena/internal/logger"
	"battle-arena/internal/notify"
	"battle-arena/internal/repository"
	"battle-arena/internal/server"
	"battle-arena/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewBattleRepository),
	fx.Provide(repository.NewInventoryRepository),
	fx.Provide(repository.NewParticipantRepository),
	fx.Provide(repository.NewItemRepository),
	fx.Provide(repository.NewBattleLogRepository),
	// collaborators
	fx.Provide(notify.NewHub),
	fx.Provide(api.NewWebhookNotifier),
	// svc
	fx.Provide(service.NewBattleService),
	fx.Provide(service.NewInventoryService),
	// server
	fx.Provide(server.NewArenaServer),
)
