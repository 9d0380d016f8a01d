package ballot

import (
	"log/slog"
	"time"

	httpadapter "ballot/contexts/governance/ballot-service/adapters/http"
	"ballot/contexts/governance/ballot-service/adapters/memory"
	"ballot/contexts/governance/ballot-service/application/commands"
	"ballot/contexts/governance/ballot-service/application/queries"
	"ballot/contexts/governance/ballot-service/domain/entities"
	"ballot/contexts/governance/ballot-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Ballots        ports.BallotRepository
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Observer       ports.OperationObserver
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ballotUseCase := commands.BallotUseCase{
		Ballots:        deps.Ballots,
		Idempotency:    deps.Idempotency,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		Observer:       deps.Observer,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Ballots: deps.Ballots,
	}
	return Module{
		Handler: httpadapter.Handler{
			Ballots: ballotUseCase,
			Results: resultsUseCase,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Ballot, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ballots:        store,
		Idempotency:    store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
