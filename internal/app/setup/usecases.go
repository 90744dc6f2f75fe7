package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/aggregator"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/callback"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/deal"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/routing"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/sla"
)

type UseCases struct {
	AggregatorService *aggregator.Service
	DealMachine       *deal.Machine
	Selector          *routing.Selector
	Callbacks         *callback.Processor
	SLAMonitor        *sla.Monitor
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	repos := deps.Repositories
	cfg := deps.Config

	aggregatorService := aggregator.NewService(repos.AggregatorRepo, repos.AggregatorMerchantRepo, deps.Metrics, deps.Logger)

	machine := deal.NewMachine(
		repos.DealRepo,
		repos.AggregatorMerchantRepo,
		repos.MerchantMethodRepo,
		aggregatorService,
		deps.Publisher,
		deps.Metrics,
		deps.Logger,
	)

	selector, err := routing.NewSelector(
		repos.AggregatorRepo,
		repos.AggregatorMerchantRepo,
		repos.MerchantMethodRepo,
		repos.DealRepo,
		repos.IntegrationLogRepo,
		deps.Client,
		aggregatorService,
		deps.Metrics,
		deps.Logger,
		routing.Options{CallbackURL: cfg.Routing.CallbackURL, DealTTL: cfg.Routing.DealTTL},
	)
	if err != nil {
		return nil, fmt.Errorf("selector: %w", err)
	}

	processor := callback.NewProcessor(
		repos.AggregatorRepo,
		repos.DealRepo,
		repos.IntegrationLogRepo,
		machine,
		deps.Metrics,
		deps.Logger,
		cfg.Callbacks.MaxBatchSize,
	)

	monitor := sla.NewMonitor(repos.AggregatorRepo, repos.IntegrationLogRepo, aggregatorService, deps.Metrics, deps.Logger, cfg.SLAMonitor.Window)

	return &UseCases{
		AggregatorService: aggregatorService,
		DealMachine:       machine,
		Selector:          selector,
		Callbacks:         processor,
		SLAMonitor:        monitor,
	}, nil
}
