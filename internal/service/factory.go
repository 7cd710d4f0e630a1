package service

import (
	"github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/internal/store"
)

type Services struct {
	stores *store.Stores
	graph  DestinationCounter
	ticker Ticker
	locker Locker
	hooks  Hooks
	cfg    JobServiceConfig
}

func NewServices(stores *store.Stores, graph DestinationCounter, ticker Ticker, locker Locker, hooks Hooks, cfg JobServiceConfig) *Services {
	return &Services{
		stores: stores,
		graph:  graph,
		ticker: ticker,
		locker: locker,
		hooks:  hooks,
		cfg:    cfg,
	}
}

func (s *Services) Jobs() JobService {
	return NewJobService(s.stores.Jobs(), s.stores.POIs(), s.graph, s.ticker, s.locker, s.hooks, s.cfg)
}
