package store

import "github.com/FLYXLIFESTYLE/lexa-worldmap-mvp-sub000/core/db"

type Stores struct {
	db db.DBTX
}

// NewStores builds stores over conn, which is either the pool or a transaction.
func NewStores(conn db.DBTX) *Stores {
	return &Stores{db: conn}
}

func (s *Stores) Jobs() JobStore {
	return newJobStore(s.db)
}

func (s *Stores) POIs() POIStore {
	return newPOIStore(s.db)
}
