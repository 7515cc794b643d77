package addressstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/chainsafe/wallet-indexer/pkg/address"
)

// AddressDao is a data access object that maps directly to the 'addresses' table in PostgreSQL.
type AddressDao struct {
	bun.BaseModel `bun:"table:addresses,alias:a"`
	Address       string     `bun:"address,pk,type:varchar(128)"`
	Source        string     `bun:"source,notnull,type:varchar(16)"`
	Chain         string     `bun:"chain,notnull,type:varchar(16)"`
	Network       string     `bun:"network,notnull,type:varchar(16)"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull"`
	LastIndexedAt *time.Time `bun:"last_indexed_at"`
}

func toAddressDao(a *address.Address) *AddressDao {
	now := time.Now().UTC()
	dao := &AddressDao{
		Address:       address.Normalize(a.Address),
		Source:        string(a.Source),
		Chain:         string(a.Chain),
		Network:       string(a.Network),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		LastIndexedAt: a.LastIndexedAt,
	}
	if dao.Network == "" {
		dao.Network = string(address.NetworkMainnet)
	}
	if dao.CreatedAt.IsZero() {
		dao.CreatedAt = now
	}
	if dao.UpdatedAt.IsZero() {
		dao.UpdatedAt = dao.CreatedAt
	}
	return dao
}

func toAddress(dao *AddressDao) *address.Address {
	return &address.Address{
		Address:       dao.Address,
		Source:        address.Source(dao.Source),
		Chain:         address.Chain(dao.Chain),
		Network:       address.Network(dao.Network),
		CreatedAt:     dao.CreatedAt,
		UpdatedAt:     dao.UpdatedAt,
		LastIndexedAt: dao.LastIndexedAt,
	}
}
