package masters

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repositories bundles the master data repositories over one database.
type Repositories struct {
	Clients         repository.Repository[*Client]
	Sellers         repository.Repository[*Seller]
	Confeccionistas repository.Repository[*Confeccionista]
	References      repository.Repository[*Reference]
	Correrias       repository.Repository[*Correria]
}

// NewRepositories builds one repository per master entity over db.
func NewRepositories(db *bun.DB) *Repositories {
	return &Repositories{
		Clients: newRepository(db, "nit",
			func() *Client { return &Client{} },
			func(r *Client) *uuid.UUID {
				if r == nil {
					return nil
				}
				return &r.ID
			},
		),
		Sellers: newRepository(db, "name",
			func() *Seller { return &Seller{} },
			func(r *Seller) *uuid.UUID {
				if r == nil {
					return nil
				}
				return &r.ID
			},
		),
		Confeccionistas: newRepository(db, "name",
			func() *Confeccionista { return &Confeccionista{} },
			func(r *Confeccionista) *uuid.UUID {
				if r == nil {
					return nil
				}
				return &r.ID
			},
		),
		References: newRepository(db, "code",
			func() *Reference { return &Reference{} },
			func(r *Reference) *uuid.UUID {
				if r == nil {
					return nil
				}
				return &r.ID
			},
		),
		Correrias: newRepository(db, "name",
			func() *Correria { return &Correria{} },
			func(r *Correria) *uuid.UUID {
				if r == nil {
					return nil
				}
				return &r.ID
			},
		),
	}
}

// newRepository builds the model handlers from a pointer to the record ID.
func newRepository[T any](db *bun.DB, identifier string, newRecord func() T, idOf func(T) *uuid.UUID) repository.Repository[T] {
	return repository.NewRepository[T](db, repository.ModelHandlers[T]{
		NewRecord: newRecord,
		GetID: func(record T) uuid.UUID {
			if id := idOf(record); id != nil {
				return *id
			}
			return uuid.Nil
		},
		SetID: func(record T, id uuid.UUID) {
			if ptr := idOf(record); ptr != nil {
				*ptr = id
			}
		},
		GetIdentifier: func() string {
			return identifier
		},
	})
}
