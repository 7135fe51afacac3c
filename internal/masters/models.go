package masters

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity names, as used by the invalidation rules and cache keys.
const (
	EntityClient         = "Client"
	EntitySeller         = "Seller"
	EntityConfeccionista = "Confeccionista"
	EntityReference      = "Reference"
	EntityCorreria       = "Correria"
)

// Client is a buying customer, identified by its NIT.
type Client struct {
	bun.BaseModel `bun:"table:clients,alias:cl"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Nit       string    `bun:"nit,unique" json:"nit"`
	City      string    `bun:"city" json:"city"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Seller is a sales representative.
type Seller struct {
	bun.BaseModel `bun:"table:sellers,alias:se"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	Email     string    `bun:"email" json:"email"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Confeccionista is an external sewing contractor.
type Confeccionista struct {
	bun.BaseModel `bun:"table:confeccionistas,alias:co"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	Phone     string    `bun:"phone" json:"phone"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Reference is a garment product reference.
type Reference struct {
	bun.BaseModel `bun:"table:product_references,alias:re"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Code        string    `bun:"code,notnull,unique" json:"code"`
	Description string    `bun:"description" json:"description"`
	Price       float64   `bun:"price" json:"price"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Correria is a sales campaign with a fixed date range.
type Correria struct {
	bun.BaseModel `bun:"table:correrias,alias:cr"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull,unique" json:"name"`
	StartsOn  time.Time `bun:"starts_on" json:"starts_on"`
	EndsOn    time.Time `bun:"ends_on" json:"ends_on"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Models lists every master model, in creation order.
func Models() []any {
	return []any{
		(*Client)(nil),
		(*Seller)(nil),
		(*Confeccionista)(nil),
		(*Reference)(nil),
		(*Correria)(nil),
	}
}
