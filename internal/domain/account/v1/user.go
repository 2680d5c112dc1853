package accountv1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an exchange account. Exactly one of the two external identity links
// is set at registration. Balance and Frozen are mutated only through the
// ledger repository.
type User struct {
	ID        uuid.UUID       `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Frozen    bool            `json:"frozen"`
	CreatedAt time.Time       `json:"createdAt"`

	// External identity links
	MinecraftID *uuid.UUID `json:"minecraftID,omitempty"`
	DiscordID   *int64     `json:"discordID,omitempty"`
}
