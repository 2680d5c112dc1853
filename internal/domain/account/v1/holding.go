package accountv1

import (
	"github.com/google/uuid"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
)

// Holding is a user's position in one ticker. A missing row means zero shares;
// rows never hold a negative or zero count.
type Holding struct {
	UserID uuid.UUID       `json:"userID"`
	Ticker marketv1.Ticker `json:"ticker"`
	Shares int64           `json:"shares"`
}
