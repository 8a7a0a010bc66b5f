package otps

import (
	"context"

	"github.com/dmitrijs2005/secureshare/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, otp *models.Otp) error
	// Consume removes the pending code for the address and returns it.
	// Removal and retrieval are one operation, so a code can be consumed
	// at most once no matter how many verifications race.
	Consume(ctx context.Context, email string) (*models.Otp, error)
}
