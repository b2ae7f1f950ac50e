package license

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestExpired(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	lic := &License{ExpiryDate: sql.NullTime{Time: expiry, Valid: true}}

	assert.False(t, lic.Expired(expiry.Add(-time.Hour)))
	// expiring exactly now still grants access
	assert.False(t, lic.Expired(expiry))
	assert.True(t, lic.Expired(expiry.Add(time.Second)))

	perpetual := &License{}
	assert.False(t, perpetual.Expired(time.Now().AddDate(100, 0, 0)))
}

func TestUsable(t *testing.T) {
	now := time.Now()
	future := sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	past := sql.NullTime{Time: now.Add(-time.Hour), Valid: true}

	assert.True(t, (&License{IsActive: true, ExpiryDate: future}).Usable(now))
	assert.True(t, (&License{IsActive: true}).Usable(now))
	assert.False(t, (&License{IsActive: false, ExpiryDate: future}).Usable(now))
	assert.False(t, (&License{IsActive: true, ExpiryDate: past}).Usable(now))
}

func TestOwnedBy(t *testing.T) {
	owner := uuid.New()

	unclaimed := &License{}
	assert.False(t, unclaimed.OwnedBy(owner))

	claimed := &License{AdminID: uuid.NullUUID{UUID: owner, Valid: true}}
	assert.True(t, claimed.OwnedBy(owner))
	assert.False(t, claimed.OwnedBy(uuid.New()))
}
