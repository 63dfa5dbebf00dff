package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/upstream"
)

func TestUpgradeContactAPIWinsWhenPresent(t *testing.T) {
	existingMobile := "555-0100"
	existing := &models.Contact{
		ID:         "c1",
		UpstreamID: "u1",
		FullName:   "Jane",
		Mobile:     &existingMobile,
		SyncSource: models.SyncSourceChatEmbedded,
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	apiMobile := "555-0199"
	rc := upstream.RawContact{ContactID: "u1", FullName: "Jane Doe", Mobile: &apiMobile}

	next := upgradeContact(existing, rc, time.Now())

	assert.Equal(t, "Jane Doe", next.FullName)
	assert.Equal(t, &apiMobile, next.Mobile)
	assert.Equal(t, models.SyncSourceUpgraded, next.SyncSource)
	assert.False(t, next.NeedsFullSync)
	assert.Equal(t, existing.CreatedAt, next.CreatedAt)
}

func TestUpgradeContactPreservesExistingWhenAPIFieldNull(t *testing.T) {
	existingEmail := "jane@example.com"
	existing := &models.Contact{
		ID:         "c1",
		UpstreamID: "u1",
		FullName:   "Jane",
		Email:      &existingEmail,
		SyncSource: models.SyncSourceChatEmbedded,
	}
	rc := upstream.RawContact{ContactID: "u1", FullName: "Jane"}

	next := upgradeContact(existing, rc, time.Now())

	assert.Equal(t, &existingEmail, next.Email)
}

func TestMergeStringPtrPrefersAPIValue(t *testing.T) {
	api := "api"
	existing := "existing"
	assert.Equal(t, &api, mergeStringPtr(&api, &existing))
	assert.Equal(t, &existing, mergeStringPtr(nil, &existing))
}

func TestFirstNonEmptyPrefersAPIValue(t *testing.T) {
	assert.Equal(t, "api", firstNonEmpty("api", "existing"))
	assert.Equal(t, "existing", firstNonEmpty("", "existing"))
}
