package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chatsync/b2csync/pkg/diff"
	"github.com/chatsync/b2csync/pkg/models"
	"github.com/chatsync/b2csync/pkg/upstream"
)

// processContact implements §4.5.1: insert, upgrade, or change-detect a
// contact from one pending raw_contacts row.
func (e *Engine) processContact(ctx context.Context, raw models.RawRecord) (outcome, error) {
	var rc upstream.RawContact
	if err := json.Unmarshal(raw.RawJSON, &rc); err != nil {
		return outcomeFailed, fmt.Errorf("unmarshal raw contact: %w", err)
	}
	if rc.ContactID == "" {
		return outcomeFailed, fmt.Errorf("contact missing contact_id")
	}

	existing, err := e.repo.getContactByUpstreamID(ctx, rc.ContactID)
	if err != nil {
		return outcomeFailed, err
	}

	now := time.Now()

	if existing == nil {
		c := contactFromRaw(rc, now)
		c.SyncSource = models.SyncSourceContactsAPI
		c.NeedsFullSync = false
		if err := e.repo.insertContact(ctx, c); err != nil {
			return outcomeFailed, err
		}
		return outcomeCreated, nil
	}

	if existing.SyncSource == models.SyncSourceChatEmbedded {
		upgraded := upgradeContact(existing, rc, now)
		if err := e.repo.updateContact(ctx, upgraded); err != nil {
			return outcomeFailed, err
		}
		return outcomeUpdated, nil
	}

	next := contactFromRaw(rc, now)
	next.ID = existing.ID
	next.SyncSource = existing.SyncSource
	next.NeedsFullSync = false
	next.CreatedAt = existing.CreatedAt

	result := diff.Contacts(existing, next)
	if !result.HasChanges {
		return outcomeSkipped, nil
	}
	if err := e.repo.updateContact(ctx, next); err != nil {
		return outcomeFailed, err
	}
	return outcomeUpdated, nil
}

func contactFromRaw(rc upstream.RawContact, now time.Time) *models.Contact {
	tags := make([]models.ContactTag, len(rc.Tags))
	for i, t := range rc.Tags {
		tags[i] = models.ContactTag{Name: t.Name, AssignedAt: t.AssignedAt}
	}
	return &models.Contact{
		UpstreamID:        rc.ContactID,
		FullName:          rc.FullName,
		Mobile:            rc.Mobile,
		Landline:          rc.Landline,
		Email:             rc.Email,
		Identification:    rc.Identification,
		Address:           rc.Address,
		City:              rc.City,
		Country:           rc.Country,
		Company:           rc.Company,
		CustomAttributes:  rc.CustomAttributes,
		Tags:              tags,
		MerchantID:        rc.MerchantID,
		UpstreamCreatedAt: rc.CreatedAt,
		UpstreamUpdatedAt: rc.UpdatedAt,
		LastSyncAt:        now,
	}
}

// upgradeContact reconciles a chat_embedded stub with an authoritative
// contacts-export record (spec §4.5.1 step 4: "merge fields with API wins,
// preserve existing when API field is null. Do not run change detection —
// upgrade always counts as an update").
func upgradeContact(existing *models.Contact, rc upstream.RawContact, now time.Time) *models.Contact {
	next := contactFromRaw(rc, now)
	next.ID = existing.ID
	next.CreatedAt = existing.CreatedAt
	next.SyncSource = models.SyncSourceUpgraded
	next.NeedsFullSync = false

	next.FullName = firstNonEmpty(rc.FullName, existing.FullName)
	next.Mobile = mergeStringPtr(rc.Mobile, existing.Mobile)
	next.Landline = mergeStringPtr(rc.Landline, existing.Landline)
	next.Email = mergeStringPtr(rc.Email, existing.Email)
	next.Identification = mergeStringPtr(rc.Identification, existing.Identification)
	next.Address = mergeStringPtr(rc.Address, existing.Address)
	next.City = mergeStringPtr(rc.City, existing.City)
	next.Country = mergeStringPtr(rc.Country, existing.Country)
	next.Company = mergeStringPtr(rc.Company, existing.Company)
	next.MerchantID = mergeStringPtr(rc.MerchantID, existing.MerchantID)
	if len(next.CustomAttributes) == 0 {
		next.CustomAttributes = existing.CustomAttributes
	}
	if len(next.Tags) == 0 {
		next.Tags = existing.Tags
	}
	if next.UpstreamCreatedAt == nil {
		next.UpstreamCreatedAt = existing.UpstreamCreatedAt
	}
	if next.UpstreamUpdatedAt == nil {
		next.UpstreamUpdatedAt = existing.UpstreamUpdatedAt
	}
	return next
}

func mergeStringPtr(apiVal, existingVal *string) *string {
	if apiVal != nil {
		return apiVal
	}
	return existingVal
}

func firstNonEmpty(apiVal, existingVal string) string {
	if apiVal != "" {
		return apiVal
	}
	return existingVal
}

// upsertContactStub implements the nested-contact-extraction half of
// §4.5.2 step 1: a contact referenced from within a chat is always a stub
// unless it already exists as an authoritative record, in which case it is
// only linked, never overwritten.
func (e *Engine) upsertContactStub(ctx context.Context, upstreamID string, name *string, now time.Time) (*models.Contact, error) {
	existing, err := e.repo.getContactByUpstreamID(ctx, upstreamID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.SyncSource != models.SyncSourceChatEmbedded {
			return existing, nil // authoritative record: link by id, never overwrite
		}
		if name != nil && *name != "" && *name != existing.FullName {
			existing.FullName = *name
			existing.LastSyncAt = now
			if err := e.repo.updateContact(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	stub := &models.Contact{
		UpstreamID:    upstreamID,
		SyncSource:    models.SyncSourceChatEmbedded,
		NeedsFullSync: true,
		LastSyncAt:    now,
	}
	if name != nil {
		stub.FullName = *name
	}
	if err := e.repo.insertContact(ctx, stub); err != nil {
		return nil, err
	}
	return stub, nil
}
