package transform

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chatsync/b2csync/pkg/database"
	"github.com/chatsync/b2csync/pkg/models"
)

// repo is the hand-written SQL repository for every normalized entity the
// Transform Engine writes. No ORM — plain parameterized queries through
// *sql.DB, consistent with pkg/staging and pkg/syncstate.
type repo struct {
	db *sql.DB
}

func newRepo(client *database.Client) *repo {
	return &repo{db: client.DB()}
}

// --- Contacts ---

func (r *repo) getContactByUpstreamID(ctx context.Context, upstreamID string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, upstream_id, full_name, mobile, landline, email, identification, address, city,
		       country, company, custom_attributes, tags, merchant_id, upstream_created_at,
		       upstream_updated_at, sync_source, needs_full_sync, last_sync_at, created_at, updated_at
		FROM contacts WHERE upstream_id = $1
	`, upstreamID)

	var c models.Contact
	var customAttrs, tags []byte
	err := row.Scan(&c.ID, &c.UpstreamID, &c.FullName, &c.Mobile, &c.Landline, &c.Email, &c.Identification,
		&c.Address, &c.City, &c.Country, &c.Company, &customAttrs, &tags, &c.MerchantID, &c.UpstreamCreatedAt,
		&c.UpstreamUpdatedAt, &c.SyncSource, &c.NeedsFullSync, &c.LastSyncAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transform: get contact %s: %w", upstreamID, err)
	}
	if len(customAttrs) > 0 {
		if err := json.Unmarshal(customAttrs, &c.CustomAttributes); err != nil {
			return nil, fmt.Errorf("transform: decode contact %s custom_attributes: %w", upstreamID, err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("transform: decode contact %s tags: %w", upstreamID, err)
		}
	}
	return &c, nil
}

func (r *repo) insertContact(ctx context.Context, c *models.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	customAttrs, tags, err := marshalContactJSON(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, upstream_id, full_name, mobile, landline, email, identification, address,
		                       city, country, company, custom_attributes, tags, merchant_id,
		                       upstream_created_at, upstream_updated_at, sync_source, needs_full_sync,
		                       last_sync_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now(),now())
	`, c.ID, c.UpstreamID, c.FullName, c.Mobile, c.Landline, c.Email, c.Identification, c.Address, c.City,
		c.Country, c.Company, customAttrs, tags, c.MerchantID, c.UpstreamCreatedAt, c.UpstreamUpdatedAt,
		c.SyncSource, c.NeedsFullSync, c.LastSyncAt)
	if err != nil {
		return fmt.Errorf("transform: insert contact %s: %w", c.UpstreamID, err)
	}
	return nil
}

func (r *repo) updateContact(ctx context.Context, c *models.Contact) error {
	customAttrs, tags, err := marshalContactJSON(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE contacts SET full_name=$2, mobile=$3, landline=$4, email=$5, identification=$6, address=$7,
		                     city=$8, country=$9, company=$10, custom_attributes=$11, tags=$12,
		                     merchant_id=$13, upstream_created_at=$14, upstream_updated_at=$15,
		                     sync_source=$16, needs_full_sync=$17, last_sync_at=$18, updated_at=now()
		WHERE id=$1
	`, c.ID, c.FullName, c.Mobile, c.Landline, c.Email, c.Identification, c.Address, c.City, c.Country,
		c.Company, customAttrs, tags, c.MerchantID, c.UpstreamCreatedAt, c.UpstreamUpdatedAt,
		c.SyncSource, c.NeedsFullSync, c.LastSyncAt)
	if err != nil {
		return fmt.Errorf("transform: update contact %s: %w", c.UpstreamID, err)
	}
	return nil
}

func marshalContactJSON(c *models.Contact) (customAttrs, tags []byte, err error) {
	customAttrs, err = json.Marshal(c.CustomAttributes)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: marshal contact %s custom_attributes: %w", c.UpstreamID, err)
	}
	if c.Tags == nil {
		c.Tags = []models.ContactTag{}
	}
	tags, err = json.Marshal(c.Tags)
	if err != nil {
		return nil, nil, fmt.Errorf("transform: marshal contact %s tags: %w", c.UpstreamID, err)
	}
	return customAttrs, tags, nil
}

// --- Agents ---

func (r *repo) getAgentByUpstreamID(ctx context.Context, upstreamID string) (*models.Agent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, upstream_id, name, username, email, is_active, created_at, updated_at
		FROM agents WHERE upstream_id = $1
	`, upstreamID)
	var a models.Agent
	err := row.Scan(&a.ID, &a.UpstreamID, &a.Name, &a.Username, &a.Email, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transform: get agent %s: %w", upstreamID, err)
	}
	return &a, nil
}

func (r *repo) upsertAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	existing, err := r.getAgentByUpstreamID(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	a := &models.Agent{ID: uuid.NewString(), UpstreamID: name, Name: name, IsActive: true}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agents (id, upstream_id, name, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,true,now(),now())
		ON CONFLICT (upstream_id) DO NOTHING
	`, a.ID, a.UpstreamID, a.Name)
	if err != nil {
		return nil, fmt.Errorf("transform: insert agent %s: %w", name, err)
	}
	return r.getAgentByUpstreamID(ctx, name)
}

// --- Departments ---

func (r *repo) getDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, upstream_code, name, is_active, is_leaf, created_at, updated_at
		FROM departments WHERE upstream_code = $1
	`, code)
	var d models.Department
	err := row.Scan(&d.ID, &d.UpstreamCode, &d.Name, &d.IsActive, &d.IsLeaf, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transform: get department %s: %w", code, err)
	}
	return &d, nil
}

func (r *repo) upsertDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	existing, err := r.getDepartmentByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	d := &models.Department{ID: uuid.NewString(), UpstreamCode: code, Name: code, IsActive: true, IsLeaf: true}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO departments (id, upstream_code, name, is_active, is_leaf, created_at, updated_at)
		VALUES ($1,$2,$3,true,true,now(),now())
		ON CONFLICT (upstream_code) DO NOTHING
	`, d.ID, d.UpstreamCode, d.Name)
	if err != nil {
		return nil, fmt.Errorf("transform: insert department %s: %w", code, err)
	}
	return r.getDepartmentByCode(ctx, code)
}

// --- Chats ---

func (r *repo) getChatByUpstreamID(ctx context.Context, upstreamID string) (*models.Chat, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, upstream_id, agent_id, contact_id, department_id, provider, status, alias, tags,
		       direction, original_direction, created_at, opened_at, picked_up_at, response_at, closed_at,
		       duration_seconds, poll_started_at, poll_completed_at, poll_abandoned_at, poll_response,
		       sla, updated_at
		FROM chats WHERE upstream_id = $1
	`, upstreamID)

	var c models.Chat
	var tagsJSON, pollResponseJSON, slaJSON []byte
	err := row.Scan(&c.ID, &c.UpstreamID, &c.AgentID, &c.ContactID, &c.DepartmentID, &c.Provider, &c.Status,
		&c.Alias, &tagsJSON, &c.Direction, &c.OriginalDirection, &c.CreatedAt, &c.OpenedAt, &c.PickedUpAt,
		&c.ResponseAt, &c.ClosedAt, &c.DurationSeconds, &c.PollStartedAt, &c.PollCompletedAt,
		&c.PollAbandonedAt, &pollResponseJSON, &slaJSON, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transform: get chat %s: %w", upstreamID, err)
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &c.Tags); err != nil {
			return nil, fmt.Errorf("transform: decode chat %s tags: %w", upstreamID, err)
		}
	}
	if len(pollResponseJSON) > 0 {
		if err := json.Unmarshal(pollResponseJSON, &c.PollResponse); err != nil {
			return nil, fmt.Errorf("transform: decode chat %s poll_response: %w", upstreamID, err)
		}
	}
	if len(slaJSON) > 0 {
		if err := json.Unmarshal(slaJSON, &c.SLA); err != nil {
			return nil, fmt.Errorf("transform: decode chat %s sla: %w", upstreamID, err)
		}
	}
	return &c, nil
}

func (r *repo) insertChat(ctx context.Context, c *models.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tagsJSON, pollResponseJSON, slaJSON, err := marshalChatJSON(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO chats (id, upstream_id, agent_id, contact_id, department_id, provider, status, alias,
		                    tags, direction, original_direction, created_at, opened_at, picked_up_at,
		                    response_at, closed_at, duration_seconds, poll_started_at, poll_completed_at,
		                    poll_abandoned_at, poll_response, sla, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,now())
	`, c.ID, c.UpstreamID, c.AgentID, c.ContactID, c.DepartmentID, c.Provider, c.Status, c.Alias, tagsJSON,
		c.Direction, c.OriginalDirection, c.CreatedAt, c.OpenedAt, c.PickedUpAt, c.ResponseAt, c.ClosedAt,
		c.DurationSeconds, c.PollStartedAt, c.PollCompletedAt, c.PollAbandonedAt, pollResponseJSON, slaJSON)
	if err != nil {
		return fmt.Errorf("transform: insert chat %s: %w", c.UpstreamID, err)
	}
	return nil
}

func (r *repo) updateChat(ctx context.Context, c *models.Chat) error {
	tagsJSON, pollResponseJSON, slaJSON, err := marshalChatJSON(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE chats SET agent_id=$2, contact_id=$3, department_id=$4, provider=$5, status=$6, alias=$7,
		                 tags=$8, direction=$9, created_at=$10, opened_at=$11, picked_up_at=$12,
		                 response_at=$13, closed_at=$14, duration_seconds=$15, poll_started_at=$16,
		                 poll_completed_at=$17, poll_abandoned_at=$18, poll_response=$19, sla=$20,
		                 updated_at=now()
		WHERE id=$1
	`, c.ID, c.AgentID, c.ContactID, c.DepartmentID, c.Provider, c.Status, c.Alias, tagsJSON, c.Direction,
		c.CreatedAt, c.OpenedAt, c.PickedUpAt, c.ResponseAt, c.ClosedAt, c.DurationSeconds, c.PollStartedAt,
		c.PollCompletedAt, c.PollAbandonedAt, pollResponseJSON, slaJSON)
	if err != nil {
		return fmt.Errorf("transform: update chat %s: %w", c.UpstreamID, err)
	}
	return nil
}

func marshalChatJSON(c *models.Chat) (tagsJSON, pollResponseJSON, slaJSON []byte, err error) {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	tagsJSON, err = json.Marshal(c.Tags)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transform: marshal chat %s tags: %w", c.UpstreamID, err)
	}
	pollResponseJSON, err = json.Marshal(c.PollResponse)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transform: marshal chat %s poll_response: %w", c.UpstreamID, err)
	}
	slaJSON, err = json.Marshal(c.SLA)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transform: marshal chat %s sla: %w", c.UpstreamID, err)
	}
	return tagsJSON, pollResponseJSON, slaJSON, nil
}

func (r *repo) insertStatusHistory(ctx context.Context, h *models.ChatStatusHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_status_history (id, chat_id, previous_status, new_status, changed_at, sync_id, transform_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, h.ID, h.ChatID, h.PreviousStatus, h.NewStatus, h.ChangedAt, h.SyncID, h.TransformID)
	if err != nil {
		return fmt.Errorf("transform: insert status history for chat %s: %w", h.ChatID, err)
	}
	return nil
}

// --- Messages ---

func (r *repo) existingMessageIDs(ctx context.Context, chatID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM messages WHERE chat_id = $1`, chatID)
	if err != nil {
		return nil, fmt.Errorf("transform: query existing messages for chat %s: %w", chatID, err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("transform: scan message id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (r *repo) insertMessage(ctx context.Context, m *models.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, text, type, incoming, "timestamp", caption, image_url, file_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`, m.ID, m.ChatID, m.Text, m.Type, m.Incoming, m.Timestamp, m.Caption, m.ImageURL, m.FileURL)
	if err != nil {
		return fmt.Errorf("transform: insert message %s: %w", m.ID, err)
	}
	return nil
}
