package leads

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// CRM is the external customer-relationship system the assistant registers
// leads into. Implementations must be safe for concurrent use.
type CRM interface {
	// RegisterPrelead creates a new record and returns its lead ID.
	RegisterPrelead(ctx context.Context, prelead PreLead) (string, error)
	// UpdateLead promotes an existing prelead to a complete lead.
	UpdateLead(ctx context.Context, leadID string, lead Lead) error
	// EnrichLead promotes an existing lead to an enriched lead.
	EnrichLead(ctx context.Context, leadID string, enriched EnrichedLead) error
	// Status returns the current pipeline stage of a lead.
	Status(ctx context.Context, leadID string) (LeadStatus, error)
}

// LeadStatus is the CRM's view of a lead's progression.
type LeadStatus struct {
	LeadID    string    `json:"lead_id"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type crmRecord struct {
	stage     Stage
	data      any
	createdAt time.Time
	updatedAt time.Time
}

// InMemoryCRM simulates the external CRM. Lead IDs follow the CRM's
// "L" + five digits format.
type InMemoryCRM struct {
	mu      sync.RWMutex
	records map[string]*crmRecord
	now     func() time.Time
}

// NewInMemoryCRM creates an empty simulated CRM.
func NewInMemoryCRM() *InMemoryCRM {
	return &InMemoryCRM{
		records: make(map[string]*crmRecord),
		now:     time.Now,
	}
}

func (c *InMemoryCRM) RegisterPrelead(ctx context.Context, prelead PreLead) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var id string
	for {
		id = fmt.Sprintf("L%05d", rand.Intn(90000)+10000)
		if _, taken := c.records[id]; !taken {
			break
		}
	}

	now := c.now()
	c.records[id] = &crmRecord{
		stage:     StagePreLead,
		data:      prelead,
		createdAt: now,
		updatedAt: now,
	}
	return id, nil
}

func (c *InMemoryCRM) UpdateLead(ctx context.Context, leadID string, lead Lead) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	rec.stage = StageLead
	rec.data = lead
	rec.updatedAt = c.now()
	return nil
}

func (c *InMemoryCRM) EnrichLead(ctx context.Context, leadID string, enriched EnrichedLead) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[leadID]
	if !ok {
		return ErrLeadNotFound
	}
	rec.stage = StageEnriched
	rec.data = enriched
	rec.updatedAt = c.now()
	return nil
}

func (c *InMemoryCRM) Status(ctx context.Context, leadID string) (LeadStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[leadID]
	if !ok {
		return LeadStatus{}, ErrLeadNotFound
	}
	return LeadStatus{
		LeadID:    leadID,
		Stage:     rec.stage,
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
	}, nil
}
