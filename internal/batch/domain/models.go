package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	compliancedomain "github.com/herbtrace/herbtrace/internal/compliance/domain"
	"gorm.io/datatypes"
)

// BatchStatus is derived from the most recently appended event.
type BatchStatus string

const (
	StatusHarvested BatchStatus = "harvested"
	StatusProcessed BatchStatus = "processed"
	StatusTested    BatchStatus = "tested"
	StatusPackaged  BatchStatus = "packaged"
	StatusInTransit BatchStatus = "in_transit"
	StatusRetailed  BatchStatus = "retailed"
)

// EventType classifies a supply-chain event.
type EventType string

const (
	EventHarvest     EventType = "harvest"
	EventProcessing  EventType = "processing"
	EventQualityTest EventType = "quality_test"
	EventPackaging   EventType = "packaging"
	EventTransport   EventType = "transport"
	EventRetail      EventType = "retail"
)

// Batch is the aggregate root tracking one harvested quantity of a herb
// species through the supply chain.
type Batch struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"-"`
	BatchID     string       `gorm:"uniqueIndex;not null" json:"batch_id"`
	Species     string       `gorm:"not null" json:"species"`
	HarvestDate time.Time    `gorm:"not null" json:"harvest_date"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Address     string       `json:"address"`
	FarmerID    string       `gorm:"index;not null" json:"farmer_id"`
	Quantity    float64      `json:"quantity"`
	Unit        string       `json:"unit"`
	Status      BatchStatus  `gorm:"type:text;not null" json:"status"`

	// Quality metrics, present once a lab has tested the batch.
	Purity      *float64          `json:"purity,omitempty"`
	Moisture    *float64          `json:"moisture,omitempty"`
	AshContent  *float64          `json:"ash_content,omitempty"`
	HeavyMetals datatypes.JSONMap `gorm:"type:jsonb" json:"heavy_metals,omitempty"`
	LabTested   bool              `json:"lab_tested"`

	// Compliance snapshot, refreshed on every evaluation.
	GeoFencingOK bool           `gorm:"column:geo_fencing_ok" json:"-"`
	SeasonalOK   bool           `json:"-"`
	QualityOK    bool           `json:"-"`
	SpeciesOK    bool           `json:"-"`
	OverallOK    bool           `json:"-"`
	LastChecked  *time.Time     `json:"-"`
	Violations   datatypes.JSON `gorm:"type:jsonb" json:"-"`

	// Version guards read-modify-write appends against lost updates.
	Version   int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Events   []Event         `gorm:"foreignKey:BatchID;references:BatchID" json:"events,omitempty"`
	Receipts []LedgerReceipt `gorm:"foreignKey:BatchID;references:BatchID" json:"ledger_receipts,omitempty"`
}

func (Batch) TableName() string { return "batches" }

// ComplianceStatus rebuilds the compliance value object from the snapshot
// columns.
func (b *Batch) ComplianceStatus() compliancedomain.Status {
	status := compliancedomain.Status{
		GeoFencing: b.GeoFencingOK,
		Seasonal:   b.SeasonalOK,
		Quality:    b.QualityOK,
		Species:    b.SpeciesOK,
		Overall:    b.OverallOK,
	}
	if b.LastChecked != nil {
		status.LastChecked = *b.LastChecked
	}
	if len(b.Violations) > 0 {
		_ = json.Unmarshal(b.Violations, &status.Violations)
	}
	return status
}

// SetComplianceStatus replaces the snapshot columns wholesale.
func (b *Batch) SetComplianceStatus(status compliancedomain.Status) {
	b.GeoFencingOK = status.GeoFencing
	b.SeasonalOK = status.Seasonal
	b.QualityOK = status.Quality
	b.SpeciesOK = status.Species
	b.OverallOK = status.Overall
	checked := status.LastChecked
	b.LastChecked = &checked

	raw, err := json.Marshal(status.Violations)
	if err != nil {
		raw = []byte("[]")
	}
	b.Violations = raw
}

// ComplianceSnapshot projects the fields the rule evaluator inspects.
func (b *Batch) ComplianceSnapshot() compliancedomain.Snapshot {
	snap := compliancedomain.Snapshot{
		Species:           b.Species,
		HarvestDate:       b.HarvestDate,
		Latitude:          b.Latitude,
		Longitude:         b.Longitude,
		HasQualityMetrics: b.HasQualityMetrics(),
		Purity:            b.Purity,
		Moisture:          b.Moisture,
		AshContent:        b.AshContent,
	}
	if len(b.HeavyMetals) > 0 {
		snap.HeavyMetals = make(map[string]float64, len(b.HeavyMetals))
		for metal, value := range b.HeavyMetals {
			if reading, ok := toFloat(value); ok {
				snap.HeavyMetals[metal] = reading
			}
		}
	}
	return snap
}

func (b *Batch) HasQualityMetrics() bool {
	return b.Purity != nil || b.Moisture != nil || b.AshContent != nil || len(b.HeavyMetals) > 0
}

// EventsByType filters the loaded events without touching storage.
func (b *Batch) EventsByType(t EventType) []Event {
	out := make([]Event, 0)
	for _, ev := range b.Events {
		if ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}

// EventsByActor filters the loaded events by acting party.
func (b *Batch) EventsByActor(actorID string) []Event {
	out := make([]Event, 0)
	for _, ev := range b.Events {
		if ev.ActorID == actorID {
			out = append(out, ev)
		}
	}
	return out
}

// TimelineEntry is the projection of an event used by timelines and reports.
type TimelineEntry struct {
	EventType   EventType `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	ActorID     string    `json:"actor_id"`
	ActorRole   string    `json:"actor_role"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description"`
}

// Timeline returns events sorted ascending by timestamp, projected.
func (b *Batch) Timeline() []TimelineEntry {
	events := make([]Event, len(b.Events))
	copy(events, b.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	entries := make([]TimelineEntry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, TimelineEntry{
			EventType:   ev.EventType,
			Timestamp:   ev.Timestamp,
			ActorID:     ev.ActorID,
			ActorRole:   ev.ActorRole,
			Latitude:    ev.Latitude,
			Longitude:   ev.Longitude,
			Address:     ev.Address,
			Description: ev.Description,
		})
	}
	return entries
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Event is a single immutable record of something that happened to a batch.
// Its id, type and timestamp never change after append; description and
// quality data may be corrected by the original actor or an administrator.
type Event struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"-"`
	EventID   string       `gorm:"uniqueIndex;not null" json:"event_id"`
	BatchID   string       `gorm:"index;not null" json:"batch_id"`
	EventType EventType    `gorm:"type:text;not null" json:"event_type"`
	Timestamp time.Time    `gorm:"not null" json:"timestamp"`
	Latitude  *float64     `json:"latitude,omitempty"`
	Longitude *float64     `json:"longitude,omitempty"`
	Address   string       `json:"address,omitempty"`
	ActorID   string       `gorm:"index;not null" json:"actor_id"`
	ActorRole string       `json:"actor_role"`

	Description string            `gorm:"not null" json:"description"`
	QualityData datatypes.JSONMap `gorm:"type:jsonb" json:"quality_data,omitempty"`

	CompliancePassed    *bool      `json:"compliance_passed,omitempty"`
	ComplianceCheckedAt *time.Time `json:"compliance_checked_at,omitempty"`
	ComplianceCheckedBy string     `json:"compliance_checked_by,omitempty"`

	// Content hash of an attached certificate in the blob store; the bytes
	// themselves never pass through this service.
	CertificateHash string `json:"certificate_hash,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

// LedgerReceipt records the anchoring of one mutation to the external ledger.
type LedgerReceipt struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"-"`
	BatchID       string       `gorm:"index;not null" json:"batch_id"`
	Operation     string       `gorm:"not null" json:"operation"`
	TransactionID string       `gorm:"not null" json:"transaction_id"`
	BlockNumber   *uint64      `json:"block_number,omitempty"`
	Status        string       `json:"status"`
	Synthetic     bool         `json:"synthetic"`
	Timestamp     time.Time    `json:"timestamp"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (LedgerReceipt) TableName() string { return "ledger_receipts" }
