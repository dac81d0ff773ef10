package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Backend table names
const (
	TableSampleWorks = "sample_works"
	TableQuotes      = "quotes"
	TableMessages    = "messages"
	TableIoTRequests = "iot_requests"
)

// Tables lists every table the site writes to, in admin display order.
var Tables = []string{TableSampleWorks, TableQuotes, TableMessages, TableIoTRequests}

// RowID is a row id. Hosted tables may use bigint identity columns while
// local tables use UUIDs, so both JSON numbers and strings decode into it.
type RowID string

// UnmarshalJSON implements json.Unmarshaler
func (id *RowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("row id must be a string or a number: %w", err)
	}
	*id = RowID(n.String())
	return nil
}

func (id RowID) String() string {
	return string(id)
}

// Record is a row stored in one of the backend tables
type Record interface {
	TableName() string
}

// SampleWork is a portfolio entry managed from the admin panel
type SampleWork struct {
	ID        RowID                       `gorm:"primaryKey;type:varchar(36)" json:"id,omitempty"`
	Title     string                      `gorm:"not null" json:"title"`
	Category  string                      `gorm:"not null" json:"category"`
	Image     string                      `json:"image"`
	Features  datatypes.JSONSlice[string] `json:"features"`
	Link      string                      `json:"link"`
	CreatedAt time.Time                   `gorm:"index" json:"created_at,omitzero"`
}

// TableName specifies the table name for SampleWork
func (SampleWork) TableName() string {
	return TableSampleWorks
}

// HasLiveLink reports whether the work links somewhere real
func (s SampleWork) HasLiveLink() bool {
	return s.Link != "" && s.Link != "#"
}

// Quote is a pricing-tier quote request
type Quote struct {
	ID          RowID     `gorm:"primaryKey;type:varchar(36)" json:"id,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null;index" json:"email"`
	ProjectType string    `gorm:"not null" json:"project_type"`
	Details     string    `gorm:"type:text;not null" json:"details"`
	CreatedAt   time.Time `gorm:"index" json:"created_at,omitzero"`
}

// TableName specifies the table name for Quote
func (Quote) TableName() string {
	return TableQuotes
}

// Message is a contact form submission
type Message struct {
	ID          RowID     `gorm:"primaryKey;type:varchar(36)" json:"id,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Email       string    `gorm:"not null;index" json:"email"`
	ProjectType string    `gorm:"not null" json:"project_type"`
	Details     string    `gorm:"type:text;not null" json:"details"`
	CreatedAt   time.Time `gorm:"index" json:"created_at,omitzero"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return TableMessages
}

// IoTRequest is an IoT services request, optionally with an uploaded brief
type IoTRequest struct {
	ID        RowID     `gorm:"primaryKey;type:varchar(36)" json:"id,omitempty"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null;index" json:"email"`
	Number    *string   `json:"number"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	FileURL   *string   `json:"file_url"`
	CreatedAt time.Time `gorm:"index" json:"created_at,omitzero"`
}

// TableName specifies the table name for IoTRequest
func (IoTRequest) TableName() string {
	return TableIoTRequests
}

// BeforeCreate hooks assign ids and creation time for the local backend.

func (s *SampleWork) BeforeCreate(tx *gorm.DB) error {
	s.ID, s.CreatedAt = newRowIdentity(s.ID, s.CreatedAt)
	return nil
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	q.ID, q.CreatedAt = newRowIdentity(q.ID, q.CreatedAt)
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	m.ID, m.CreatedAt = newRowIdentity(m.ID, m.CreatedAt)
	return nil
}

func (r *IoTRequest) BeforeCreate(tx *gorm.DB) error {
	r.ID, r.CreatedAt = newRowIdentity(r.ID, r.CreatedAt)
	return nil
}

func newRowIdentity(id RowID, createdAt time.Time) (RowID, time.Time) {
	if id == "" {
		id = RowID(uuid.NewString())
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return id, createdAt
}

// NewRecord returns an empty record for a table name
func NewRecord(table string) (Record, bool) {
	switch table {
	case TableSampleWorks:
		return &SampleWork{}, true
	case TableQuotes:
		return &Quote{}, true
	case TableMessages:
		return &Message{}, true
	case TableIoTRequests:
		return &IoTRequest{}, true
	}
	return nil, false
}
