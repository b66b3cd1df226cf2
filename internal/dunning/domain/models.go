package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Channel is how the unpaid sweep escalated against a record.
type Channel string

const (
	ChannelRetry   Channel = "retry"
	ChannelCall    Channel = "call"
	ChannelMessage Channel = "message"
)

// Dunning is one escalation step. Exactly one record reference is set.
type Dunning struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"dunningId"`
	RecordRetryID   *snowflake.ID `gorm:"column:record_retry_id" json:"recordRetryId,omitempty"`
	RecordCallID    *snowflake.ID `gorm:"column:record_call_id" json:"recordCallId,omitempty"`
	RecordMessageID *snowflake.ID `gorm:"column:record_message_id" json:"recordMessageId,omitempty"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (Dunning) TableName() string { return "dunnings" }

func (d Dunning) Channel() Channel {
	switch {
	case d.RecordRetryID != nil:
		return ChannelRetry
	case d.RecordCallID != nil:
		return ChannelCall
	default:
		return ChannelMessage
	}
}

// RecordID returns whichever record reference is set.
func (d Dunning) RecordID() snowflake.ID {
	for _, id := range []*snowflake.ID{d.RecordRetryID, d.RecordCallID, d.RecordMessageID} {
		if id != nil {
			return *id
		}
	}
	return 0
}
