package amqp

import (
	"encoding/json"
	"time"
)

// MirrorSyncMessage asks a worker to rebuild one user's mirror files.
// It carries only the owner id; the worker re-reads the full expense
// set from the database, so stale or duplicate deliveries are harmless.
type MirrorSyncMessage struct {
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMirrorSyncMessage(userID int64) *MirrorSyncMessage {
	return &MirrorSyncMessage{
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *MirrorSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MirrorSyncMessageFromJSON(data []byte) (*MirrorSyncMessage, error) {
	var msg MirrorSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
