package domain

type (
	SourceID  uint64
	SpeakerID int
	ClipID    string
)

// SourceRef is a plain source bound to a fixed room.
type SourceRef struct {
	ID   SourceID
	Room RoomName
}

func (s SourceRef) SourceID() SourceID { return s.ID }
func (s SourceRef) HostRoom() RoomName { return s.Room }
