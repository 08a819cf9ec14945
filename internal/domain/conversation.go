package domain

// Turn is a single persisted exchange: the user's message and the reply it got.
type Turn struct {
	PK             string
	SK             string
	ConversationID string
	Message        string
	Reply          string
	Status         string
	TTL            int64
}

// ConversationMeta stores aggregate conversation state.
type ConversationMeta struct {
	PK             string
	SK             string
	ConversationID string
	LastActivity   string
	Turns          int
	TTL            int64
}
