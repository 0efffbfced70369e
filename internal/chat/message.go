package chat

// User is a chat participant. Identity is the ID; the presence store keys
// on it, so two users with the same ID are the same user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is the domain model for a chat message. Timestamp is Unix
// milliseconds, assigned by the relay at receipt when the client did not
// supply one. Messages are immutable once handed to the store or the bus.
type Message struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}
