package store

// Message is one persisted group chat message. Image-only messages are
// stored with a "[图片xN]" placeholder text so summaries can mention them.
type Message struct {
	ID     int64
	ChatID string
	UserID string
	Text   string
	Ts     int64 // unix seconds
}
