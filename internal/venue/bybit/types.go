package bybit

// envelope covers the known Bybit v5 public stream message shapes: op frames
// (ping/pong, subscription acks) and topic pushes. Unknown frames decode into
// the zero value and are discarded.
type envelope struct {
	Op      string    `json:"op"`
	ReqID   string    `json:"req_id"`
	Success *bool     `json:"success"`
	RetMsg  string    `json:"ret_msg"`
	Topic   string    `json:"topic"`
	Type    string    `json:"type"` // "snapshot" or "delta"
	Data    *bookPush `json:"data"`
}

// bookPush is one orderbook.50 payload. Rows are ["price","size"]; a delta
// row with size "0" deletes the level.
type bookPush struct {
	Symbol   string     `json:"s"`
	Bids     [][]string `json:"b"`
	Asks     [][]string `json:"a"`
	UpdateID int64      `json:"u"`
	Seq      int64      `json:"seq"`
}

// command is a client-to-server op frame.
type command struct {
	Op    string   `json:"op"`
	ReqID string   `json:"req_id,omitempty"`
	Args  []string `json:"args,omitempty"`
}
