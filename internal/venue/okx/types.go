package okx

// envelope covers every known message shape on the OKX public websocket.
// Event messages carry "event"; data pushes carry "arg" plus "data". Anything
// that matches neither is safely discarded.
type envelope struct {
	Event string     `json:"event"`
	Code  string     `json:"code"`
	Msg   string     `json:"msg"`
	Arg   *streamArg `json:"arg"`
	Data  []bookPush `json:"data"`
}

// streamArg identifies the channel and instrument a push belongs to.
type streamArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// bookPush is one books5 snapshot. Rows are ["price","size","liquidated",
// "orders"]; only the first two columns are meaningful here.
type bookPush struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	Ts   string     `json:"ts"`
}

// subscribeRequest is the subscription command for the public channel.
type subscribeRequest struct {
	Op   string      `json:"op"`
	Args []streamArg `json:"args"`
}
