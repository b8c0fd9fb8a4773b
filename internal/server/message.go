package server

// ActionKind enumerates every request the client protocol knows. Dispatch
// over the enumeration is exhaustive: a request that parses to no kind is
// ActionUnknown and gets the dedicated unknown-action error.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionRegister
	ActionLogin
	ActionPing
	ActionPong
	ActionGetWallet
	ActionWalletDeposit
	ActionCaptureDeposit
	ActionCancelDeposit
	ActionWalletWithdraw
	ActionGetTransactions
	ActionGetCashTables
	ActionJoinCashTable
	ActionLeaveTable
	ActionCreateFriendGame
	ActionJoinFriendGame
	ActionGetFriendGames
	ActionDeleteFriendGame
	ActionCheck
	ActionCall
	ActionRaise
	ActionFold
	ActionSitOut
	ActionSitIn
	ActionGetTableState
	ActionGetStatistics
	ActionGetHistory
	ActionChatMessage
)

var actionNames = map[string]ActionKind{
	"register":           ActionRegister,
	"login":              ActionLogin,
	"ping":               ActionPing,
	"pong":               ActionPong,
	"get_wallet":         ActionGetWallet,
	"wallet_deposit":     ActionWalletDeposit,
	"capture_deposit":    ActionCaptureDeposit,
	"cancel_deposit":     ActionCancelDeposit,
	"wallet_withdraw":    ActionWalletWithdraw,
	"get_transactions":   ActionGetTransactions,
	"get_cash_tables":    ActionGetCashTables,
	"join_cash_table":    ActionJoinCashTable,
	"leave_table":        ActionLeaveTable,
	"create_friend_game": ActionCreateFriendGame,
	"join_friend_game":   ActionJoinFriendGame,
	"get_friend_games":   ActionGetFriendGames,
	"delete_friend_game": ActionDeleteFriendGame,
	"check":              ActionCheck,
	"call":               ActionCall,
	"raise":              ActionRaise,
	"fold":               ActionFold,
	"sitout":             ActionSitOut,
	"sitin":              ActionSitIn,
	"get_table_state":    ActionGetTableState,
	"get_statistics":     ActionGetStatistics,
	"get_history":        ActionGetHistory,
	"chat_message":       ActionChatMessage,
}

// ParseAction maps the wire action string to its kind. Case-sensitive.
func ParseAction(s string) ActionKind {
	if kind, ok := actionNames[s]; ok {
		return kind
	}
	return ActionUnknown
}

// RequiresAuth reports whether the action needs a logged-in session.
func (k ActionKind) RequiresAuth() bool {
	switch k {
	case ActionRegister, ActionLogin, ActionPing, ActionPong, ActionUnknown:
		return false
	}
	return true
}

// Request is the flat JSON envelope of every client message. Clients send
// the action under either "action" or "type"; fields irrelevant to the
// action are simply absent.
type Request struct {
	Action    string `json:"action"`
	Type      string `json:"type"`
	MessageID string `json:"message_id"`

	Email                 string `json:"email"`
	Username              string `json:"username"`
	Password              string `json:"password"`
	SecurityQuestionIndex int    `json:"security_question_index"`
	SecurityAnswer        string `json:"security_answer"`

	Amount           float64 `json:"amount"`
	Method           string  `json:"method"`
	OrderID          string  `json:"order_id"`
	DestinationEmail string  `json:"destination_email"`

	TableID    string  `json:"table_id"`
	BuyIn      float64 `json:"buy_in"`
	Name       string  `json:"name"`
	GamePass   string  `json:"game_password"`
	SmallBlind float64 `json:"small_blind"`
	BigBlind   float64 `json:"big_blind"`
	MinBuyIn   float64 `json:"min_buy_in"`
	MaxBuyIn   float64 `json:"max_buy_in"`
	MaxPlayers int     `json:"max_players"`

	Message string `json:"message"`
	Limit   int    `json:"limit"`
}

// ActionName returns the wire action string, wherever the client put it.
func (r *Request) ActionName() string {
	if r.Action != "" {
		return r.Action
	}
	return r.Type
}

// Kind parses the request's action.
func (r *Request) Kind() ActionKind {
	return ParseAction(r.ActionName())
}

// Password for friend games arrives under "password" on create/join when
// the client is not also sending credentials; accept both spellings.
func (r *Request) FriendGamePassword() string {
	if r.GamePass != "" {
		return r.GamePass
	}
	return r.Password
}

// response is one outbound JSON message. Flat, like requests.
type response map[string]any

// newResponse builds a reply of the given type, echoing the request's
// message_id when present.
func newResponse(typ, messageID string) response {
	r := response{"type": typ}
	if messageID != "" {
		r["message_id"] = messageID
	}
	return r
}

// errorResponse is the uniform failure reply.
func errorResponse(messageID, message string) response {
	r := newResponse("error", messageID)
	r["error"] = message
	return r
}
