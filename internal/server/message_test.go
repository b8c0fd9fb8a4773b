package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionLogin, ParseAction("login"))
	assert.Equal(t, ActionJoinCashTable, ParseAction("join_cash_table"))
	assert.Equal(t, ActionRaise, ParseAction("raise"))
	assert.Equal(t, ActionGetHistory, ParseAction("get_history"))
	assert.Equal(t, ActionUnknown, ParseAction("LOGIN"))
	assert.Equal(t, ActionUnknown, ParseAction("frobnicate"))
	assert.Equal(t, ActionUnknown, ParseAction(""))
}

func TestRequiresAuth(t *testing.T) {
	for _, kind := range []ActionKind{ActionRegister, ActionLogin, ActionPing, ActionPong, ActionUnknown} {
		assert.False(t, kind.RequiresAuth(), "kind %d", kind)
	}
	for _, kind := range []ActionKind{ActionGetWallet, ActionJoinCashTable, ActionRaise, ActionGetHistory, ActionChatMessage} {
		assert.True(t, kind.RequiresAuth(), "kind %d", kind)
	}
}

func TestRequestActionUnderEitherKey(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"action":"check","message_id":"m1"}`), &req))
	assert.Equal(t, "check", req.ActionName())
	assert.Equal(t, ActionCheck, req.Kind())

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"fold"}`), &req))
	assert.Equal(t, "fold", req.ActionName())
	assert.Equal(t, ActionFold, req.Kind())

	// "action" wins when both are present.
	req = Request{Action: "call", Type: "fold"}
	assert.Equal(t, ActionCall, req.Kind())
}

func TestFriendGamePassword(t *testing.T) {
	req := Request{GamePass: "secret"}
	assert.Equal(t, "secret", req.FriendGamePassword())

	req = Request{Password: "fallback"}
	assert.Equal(t, "fallback", req.FriendGamePassword())

	req = Request{GamePass: "secret", Password: "fallback"}
	assert.Equal(t, "secret", req.FriendGamePassword())
}

func TestResponseHelpers(t *testing.T) {
	resp := newResponse("pong", "m7")
	assert.Equal(t, "pong", resp["type"])
	assert.Equal(t, "m7", resp["message_id"])

	// Pushes carry no message_id at all.
	push := newResponse("table_update", "")
	_, ok := push["message_id"]
	assert.False(t, ok)

	errResp := errorResponse("m8", "Unknown action: frobnicate")
	assert.Equal(t, "error", errResp["type"])
	assert.Equal(t, "Unknown action: frobnicate", errResp["error"])
	assert.Equal(t, "m8", errResp["message_id"])
}
