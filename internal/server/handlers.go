package server

import (
	"context"
	"time"

	"github.com/cardroomlabs/cardroom/internal/game"
	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/store"
)

// handlerTimeout bounds the database and payment work done for one
// request.
const handlerTimeout = 30 * time.Second

func (c *Connection) reqCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, handlerTimeout)
}

func (c *Connection) fail(req *Request, err error) {
	c.Send(errorResponse(req.MessageID, err.Error()))
}

// --- authentication ---

func (c *Connection) handleRegister(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	u, err := c.svc.Auth().Register(ctx, req.Username, req.Email, req.Password,
		req.SecurityQuestionIndex, req.SecurityAnswer)
	if err != nil {
		c.fail(req, err)
		return
	}

	c.setUser(u.ID, u.Username)
	c.svc.BindSession(u.ID, c)

	c.Send(newResponse("connected", ""))
	resp := newResponse("register_success", req.MessageID)
	resp["success"] = true
	resp["user_id"] = u.ID
	resp["username"] = u.Username
	c.Send(resp)
}

func (c *Connection) handleLogin(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	u, err := c.svc.Auth().Login(ctx, req.Email, req.Password)
	if err != nil {
		c.fail(req, err)
		return
	}

	c.setUser(u.ID, u.Username)
	c.svc.BindSession(u.ID, c)

	c.Send(newResponse("connected", ""))
	resp := newResponse("login_success", req.MessageID)
	resp["success"] = true
	resp["user_id"] = u.ID
	resp["username"] = u.Username

	balance, err := c.svc.Wallet().Balance(ctx, u.ID)
	if err == nil {
		resp["balance"] = balance.Float64()
	}
	c.Send(resp)

	// A player reconnecting into a live seat gets their table state
	// immediately.
	if snap, err := c.svc.TableStateFor(u.ID); err == nil {
		push := newResponse("table_update", "")
		push["table_state"] = snap
		c.Send(push)
	}
}

// --- wallet ---

func (c *Connection) handleGetWallet(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	balance, err := c.svc.Wallet().Balance(ctx, c.UserID())
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("wallet", req.MessageID)
	resp["balance"] = balance.Float64()
	c.Send(resp)
}

func (c *Connection) handleWalletDeposit(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	order, err := c.svc.Wallet().Deposit(ctx, c.UserID(), money.FromFloat(req.Amount))
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("deposit_created", req.MessageID)
	resp["order_id"] = order.ID
	resp["approval_url"] = order.ApproveURL
	resp["amount"] = order.Amount.Float64()
	c.Send(resp)
}

func (c *Connection) handleCaptureDeposit(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	txn, err := c.svc.Wallet().CaptureDeposit(ctx, c.UserID(), req.OrderID)
	if err != nil {
		c.fail(req, err)
		return
	}
	balance, err := c.svc.Wallet().Balance(ctx, c.UserID())
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("deposit_captured", req.MessageID)
	resp["order_id"] = req.OrderID
	resp["status"] = txn.Status
	resp["balance"] = balance.Float64()
	c.Send(resp)
}

func (c *Connection) handleCancelDeposit(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	if err := c.svc.Wallet().CancelDeposit(ctx, c.UserID(), req.OrderID); err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("deposit_cancelled", req.MessageID)
	resp["order_id"] = req.OrderID
	c.Send(resp)
}

func (c *Connection) handleWalletWithdraw(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	txn, err := c.svc.Wallet().Withdraw(ctx, c.UserID(), money.FromFloat(req.Amount), req.DestinationEmail)
	if err != nil {
		c.fail(req, err)
		return
	}
	balance, err := c.svc.Wallet().Balance(ctx, c.UserID())
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("withdrawal_requested", req.MessageID)
	resp["transaction_id"] = txn.ID
	resp["status"] = txn.Status
	resp["balance"] = balance.Float64()
	c.Send(resp)
}

func (c *Connection) handleGetTransactions(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	txns, err := c.svc.Wallet().Transactions(ctx, c.UserID(), 50)
	if err != nil {
		c.fail(req, err)
		return
	}
	out := make([]response, 0, len(txns))
	for _, t := range txns {
		entry := response{
			"id":          t.ID,
			"amount":      t.Amount.Float64(),
			"kind":        t.Kind,
			"status":      t.Status,
			"description": t.Description,
			"created_at":  t.CreatedAt.UTC().Format(time.RFC3339),
		}
		if t.Destination != "" {
			entry["destination"] = t.Destination
		}
		if t.CompletedAt != nil {
			entry["completed_at"] = t.CompletedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	resp := newResponse("transactions", req.MessageID)
	resp["transactions"] = out
	c.Send(resp)
}

// --- tables ---

func (c *Connection) handleGetCashTables(req *Request) {
	resp := newResponse("cash_tables", req.MessageID)
	resp["tables"] = c.svc.CashTables()
	c.Send(resp)
}

func (c *Connection) handleJoinCashTable(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	snap, err := c.svc.JoinCashTable(ctx, c.UserID(), c.Username(), req.TableID, money.FromFloat(req.BuyIn))
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("table_joined", req.MessageID)
	resp["table_state"] = snap
	c.Send(resp)
}

func (c *Connection) handleLeaveTable(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	if err := c.svc.LeaveTable(ctx, c.UserID()); err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("table_left", req.MessageID)
	if balance, err := c.svc.Wallet().Balance(ctx, c.UserID()); err == nil {
		resp["balance"] = balance.Float64()
	}
	c.Send(resp)
}

// --- friend games ---

func (c *Connection) handleCreateFriendGame(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	info, err := c.svc.CreateFriendGame(ctx, c.UserID(), store.PrivateGame{
		Name:       req.Name,
		Password:   req.FriendGamePassword(),
		SmallBlind: money.FromFloat(req.SmallBlind),
		BigBlind:   money.FromFloat(req.BigBlind),
		MinBuyIn:   money.FromFloat(req.MinBuyIn),
		MaxBuyIn:   money.FromFloat(req.MaxBuyIn),
		MaxSeats:   req.MaxPlayers,
	})
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("friend_game_created", req.MessageID)
	resp["table_id"] = info.TableID
	resp["name"] = info.Name
	c.Send(resp)
}

func (c *Connection) handleJoinFriendGame(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	snap, err := c.svc.JoinFriendGame(ctx, c.UserID(), c.Username(),
		req.Name, req.FriendGamePassword(), money.FromFloat(req.BuyIn))
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("table_joined", req.MessageID)
	resp["table_state"] = snap
	c.Send(resp)
}

func (c *Connection) handleGetFriendGames(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	resp := newResponse("friend_games", req.MessageID)
	resp["games"] = c.svc.FriendGames()

	// The requester's own games come from the store so deleted ones show
	// up too. Passwords never go over the wire.
	if mine, err := c.svc.MyFriendGames(ctx, c.UserID()); err == nil {
		out := make([]response, 0, len(mine))
		for _, g := range mine {
			out = append(out, response{
				"table_id":    g.ID,
				"name":        g.Name,
				"small_blind": g.SmallBlind.Float64(),
				"big_blind":   g.BigBlind.Float64(),
				"max_players": g.MaxSeats,
				"active":      g.Active,
				"created_at":  g.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		resp["my_games"] = out
	}
	c.Send(resp)
}

func (c *Connection) handleDeleteFriendGame(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	if err := c.svc.DeleteFriendGame(ctx, c.UserID(), req.TableID); err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("friend_game_deleted", req.MessageID)
	resp["table_id"] = req.TableID
	c.Send(resp)
}

// --- game play ---

// handleGameAction applies check/call/raise/fold. Success produces no
// direct reply; the table broadcast carries the new state to everyone,
// the actor included.
func (c *Connection) handleGameAction(req *Request, kind ActionKind) {
	var action game.Action
	switch kind {
	case ActionCheck:
		action = game.Check
	case ActionCall:
		action = game.Call
	case ActionRaise:
		action = game.Raise
	case ActionFold:
		action = game.Fold
	}
	if err := c.svc.HandleGameAction(c.UserID(), action, money.FromFloat(req.Amount)); err != nil {
		c.fail(req, err)
	}
}

func (c *Connection) handleSitOut(req *Request) {
	if err := c.svc.SitOut(c.UserID()); err != nil {
		c.fail(req, err)
	}
}

func (c *Connection) handleSitIn(req *Request) {
	if err := c.svc.SitIn(c.UserID()); err != nil {
		c.fail(req, err)
	}
}

func (c *Connection) handleGetTableState(req *Request) {
	snap, err := c.svc.TableStateFor(c.UserID())
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("table_state", req.MessageID)
	resp["table_state"] = snap
	c.Send(resp)
}

func (c *Connection) handleGetStatistics(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	stats, err := c.svc.Store().StatsForUser(ctx, c.UserID())
	if err != nil {
		c.fail(req, err)
		return
	}
	resp := newResponse("statistics", req.MessageID)
	resp["hands_played"] = stats.HandsPlayed
	resp["hands_won"] = stats.HandsWon
	resp["biggest_pot"] = stats.BiggestPot.Float64()
	c.Send(resp)
}

func (c *Connection) handleGetHistory(req *Request) {
	ctx, cancel := c.reqCtx()
	defer cancel()

	records, err := c.svc.Store().HistoryForUser(ctx, c.UserID(), req.Limit)
	if err != nil {
		c.fail(req, err)
		return
	}
	out := make([]response, 0, len(records))
	for _, r := range records {
		out = append(out, response{
			"table_id":   r.TableID,
			"hand_id":    r.HandID,
			"won":        r.Won.Float64(),
			"net":        r.Net.Float64(),
			"created_at": r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	resp := newResponse("history", req.MessageID)
	resp["history"] = out
	c.Send(resp)
}

func (c *Connection) handleChat(req *Request) {
	if err := c.svc.Chat(c.UserID(), c.Username(), req.Message); err != nil {
		c.fail(req, err)
	}
}
