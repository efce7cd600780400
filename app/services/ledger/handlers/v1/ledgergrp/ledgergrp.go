// Package ledgergrp maintains the group of handlers for ledger access.
package ledgergrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/provenance/business/sys/metrics"
	"github.com/ardanlabs/provenance/business/web/errs"
	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/ardanlabs/provenance/foundation/events"
	"github.com/ardanlabs/provenance/foundation/validate"
	"github.com/ardanlabs/provenance/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// SubmitTransaction records a new event for an item. The event is sealed
// into a new block before the call returns.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	ntx.trim()
	if ntx.ItemID == "" {
		return validate.NewFieldError("product_id", "Product ID can't be empty")
	}
	if err := validate.Check(ntx); err != nil {
		return err
	}

	tx, err := ntx.toTransaction(database.ToSeconds(v.Now))
	if err != nil {
		return errs.NewLedger(err)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx)

	resp := submitted{
		Status: "sealed",
	}

	block, err := h.State.SubmitTransaction(ctx, tx)
	switch {
	case err == nil:
		metrics.AddSealed(ctx)

	case errors.Is(err, database.ErrStorageUnavailable) && block.Index > 0:
		metrics.AddSealed(ctx)
		metrics.AddUnsaved(ctx)

		h.Log.Infow("submit tran", "traceid", v.TraceID, "status", "WARNING", "ERROR", err)
		resp.Warning = fmt.Sprintf("block sealed but not persisted: %s", err)

	default:
		return errs.NewLedger(err)
	}

	resp.Block = block

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// History returns every event recorded for the specified item ordered by
// the time of the event.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	itemID := web.Param(r, "id")

	history := h.State.QueryHistory(itemID)

	return web.Respond(ctx, w, history, http.StatusOK)
}

// Transactions returns every event in the chain in chain order.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryFlatten(), http.StatusOK)
}

// Chain returns the chain in its storage form.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, database.NewChainFS(h.State.QueryRawChain()), http.StatusOK)
}

// Tip returns the latest block information.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock()

	resp := tip{
		Index:   latest.Index,
		Hash:    h.State.RetrieveTipHash(),
		Pending: h.State.QueryPendingCount(),
		Dirty:   h.State.RetrieveIsDirty(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Verify recomputes every block hash and reports the first block that
// breaks the chain rules.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := verification{
		Valid:  true,
		Blocks: len(h.State.QueryRawChain()),
	}

	if err := h.State.Verify(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
		if be := database.GetBlockError(err); be != nil {
			resp.Block = be.Index
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the ledger.
	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		dropped, _ := h.Evts.Release(v.TraceID)
		h.Log.Infow("websocket", "traceid", v.TraceID, "status", "released", "dropped", dropped)
	}()

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the ledger or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
