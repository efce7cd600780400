package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/provenance/app/services/ledger/handlers"
	"github.com/ardanlabs/provenance/business/web/errs"
	"github.com/ardanlabs/provenance/foundation/blockchain/database"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/ardanlabs/provenance/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/provenance/foundation/events"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// LedgerTests holds methods for each ledger subtest. This type allows
// passing dependencies for tests while still providing a convenient syntax
// when subtests are registered.
type LedgerTests struct {
	app  http.Handler
	evts *events.Events
}

// Test_Ledger is the entry point for testing the ledger api.
func Test_Ledger(t *testing.T) {
	strg, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to construct storage: %v", err)
	}

	evts := events.New()
	ev := func(v string, args ...any) {
		evts.Send(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Storage:   strg,
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the ledger: %v", err)
	}
	defer st.Shutdown()

	shutdown := make(chan os.Signal, 1)

	tests := LedgerTests{
		app: handlers.PublicMux(handlers.MuxConfig{
			Shutdown: shutdown,
			Log:      zap.NewNop().Sugar(),
			State:    st,
			Evts:     evts,
			Origin:   "*",
		}),
		evts: evts,
	}

	t.Run("submitBadInput", tests.submitBadInput)
	t.Run("submit", tests.submit)
	t.Run("history", tests.history)
	t.Run("transactions", tests.transactions)
	t.Run("chain", tests.chain)
	t.Run("blocksByNumber", tests.blocksByNumber)
	t.Run("events", tests.events)
	t.Run("historyPathID", tests.historyPathID)
}

// submitBadInput validates events are rejected before they reach the ledger.
func (lt *LedgerTests) submitBadInput(t *testing.T) {
	type table struct {
		name  string
		body  string
		field string
	}

	tt := []table{
		{name: "blank", body: `{"product_id": "   ", "role": "Farmer"}`, field: "product_id"},
		{name: "role", body: `{"product_id": "PROD-001", "role": "Pirate"}`, field: "role"},
		{name: "unknown", body: `{"product_id": "PROD-001", "role": "Farmer", "price": 10}`},
		{name: "json", body: `{"product_id": `},
	}

	t.Log("Given the need to reject bad events.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using %q input.", testID, tst.name)
			{
				f := func(t *testing.T) {
					r := httptest.NewRequest(http.MethodPost, "/v1/tx/submit", strings.NewReader(tst.body))
					w := httptest.NewRecorder()
					lt.app.ServeHTTP(w, r)

					if w.Code != http.StatusBadRequest {
						t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 for the response : %v", failed, testID, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould receive a status code of 400 for the response.", success, testID)

					var got errs.Response
					if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response to an error type : %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to unmarshal the response to an error type.", success, testID)

					if tst.field != "" {
						if _, exists := got.Fields[tst.field]; !exists {
							t.Fatalf("\t%s\tTest %d:\tShould report the %s field : %v", failed, testID, tst.field, got.Fields)
						}
						t.Logf("\t%s\tTest %d:\tShould report the %s field.", success, testID, tst.field)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

// submit validates an event is sealed into a new block.
func (lt *LedgerTests) submit(t *testing.T) {
	body := `{"product_id": " PROD-001 ", "role": "Farmer", "actor_name": "Ana", "location": "Lleida", "status": "Harvested", "extra_info": "organic"}`

	r := httptest.NewRequest(http.MethodPost, "/v1/tx/submit", strings.NewReader(body))
	w := httptest.NewRecorder()
	lt.app.ServeHTTP(w, r)

	t.Log("Given the need to record an event.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen using a valid event.", testID)
		{
			if w.Code != http.StatusCreated {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 201 for the response : %v : %s", failed, testID, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 201 for the response.", success, testID)

			var got struct {
				Status  string         `json:"status"`
				Warning string         `json:"warning"`
				Block   database.Block `json:"block"`
			}
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response : %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to unmarshal the response.", success, testID)

			if got.Block.Index != 2 || len(got.Block.Transactions) != 1 || got.Warning != "" {
				t.Fatalf("\t%s\tTest %d:\tShould seal the event into block 2 : %+v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould seal the event into block 2.", success, testID)

			tx := got.Block.Transactions[0]
			if tx.ItemID != "PROD-001" || tx.Notes != "organic" || tx.TimeStamp == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould record the trimmed event with a time : %+v", failed, testID, tx)
			}
			t.Logf("\t%s\tTest %d:\tShould record the trimmed event with a time.", success, testID)

			if err := got.Block.VerifyHash(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould return a block with a valid hash : %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould return a block with a valid hash.", success, testID)
		}
	}
}

// history validates the history of an item can be retrieved.
func (lt *LedgerTests) history(t *testing.T) {
	t.Log("Given the need to retrieve the history of an item.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the item is known.", testID)
		{
			var got []map[string]any
			lt.get(t, testID, "/v1/history/PROD-001", &got)

			if len(got) != 1 || got[0]["product_id"] != "PROD-001" {
				t.Fatalf("\t%s\tTest %d:\tShould get one entry : %v", failed, testID, got)
			}
			if got[0]["_block_index"] != float64(2) || got[0]["_block_hash"] == "" {
				t.Fatalf("\t%s\tTest %d:\tShould tag the entry with its block : %v", failed, testID, got[0])
			}
			t.Logf("\t%s\tTest %d:\tShould get one entry tagged with its block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the item is unknown.", testID)
		{
			r := httptest.NewRequest(http.MethodGet, "/v1/history/PROD-404", nil)
			w := httptest.NewRecorder()
			lt.app.ServeHTTP(w, r)

			if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
				t.Fatalf("\t%s\tTest %d:\tShould get an empty list : %d : %s", failed, testID, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould get an empty list.", success, testID)
		}
	}
}

// historyPathID validates the history of an item whose id holds slashes.
func (lt *LedgerTests) historyPathID(t *testing.T) {
	body := `{"product_id": "LOT/7/A", "role": "Distributor", "actor_name": "Marc", "location": "Reus", "status": "Shipped"}`

	r := httptest.NewRequest(http.MethodPost, "/v1/tx/submit", strings.NewReader(body))
	w := httptest.NewRecorder()
	lt.app.ServeHTTP(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("Should receive a status code of 201 for the response : %v : %s", w.Code, w.Body)
	}

	t.Log("Given the need to retrieve the history of an item with slashes in its id.")
	{
		for testID, url := range []string{"/v1/history/LOT/7/A", "/v1/history/LOT%2F7%2FA"} {
			t.Logf("\tTest %d:\tWhen using %s.", testID, url)
			{
				var got []map[string]any
				lt.get(t, testID, url, &got)

				if len(got) != 1 || got[0]["product_id"] != "LOT/7/A" {
					t.Fatalf("\t%s\tTest %d:\tShould get the one entry : %v", failed, testID, got)
				}
				t.Logf("\t%s\tTest %d:\tShould get the one entry.", success, testID)
			}
		}
	}
}

// transactions validates every event can be listed.
func (lt *LedgerTests) transactions(t *testing.T) {
	t.Log("Given the need to list every event.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain has one event.", testID)
		{
			var got []map[string]any
			lt.get(t, testID, "/v1/tx/list", &got)

			if len(got) != 1 || got[0]["block_index"] != float64(2) {
				t.Fatalf("\t%s\tTest %d:\tShould get the event with its block : %v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould get the event with its block.", success, testID)
		}
	}
}

// chain validates the chain, tip and verification endpoints agree.
func (lt *LedgerTests) chain(t *testing.T) {
	t.Log("Given the need to inspect the chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain has two blocks.", testID)
		{
			var chainFS database.ChainFS
			lt.get(t, testID, "/v1/chain", &chainFS)

			if len(chainFS.Chain) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould get two blocks : %d", failed, testID, len(chainFS.Chain))
			}
			t.Logf("\t%s\tTest %d:\tShould get two blocks.", success, testID)

			var tip struct {
				Index   uint64 `json:"index"`
				Hash    string `json:"hash"`
				Pending int    `json:"pending"`
				Dirty   bool   `json:"dirty"`
			}
			lt.get(t, testID, "/v1/chain/tip", &tip)

			exp := chainFS.Chain[1]
			if tip.Index != exp.Index || tip.Hash != exp.Hash || tip.Pending != 0 || tip.Dirty {
				t.Fatalf("\t%s\tTest %d:\tShould report the last block as the tip : %+v", failed, testID, tip)
			}
			t.Logf("\t%s\tTest %d:\tShould report the last block as the tip.", success, testID)

			var verify struct {
				Valid  bool `json:"valid"`
				Blocks int  `json:"blocks"`
			}
			lt.get(t, testID, "/v1/chain/verify", &verify)

			if !verify.Valid || verify.Blocks != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould verify the chain : %+v", failed, testID, verify)
			}
			t.Logf("\t%s\tTest %d:\tShould verify the chain.", success, testID)
		}
	}
}

// blocksByNumber validates ranges of blocks can be retrieved.
func (lt *LedgerTests) blocksByNumber(t *testing.T) {
	type table struct {
		name   string
		url    string
		status int
		exp    []uint64
	}

	tt := []table{
		{name: "all", url: "/v1/blocks/list/1/latest", status: http.StatusOK, exp: []uint64{1, 2}},
		{name: "latest", url: "/v1/blocks/list/latest/latest", status: http.StatusOK, exp: []uint64{2}},
		{name: "past", url: "/v1/blocks/list/5/latest", status: http.StatusNoContent},
		{name: "reversed", url: "/v1/blocks/list/2/1", status: http.StatusBadRequest},
		{name: "number", url: "/v1/blocks/list/one/2", status: http.StatusBadRequest},
	}

	t.Log("Given the need to retrieve blocks by number.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen using %s.", testID, tst.url)
			{
				f := func(t *testing.T) {
					r := httptest.NewRequest(http.MethodGet, tst.url, nil)
					w := httptest.NewRecorder()
					lt.app.ServeHTTP(w, r)

					if w.Code != tst.status {
						t.Fatalf("\t%s\tTest %d:\tShould receive a status code of %d for the response : %v", failed, testID, tst.status, w.Code)
					}
					t.Logf("\t%s\tTest %d:\tShould receive a status code of %d for the response.", success, testID, tst.status)

					if tst.status != http.StatusOK {
						return
					}

					var blocks []database.Block
					if err := json.NewDecoder(w.Body).Decode(&blocks); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response : %v", failed, testID, err)
					}

					got := []uint64{}
					for _, block := range blocks {
						got = append(got, block.Index)
					}
					if diff := cmp.Diff(tst.exp, got); diff != "" {
						t.Fatalf("\t%s\tTest %d:\tShould get the expected blocks, diff:\n%s", failed, testID, diff)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected blocks.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

// events validates sealed blocks are streamed over a websocket.
func (lt *LedgerTests) events(t *testing.T) {
	srv := httptest.NewServer(lt.app)
	defer srv.Close()

	t.Log("Given the need to stream sealed blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a client is connected.", testID)
		{
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to connect : %v", failed, testID, err)
			}
			defer conn.Close()
			t.Logf("\t%s\tTest %d:\tShould be able to connect.", success, testID)

			// Wait for the handler to register the client.
			deadline := time.Now().Add(5 * time.Second)
			for lt.evts.Count() == 0 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest %d:\tShould register the client.", failed, testID)
				}
				time.Sleep(10 * time.Millisecond)
			}

			body := `{"product_id": "PROD-002", "role": "Retailer", "status": "Received"}`
			resp, err := http.Post(srv.URL+"/v1/tx/submit", "application/json", strings.NewReader(body))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to submit : %v", failed, testID, err)
			}
			resp.Body.Close()

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould receive an event : %v", failed, testID, err)
			}

			if !strings.HasPrefix(string(msg), events.Prefix) || !strings.Contains(string(msg), "PROD-002") {
				t.Fatalf("\t%s\tTest %d:\tShould receive the sealed block : %s", failed, testID, msg)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the sealed block.", success, testID)
		}
	}
}

// =============================================================================

func (lt *LedgerTests) get(t *testing.T, testID int, url string, val any) {
	r := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	lt.app.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 for %s : %v", failed, testID, url, w.Code)
	}

	if err := json.NewDecoder(w.Body).Decode(val); err != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal the response for %s : %v", failed, testID, url, err)
	}
}
