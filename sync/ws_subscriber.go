package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dexquoter/dexquoter/dexcommon"
	"github.com/dexquoter/dexquoter/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
)

// WSSubscriber opens an eth_subscribe("logs", ...) feed over a JSON-RPC
// websocket, the Go-idiomatic equivalent of original_source's
// get_ws_provider + client.subscribe_logs, using gorilla/websocket the way
// the rest of this module's streaming layer does.
type WSSubscriber struct {
	URL    string
	Logger logging.Logger
}

func (s *WSSubscriber) logger() logging.Logger {
	if s.Logger == nil {
		return logging.Nop{}
	}
	return s.Logger
}

type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type subscribeResponse struct {
	ID     int             `json:"id"`
	Result string          `json:"result"`
	Error  *json.RawMessage `json:"error"`
}

type subscriptionNotification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type rawLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    string         `json:"data"`
	TxHash  common.Hash    `json:"transactionHash"`
}

// SubscribeLogs dials URL, issues eth_subscribe for every log emitted by
// addresses (the filter names no topics; Dispatch ignores topics it does
// not recognize), and streams decoded Log values on the
// returned channel until ctx is cancelled or the connection drops. The
// channel is closed on return.
func (s *WSSubscriber) SubscribeLogs(ctx context.Context, addresses []dexcommon.Address) (<-chan Log, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("sync: dial ws provider: %w", err)
	}

	filter := map[string]any{"address": hexAddresses(addresses)}
	req := subscribeRequest{JSONRPC: "2.0", ID: 1, Method: "eth_subscribe", Params: []any{"logs", filter}}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sync: send eth_subscribe: %w", err)
	}

	var resp subscribeResponse
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sync: read eth_subscribe ack: %w", err)
	}
	if resp.Error != nil {
		conn.Close()
		return nil, fmt.Errorf("sync: eth_subscribe rejected: %s", *resp.Error)
	}

	out := make(chan Log, 256)
	go s.pump(ctx, conn, resp.Result, out)
	return out, nil
}

func (s *WSSubscriber) pump(ctx context.Context, conn *websocket.Conn, subID string, out chan<- Log) {
	defer close(out)
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var note subscriptionNotification
		if err := conn.ReadJSON(&note); err != nil {
			if ctx.Err() == nil {
				s.logger().Warn("sync: websocket read failed", "error", err)
			}
			return
		}
		if note.Params.Subscription != subID {
			continue
		}

		var rl rawLog
		if err := json.Unmarshal(note.Params.Result, &rl); err != nil {
			s.logger().Warn("sync: decode log notification failed", "error", err)
			continue
		}
		log := Log{Address: rl.Address, Topics: rl.Topics, Data: decodeHexData(rl.Data), TxHash: rl.TxHash}
		select {
		case out <- log:
		case <-ctx.Done():
			return
		}
	}
}

func hexAddresses(addresses []dexcommon.Address) []string {
	out := make([]string, len(addresses))
	for i, a := range addresses {
		out[i] = a.Hex()
	}
	return out
}

func decodeHexData(s string) []byte {
	return common.FromHex(s)
}
