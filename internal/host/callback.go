package host

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AIAI/extension/pkg/core"
)

// OrderFunction is the ExtensionCallback function name orders are sent under
const OrderFunction = ":ORDER:"

// CallbackWriter matches a3interface.WriteArmaCallback
type CallbackWriter func(name, function string, data ...string) error

// OrderMessage is the JSON payload of one :ORDER: callback
type OrderMessage struct {
	Side     core.Side   `json:"side"`
	SquadID  int         `json:"squadId"`
	ZoneID   int         `json:"zoneId"`
	Target   [3]float64  `json:"target"`
	Action   core.Action `json:"action"`
	Priority int         `json:"priority"`
	IssuedAt uint64      `json:"issuedAt"`
	Manual   bool        `json:"manual"`
}

// NewOrderMessage flattens an order for SQF, which reads positions as arrays
func NewOrderMessage(side core.Side, o core.Order) OrderMessage {
	return OrderMessage{
		Side:     side,
		SquadID:  o.SquadID,
		ZoneID:   o.ZoneID,
		Target:   [3]float64{o.Target.X, o.Target.Y, o.Target.Z},
		Action:   o.Action,
		Priority: o.Priority,
		IssuedAt: o.IssuedAt,
		Manual:   o.Manual,
	}
}

// CallbackSink delivers orders as one ExtensionCallback per order. It implements
// commander.OrderSink.
type CallbackSink struct {
	name  string
	write CallbackWriter
}

// NewCallbackSink sends callbacks named name through write
func NewCallbackSink(name string, write CallbackWriter) *CallbackSink {
	return &CallbackSink{name: name, write: write}
}

// Dispatch sends every order. When some fail the error is a *BatchError naming the
// squads whose orders did not reach the host, so the commander retries just those.
func (s *CallbackSink) Dispatch(side core.Side, orders []core.Order) error {
	var failed BatchError
	for _, o := range orders {
		payload, err := json.Marshal(NewOrderMessage(side, o))
		if err == nil {
			err = s.write(s.name, OrderFunction, string(payload))
		}
		if err != nil {
			failed.Squads = append(failed.Squads, o.SquadID)
			failed.Errs = append(failed.Errs, fmt.Errorf("order for squad %d: %w", o.SquadID, err))
		}
	}
	if len(failed.Squads) == 0 {
		return nil
	}
	return &failed
}

// BatchError reports the orders of a Dispatch call that could not be delivered
type BatchError struct {
	Squads []int
	Errs   []error
}

func (e *BatchError) Error() string {
	return errors.Join(e.Errs...).Error()
}

func (e *BatchError) Unwrap() []error { return e.Errs }

// SquadIDs returns the squads whose orders failed
func (e *BatchError) SquadIDs() []int { return e.Squads }
