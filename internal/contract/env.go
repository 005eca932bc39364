package contract

import (
	"encoding/json"
	"time"

	"github.com/matrixise/tokend/internal/token"
)

// Env describes the block context of one invocation. The host guarantees
// heights are strictly increasing across invocations.
type Env struct {
	Height       uint64
	Time         time.Time
	InvocationID string
}

// MessageInfo carries the caller identity, authenticated by the host before
// contract code runs.
type MessageInfo struct {
	Sender string
}

// Attribute is one observability key/value pair on a Response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ReceiveMsg is the notification emitted by Send/SendFrom, addressed to the
// recipient contract. Delivery is a transactional sub-step: if the receiver
// rejects it, the host discards the whole invocation.
type ReceiveMsg struct {
	Contract string          `json:"contract"`
	Sender   string          `json:"sender"`
	Amount   token.Amount    `json:"amount"`
	Msg      json.RawMessage `json:"msg,omitempty"`
}

// Response describes a successful invocation: append-only attributes for the
// event log plus any notifications to deliver before commit.
type Response struct {
	Attributes []Attribute  `json:"attributes"`
	Messages   []ReceiveMsg `json:"messages,omitempty"`
}

func newResponse(action string) *Response {
	return &Response{Attributes: []Attribute{{Key: "action", Value: action}}}
}

func (r *Response) attr(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attr returns the value of the named attribute, or "" if absent.
func (r *Response) Attr(key string) string {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}
