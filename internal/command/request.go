// Package command turns decoded frames into typed Requests and runs
// them through a two-phase execution model: each Request's Apply
// method runs inside the executor goroutine with exclusive access to
// the Keyspace, and returns a Response whose Render runs later,
// outside the executor, touching no shared state.
package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/respcore/respd/internal/keyspace"
)

// Request is a validated, typed command ready to be applied to a
// Keyspace. Implementations carry only their own validated arguments.
type Request interface {
	// Apply runs under the executor's exclusive ownership of the
	// keyspace and returns a Response. now is the time the executor
	// began applying the request; none of the requests in this package
	// reads it (GET decides lazy expiry from its own SnapshotTime,
	// captured at build time).
	Apply(ks *keyspace.Keyspace, now time.Time) Response
}

// Build routes name (case-insensitive) to a per-command constructor,
// validating arity and argument shape, and returns a typed Request.
// args does not include the command name itself.
func Build(name string, args [][]byte) (Request, error) {
	upper := strings.ToUpper(name)
	switch upper {
	case "PING":
		return buildPing(args)
	case "ECHO":
		return buildEcho(args)
	case "GET":
		return buildGet(args)
	case "SET":
		return buildSet(args)
	case "RPUSH":
		return buildRPush(args)
	case "LPUSH":
		return buildLPush(args)
	case "LPOP":
		return buildLPop(args)
	case "LLEN":
		return buildLLen(args)
	case "LRANGE":
		return buildLRange(args)
	case "BLPOP":
		return buildBLPop(args)
	default:
		return nil, &UnknownCommandError{Command: name}
	}
}

func invalidArgs(cmd, reason string) error {
	return &InvalidArgumentsError{Command: cmd, Reason: reason}
}

// --- PING / ECHO ---

// PingRequest carries no arguments.
type PingRequest struct{}

func buildPing(args [][]byte) (Request, error) {
	if len(args) != 0 {
		return nil, invalidArgs("ping", "wrong number of arguments")
	}
	return &PingRequest{}, nil
}

// EchoRequest carries the body to echo back.
type EchoRequest struct {
	Body []byte
}

func buildEcho(args [][]byte) (Request, error) {
	if len(args) != 1 {
		return nil, invalidArgs("echo", "wrong number of arguments")
	}
	return &EchoRequest{Body: args[0]}, nil
}

// --- GET / SET ---

// GetRequest carries the key to look up and the snapshot time captured
// at build time, used to decide lazy expiry.
type GetRequest struct {
	Key          string
	SnapshotTime time.Time
}

func buildGet(args [][]byte) (Request, error) {
	if len(args) != 1 {
		return nil, invalidArgs("get", "wrong number of arguments")
	}
	return &GetRequest{Key: string(args[0]), SnapshotTime: time.Now()}, nil
}

// SetRequest carries the key/value to store and an optional absolute
// expiry computed at build time from a relative PX duration.
type SetRequest struct {
	Key            string
	Value          []byte
	AbsoluteExpiry time.Time // zero means no expiry
}

func buildSet(args [][]byte) (Request, error) {
	if len(args) != 2 && len(args) != 4 {
		return nil, invalidArgs("set", "wrong number of arguments")
	}

	req := &SetRequest{Key: string(args[0]), Value: args[1]}
	if len(args) == 4 {
		option := strings.ToUpper(string(args[2]))
		if option != "PX" {
			return nil, invalidArgs("set", "syntax error")
		}
		ms, err := strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil || ms < 0 {
			return nil, invalidArgs("set", "value is not an integer or out of range")
		}
		req.AbsoluteExpiry = time.Now().Add(time.Duration(ms) * time.Millisecond)
	}
	return req, nil
}

// --- List commands ---

// RPushRequest carries the key and values to append, in argument order.
type RPushRequest struct {
	Key    string
	Values [][]byte
}

func buildRPush(args [][]byte) (Request, error) {
	if len(args) < 2 {
		return nil, invalidArgs("rpush", "wrong number of arguments")
	}
	return &RPushRequest{Key: string(args[0]), Values: args[1:]}, nil
}

// LPushRequest carries the key and values to prepend, already reversed
// so the final list order matches Redis's LPUSH semantics (the last
// argument ends up at index 0).
type LPushRequest struct {
	Key    string
	Values [][]byte
}

func buildLPush(args [][]byte) (Request, error) {
	if len(args) < 2 {
		return nil, invalidArgs("lpush", "wrong number of arguments")
	}
	values := args[1:]
	reversed := make([][]byte, len(values))
	for i, v := range values {
		reversed[len(values)-1-i] = v
	}
	return &LPushRequest{Key: string(args[0]), Values: reversed}, nil
}

// LPopRequest carries the key and an optional element count.
type LPopRequest struct {
	Key   string
	Count *int // nil means "pop one"
}

func buildLPop(args [][]byte) (Request, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, invalidArgs("lpop", "wrong number of arguments")
	}
	req := &LPopRequest{Key: string(args[0])}
	if len(args) == 2 {
		n, err := strconv.ParseUint(string(args[1]), 10, 32)
		if err != nil {
			return nil, invalidArgs("lpop", "value is not an integer or out of range")
		}
		count := int(n)
		req.Count = &count
	}
	return req, nil
}

// LLenRequest carries the key to measure.
type LLenRequest struct {
	Key string
}

func buildLLen(args [][]byte) (Request, error) {
	if len(args) != 1 {
		return nil, invalidArgs("llen", "wrong number of arguments")
	}
	return &LLenRequest{Key: string(args[0])}, nil
}

// LRangeRequest carries the key and signed start/end indices.
type LRangeRequest struct {
	Key        string
	Start, End int
}

func buildLRange(args [][]byte) (Request, error) {
	if len(args) != 3 {
		return nil, invalidArgs("lrange", "wrong number of arguments")
	}
	start, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return nil, invalidArgs("lrange", "value is not an integer or out of range")
	}
	end, err := strconv.Atoi(string(args[2]))
	if err != nil {
		return nil, invalidArgs("lrange", "value is not an integer or out of range")
	}
	return &LRangeRequest{Key: string(args[0]), Start: start, End: end}, nil
}

// BLPopRequest carries the key to await and a timeout in seconds; 0
// means block forever.
type BLPopRequest struct {
	Key            string
	TimeoutSeconds uint64
}

func buildBLPop(args [][]byte) (Request, error) {
	if len(args) != 2 {
		return nil, invalidArgs("blpop", "wrong number of arguments")
	}
	timeout, err := strconv.ParseUint(string(args[1]), 10, 64)
	if err != nil {
		return nil, invalidArgs("blpop", "timeout is not an integer or out of range")
	}
	return &BLPopRequest{Key: string(args[0]), TimeoutSeconds: timeout}, nil
}
