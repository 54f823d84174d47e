// Package protocol implements the line protocol the CLI/TCP front end
// speaks to the matching core: one textual command per line in, one
// textual report per line out. Every field is a human-typeable scalar, so
// a plain text framing beats packing bytes.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"clob/internal/common"
)

var (
	ErrEmptyLine      = errors.New("empty command line")
	ErrUnknownVerb    = errors.New("unknown command verb")
	ErrWrongArgCount  = errors.New("wrong number of arguments")
	ErrMalformedField = errors.New("malformed field")
)

// Verb identifies a command line's first token.
type Verb string

const (
	VerbLimit   Verb = "LIMIT"
	VerbMarket  Verb = "MARKET"
	VerbStop    Verb = "STOP"
	VerbCancel  Verb = "CANCEL"
	VerbAmend   Verb = "AMEND"
	VerbPing    Verb = "PING"
	VerbBestBid Verb = "BESTBID"
	VerbBestAsk Verb = "BESTASK"
	VerbDepth   Verb = "DEPTH"
)

// Command is a single parsed client request.
type Command struct {
	Verb      Verb
	ID        uint64
	Side      common.Side
	Price     int64
	NewPrice  int64
	Shares    int64
	TIF       common.TIF
	Correlate uuid.UUID
}

// ParseCommand parses one line of client input. Fields are space
// separated; trailing whitespace is tolerated.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyLine
	}

	verb := Verb(strings.ToUpper(fields[0]))
	args := fields[1:]

	switch verb {
	case VerbPing:
		return Command{Verb: VerbPing}, nil

	case VerbBestBid:
		return Command{Verb: VerbBestBid}, nil

	case VerbBestAsk:
		return Command{Verb: VerbBestAsk}, nil

	case VerbDepth:
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%w: DEPTH wants 2 args, got %d", ErrWrongArgCount, len(args))
		}
		side, err := parseSide(args[0])
		if err != nil {
			return Command{}, err
		}
		price, err := parseInt(args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbDepth, Side: side, Price: price}, nil

	case VerbLimit:
		if len(args) != 5 {
			return Command{}, fmt.Errorf("%w: LIMIT wants 5 args, got %d", ErrWrongArgCount, len(args))
		}
		id, err := parseUint(args[0])
		if err != nil {
			return Command{}, err
		}
		side, err := parseSide(args[1])
		if err != nil {
			return Command{}, err
		}
		price, err := parseInt(args[2])
		if err != nil {
			return Command{}, err
		}
		shares, err := parseInt(args[3])
		if err != nil {
			return Command{}, err
		}
		tif, err := parseTIF(args[4])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbLimit, ID: id, Side: side, Price: price, Shares: shares, TIF: tif}, nil

	case VerbMarket:
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%w: MARKET wants 2 args, got %d", ErrWrongArgCount, len(args))
		}
		side, err := parseSide(args[0])
		if err != nil {
			return Command{}, err
		}
		shares, err := parseInt(args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbMarket, Side: side, Shares: shares}, nil

	case VerbStop:
		if len(args) != 5 {
			return Command{}, fmt.Errorf("%w: STOP wants 5 args, got %d", ErrWrongArgCount, len(args))
		}
		id, err := parseUint(args[0])
		if err != nil {
			return Command{}, err
		}
		side, err := parseSide(args[1])
		if err != nil {
			return Command{}, err
		}
		price, err := parseInt(args[2])
		if err != nil {
			return Command{}, err
		}
		shares, err := parseInt(args[3])
		if err != nil {
			return Command{}, err
		}
		tif, err := parseTIF(args[4])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbStop, ID: id, Side: side, Price: price, Shares: shares, TIF: tif}, nil

	case VerbCancel:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: CANCEL wants 1 arg, got %d", ErrWrongArgCount, len(args))
		}
		id, err := parseUint(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbCancel, ID: id}, nil

	case VerbAmend:
		if len(args) != 3 {
			return Command{}, fmt.Errorf("%w: AMEND wants 3 args, got %d", ErrWrongArgCount, len(args))
		}
		id, err := parseUint(args[0])
		if err != nil {
			return Command{}, err
		}
		shares, err := parseInt(args[1])
		if err != nil {
			return Command{}, err
		}
		price, err := parseInt(args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbAmend, ID: id, Shares: shares, NewPrice: price}, nil

	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownVerb, fields[0])
	}
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedField, s, err)
	}
	return v, nil
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedField, s, err)
	}
	return v, nil
}

func parseSide(s string) (common.Side, error) {
	switch strings.ToUpper(s) {
	case "BID", "BUY", "B":
		return common.Bid, nil
	case "ASK", "SELL", "S":
		return common.Ask, nil
	default:
		return 0, fmt.Errorf("%w: side %q", ErrMalformedField, s)
	}
}

func parseTIF(s string) (common.TIF, error) {
	switch strings.ToUpper(s) {
	case "GTC":
		return common.GTC, nil
	case "DAY":
		return common.DAY, nil
	case "IOC":
		return common.IOC, nil
	case "FOK":
		return common.FOK, nil
	default:
		return 0, fmt.Errorf("%w: tif %q", ErrMalformedField, s)
	}
}
