package event

import (
	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/errors"
)

// interpret maps a command completion to a cache-entry event. Most
// completions produce none: reads, unmet conditional writes, and plain
// misses are silent.
func interpret(c command.Completion) (CacheEntryEvent, bool) {
	if c.Err != nil {
		return interpretError(c)
	}

	switch c.Command {
	case command.CmdPut:
		e := newEvent(c.Handle, Inserted, c.Command)
		e.Key = c.Key
		return e, true

	case command.CmdPutNew:
		if stored, _ := c.Result.(bool); !stored {
			return CacheEntryEvent{}, false
		}
		e := newEvent(c.Handle, Inserted, c.Command)
		e.Key = c.Key
		return e, true

	case command.CmdPutAll:
		e := newEvent(c.Handle, Inserted, c.Command)
		e.Keys = c.Keys
		return e, true

	case command.CmdPutNewAll:
		if stored, _ := c.Result.(bool); !stored {
			return CacheEntryEvent{}, false
		}
		e := newEvent(c.Handle, Inserted, c.Command)
		e.Keys = c.Keys
		return e, true

	case command.CmdReplace, command.CmdExpire, command.CmdTouch:
		if applied, _ := c.Result.(bool); !applied {
			return CacheEntryEvent{}, false
		}
		e := newEvent(c.Handle, Updated, c.Command)
		e.Key = c.Key
		return e, true

	case command.CmdUpdateCounter:
		result, ok := c.Result.(command.CounterResult)
		if !ok {
			return CacheEntryEvent{}, false
		}
		t := Updated
		if result.Created() {
			t = Inserted
		}
		e := newEvent(c.Handle, t, c.Command)
		e.Key = c.Key
		return e, true

	case command.CmdDelete, command.CmdTake:
		e := newEvent(c.Handle, Deleted, c.Command)
		e.Key = c.Key
		return e, true

	case command.CmdDeleteAll:
		if count, _ := c.Result.(int); count <= 0 {
			return CacheEntryEvent{}, false
		}
		e := newEvent(c.Handle, Deleted, c.Command)
		e.Query = c.Query
		return e, true

	default:
		return CacheEntryEvent{}, false
	}
}

// interpretError surfaces expiration discovered by a read: a key found to
// have lapsed on fetch/take/ttl/has_key is an Expired event, every other
// failure is silent.
func interpretError(c command.Completion) (CacheEntryEvent, bool) {
	switch c.Command {
	case command.CmdFetch, command.CmdTake, command.CmdTTL, command.CmdHasKey:
		if !errors.IsExpired(c.Err) {
			return CacheEntryEvent{}, false
		}
		e := newEvent(c.Handle, Expired, c.Command)
		e.Key = c.Key
		return e, true
	default:
		return CacheEntryEvent{}, false
	}
}
