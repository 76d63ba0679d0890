package pipeline

import "sync"

// ledger is the FIFO of reservations awaiting commit. Each reservation
// gets a monotonically increasing ticket, and a worker may only write
// its record while its own ticket sits at the front. Tickets, not
// sequence keys, identify entries: keys can collide, positions cannot.
type ledger struct {
	mu      sync.Mutex
	turn    *sync.Cond
	tickets []uint64
	next    uint64
}

func newLedger() *ledger {
	l := &ledger{}
	l.turn = sync.NewCond(&l.mu)
	return l
}

// reserve appends a new entry to the tail and returns its ticket.
// Callers serialize reserve with the dequeue it follows, so the ledger
// mirrors dequeue order exactly.
func (l *ledger) reserve() uint64 {
	l.mu.Lock()
	ticket := l.next
	l.next++
	l.tickets = append(l.tickets, ticket)
	l.mu.Unlock()
	return ticket
}

// commit blocks until ticket reaches the front, runs write while still
// holding the ledger lock, pops the front and wakes every waiter.
//
// Broadcast rather than Signal: any subset of the waiters may be the one
// whose ticket is now at the front, and only the predicate re-check can
// tell. Signal could wake an ineligible worker and leave the eligible
// one asleep.
func (l *ledger) commit(ticket uint64, write func()) {
	l.mu.Lock()
	for len(l.tickets) == 0 || l.tickets[0] != ticket {
		l.turn.Wait()
	}
	write()
	l.tickets = l.tickets[1:]
	l.turn.Broadcast()
	l.mu.Unlock()
}

// pending reports how many entries are still awaiting commit.
func (l *ledger) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tickets)
}
