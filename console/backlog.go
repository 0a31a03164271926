package console

// backlog is a FIFO of status lines holding at most maxSize entries;
// when full the oldest line is dropped.
type backlog struct {
	items   []string
	maxSize int
}

func newBacklog(maxSize int) *backlog {
	return &backlog{maxSize: maxSize}
}

// push adds a line at the rear of the queue
func (q *backlog) push(line string) {
	if len(q.items) == q.maxSize {
		q.items = q.items[1:]
	}
	q.items = append(q.items, line)
}

// drain removes and returns every queued line, oldest first
func (q *backlog) drain() []string {
	items := q.items
	q.items = nil
	return items
}

func (q *backlog) empty() bool {
	return len(q.items) == 0
}
