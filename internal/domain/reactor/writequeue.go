package reactor

// writeBuf is one queued write — a tagged union in the original (raw bytes
// vs. a UDP datagram with its destination address); here a plain struct
// with an optional address, which is the idiomatic Go rendition of that
// union.
type writeBuf struct {
	data    []byte
	offset  int // bytes already written
	udpAddr []byte // non-nil for a UDP send
}

func (b *writeBuf) remaining() []byte {
	return b.data[b.offset:]
}

func (b *writeBuf) done() bool {
	return b.offset >= len(b.data)
}

// writeQueue holds two FIFOs, high and low priority. Low-priority writes
// only drain once high is empty; a partial write anywhere promotes the
// rest of that buffer into the high queue, so a large low-priority payload
// that started draining can't be cut in line by a later low-priority
// write — exactly socket_send_buffer_list's policy.
type writeQueue struct {
	high []writeBuf
	low  []writeBuf
}

func (q *writeQueue) pushHigh(b writeBuf) {
	q.high = append(q.high, b)
}

func (q *writeQueue) pushLow(b writeBuf) {
	q.low = append(q.low, b)
}

func (q *writeQueue) empty() bool {
	return len(q.high) == 0 && len(q.low) == 0
}

func (q *writeQueue) pendingBytes() int {
	n := 0
	for _, b := range q.high {
		n += len(b.data) - b.offset
	}
	for _, b := range q.low {
		n += len(b.data) - b.offset
	}
	return n
}

// front returns the next buffer to write, preferring high over low.
func (q *writeQueue) front() (*writeBuf, bool) {
	if len(q.high) > 0 {
		return &q.high[0], true
	}
	if len(q.low) > 0 {
		return &q.low[0], true
	}
	return nil, false
}

// advance records n bytes written to the front buffer. If the buffer is
// now fully sent it is popped; if it was a partial write out of the low
// queue, the remainder is promoted to the high queue so later low writes
// don't overtake it.
func (q *writeQueue) advance(n int) {
	if len(q.high) > 0 {
		b := &q.high[0]
		b.offset += n
		if b.done() {
			q.high = q.high[1:]
		}
		return
	}
	if len(q.low) == 0 {
		return
	}
	b := q.low[0]
	b.offset += n
	q.low = q.low[1:]
	if !b.done() {
		q.high = append(q.high, b)
	}
}
