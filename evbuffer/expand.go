package evbuffer

// expandFast makes sure the free space of at most nvecs segments, starting at
// the tail of lastWithData, adds up to datlen. Segments are only appended or
// replaced after lastWithData, so unread bytes never move.
func (b *Buffer) expandFast(datlen, nvecs int) error {
	if err := b.checkSize(datlen); err != nil {
		return err
	}
	s := b.lastWithData
	if s == nil {
		b.append(b.newSegment(datlen))
		b.lastWithData = b.first
		return nil
	}

	avail, used := 0, 0
	if s.space() == 0 {
		s = s.next
	}
	for ; s != nil && used < nvecs; s = s.next {
		avail += s.space()
		used++
		if avail >= datlen {
			return nil
		}
	}
	if used < nvecs {
		b.append(b.newSegment(datlen - avail))
		return nil
	}

	// Every usable slot is taken and still too small. Replace the empty tail
	// with a single segment big enough on its own.
	b.dropEmptyTail()
	if b.lastWithData == nil {
		b.append(b.newSegment(datlen))
		b.lastWithData = b.first
		return nil
	}
	if space := b.lastWithData.space(); space > 0 && nvecs > 1 {
		b.append(b.newSegment(datlen - space))
		return nil
	}
	b.append(b.newSegment(datlen))
	return nil
}

// expandSingle returns a segment with at least datlen contiguous free bytes
// placed right after the unread data.
func (b *Buffer) expandSingle(datlen int) (*segment, error) {
	if err := b.checkSize(datlen); err != nil {
		return nil, err
	}
	s := b.lastWithData
	if s == nil {
		s = b.newSegment(datlen)
		b.append(s)
		b.lastWithData = s
		return s, nil
	}
	if s.space() >= datlen {
		return s, nil
	}
	if s.off == 0 && !s.isFile() && len(s.buf) >= datlen {
		s.misalign = 0
		return s, nil
	}
	if next := s.next; next != nil && next.space() >= datlen {
		return next, nil
	}
	b.dropEmptyTail()
	if b.lastWithData == nil {
		s = b.newSegment(datlen)
		b.append(s)
		b.lastWithData = s
		return s, nil
	}
	s = b.newSegment(datlen)
	b.append(s)
	return s, nil
}

// readSetupVecs returns up to nvecs windows of free space covering at most
// howmuch bytes, starting after the unread data, and the segment backing the
// first window.
func (b *Buffer) readSetupVecs(howmuch, nvecs int) ([][]byte, *segment) {
	s := b.lastWithData
	if s != nil && s.space() == 0 {
		s = s.next
	}
	start := s
	vecs := make([][]byte, 0, nvecs)
	for ; s != nil && len(vecs) < nvecs && howmuch > 0; s = s.next {
		space := s.space()
		if space == 0 {
			continue
		}
		if space > howmuch {
			space = howmuch
		}
		vecs = append(vecs, s.tail()[:space])
		howmuch -= space
	}
	return vecs, start
}

// commitRead attributes n freshly read bytes to the segments starting at start,
// in order, each absorbing at most its free space.
func (b *Buffer) commitRead(start *segment, nvecs, n int) {
	remaining := n
	for s := start; s != nil && nvecs > 0 && remaining > 0; s = s.next {
		space := s.space()
		if space == 0 {
			continue
		}
		nvecs--
		if space < remaining {
			s.off += space
			remaining -= space
			b.lastWithData = s
			continue
		}
		s.off += remaining
		remaining = 0
		b.lastWithData = s
	}
	if remaining > 0 {
		// The OS reported more than the vectors could hold.
		b.logger.Errorf("evbuffer: %d of %d read bytes could not be attributed", remaining, n)
		n -= remaining
	}
	b.totalLen += n
	b.nAddForCB += n
}

// commitSingle records n bytes written into the tail of s.
func (b *Buffer) commitSingle(s *segment, n int) {
	s.off += n
	b.lastWithData = s
	b.totalLen += n
	b.nAddForCB += n
}
