package recorder

// flush drains the buffer into the output. Write errors are counted but
// never reach the traced program.
func (r *Recorder) flush() {
	p := r.buf.Drain()
	if len(p) == 0 {
		return
	}

	n, err := r.out.Write(p)

	r.flushes++
	r.flushedBytes += uint64(n)

	if err != nil {
		r.writeErrors++
		r.lastWriteErr = err
	}

	if r.health == nil {
		return
	}

	r.health.Flushes.Inc()
	r.health.FlushedBytes.Add(float64(n))
	r.health.FlushSize.Observe(float64(n))

	if err != nil {
		r.health.FlushErrors.Inc()
	}
}
