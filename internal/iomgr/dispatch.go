package iomgr

// dispatch hands op to the kernel with region as the request target. If the
// submission doesn't end up pending, op is reclaimed right here and its callback
// runs on this goroutine; a backlogged op inheriting the ticket is dispatched next.
func (e *Engine) dispatch(op *Op, region []byte) {
	for op != nil {
		op = e.submit(op, region)
		if op != nil { region = op.buf }
	}
}

func (e *Engine) submit(op *Op, region []byte) *Op {
	e.reg.lodge(op)

	status, err := e.port.Submit(op.Opcode, op.fd, region, &op.hdr)
	if err == nil && status == StatusPending {
		// kernel's now
		return nil
	}

	// Nothing will ever complete for this key, so it is still ours to take back
	e.reg.take(op.hdr.Key)
	if err == nil { err = ErrCompletedSync }

	e.log.Debug("Submit failed", "opcode", op.Opcode, "fd", op.fd, "err", err)
	op.fail(newOpError(op.Opcode, err))
	return e.reg.release(op)
}

// finalize ends an op that has already called back
func (e *Engine) finalize(op *Op) {
	if next := e.reg.release(op); next != nil {
		e.dispatch(next, next.buf)
	}
}
