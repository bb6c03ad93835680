package core

// locomotive is one worker of a target: it pulls buffered messages and runs
// them through process until the buffer is empty or the block faulted.
// Workers are spawned on demand by spawnLocked and bounded by the block's
// worker semaphore.
func (t *targetCore[T]) locomotive() {
	for {
		t.mu.Lock()
		item, ok := t.queue.Pop()
		if !ok || t.faultErr != nil {
			t.running--
			t.workers.Release(1)
			done, err := t.finishLocked()
			t.mu.Unlock()
			t.settle(done, err)
			return
		}
		t.processing++
		seq := t.dequeued
		t.dequeued++
		t.mu.Unlock()

		err := guard(func() error {
			return t.process(t.opts.Context, seq, item)
		})

		t.mu.Lock()
		t.processing--
		t.signalSpaceLocked()
		t.mu.Unlock()

		if err != nil {
			t.fault(err)
			continue
		}

		t.claimPostponed()
	}
}
