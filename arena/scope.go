package arena

// Scope is a guard that captures a checkpoint at creation and restores it on
// Close, discarding every allocation made inside the guarded region no matter
// how the region is exited:
//
//	s := a.Scope()
//	defer s.Close()
//
// Scopes follow stack discipline: nested scopes must close in reverse order
// of creation. Closing an outer scope while an inner one is still pending
// silently invalidates the inner scope's restore target. The arena cannot
// enforce this; it is a caller obligation.
//
// A Scope is bound to one arena and must not be copied.
type Scope struct {
	arena *Arena
	saved Checkpoint
	done  bool
}

// Scope captures the current checkpoint and returns a guard that restores it
// on Close.
func (a *Arena) Scope() *Scope {
	return &Scope{arena: a, saved: a.Save()}
}

// Close restores the checkpoint captured at creation. Only the first Close
// restores; later calls are no-ops. The error mirrors Restore and can only
// occur if the arena was closed while the scope was pending.
func (s *Scope) Close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.arena.Restore(s.saved)
}
