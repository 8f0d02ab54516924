package keylock

// Len retorna quantas chaves estão em uso.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
