package sniffer

// SeenSet records the URLs claimed during one sniff.
// Membership is by exact string match.
type SeenSet struct {
	urls  map[string]struct{}
	order []string
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{urls: make(map[string]struct{})}
}

// Has reports whether url has been claimed.
func (s *SeenSet) Has(url string) bool {
	_, ok := s.urls[url]
	return ok
}

// Add claims url. It returns false if url was already claimed.
func (s *SeenSet) Add(url string) bool {
	if s.Has(url) {
		return false
	}
	s.urls[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Len returns the number of claimed URLs.
func (s *SeenSet) Len() int {
	return len(s.order)
}

// mark returns a checkpoint for rollback.
func (s *SeenSet) mark() int {
	return len(s.order)
}

// rollback releases every URL claimed after the checkpoint.
func (s *SeenSet) rollback(checkpoint int) {
	for _, u := range s.order[checkpoint:] {
		delete(s.urls, u)
	}
	s.order = s.order[:checkpoint]
}
