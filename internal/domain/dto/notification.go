package dto

// NotificationStats aggregates the outcome of a batch of best-effort sends.
type NotificationStats struct {
	Successful int
	Failed     int
	Total      int
}

func (s NotificationStats) Add(other NotificationStats) NotificationStats {
	return NotificationStats{
		Successful: s.Successful + other.Successful,
		Failed:     s.Failed + other.Failed,
		Total:      s.Total + other.Total,
	}
}

// Record counts a single send.
func (s *NotificationStats) Record(success bool) {
	s.Total++
	if success {
		s.Successful++
	} else {
		s.Failed++
	}
}

// KindStats are the aggregate counters kept per notification kind.
type KindStats struct {
	Kind       string
	Successful int64
	Failed     int64
}
