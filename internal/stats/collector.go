package stats

import (
	"sort"
	"sync"
	"time"
)

// MessageTypeStats holds per-message-type statistics.
type MessageTypeStats struct {
	Sent     uint64
	Received uint64
	Success  uint64
	Failed   uint64
	Timeout  uint64
}

// Collector aggregates operational statistics for one generator run.
type Collector struct {
	StartTime time.Time
	EndTime   time.Time

	MessageStats map[string]*MessageTypeStats
	BytesSent    uint64

	SessionsCreated  uint64
	BearersActivated uint64
	SessionsFailed   uint64

	ResponseTimes []time.Duration

	mu sync.Mutex
}

// NewCollector creates a new statistics collector.
func NewCollector() *Collector {
	return &Collector{
		StartTime:    time.Now(),
		MessageStats: make(map[string]*MessageTypeStats),
	}
}

func (c *Collector) getOrCreate(msgType string) *MessageTypeStats {
	if _, ok := c.MessageStats[msgType]; !ok {
		c.MessageStats[msgType] = &MessageTypeStats{}
	}
	return c.MessageStats[msgType]
}

// RecordSent records a message being sent along with its wire size.
func (c *Collector) RecordSent(msgType string, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(msgType).Sent++
	c.BytesSent += uint64(bytes)
}

// RecordReceived records a response being received.
func (c *Collector) RecordReceived(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(msgType).Received++
}

// RecordSuccess records a completed transaction.
func (c *Collector) RecordSuccess(msgType string, responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(msgType).Success++
	c.ResponseTimes = append(c.ResponseTimes, responseTime)
}

// RecordFailure records a failed transaction.
func (c *Collector) RecordFailure(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(msgType).Failed++
}

// RecordTimeout records a transaction that exhausted its retries.
func (c *Collector) RecordTimeout(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getOrCreate(msgType).Timeout++
}

// RecordSessionCreated bumps the created-session counter.
func (c *Collector) RecordSessionCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SessionsCreated++
}

// RecordBearerActivated bumps the activated-bearer counter.
func (c *Collector) RecordBearerActivated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BearersActivated++
}

// RecordSessionFailed bumps the failed-session counter.
func (c *Collector) RecordSessionFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SessionsFailed++
}

// Finish marks the end of the run.
func (c *Collector) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EndTime = time.Now()
}

// Snapshot returns a copy of the collected statistics safe to read without
// holding the collector's lock.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
		BytesSent:        c.BytesSent,
		SessionsCreated:  c.SessionsCreated,
		BearersActivated: c.BearersActivated,
		SessionsFailed:   c.SessionsFailed,
		MessageStats:     make(map[string]MessageTypeStats, len(c.MessageStats)),
		ResponseTimes:    append([]time.Duration(nil), c.ResponseTimes...),
	}
	for name, s := range c.MessageStats {
		snap.MessageStats[name] = *s
	}
	return snap
}

// Snapshot is a point-in-time copy of the collector.
type Snapshot struct {
	StartTime time.Time
	EndTime   time.Time

	MessageStats map[string]MessageTypeStats
	BytesSent    uint64

	SessionsCreated  uint64
	BearersActivated uint64
	SessionsFailed   uint64

	ResponseTimes []time.Duration
}

// Duration returns the elapsed run time.
func (s Snapshot) Duration() time.Duration {
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime)
}

// TotalSent returns the total number of messages sent across all types.
func (s Snapshot) TotalSent() uint64 {
	var total uint64
	for _, ms := range s.MessageStats {
		total += ms.Sent
	}
	return total
}

// ResponseTimeStats returns min, average, max and p99 response times.
func (s Snapshot) ResponseTimeStats() (min, avg, max, p99 time.Duration) {
	if len(s.ResponseTimes) == 0 {
		return 0, 0, 0, 0
	}

	sorted := append([]time.Duration(nil), s.ResponseTimes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	min = sorted[0]
	max = sorted[len(sorted)-1]
	avg = sum / time.Duration(len(sorted))
	p99 = sorted[len(sorted)*99/100]
	return min, avg, max, p99
}
