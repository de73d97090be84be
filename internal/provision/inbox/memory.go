package inbox

import (
	"context"
	"sync"
)

// Memory is an in-process Mailbox. It backs the simulated driver and tests.
type Memory struct {
	// Authenticate, when set, vets every login. A nil func accepts anything.
	Authenticate func(Credentials) error

	mu     sync.Mutex
	boxes  map[string][]memoryMessage
	logins []Credentials
}

type memoryMessage struct {
	body []byte
	seen bool
}

func NewMemory() *Memory {
	return &Memory{boxes: make(map[string][]memoryMessage)}
}

// Deliver appends a raw message to username's inbox.
func (m *Memory) Deliver(username string, raw []byte, seen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boxes[username] = append(m.boxes[username], memoryMessage{body: raw, seen: seen})
}

// Logins returns every credential presented so far.
func (m *Memory) Logins() []Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Credentials(nil), m.logins...)
}

func (m *Memory) Fetch(ctx context.Context, creds Credentials, q Query) ([]RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.logins = append(m.logins, creds)
	m.mu.Unlock()

	if m.Authenticate != nil {
		if err := m.Authenticate(creds); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	box := m.boxes[creds.Username]
	var nums []uint32
	for i, msg := range box {
		if q.UnreadOnly && msg.seen {
			continue
		}
		nums = append(nums, uint32(i+1))
	}

	var out []RawMessage
	for _, n := range latest(nums, q.Limit) {
		out = append(out, RawMessage{SeqNum: n, Body: append([]byte(nil), box[n-1].body...)})
	}
	return out, nil
}

// latest returns at most limit of the highest sequence numbers, newest first.
// nums must be ascending.
func latest(nums []uint32, limit int) []uint32 {
	if limit > 0 && len(nums) > limit {
		nums = nums[len(nums)-limit:]
	}
	out := make([]uint32, len(nums))
	for i, n := range nums {
		out[len(nums)-1-i] = n
	}
	return out
}
