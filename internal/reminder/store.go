package reminder

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Reminder is one scheduled future notification. Subject and the display
// context are denormalized so the reminder stays useful if the linked
// record is renamed or its live fetch fails.
type Reminder struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id"`
	Subject   string    `json:"subject"`
	FireAt    time.Time `json:"fire_at"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status,omitempty"`
	Category  string    `json:"category,omitempty"`
	Permalink string    `json:"permalink,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable reminder queue: a JSON array in a restricted-
// permission local file, rewritten in full on every mutation and loaded
// once at process start. Delivery is at-least-attempted-once, not
// exactly-once; a crash between persist and fire is out of scope.
type Store struct {
	path string

	mu        sync.Mutex
	reminders []Reminder
}

func NewStore(path string) (*Store, error) {
	store := &Store{path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reminder file: %w", err)
	}
	if len(raw) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(raw, &store.reminders); err != nil {
		return nil, fmt.Errorf("decode reminder file: %w", err)
	}
	return store, nil
}

// Add persists a reminder immediately.
func (s *Store) Add(reminder Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, reminder)
	return s.persist()
}

// Remove deletes a reminder by id and persists. Removing an id that is
// already gone is a no-op.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.reminders[:0]
	for _, reminder := range s.reminders {
		if reminder.ID != id {
			kept = append(kept, reminder)
		}
	}
	if len(kept) == len(s.reminders) {
		return nil
	}
	s.reminders = kept
	return s.persist()
}

// Due returns every reminder whose fire time has passed, earliest first.
func (s *Store) Due(now time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Reminder
	for _, reminder := range s.reminders {
		if !reminder.FireAt.After(now) {
			due = append(due, reminder)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	return due
}

// All returns a copy of every pending reminder.
func (s *Store) All() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

func (s *Store) persist() error {
	list := s.reminders
	if list == nil {
		list = []Reminder{}
	}
	encoded, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reminder file: %w", err)
	}
	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return fmt.Errorf("write reminder file: %w", err)
	}
	return nil
}

// Describe renders the reminder's display context for a notification.
func (r Reminder) Describe() string {
	parts := []string{r.Subject}
	if status := strings.TrimSpace(r.Status); status != "" {
		parts = append(parts, "("+status+")")
	}
	return strings.Join(parts, " ")
}
