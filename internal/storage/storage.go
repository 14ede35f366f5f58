package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Status is the progress state of one product link.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

var ErrLinkNotFound = errors.New("link not found")

type ProductLink struct {
	URL       string    `json:"url"`
	SKU       string    `json:"sku,omitempty"`
	Name      string    `json:"name,omitempty"`
	Status    Status    `json:"status"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// LinkStorage tracks per-URL progress of a scrape run in a JSON file so an
// interrupted run can see what was already handled.
type LinkStorage struct {
	mu       sync.RWMutex
	links    map[string]*ProductLink
	filename string
	now      func() time.Time
}

func NewLinkStorage(filename string) (*LinkStorage, error) {
	ls := &LinkStorage{
		links:    make(map[string]*ProductLink),
		filename: filename,
		now:      time.Now,
	}

	if err := ls.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return ls, nil
}

// AddBatch registers links as pending. Links already known keep their status.
func (ls *LinkStorage) AddBatch(links []*ProductLink) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := ls.now()
	for _, link := range links {
		if link == nil || link.URL == "" {
			continue
		}
		if _, exists := ls.links[link.URL]; exists {
			continue
		}

		entry := *link
		entry.AddedAt = now
		entry.UpdatedAt = now
		if entry.Status == "" {
			entry.Status = StatusPending
		}
		ls.links[entry.URL] = &entry
	}

	return ls.save()
}

func (ls *LinkStorage) Get(url string) (ProductLink, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	link, exists := ls.links[url]
	if !exists {
		return ProductLink{}, false
	}
	return *link, true
}

// Pending returns pending links ordered by URL.
func (ls *LinkStorage) Pending() []ProductLink {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	var pending []ProductLink
	for _, link := range ls.links {
		if link.Status == StatusPending {
			pending = append(pending, *link)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].URL < pending[j].URL })
	return pending
}

// UpdateStatus records the outcome for url. Unknown URLs are added.
func (ls *LinkStorage) UpdateStatus(url string, status Status, cause error) error {
	if url == "" {
		return fmt.Errorf("failed to update status: %w", ErrLinkNotFound)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := ls.now()
	link, exists := ls.links[url]
	if !exists {
		link = &ProductLink{URL: url, AddedAt: now}
		ls.links[url] = link
	}

	link.Status = status
	link.UpdatedAt = now
	link.Error = ""
	if cause != nil {
		link.Error = cause.Error()
	}

	return ls.save()
}

func (ls *LinkStorage) Stats() map[Status]int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	stats := make(map[Status]int)
	for _, link := range ls.links {
		stats[link.Status]++
	}
	return stats
}

func (ls *LinkStorage) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.links)
}

func (ls *LinkStorage) save() error {
	data, err := json.MarshalIndent(ls.links, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal links: %w", err)
	}

	if dir := filepath.Dir(ls.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create link directory: %w", err)
		}
	}

	// Write to temp file first so a crash never leaves a truncated file
	tmpFile := ls.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write links: %w", err)
	}

	return os.Rename(tmpFile, ls.filename)
}

func (ls *LinkStorage) Load() error {
	data, err := os.ReadFile(ls.filename)
	if err != nil {
		return err
	}

	links := make(map[string]*ProductLink)
	if err := json.Unmarshal(data, &links); err != nil {
		return fmt.Errorf("failed to parse link file %s: %w", ls.filename, err)
	}
	ls.links = links
	return nil
}
