package workspace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/types"
)

// maxIDAttempts bounds regeneration when the id generator returns an id already used.
const maxIDAttempts = 16

// Catalog is the authoritative, insertion-ordered store of job descriptions for one session.
// It is not safe for concurrent use; Controller serializes access.
type Catalog struct {
	jobs     []types.JobDescription
	used     map[uuid.UUID]struct{}
	newID    func() uuid.UUID
	now      func() time.Time
	onRemove []func(id uuid.UUID)
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithIDGenerator overrides the id generator (uuid.New by default).
func WithIDGenerator(gen func() uuid.UUID) CatalogOption {
	return func(c *Catalog) {
		c.newID = gen
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		used:  make(map[uuid.UUID]struct{}),
		newID: uuid.New,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add stores a new job description built from input and returns it.
// Input missing title, company or description is rejected with a ValidationError.
func (c *Catalog) Add(input types.JobDescriptionInput) (types.JobDescription, error) {
	if err := input.Validate(); err != nil {
		if field, tag, ok := types.FirstInvalidField(err); ok {
			msg := "is required"
			if tag != "required" && tag != "notblank" {
				msg = "failed " + tag + " check"
			}
			return types.JobDescription{}, &ValidationError{Field: field, Message: msg}
		}
		return types.JobDescription{}, &ValidationError{Field: "input", Message: err.Error()}
	}

	id, err := c.allocateID()
	if err != nil {
		return types.JobDescription{}, err
	}

	keywords := make([]string, len(input.Keywords))
	copy(keywords, input.Keywords)

	job := types.JobDescription{
		ID:          id,
		Title:       input.Title,
		Company:     input.Company,
		Description: input.Description,
		Keywords:    keywords,
		CreatedAt:   c.now(),
	}
	c.jobs = append(c.jobs, job)
	return job.Clone(), nil
}

// allocateID returns an id never handed out by this catalog.
func (c *Catalog) allocateID() (uuid.UUID, error) {
	for range maxIDAttempts {
		id := c.newID()
		if id == uuid.Nil {
			continue
		}
		if _, taken := c.used[id]; taken {
			continue
		}
		c.used[id] = struct{}{}
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("failed to allocate a unique job description id after %d attempts", maxIDAttempts)
}

// Remove deletes the job with the given id. Removing an absent id is a no-op and returns false.
func (c *Catalog) Remove(id uuid.UUID) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}
	c.jobs = append(c.jobs[:idx], c.jobs[idx+1:]...)
	for _, fn := range c.onRemove {
		fn(id)
	}
	return true
}

// Clear removes every job. Ids already handed out stay reserved.
func (c *Catalog) Clear() {
	removed := c.jobs
	c.jobs = nil
	for _, job := range removed {
		for _, fn := range c.onRemove {
			fn(job.ID)
		}
	}
}

// List returns a snapshot of all jobs in insertion order.
func (c *Catalog) List() []types.JobDescription {
	out := make([]types.JobDescription, len(c.jobs))
	for i, job := range c.jobs {
		out[i] = job.Clone()
	}
	return out
}

// Get returns a copy of the job with the given id.
func (c *Catalog) Get(id uuid.UUID) (types.JobDescription, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return types.JobDescription{}, false
	}
	return c.jobs[idx].Clone(), true
}

// Contains reports whether id is currently in the catalog.
func (c *Catalog) Contains(id uuid.UUID) bool {
	return c.indexOf(id) >= 0
}

// Len returns the number of jobs.
func (c *Catalog) Len() int {
	return len(c.jobs)
}

func (c *Catalog) indexOf(id uuid.UUID) int {
	for i := range c.jobs {
		if c.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// notifyOnRemove registers fn to run inside every removal, before Remove or Clear returns.
func (c *Catalog) notifyOnRemove(fn func(id uuid.UUID)) {
	c.onRemove = append(c.onRemove, fn)
}
