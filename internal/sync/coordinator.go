// Package sync owns the authoritative in-memory highlight list and
// keeps its three copies reconciled: memory, the durable per-owner
// cache, and the remote store that is only reachable while the session
// holds an authenticated identity.
//
// Every local mutation is synchronous and atomic from the caller's
// perspective; remote persistence runs in the background and never
// blocks the caller. A remote failure leaves the cache copy as the
// source of truth until a later sync succeeds; nothing in this
// package is fatal to the host.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/reader-highlights/internal/apperror"
	"github.com/sakif/reader-highlights/internal/cache"
	"github.com/sakif/reader-highlights/internal/model"
	"github.com/sakif/reader-highlights/internal/repository"
)

// State describes where a highlight sits in the two-phase commit.
type State string

const (
	// StateLocal: exists in memory and cache only; no remote attempt
	// has succeeded yet.
	StateLocal State = "local"
	// StateSynced: the remote store assigned it a durable id.
	StateSynced State = "synced"
)

// StateOf reports h's sync state, derived from its id form.
func StateOf(h *model.Highlight) State {
	if h.Synced() {
		return StateSynced
	}
	return StateLocal
}

// Coordinator is the single owner of the highlight list. All mutations
// go through it; the resolver and renderer only ever see snapshots.
//
// One mutex guards the list. Local sections never block on the
// network; background remote calls re-acquire the mutex only to apply
// their outcome.
type Coordinator struct {
	mu         sync.Mutex
	wg         sync.WaitGroup
	highlights []*model.Highlight
	identity   model.Identity

	store    cache.Store
	remote   repository.HighlightRepository
	notifier *Notifier
	logger   *slog.Logger
}

// New creates a Coordinator with no identity. Call SetIdentity (or
// UseAnonymous) before adding highlights.
func New(store cache.Store, remote repository.HighlightRepository, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		remote:   remote,
		notifier: NewNotifier(),
		logger:   logger,
	}
}

// Subscribe registers fn for "highlights changed" notifications and
// returns its unsubscribe function.
func (c *Coordinator) Subscribe(fn func(Event)) func() {
	return c.notifier.Subscribe(fn)
}

// Identity returns the identity the session currently acts as.
func (c *Coordinator) Identity() model.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Wait blocks until all in-flight background remote work has settled.
// Tests use it to observe both outcomes of the two-phase commit
// deterministically; production callers normally never need it.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Snapshot returns copies of the highlights on one page, in list
// order. Passing a zero PageRef returns everything.
func (c *Coordinator) Snapshot(page model.PageRef) []*model.Highlight {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Highlight, 0, len(c.highlights))
	for _, h := range c.highlights {
		if !page.IsZero() && h.PageID != page.String() {
			continue
		}
		copied := *h
		out = append(out, &copied)
	}
	return out
}

// Add inserts a highlight optimistically: it lands in memory and the
// cache before this call returns, so the UI can render it without
// waiting on the network. When the identity is authenticated, remote
// persistence runs in the background; success rewrites the temporary
// id to the remote-assigned one and re-saves the cache, failure leaves
// the record in place under its temporary id.
//
// A highlight whose dedup signature already exists for this owner is
// not inserted again; the existing record is returned.
func (c *Coordinator) Add(ctx context.Context, h *model.Highlight) (*model.Highlight, error) {
	c.mu.Lock()
	if c.identity.ID == "" {
		c.mu.Unlock()
		return nil, apperror.ValidationFailed("identity", "no active identity")
	}
	h.OwnerID = c.identity.ID

	sig := h.Signature()
	for _, existing := range c.highlights {
		if existing.Signature() == sig {
			copied := *existing
			c.mu.Unlock()
			return &copied, nil
		}
	}

	c.highlights = append(c.highlights, h)
	c.saveCacheLocked()
	authenticated := c.identity.Authenticated
	owner := c.identity.ID
	tempID := h.ID
	record := *h
	c.mu.Unlock()

	c.notifier.Notify(Event{OwnerID: owner, PageID: h.PageID})

	if authenticated {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.persistRemote(context.WithoutCancel(ctx), owner, tempID, &record)
		}()
	}

	copied := *h
	return &copied, nil
}

// persistRemote is phase two of Add: push the provisional record to
// the remote store and promote it by rewriting the temporary id.
func (c *Coordinator) persistRemote(ctx context.Context, owner, tempID string, record *model.Highlight) {
	stored, err := c.remote.Insert(ctx, owner, record)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			// The signature already exists remotely; the existing
			// record wins and the provisional copy stays local.
			c.logger.Debug("duplicate highlight skipped by remote store",
				slog.String("page", record.PageID))
			return
		}
		c.logger.Warn("remote insert failed; keeping local copy",
			slog.String("id", tempID),
			slog.String("error", err.Error()),
		)
		return
	}

	c.mu.Lock()
	promoted := false
	for i, h := range c.highlights {
		if h.ID == tempID {
			updated := *stored
			c.highlights[i] = &updated
			promoted = true
			break
		}
	}
	if promoted {
		c.saveCacheLocked()
	}
	owner = c.identity.ID
	c.mu.Unlock()

	if !promoted {
		// Removed while the insert was in flight; undo the remote copy.
		if err := c.remote.Delete(ctx, stored.ID); err != nil {
			c.logger.Warn("could not undo insert of removed highlight",
				slog.String("id", stored.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	c.notifier.Notify(Event{OwnerID: owner, PageID: stored.PageID})
}

// Remove deletes a highlight locally and issues a best-effort remote
// delete. Remote failure never reverts the local removal.
func (c *Coordinator) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	var removed *model.Highlight
	for i, h := range c.highlights {
		if h.ID == id {
			removed = h
			c.highlights = append(c.highlights[:i], c.highlights[i+1:]...)
			break
		}
	}
	if removed == nil {
		c.mu.Unlock()
		return apperror.NotFound("highlight", id)
	}
	c.saveCacheLocked()
	authenticated := c.identity.Authenticated
	owner := c.identity.ID
	c.mu.Unlock()

	c.notifier.Notify(Event{OwnerID: owner, PageID: removed.PageID})

	if authenticated && removed.Synced() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.remote.Delete(context.WithoutCancel(ctx), id); err != nil {
				c.logger.Warn("remote delete failed; local removal stands",
					slog.String("id", id),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
	return nil
}

// UseAnonymous activates a device-local identity and restores its
// cached highlights. No remote store is consulted.
func (c *Coordinator) UseAnonymous(id string) {
	c.mu.Lock()
	c.identity = model.Identity{ID: id}
	c.highlights = c.store.Load(id)
	c.mu.Unlock()
	c.notifier.Notify(Event{OwnerID: id})
}

// SetIdentity activates an authenticated identity and runs the sign-in
// migration pass:
//
//  1. Load the identity's highlights from the remote store. If any
//     exist, they are authoritative (in the store's own order) and
//     replace memory and cache.
//  2. If the remote store is empty, recover from the local cache for
//     this identity id; if that is empty too, scan every cached owner
//     key to pick up highlights created under a prior anonymous
//     identity.
//  3. Insert each recovered highlight remotely under the new identity
//     by content, skipping any whose dedup signature already exists,
//     then refresh memory and cache from the remote store.
func (c *Coordinator) SetIdentity(ctx context.Context, ident model.Identity) error {
	if !ident.Authenticated {
		c.UseAnonymous(ident.ID)
		return nil
	}

	c.mu.Lock()
	c.identity = ident
	c.mu.Unlock()

	remote, err := c.remote.ListByOwner(ctx, ident.ID)
	if err != nil {
		// Remote unavailable: the cache is the best truth there is.
		c.logger.Warn("remote list failed at sign-in; using cache",
			slog.String("owner", ident.ID),
			slog.String("error", err.Error()),
		)
		c.mu.Lock()
		c.highlights = c.store.Load(ident.ID)
		c.mu.Unlock()
		c.notifier.Notify(Event{OwnerID: ident.ID})
		return nil
	}

	if len(remote) == 0 {
		recovered := c.store.Load(ident.ID)
		if len(recovered) == 0 {
			recovered = c.store.LoadAllOwners()
		}
		c.migrate(ctx, ident.ID, recovered, nil)
		remote, err = c.remote.ListByOwner(ctx, ident.ID)
		if err != nil {
			c.logger.Warn("remote refresh after migration failed",
				slog.String("owner", ident.ID),
				slog.String("error", err.Error()),
			)
			remote = recovered
		}
	}

	c.mu.Lock()
	c.highlights = remote
	c.saveCacheLocked()
	c.mu.Unlock()
	c.notifier.Notify(Event{OwnerID: ident.ID})
	return nil
}

// migrate inserts recovered highlights remotely under ownerID by
// content, not under their old ids. Signatures already present,
// remotely or earlier in the batch, are skipped silently; that is the
// design, not an error. Returns how many records were pushed.
func (c *Coordinator) migrate(ctx context.Context, ownerID string, recovered []*model.Highlight, existing map[model.Signature]bool) int {
	if existing == nil {
		existing = make(map[model.Signature]bool)
	}
	pushed := 0
	for _, h := range recovered {
		sig := h.Signature()
		if existing[sig] {
			continue
		}
		record := *h
		record.ID = ""
		record.OwnerID = ownerID
		if _, err := c.remote.Insert(ctx, ownerID, &record); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				existing[sig] = true
				continue
			}
			c.logger.Warn("migration insert failed",
				slog.String("page", h.PageID),
				slog.String("error", err.Error()),
			)
			continue
		}
		existing[sig] = true
		pushed++
	}
	return pushed
}

// SignOut backs up the authenticated identity's data to the
// longer-lived local record before the session is invalidated, so a
// guest view on the same device can still show it read-only. The
// coordinator is left with no identity.
func (c *Coordinator) SignOut(ctx context.Context) {
	c.mu.Lock()
	ident := c.identity
	snapshot := make([]*model.Highlight, len(c.highlights))
	for i, h := range c.highlights {
		copied := *h
		snapshot[i] = &copied
	}
	c.mu.Unlock()

	if ident.Authenticated {
		if remote, err := c.remote.ListByOwner(ctx, ident.ID); err == nil {
			snapshot = remote
		}
		c.store.SaveBackup(ident.ID, snapshot)
	}

	c.mu.Lock()
	c.identity = model.Identity{}
	c.highlights = nil
	c.mu.Unlock()
	c.notifier.Notify(Event{OwnerID: ident.ID})
}

// Resync is the user-triggered pass that diffs cached highlights
// against the remote store by dedup signature and pushes only the
// missing ones. It returns how many were pushed.
func (c *Coordinator) Resync(ctx context.Context) (int, error) {
	c.mu.Lock()
	ident := c.identity
	c.mu.Unlock()
	if !ident.Authenticated {
		return 0, apperror.Unauthorized("sign in to sync highlights")
	}

	remote, err := c.remote.ListByOwner(ctx, ident.ID)
	if err != nil {
		return 0, err
	}
	existing := make(map[model.Signature]bool, len(remote))
	for _, h := range remote {
		existing[h.Signature()] = true
	}

	cached := c.store.Load(ident.ID)
	pushed := c.migrate(ctx, ident.ID, cached, existing)

	refreshed, err := c.remote.ListByOwner(ctx, ident.ID)
	if err == nil {
		c.mu.Lock()
		c.highlights = refreshed
		c.saveCacheLocked()
		c.mu.Unlock()
	}
	c.notifier.Notify(Event{OwnerID: ident.ID})
	return pushed, nil
}

// saveCacheLocked writes the current list under the current identity's
// cache key. Callers hold c.mu.
func (c *Coordinator) saveCacheLocked() {
	if c.identity.ID == "" {
		return
	}
	c.store.Save(c.identity.ID, c.highlights)
}
