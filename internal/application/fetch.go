package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/domain"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/normalize"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/ports"
)

// fetchState is one step of a media listing run
type fetchState int

const (
	stateResolvingIdentity fetchState = iota
	stateSelectingAccount
	stateRequesting
	stateInterpreting
	stateRetryNextAccount
	stateRecoveringStaleValidity
	stateDone
	stateFailed
)

func (s fetchState) String() string {
	switch s {
	case stateResolvingIdentity:
		return "resolving_identity"
	case stateSelectingAccount:
		return "selecting_account"
	case stateRequesting:
		return "requesting"
	case stateInterpreting:
		return "interpreting"
	case stateRetryNextAccount:
		return "retry_next_account"
	case stateRecoveringStaleValidity:
		return "recovering_stale_validity"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// mediaRun carries one listing request through the state machine
type mediaRun struct {
	name     string
	targetID string
	cursor   string

	valid   []domain.Account // believed-valid candidates not yet tried
	invalid []domain.Account // believed-invalid candidates not yet re-probed

	recovering bool
	account    domain.Account
	timeline   *ports.MediaTimeline
	reqErr     error

	page *domain.MediaPage
	err  error
}

func (r *mediaRun) fail(err error) fetchState {
	r.err = err
	return stateFailed
}

// Fetcher federates listing and item requests across the configured accounts
type Fetcher struct {
	accounts      ports.AccountStore
	relationships ports.RelationshipStore
	upstream      ports.Upstream
	suppression   ports.SuppressionTracker
	cache         *ItemCache
	resolver      *IdentityResolver
	prober        *Prober
	normalizer    *normalize.Normalizer
	diag          ports.Diagnostics
	timeout       time.Duration
}

// NewFetcher wires a fetcher. timeout bounds each upstream call; diag may be nil.
func NewFetcher(
	store ports.Store,
	upstream ports.Upstream,
	suppression ports.SuppressionTracker,
	cache *ItemCache,
	diag ports.Diagnostics,
	timeout time.Duration,
) *Fetcher {
	normalizer := normalize.New(diag)
	prober := NewProber(upstream, store, suppression, normalizer, timeout)
	return &Fetcher{
		accounts:      store,
		relationships: store,
		upstream:      upstream,
		suppression:   suppression,
		cache:         cache,
		resolver:      NewIdentityResolver(store, store, upstream, suppression, prober, normalizer, timeout),
		prober:        prober,
		normalizer:    normalizer,
		diag:          diag,
		timeout:       timeout,
	}
}

// Media returns one page of the named target's media listing. An empty
// cursor requests the first page.
func (f *Fetcher) Media(ctx context.Context, name, cursor string) (*domain.MediaPage, error) {
	return f.run(ctx, &mediaRun{name: name, cursor: cursor})
}

// MediaForTarget is Media for an already-resolved target id
func (f *Fetcher) MediaForTarget(ctx context.Context, targetID, cursor string) (*domain.MediaPage, error) {
	return f.run(ctx, &mediaRun{targetID: targetID, cursor: cursor})
}

func (f *Fetcher) run(ctx context.Context, r *mediaRun) (*domain.MediaPage, error) {
	state := stateResolvingIdentity
	for state != stateDone && state != stateFailed {
		if err := ctx.Err(); err != nil {
			state = r.fail(err)
			break
		}

		next := f.step(ctx, r, state)
		slog.DebugContext(ctx, "fetch transition",
			"from", state.String(),
			"to", next.String(),
			"target_id", r.targetID,
			"account_id", r.account.ID,
		)
		state = next
	}

	if state == stateFailed {
		return nil, r.err
	}
	return r.page, nil
}

func (f *Fetcher) step(ctx context.Context, r *mediaRun, state fetchState) fetchState {
	switch state {
	case stateResolvingIdentity:
		return f.resolve(ctx, r)
	case stateSelectingAccount:
		return f.selectAccount(ctx, r)
	case stateRequesting:
		return f.request(ctx, r)
	case stateInterpreting:
		return f.interpret(ctx, r)
	case stateRetryNextAccount:
		if r.recovering {
			return stateRecoveringStaleValidity
		}
		return stateSelectingAccount
	case stateRecoveringStaleValidity:
		return f.recover(ctx, r)
	default:
		return r.fail(fmt.Errorf("unexpected fetch state %s", state))
	}
}

// resolve establishes the target id and loads its ordered candidates
func (f *Fetcher) resolve(ctx context.Context, r *mediaRun) fetchState {
	if r.targetID == "" {
		targetID, err := f.resolver.Resolve(ctx, r.name)
		if err != nil {
			return r.fail(err)
		}
		r.targetID = targetID
	}

	candidates, err := f.relationships.CandidatesFor(ctx, r.targetID)
	if err != nil {
		return r.fail(err)
	}
	if len(candidates) == 0 {
		return r.fail(domain.ErrNoAccounts)
	}

	r.valid, r.invalid = domain.Partition(candidates)
	return stateSelectingAccount
}

// nextUnsuppressed pops the first account in queue that is not rate limited
func (f *Fetcher) nextUnsuppressed(queue *[]domain.Account) (domain.Account, bool) {
	for len(*queue) > 0 {
		account := (*queue)[0]
		*queue = (*queue)[1:]
		if !f.suppression.IsSuppressed(account.ID) {
			return account, true
		}
	}
	return domain.Account{}, false
}

func (f *Fetcher) selectAccount(ctx context.Context, r *mediaRun) fetchState {
	account, ok := f.nextUnsuppressed(&r.valid)
	if !ok {
		slog.InfoContext(ctx, "believed-valid accounts exhausted, re-probing the rest",
			"target_id", r.targetID,
		)
		r.recovering = true
		return stateRecoveringStaleValidity
	}
	r.account = account
	return stateRequesting
}

func (f *Fetcher) request(ctx context.Context, r *mediaRun) fetchState {
	callCtx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	tl, err := f.upstream.UserMedia(callCtx, r.account.Credentials, r.targetID, r.cursor)
	r.timeline, r.reqErr = tl, callError(ctx, err)
	return stateInterpreting
}

func (f *Fetcher) interpret(ctx context.Context, r *mediaRun) fetchState {
	if err := r.reqErr; err != nil {
		switch {
		case ctx.Err() != nil:
			return r.fail(ctx.Err())
		case isRateLimited(err):
			f.suppression.Suppress(r.account.ID)
			slog.WarnContext(ctx, "account rate limited",
				"account_id", r.account.ID,
				"target_id", r.targetID,
			)
			return stateRetryNextAccount
		case domain.IsRetryable(err):
			slog.WarnContext(ctx, "media request failed, trying next account",
				"account_id", r.account.ID,
				"target_id", r.targetID,
				"error", err,
			)
			return stateRetryNextAccount
		default:
			return r.fail(err)
		}
	}

	tl := r.timeline
	switch tl.Status {
	case ports.StatusMissing:
		return r.fail(domain.ErrNotFound)
	case ports.StatusWithheld:
		return f.refreshWithheld(ctx, r)
	}

	scope := normalize.Scope{TargetID: r.targetID, Cursor: r.cursor, AccountID: r.account.ID}
	if tl.Result.Typename != userTypename {
		out := f.normalizer.Classify(ctx, tl.Result, scope)
		if out.Kind == normalize.Unavailable {
			return r.fail(&domain.UnavailableError{Reason: out.Reason})
		}
		return stateRetryNextAccount
	}

	items := f.normalizer.Items(ctx, tl.Items, scope)
	origin := domain.RecacheEntry{TargetID: r.targetID, Cursor: r.cursor}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		f.cache.Put(item, origin)
		ids = append(ids, item.ID)
	}

	r.page = &domain.MediaPage{
		TargetID:   r.targetID,
		Cursor:     r.cursor,
		ItemIDs:    ids,
		NextCursor: tl.BottomCursor,
	}
	return stateDone
}

// refreshWithheld re-probes an account whose request came back withheld so
// the relationship store reflects why, then moves on
func (f *Fetcher) refreshWithheld(ctx context.Context, r *mediaRun) fetchState {
	visible, err := f.prober.Probe(ctx, r.account, r.targetID)
	switch {
	case err == nil && visible:
		slog.WarnContext(ctx, "probe reports visible but media was withheld",
			"account_id", r.account.ID,
			"target_id", r.targetID,
		)
	case err == nil:
	case ctx.Err() != nil:
		return r.fail(ctx.Err())
	case isTerminal(err):
		return r.fail(err)
	}
	return stateRetryNextAccount
}

// recover re-probes believed-invalid accounts in priority order, requesting
// with the first one found visible
func (f *Fetcher) recover(ctx context.Context, r *mediaRun) fetchState {
	for {
		account, ok := f.nextUnsuppressed(&r.invalid)
		if !ok {
			record(ctx, f.diag, ports.Diagnostic{
				Event:    "exhausted",
				Message:  "no account could access target",
				TargetID: r.targetID,
				Cursor:   r.cursor,
			})
			slog.WarnContext(ctx, "no account could access target", "target_id", r.targetID)
			return r.fail(domain.ErrExhausted)
		}

		visible, err := f.prober.Probe(ctx, account, r.targetID)
		if err != nil {
			if ctx.Err() != nil {
				return r.fail(ctx.Err())
			}
			if isTerminal(err) {
				return r.fail(err)
			}
			slog.WarnContext(ctx, "re-probe failed",
				"account_id", account.ID,
				"target_id", r.targetID,
				"error", err,
			)
			continue
		}
		if visible {
			slog.InfoContext(ctx, "recovered stale validity",
				"account_id", account.ID,
				"target_id", r.targetID,
			)
			r.account = account
			return stateRequesting
		}
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// callError classifies the failure of one upstream call made under a
// per-call deadline derived from ctx. While ctx itself is live, an expired
// or cancelled call context is a transport failure of that account.
func callError(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	return err
}

func isRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited)
}

// isTerminal reports errors that end a run regardless of remaining accounts
func isTerminal(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || domain.IsUnavailable(err)
}

func record(ctx context.Context, diag ports.Diagnostics, d ports.Diagnostic) {
	if diag != nil {
		diag.Record(ctx, d)
	}
}
