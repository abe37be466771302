// internal/app/system/boards/board.go
//
// Package boards keeps the server-side state of each signed-in browser
// session: one list controller per dashboard page plus that page's UI
// state, the navigation flags and the live-refresh hub. Boards live in a
// Registry keyed by an opaque id stored in the session cookie.
package boards

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/listctl"
	"github.com/dalemusser/loanadmin/internal/app/system/livepush"
	"github.com/dalemusser/loanadmin/internal/app/system/metrics"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"go.uber.org/zap"
)

// SignOutPath is where redirect outcomes send open tabs. It ends the
// session and lands on the login page.
const SignOutPath = "/logout"

// Filter fields offered by each page.
var (
	LoanFields     = []string{"phone_number_search", "name_search", "loan_code_search", "status_search"}
	LoanUserFields = []string{"user_id_search", "loan_cap_search", "is_approved_search"}
	ProductFields  = []string{"name", "brand", "supplier_name", "id", "price[gte]", "price[lte]", apiclient.FilterCategory, apiclient.FilterTrashed}
	UserFields     = []string{"phone_number"}
)

// Options configure every board a Registry creates.
type Options struct {
	Client       *apiclient.Client
	Debounce     time.Duration
	PageSize     int
	FetchTimeout time.Duration
	Redirect     apiclient.RedirectPolicy
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	Now          func() time.Time
}

// Board is one session's dashboard state.
type Board struct {
	ID string

	Loans     *listctl.Controller[models.Loan]
	LoanUsers *listctl.Controller[models.LoanUser]
	Products  *listctl.Controller[models.Product]
	Users     *listctl.Controller[models.User]

	Nav navstate.Flags
	Hub *livepush.Hub

	session apiclient.Session
	conn    *apiclient.Conn
	log     *zap.Logger
	now     func() time.Time
	pages   map[string]*Page

	mu         sync.Mutex
	lastSeen   time.Time
	redirect   apiclient.Kind
	categories []models.Category
	closed     bool
}

// New builds a board for sess. Controllers are created idle; Start begins
// fetching for one page.
func New(id string, sess apiclient.Session, opts Options) *Board {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	b := &Board{
		ID:       id,
		Hub:      livepush.NewHub(),
		session:  sess,
		log:      log.With(zap.String("board", id)),
		now:      now,
		lastSeen: now(),
	}
	if opts.Client != nil {
		// A missing credential leaves conn nil; fetches then short-circuit.
		b.conn, _ = opts.Client.Conn(sess)
	}

	b.pages = map[string]*Page{}
	for _, rt := range navstate.Routes {
		b.pages[rt.Key] = newPage(rt.Key, b.Hub, now)
	}

	b.Loans = listctl.New(controllerConfig(b, opts, navstate.Loans, LoanFields,
		func(ctx context.Context, c *apiclient.Conn, q apiclient.ListQuery) (models.Page[models.Loan], error) {
			return c.ListLoans(ctx, q)
		}))
	b.LoanUsers = listctl.New(controllerConfig(b, opts, navstate.LoanUsers, LoanUserFields,
		func(ctx context.Context, c *apiclient.Conn, q apiclient.ListQuery) (models.Page[models.LoanUser], error) {
			return c.ListLoanUsers(ctx, q)
		}))
	b.Products = listctl.New(controllerConfig(b, opts, navstate.Products, ProductFields,
		func(ctx context.Context, c *apiclient.Conn, q apiclient.ListQuery) (models.Page[models.Product], error) {
			return c.ListProducts(ctx, q)
		}))
	b.Users = listctl.New(controllerConfig(b, opts, navstate.Users, UserFields,
		func(ctx context.Context, c *apiclient.Conn, q apiclient.ListQuery) (models.Page[models.User], error) {
			return c.ListUsersForLoan(ctx, q)
		}))

	forward(b.Hub, navstate.Loans, b.Loans)
	forward(b.Hub, navstate.LoanUsers, b.LoanUsers)
	forward(b.Hub, navstate.Products, b.Products)
	forward(b.Hub, navstate.Users, b.Users)
	return b
}

func controllerConfig[T models.Entity](b *Board, opts Options, name string, fields []string,
	fetch func(context.Context, *apiclient.Conn, apiclient.ListQuery) (models.Page[T], error)) listctl.Config[T] {

	return listctl.Config[T]{
		Name:     name,
		Fields:   fields,
		PageSize: opts.PageSize,
		Debounce: opts.Debounce,
		Timeout:  opts.FetchTimeout,
		Fetch: func(ctx context.Context, q apiclient.ListQuery) (models.Page[T], error) {
			if b.conn == nil {
				return models.Page[T]{}, apiclient.ErrMissingCredential
			}
			return fetch(ctx, b.conn, q)
		},
		HasCredential: func() bool { return b.conn != nil },
		Redirect:      opts.Redirect,
		OnRedirect:    b.requestRedirect,
		Observe: func(list string, kind apiclient.Kind, elapsed time.Duration) {
			opts.Metrics.ObserveFetch(list, kind.String(), elapsed)
		},
		Logger: b.log,
	}
}

// forward relays a controller's change events to the board hub, tagged
// with the page name. It ends when the controller closes.
func forward[T models.Entity](hub *livepush.Hub, name string, c *listctl.Controller[T]) {
	events, _ := c.Subscribe()
	go func() {
		for ev := range events {
			if ev.Type != listctl.EventChanged {
				continue
			}
			hub.Publish(livepush.Event{Type: livepush.TypeChanged, List: name, Version: ev.Version})
		}
	}()
}

// Session returns the credential the board was created with.
func (b *Board) Session() apiclient.Session { return b.session }

// Conn returns the authenticated backend connection.
func (b *Board) Conn() (*apiclient.Conn, error) {
	if b.conn == nil {
		return nil, apiclient.ErrMissingCredential
	}
	return b.conn, nil
}

// Page returns the UI state for a navstate key.
func (b *Board) Page(key string) *Page { return b.pages[key] }

// Start begins fetching for a page the first time it is shown.
func (b *Board) Start(key string) {
	switch key {
	case navstate.Loans:
		b.Loans.Start()
	case navstate.LoanUsers:
		b.LoanUsers.Start()
	case navstate.Products:
		b.Products.Start()
	case navstate.Users:
		b.Users.Start()
	}
}

// Touch marks the board as used.
func (b *Board) Touch() {
	b.mu.Lock()
	b.lastSeen = b.now()
	b.mu.Unlock()
}

// IdleSince returns the last time the board was used.
func (b *Board) IdleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}

// requestRedirect records that the browser must go to the login page and
// tells any open tab.
func (b *Board) requestRedirect(kind apiclient.Kind) {
	b.mu.Lock()
	b.redirect = kind
	b.mu.Unlock()
	b.log.Info("login redirect requested", zap.Stringer("kind", kind))
	b.Hub.Publish(livepush.Event{Type: livepush.TypeRedirect, Location: SignOutPath})
}

// TakeRedirect returns and clears a pending login redirect.
func (b *Board) TakeRedirect() (apiclient.Kind, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := b.redirect
	b.redirect = apiclient.KindNone
	return k, k != apiclient.KindNone
}

// Categories returns the product categories, loading them once.
func (b *Board) Categories(ctx context.Context) ([]models.Category, error) {
	b.mu.Lock()
	cats := b.categories
	b.mu.Unlock()
	if cats != nil {
		return cats, nil
	}

	conn, err := b.Conn()
	if err != nil {
		return nil, err
	}
	cats, err = conn.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []models.Category{}
	}
	b.mu.Lock()
	b.categories = cats
	b.mu.Unlock()
	return cats, nil
}

// Close stops every controller and the hub.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.Loans.Close()
	b.LoanUsers.Close()
	b.Products.Close()
	b.Users.Close()
	b.Hub.Close()
}
