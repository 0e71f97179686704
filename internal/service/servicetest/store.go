// Package servicetest provides an in-memory implementation of the service
// store interfaces.  It reports the same repository errors as the SQL
// repositories and mirrors their cascade rules, so service behaviour can be
// tested without a database.
package servicetest

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/storage"
)

type state struct {
	mu     sync.Mutex
	nextID uint64
	now    time.Time

	users      map[uint64]*model.User
	tokens     map[string]refresh
	tours      map[uint64]*model.Tour
	links      map[uint64]*model.TourRelations
	dates      map[uint64]model.DateTour
	ratings    []model.Rating
	bookings   map[uint64]*model.Booking
	feedbacks  map[uint64]*model.Feedback
	favorites  []model.Favorite
	banners    map[uint64]*model.Banner
	categories map[uint64]*model.Category
	regions    map[uint64]*model.RegionTour
	images     map[uint64]*model.TourImage
}

type refresh struct {
	userID uint64
	exp    time.Time
}

func (s *state) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *state) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

// Store groups one fake per store interface over shared state.
type Store struct {
	Users     *Users
	Tokens    *Tokens
	Tours     *Tours
	Ratings   *Ratings
	Bookings  *Bookings
	Feedbacks *Feedbacks
	Favorites *Favorites
	Catalog   *Catalog

	st *state
}

// New returns an empty store.
func New() *Store {
	st := &state{
		now:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:      map[uint64]*model.User{},
		tokens:     map[string]refresh{},
		tours:      map[uint64]*model.Tour{},
		links:      map[uint64]*model.TourRelations{},
		dates:      map[uint64]model.DateTour{},
		bookings:   map[uint64]*model.Booking{},
		feedbacks:  map[uint64]*model.Feedback{},
		banners:    map[uint64]*model.Banner{},
		categories: map[uint64]*model.Category{},
		regions:    map[uint64]*model.RegionTour{},
		images:     map[uint64]*model.TourImage{},
	}
	return &Store{
		Users:     &Users{st},
		Tokens:    &Tokens{st},
		Tours:     &Tours{st},
		Ratings:   &Ratings{st},
		Bookings:  &Bookings{st},
		Feedbacks: &Feedbacks{st},
		Favorites: &Favorites{st},
		Catalog:   &Catalog{st},
		st:        st,
	}
}

// UserCount reports the number of stored users.
func (s *Store) UserCount() int {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return len(s.st.users)
}

// AddDate stores a DateTour outside any tour and returns it with its id.
func (s *Store) AddDate(d model.DateTour) model.DateTour {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	d.ID = s.st.id()
	s.st.dates[d.ID] = d
	return d
}

// ---------- users ----------

type Users struct{ st *state }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range r.st.users {
		if other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	if u.Status == 0 {
		u.Status = model.StatusPlain
	}
	u.ID = r.st.id()
	u.CreatedAt = r.st.tick()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.st.users[u.ID] = &cp
	return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.st.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Users) List(context.Context) ([]model.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := make([]model.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Users) UpdateProfile(_ context.Context, id uint64, p model.ProfilePatch) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Email != nil {
		for _, other := range r.st.users {
			if other.ID != id && other.Email == *p.Email {
				return repository.ErrEmailExists
			}
		}
		u.Email = *p.Email
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Avatar != nil {
		u.Avatar = p.Avatar
	}
	u.UpdatedAt = r.st.tick()
	return nil
}

func (r *Users) ToggleBlocked(_ context.Context, id uint64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	u.IsBlocked = !u.IsBlocked
	return u.IsBlocked, nil
}

// Delete removes the user with their bookings, ratings, favorites and
// tokens; authored tours stay with a nil author id.
func (r *Users) Delete(_ context.Context, id uint64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.users, id)
	for k, b := range r.st.bookings {
		if b.UserID == id {
			delete(r.st.bookings, k)
		}
	}
	r.st.ratings = filter(r.st.ratings, func(x model.Rating) bool { return x.UserID != id })
	r.st.favorites = filter(r.st.favorites, func(x model.Favorite) bool { return x.UserID != id })
	for k, t := range r.st.tokens {
		if t.userID == id {
			delete(r.st.tokens, k)
		}
	}
	for _, t := range r.st.tours {
		if t.AuthorID != nil && *t.AuthorID == id {
			t.AuthorID = nil
		}
	}
	return nil
}

func (r *Users) Withdraw(_ context.Context, id uint64, cents int64) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if u.BalanceCents < cents {
		return 0, repository.ErrInsufficientFunds
	}
	u.BalanceCents -= cents
	return u.BalanceCents, nil
}

func (r *Users) Count(context.Context) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return int64(len(r.st.users)), nil
}

// SetBalance overwrites a user's balance.
func (r *Users) SetBalance(id uint64, cents int64) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if u, ok := r.st.users[id]; ok {
		u.BalanceCents = cents
	}
}

// ---------- refresh tokens ----------

type Tokens struct{ st *state }

func (r *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.tokens[tokenHash] = refresh{userID: userID, exp: exp}
	return nil
}

func (r *Tokens) ConsumeRefresh(_ context.Context, tokenHash string) (uint64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tokens[tokenHash]
	if !ok || time.Now().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	delete(r.st.tokens, tokenHash)
	return t.userID, nil
}

func (r *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for k, t := range r.st.tokens {
		if t.userID == userID {
			delete(r.st.tokens, k)
		}
	}
	return nil
}

// ---------- tours ----------

type Tours struct{ st *state }

func visible(t *model.Tour) bool { return t.IsPublished && !t.IsBlocked }

// materialize copies t and attaches its linked rows.  Callers hold mu.
func (s *state) materialize(t *model.Tour) model.Tour {
	out := *t
	rel := s.links[t.ID]
	out.Categories = []model.Category{}
	out.Regions = []model.RegionTour{}
	out.Dates = []model.DateTour{}
	out.Images = []model.TourImage{}
	if rel == nil {
		return out
	}
	for _, id := range sortedIDs(rel.CategoryIDs) {
		if c, ok := s.categories[id]; ok {
			out.Categories = append(out.Categories, *c)
		}
	}
	for _, id := range sortedIDs(rel.RegionIDs) {
		if g, ok := s.regions[id]; ok {
			out.Regions = append(out.Regions, *g)
		}
	}
	for _, id := range rel.DateIDs {
		if d, ok := s.dates[id]; ok {
			out.Dates = append(out.Dates, d)
		}
	}
	sort.SliceStable(out.Dates, func(i, j int) bool {
		a, b := out.Dates[i], out.Dates[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})
	for _, id := range sortedIDs(rel.ImageIDs) {
		if img, ok := s.images[id]; ok {
			out.Images = append(out.Images, *img)
		}
	}
	return out
}

// listTours returns the matching tours ordered by id.  Callers hold mu.
func (s *state) listTours(keep func(model.Tour) bool) []model.Tour {
	out := []model.Tour{}
	for _, t := range s.tours {
		m := s.materialize(t)
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// checkRefs reports the first relation holding an unknown id.
func (s *state) checkRefs(rel model.TourRelations) error {
	for _, id := range rel.CategoryIDs {
		if _, ok := s.categories[id]; !ok {
			return &repository.ReferenceError{Field: "category_ids"}
		}
	}
	for _, id := range rel.RegionIDs {
		if _, ok := s.regions[id]; !ok {
			return &repository.ReferenceError{Field: "region_ids"}
		}
	}
	for _, id := range rel.DateIDs {
		if _, ok := s.dates[id]; !ok {
			return &repository.ReferenceError{Field: "date_ids"}
		}
	}
	for _, id := range rel.ImageIDs {
		if _, ok := s.images[id]; !ok {
			return &repository.ReferenceError{Field: "image_ids"}
		}
	}
	return nil
}

func (s *state) insertDates(dates []model.DateTour) []uint64 {
	ids := make([]uint64, 0, len(dates))
	for _, d := range dates {
		d.ID = s.id()
		s.dates[d.ID] = d
		ids = append(ids, d.ID)
	}
	return ids
}

func (r *Tours) GetByID(_ context.Context, id uint64) (*model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tours[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m := r.st.materialize(t)
	return &m, nil
}

func (r *Tours) GetPublished(_ context.Context, id uint64) (*model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tours[id]
	if !ok || !visible(t) {
		return nil, repository.ErrNotFound
	}
	m := r.st.materialize(t)
	return &m, nil
}

func (r *Tours) ListPublished(context.Context) ([]model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.listTours(func(t model.Tour) bool { return visible(&t) }), nil
}

func (r *Tours) TopRated(_ context.Context, limit int) ([]model.RatedTour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	scores := map[uint64][]uint8{}
	for _, x := range r.st.ratings {
		scores[x.TourID] = append(scores[x.TourID], x.Score)
	}
	tours := r.st.listTours(func(t model.Tour) bool { return visible(&t) })
	out := make([]model.RatedTour, len(tours))
	for i, t := range tours {
		out[i] = model.RatedTour{Tour: t, AverageRating: model.AverageRating(scores[t.ID])}
	}
	model.RankByRating(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Tours) ListPublishedBySeason(_ context.Context, season model.Season) ([]model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.listTours(func(t model.Tour) bool {
		if !visible(&t) {
			return false
		}
		for _, d := range t.Dates {
			if d.Season == season {
				return true
			}
		}
		return false
	}), nil
}

func (r *Tours) SearchPublished(_ context.Context, term string) ([]model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	term = strings.ToLower(strings.TrimSpace(term))
	return r.st.listTours(func(t model.Tour) bool {
		if !visible(&t) {
			return false
		}
		if term == "" {
			return true
		}
		return strings.Contains(strings.ToLower(t.Title), term) ||
			strings.Contains(strings.ToLower(t.Description), term) ||
			strings.Contains(strings.ToLower(t.Route), term)
	}), nil
}

func (r *Tours) ListByAuthor(_ context.Context, authorID uint64) ([]model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.listTours(func(t model.Tour) bool { return t.AuthorID != nil && *t.AuthorID == authorID }), nil
}

func (r *Tours) Create(_ context.Context, t *model.Tour, rel model.TourRelations, newDates []model.DateTour) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err := r.st.checkRefs(rel); err != nil {
		return err
	}
	t.ID = r.st.id()
	t.CreatedAt = r.st.tick()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	cp.Categories, cp.Regions, cp.Dates, cp.Images = nil, nil, nil, nil
	r.st.tours[t.ID] = &cp
	stored := model.TourRelations{
		CategoryIDs: uniq(rel.CategoryIDs),
		RegionIDs:   uniq(rel.RegionIDs),
		DateIDs:     uniq(append(append([]uint64{}, rel.DateIDs...), r.st.insertDates(newDates)...)),
		ImageIDs:    uniq(rel.ImageIDs),
	}
	r.st.links[t.ID] = &stored
	return nil
}

func (r *Tours) UpdateOwned(_ context.Context, id, authorID uint64, patch model.TourPatch, rel model.TourRelations, newDates []model.DateTour) (*model.Tour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.tours[id]
	if !ok || cur.AuthorID == nil || *cur.AuthorID != authorID {
		return nil, repository.ErrNotFound
	}
	next := *cur
	patch.Apply(&next)
	if err := next.ValidatePricing(); err != nil {
		return nil, err
	}
	if err := r.st.checkRefs(rel); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.st.tick()
	*cur = next

	links := r.st.links[id]
	if links == nil {
		links = &model.TourRelations{}
		r.st.links[id] = links
	}
	added := r.st.insertDates(newDates)
	if rel.DateIDs != nil {
		links.DateIDs = uniq(append(append([]uint64{}, rel.DateIDs...), added...))
	} else {
		links.DateIDs = uniq(append(links.DateIDs, added...))
	}
	if rel.CategoryIDs != nil {
		links.CategoryIDs = uniq(rel.CategoryIDs)
	}
	if rel.RegionIDs != nil {
		links.RegionIDs = uniq(rel.RegionIDs)
	}
	if rel.ImageIDs != nil {
		links.ImageIDs = uniq(rel.ImageIDs)
	}
	m := r.st.materialize(cur)
	return &m, nil
}

func (r *Tours) ToggleBlocked(_ context.Context, id uint64) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tours[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	t.IsBlocked = !t.IsBlocked
	return t.IsBlocked, nil
}

// Delete removes the tour and every row that cascades from it.
func (r *Tours) Delete(_ context.Context, id uint64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tours[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.tours, id)
	delete(r.st.links, id)
	for k, b := range r.st.bookings {
		if b.TourID == id {
			delete(r.st.bookings, k)
		}
	}
	for k, f := range r.st.feedbacks {
		if f.TourID == id {
			delete(r.st.feedbacks, k)
		}
	}
	r.st.ratings = filter(r.st.ratings, func(x model.Rating) bool { return x.TourID != id })
	r.st.favorites = filter(r.st.favorites, func(x model.Favorite) bool { return x.TourID != id })
	return nil
}

func (r *Tours) Count(context.Context) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return int64(len(r.st.tours)), nil
}

// ---------- ratings ----------

type Ratings struct{ st *state }

func (r *Ratings) Create(_ context.Context, x *model.Rating) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tours[x.TourID]; !ok {
		return repository.ErrNotFound
	}
	x.ID = r.st.id()
	x.CreatedAt = r.st.tick()
	x.UpdatedAt = x.CreatedAt
	r.st.ratings = append(r.st.ratings, *x)
	return nil
}

func (r *Ratings) ScoresByTour(_ context.Context, tourIDs []uint64) (map[uint64][]uint8, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	want := make(map[uint64]bool, len(tourIDs))
	for _, id := range tourIDs {
		want[id] = true
	}
	out := map[uint64][]uint8{}
	for _, x := range r.st.ratings {
		if want[x.TourID] {
			out[x.TourID] = append(out[x.TourID], x.Score)
		}
	}
	return out, nil
}

// ---------- bookings ----------

type Bookings struct{ st *state }

func (r *Bookings) withTitle(b *model.Booking) model.Booking {
	out := *b
	if t, ok := r.st.tours[b.TourID]; ok {
		out.TourTitle = t.Title
	}
	return out
}

func (r *Bookings) Create(_ context.Context, b *model.Booking) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tours[b.TourID]; !ok {
		return repository.ErrNotFound
	}
	b.ID = r.st.id()
	b.Status = model.BookingPending
	b.CreatedAt = r.st.tick()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.st.bookings[b.ID] = &cp
	*b = r.withTitle(&cp)
	return nil
}

func (r *Bookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b, ok := r.st.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := r.withTitle(b)
	return &out, nil
}

func (r *Bookings) list(keep func(*model.Booking) bool) []model.Booking {
	out := []model.Booking{}
	for _, b := range r.st.bookings {
		if keep(b) {
			out = append(out, r.withTitle(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *Bookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.list(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (r *Bookings) ListForAuthor(_ context.Context, authorID *uint64) ([]model.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.list(func(b *model.Booking) bool { return r.st.authoredBy(b.TourID, authorID) }), nil
}

// authoredBy reports whether the tour is in scope; nil scope matches all.
func (s *state) authoredBy(tourID uint64, authorID *uint64) bool {
	if authorID == nil {
		return true
	}
	t, ok := s.tours[tourID]
	return ok && t.AuthorID != nil && *t.AuthorID == *authorID
}

func (r *Bookings) DeleteOwnedReturning(_ context.Context, id, userID uint64) (*model.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b, ok := r.st.bookings[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	out := r.withTitle(b)
	delete(r.st.bookings, id)
	return &out, nil
}

// SetStatus moves a pending booking to its decision; a confirmation credits
// the tour author.
func (r *Bookings) SetStatus(_ context.Context, id uint64, scopeAuthor *uint64, to model.BookingStatus) (*model.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b, ok := r.st.bookings[id]
	if !ok || !r.st.authoredBy(b.TourID, scopeAuthor) {
		return nil, repository.ErrNotFound
	}
	if !b.Status.CanTransition(to) {
		return nil, repository.ErrInvalidTransition
	}
	b.Status = to
	b.UpdatedAt = r.st.tick()
	if to == model.BookingConfirmed {
		if t := r.st.tours[b.TourID]; t.AuthorID != nil {
			if u, ok := r.st.users[*t.AuthorID]; ok {
				u.BalanceCents += b.TotalCents
			}
		}
	}
	out := r.withTitle(b)
	return &out, nil
}

func (r *Bookings) Count(context.Context) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return int64(len(r.st.bookings)), nil
}

// ---------- feedback ----------

type Feedbacks struct{ st *state }

func (r *Feedbacks) Create(_ context.Context, f *model.Feedback) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.tours[f.TourID]; !ok {
		return repository.ErrNotFound
	}
	if f.ParentID != nil {
		p, ok := r.st.feedbacks[*f.ParentID]
		if !ok || p.TourID != f.TourID {
			return &repository.ReferenceError{Field: "parent"}
		}
	}
	f.ID = r.st.id()
	f.CreatedAt = r.st.tick()
	cp := *f
	r.st.feedbacks[f.ID] = &cp
	return nil
}

func (r *Feedbacks) ListVisible(_ context.Context, tourID *uint64) ([]model.Feedback, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []model.Feedback{}
	for _, f := range r.st.feedbacks {
		t, ok := r.st.tours[f.TourID]
		if !ok || !visible(t) {
			continue
		}
		if tourID == nil || f.TourID == *tourID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Feedbacks) DeleteLeaf(_ context.Context, id uint64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.feedbacks[id]; !ok {
		return repository.ErrNotFound
	}
	for _, f := range r.st.feedbacks {
		if f.ParentID != nil && *f.ParentID == id {
			return repository.ErrHasChildren
		}
	}
	delete(r.st.feedbacks, id)
	return nil
}

// ---------- favorites ----------

type Favorites struct{ st *state }

func (r *Favorites) Add(_ context.Context, userID, tourID uint64) (*model.Favorite, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	t, ok := r.st.tours[tourID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if _, ok := r.st.users[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	for _, f := range r.st.favorites {
		if f.UserID == userID && f.TourID == tourID {
			return nil, repository.ErrConflict
		}
	}
	f := model.Favorite{ID: r.st.id(), TourID: tourID, UserID: userID, AddedAt: r.st.tick(), TourTitle: t.Title}
	r.st.favorites = append(r.st.favorites, f)
	return &f, nil
}

func (r *Favorites) Remove(_ context.Context, userID, tourID uint64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	n := len(r.st.favorites)
	r.st.favorites = filter(r.st.favorites, func(f model.Favorite) bool { return f.UserID != userID || f.TourID != tourID })
	if len(r.st.favorites) == n {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Favorites) List(_ context.Context, userID uint64) ([]model.Favorite, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []model.Favorite{}
	for i := len(r.st.favorites) - 1; i >= 0; i-- {
		if f := r.st.favorites[i]; f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

// ---------- banners, categories, regions, images ----------

type Catalog struct{ st *state }

func (r *Catalog) CreateBanner(_ context.Context, b *model.Banner) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b.ID = r.st.id()
	b.CreatedAt = r.st.tick()
	cp := *b
	r.st.banners[b.ID] = &cp
	return nil
}

func (r *Catalog) GetBanner(_ context.Context, id uint64) (*model.Banner, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b, ok := r.st.banners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *Catalog) ListActiveBanners(context.Context) ([]model.Banner, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []model.Banner{}
	for _, b := range r.st.banners {
		if b.IsActive {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *Catalog) UpdateBanner(_ context.Context, id uint64, p model.BannerPatch) (*model.Banner, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	b, ok := r.st.banners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Image != nil {
		b.Image = *p.Image
	}
	if p.IsActive != nil {
		b.IsActive = *p.IsActive
	}
	cp := *b
	return &cp, nil
}

func (r *Catalog) DeleteBanner(_ context.Context, id uint64) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.banners[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.banners, id)
	return nil
}

func (r *Catalog) ListCategories(context.Context) ([]model.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []model.Category{}
	for _, c := range r.st.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Catalog) GetCategory(_ context.Context, id uint64) (*model.Category, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c, ok := r.st.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *Catalog) slugTaken(slug *string, self uint64) bool {
	if slug == nil {
		return false
	}
	for _, c := range r.st.categories {
		if c.ID != self && c.Slug != nil && *c.Slug == *slug {
			return true
		}
	}
	return false
}

func (r *Catalog) CreateCategory(_ context.Context, c *model.Category) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	c.EnsureSlug()
	if r.slugTaken(c.Slug, 0) {
		return repository.ErrConflict
	}
	c.ID = r.st.id()
	cp := *c
	r.st.categories[c.ID] = &cp
	return nil
}

func (r *Catalog) SaveCategory(_ context.Context, c *model.Category) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.categories[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.EnsureSlug()
	if r.slugTaken(c.Slug, c.ID) {
		return repository.ErrConflict
	}
	cp := *c
	r.st.categories[c.ID] = &cp
	return nil
}

func (r *Catalog) ListRegions(context.Context) ([]model.RegionTour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	out := []model.RegionTour{}
	for _, g := range r.st.regions {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Catalog) GetRegion(_ context.Context, id uint64) (*model.RegionTour, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	g, ok := r.st.regions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *Catalog) CreateRegion(_ context.Context, g *model.RegionTour) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	g.EnsureSlug()
	for _, other := range r.st.regions {
		if g.Slug != nil && other.Slug != nil && *other.Slug == *g.Slug {
			return repository.ErrConflict
		}
	}
	g.ID = r.st.id()
	cp := *g
	r.st.regions[g.ID] = &cp
	return nil
}

func (r *Catalog) CreateImage(_ context.Context, img *model.TourImage) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	img.ID = r.st.id()
	img.CreatedAt = r.st.tick()
	cp := *img
	r.st.images[img.ID] = &cp
	return nil
}

// ---------- assets and events ----------

// Assets records saved uploads without decoding them.  A body equal to
// "not an image" fails like an undecodable file.
type Assets struct {
	mu    sync.Mutex
	Saved []string
}

func (a *Assets) save(folder string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if string(body) == "not an image" {
		return "", storage.ErrInvalidImage
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	path := folder + "/" + strings.Repeat("x", len(a.Saved)+1) + ".jpg"
	a.Saved = append(a.Saved, path)
	return path, nil
}

func (a *Assets) SaveAvatar(_ context.Context, r io.Reader) (string, error) {
	return a.save("avatars", r)
}

func (a *Assets) SaveImage(_ context.Context, folder string, r io.Reader) (string, error) {
	return a.save(folder, r)
}

// ErrBrokerDown is returned by Events when Fail is set.
var ErrBrokerDown = errors.New("broker unavailable")

// Events records published booking events.
type Events struct {
	mu   sync.Mutex
	Fail bool
	Sent []queue.BookingEvent
}

func (e *Events) Publish(_ context.Context, ev queue.BookingEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Fail {
		return ErrBrokerDown
	}
	e.Sent = append(e.Sent, ev)
	return nil
}

// Types returns the event types in publish order.
func (e *Events) Types() []queue.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]queue.EventType, len(e.Sent))
	for i, ev := range e.Sent {
		out[i] = ev.Type
	}
	return out
}

// ---------- helpers ----------

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, x := range in {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

func uniq(ids []uint64) []uint64 {
	seen := map[uint64]bool{}
	out := []uint64{}
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sortedIDs(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
