package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"natours/internal/core/errs"
	"natours/internal/core/mail"
	"natours/internal/core/payment"
	"natours/internal/domain"
)

var errNoDoc = errs.NotFound("No document found with that ID")

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	saves int
}

func newFakeUsers(us ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) visible(u *domain.User) bool { return u != nil && u.Active }

func (f *fakeUsers) FindByID(_ context.Context, id string, _ ...string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byID[id]; f.visible(u) {
		cp := *u
		return &cp, nil
	}
	return nil, errNoDoc
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if f.visible(u) && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errNoDoc
}

func (f *fakeUsers) FindByResetToken(_ context.Context, hashed string, now time.Time) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if f.visible(u) && u.PasswordResetToken == hashed && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.BadRequest("Token is invalid or has expired")
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.Email == u.Email {
			return errs.Conflict("Duplicate field value")
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Save(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Deactivate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	if !f.visible(u) {
		return errNoDoc
	}
	u.Active = false
	return nil
}

func (f *fakeUsers) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.byID {
		if u.PasswordResetExpires != nil && u.PasswordResetExpires.Before(now) {
			u.PasswordResetToken, u.PasswordResetExpires = "", nil
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) get(id string) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

type ratingUpdate struct {
	Quantity int
	Average  float64
}

type fakeTours struct {
	tours   []domain.Tour
	ratings map[string]ratingUpdate
	minRate float64
}

func newFakeTours(ts ...domain.Tour) *fakeTours {
	return &fakeTours{tours: ts, ratings: map[string]ratingUpdate{}}
}

func (f *fakeTours) visible() []domain.Tour {
	out := make([]domain.Tour, 0, len(f.tours))
	for _, t := range f.tours {
		if !t.SecretTour {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeTours) FindByID(_ context.Context, id string, _ ...string) (*domain.Tour, error) {
	for _, t := range f.visible() {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, errNoDoc
}

func (f *fakeTours) FindBySlug(_ context.Context, slug string) (*domain.Tour, error) {
	for _, t := range f.visible() {
		if t.Slug == slug {
			cp := t
			return &cp, nil
		}
	}
	return nil, errNoDoc
}

func (f *fakeTours) FindByIDs(_ context.Context, ids []string) ([]domain.Tour, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Tour
	for _, t := range f.visible() {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTours) FindAll(context.Context) ([]domain.Tour, error) { return f.visible(), nil }

func (f *fakeTours) Stats(_ context.Context, minRating float64) ([]domain.TourStat, error) {
	f.minRate = minRating
	return []domain.TourStat{{Difficulty: "EASY", NumTours: 1}}, nil
}

func (f *fakeTours) UpdateRatings(_ context.Context, id string, quantity int, average float64) error {
	f.ratings[id] = ratingUpdate{quantity, average}
	return nil
}

func (f *fakeTours) ListIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.tours))
	for _, t := range f.tours {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

type fakeReviews struct {
	byTour map[string][]float64
}

func (f *fakeReviews) FindByID(context.Context, string, ...string) (*domain.Review, error) {
	return nil, errNoDoc
}

func (f *fakeReviews) Stats(_ context.Context, tourID string) (domain.RatingStats, error) {
	rs := f.byTour[tourID]
	if len(rs) == 0 {
		return domain.RatingStats{}, nil
	}
	sum := 0.0
	for _, r := range rs {
		sum += r
	}
	return domain.RatingStats{Quantity: len(rs), Average: sum / float64(len(rs))}, nil
}

type fakeBookings struct {
	created []domain.Booking
	byID    map[string]*domain.Booking
}

func (f *fakeBookings) FindByID(_ context.Context, id string, _ ...string) (*domain.Booking, error) {
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return nil, errNoDoc
}

func (f *fakeBookings) Create(_ context.Context, b *domain.Booking) error {
	f.created = append(f.created, *b)
	return nil
}

func (f *fakeBookings) FindByUser(_ context.Context, userID string) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range f.created {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeMail struct {
	sent []mail.Message
	err  error
}

func (f *fakeMail) Send(_ context.Context, m mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeGateway struct {
	req   payment.CheckoutRequest
	event *payment.Event
	err   error
}

func (f *fakeGateway) CreateCheckout(_ context.Context, r payment.CheckoutRequest) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.req = r
	return &payment.Session{ID: "cs_test", URL: "https://checkout.test/cs_test"}, nil
}

func (f *fakeGateway) VerifyEvent(_ []byte, signature string) (*payment.Event, error) {
	if signature != "good" {
		return nil, errors.New("signature mismatch")
	}
	return f.event, nil
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate(context.Context) { c.n++ }
