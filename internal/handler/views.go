package handler

// views.go converts domain values into the JSON documents clients see.
// Money leaves the API in major units and stored image paths leave it as
// public URLs.

import (
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
)

// Media turns a stored relative path into a public URL.
type Media interface {
	URL(rel string) string
}

func mediaURL(m Media, rel string) string {
	if m == nil || rel == "" {
		return rel
	}
	return m.URL(rel)
}

func mediaURLPtr(m Media, rel *string) *string {
	if rel == nil || *rel == "" {
		return nil
	}
	u := mediaURL(m, *rel)
	return &u
}

func money(cents int64) float64 { return float64(cents) / 100 }

type CategoryView struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Slug        *string `json:"slug"`
}

func categoryView(c model.Category) CategoryView {
	return CategoryView{ID: c.ID, Title: c.Title, Description: c.Description, Slug: c.Slug}
}

type RegionView struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	Slug        *string `json:"slug"`
}

func regionView(m Media, r model.RegionTour) RegionView {
	return RegionView{ID: r.ID, Title: r.Title, Description: r.Description, Image: mediaURLPtr(m, r.Image), Slug: r.Slug}
}

type DateTourView struct {
	ID        uint64 `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TourType  string `json:"tour_type"`
	Season    string `json:"season"`
}

type ImageView struct {
	ID    uint64 `json:"id"`
	Image string `json:"image"`
}

// TourView is the public tour document.  AverageRating is null for tours
// nobody has rated.
type TourView struct {
	ID                uint64         `json:"id"`
	Author            string         `json:"author"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Route             string         `json:"route"`
	Duration          int            `json:"duration"`
	Price             float64        `json:"price"`
	DiscountPrice     *float64       `json:"discount_price"`
	DiscountStartDate *time.Time     `json:"discount_start_date"`
	DiscountEndDate   *time.Time     `json:"discount_end_date"`
	ParticipantPrice  float64        `json:"participant_price"`
	MaxParticipants   int            `json:"max_participants"`
	IsPublished       bool           `json:"is_published"`
	Categories        []CategoryView `json:"categories"`
	Regions           []RegionView   `json:"regions"`
	DateTour          []DateTourView `json:"date_tour"`
	Images            []ImageView    `json:"images"`
	AverageRating     *float64       `json:"average_rating"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func tourView(m Media, t model.RatedTour) TourView {
	v := TourView{
		ID:                t.ID,
		Author:            t.Author,
		Title:             t.Title,
		Description:       t.Description,
		Route:             t.Route,
		Duration:          t.DurationDays,
		Price:             money(t.PriceCents),
		DiscountStartDate: t.DiscountStart,
		DiscountEndDate:   t.DiscountEnd,
		ParticipantPrice:  money(t.ParticipantPriceCents),
		MaxParticipants:   t.MaxParticipants,
		IsPublished:       t.IsPublished,
		Categories:        make([]CategoryView, 0, len(t.Categories)),
		Regions:           make([]RegionView, 0, len(t.Regions)),
		DateTour:          make([]DateTourView, 0, len(t.Dates)),
		Images:            make([]ImageView, 0, len(t.Images)),
		AverageRating:     t.AverageRating,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
	if t.DiscountPriceCents != nil {
		p := money(*t.DiscountPriceCents)
		v.DiscountPrice = &p
	}
	for _, c := range t.Categories {
		v.Categories = append(v.Categories, categoryView(c))
	}
	for _, r := range t.Regions {
		v.Regions = append(v.Regions, regionView(m, r))
	}
	for _, d := range t.Dates {
		v.DateTour = append(v.DateTour, DateTourView{
			ID:        d.ID,
			StartDate: d.StartDate.Format(model.DateLayout),
			EndDate:   d.EndDate.Format(model.DateLayout),
			TourType:  string(d.TourType),
			Season:    string(d.Season),
		})
	}
	for _, img := range t.Images {
		v.Images = append(v.Images, imageView(m, img))
	}
	return v
}

func tourViews(m Media, tours []model.RatedTour) []TourView {
	out := make([]TourView, 0, len(tours))
	for _, t := range tours {
		out = append(out, tourView(m, t))
	}
	return out
}

func imageView(m Media, img model.TourImage) ImageView {
	return ImageView{ID: img.ID, Image: mediaURL(m, img.Image)}
}

// FeedbackView nests replies; Children is always an array.
type FeedbackView struct {
	ID        uint64         `json:"id"`
	Tour      uint64         `json:"tour"`
	UserName  *string        `json:"user_name"`
	Comment   string         `json:"comment"`
	Parent    *uint64        `json:"parent"`
	CreatedAt time.Time      `json:"created_at"`
	Children  []FeedbackView `json:"children"`
}

func feedbackView(f model.Feedback) FeedbackView {
	return FeedbackView{
		ID: f.ID, Tour: f.TourID, UserName: f.UserName, Comment: f.Comment,
		Parent: f.ParentID, CreatedAt: f.CreatedAt, Children: []FeedbackView{},
	}
}

func feedbackForest(nodes []*model.FeedbackNode) []FeedbackView {
	out := make([]FeedbackView, 0, len(nodes))
	for _, n := range nodes {
		v := feedbackView(n.Feedback)
		v.Children = feedbackForest(n.Children)
		out = append(out, v)
	}
	return out
}

type BookingView struct {
	ID           uint64    `json:"id"`
	Tour         uint64    `json:"tour"`
	TourTitle    string    `json:"tour_title"`
	User         uint64    `json:"user"`
	DateTour     uint64    `json:"date_tour"`
	Participants int       `json:"participants"`
	TotalPrice   float64   `json:"total_price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func bookingView(b model.Booking) BookingView {
	return BookingView{
		ID: b.ID, Tour: b.TourID, TourTitle: b.TourTitle, User: b.UserID,
		DateTour: b.DateTourID, Participants: b.Participants, TotalPrice: money(b.TotalCents),
		Status: string(b.Status), CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

func bookingViews(bs []model.Booking) []BookingView {
	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, bookingView(b))
	}
	return out
}

type FavoriteView struct {
	ID        uint64    `json:"id"`
	Tour      uint64    `json:"tour"`
	TourTitle string    `json:"tour_title"`
	AddedAt   time.Time `json:"added_at"`
}

func favoriteView(f model.Favorite) FavoriteView {
	return FavoriteView{ID: f.ID, Tour: f.TourID, TourTitle: f.TourTitle, AddedAt: f.AddedAt}
}

// UserView never carries the password hash.
type UserView struct {
	ID       uint64  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Avatar   *string `json:"avatar"`
	Status   uint8   `json:"status"`
}

func userView(m Media, u *model.User) UserView {
	return UserView{
		ID: u.ID, Username: u.Username, Email: u.Email, Phone: u.Phone,
		Avatar: mediaURLPtr(m, u.Avatar), Status: uint8(u.Status),
	}
}

// ProfileView is the caller's own account, with the withdrawable balance.
type ProfileView struct {
	UserView
	Balance float64 `json:"balance"`
}

// AdminUserView adds the moderation flags.
type AdminUserView struct {
	UserView
	IsBlocked bool      `json:"is_blocked"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type BannerView struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func bannerView(m Media, b model.Banner) BannerView {
	return BannerView{ID: b.ID, Title: b.Title, Image: mediaURL(m, b.Image), IsActive: b.IsActive, CreatedAt: b.CreatedAt}
}

type RatingView struct {
	ID    uint64 `json:"id"`
	Tour  uint64 `json:"tour"`
	Score uint8  `json:"score"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
