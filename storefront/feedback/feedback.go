// Package feedback keeps the customer feedback wall: newest first, capped,
// with per-user likes
package feedback

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"topcompras/storefront"
	"topcompras/storefront/blob"
	"topcompras/waf/metrics"
	"topcompras/waf/sanitize"
)

// DocumentKey is the blob key of the feedback list
const DocumentKey = "feedbacks"

// MaxFeedbacks is how many entries the wall keeps
const MaxFeedbacks = 100

const DefaultName = "Cliente Anônimo"

// Like actions
const (
	ActionLike   = "like"
	ActionUnlike = "unlike"
)

const (
	MsgEmpty          = "Feedback vazio"
	MsgInvalidEmail   = "Email inválido"
	MsgInvalidAction  = "Ação inválida"
	MsgIDRequired     = "ID do feedback é obrigatório"
	MsgUserIDRequired = "ID do usuário é obrigatório"
)

var (
	ErrNotFound     = errors.New("Feedback não encontrado")
	ErrAlreadyLiked = errors.New("Já curtiu este feedback")
	ErrNotLiked     = errors.New("Ainda não curtiu este feedback")
)

type Feedback struct {
	ID      int64    `json:"id"`
	Nome    string   `json:"nome"`
	Texto   string   `json:"texto"`
	Email   string   `json:"email"`
	Data    string   `json:"data"`
	Hora    string   `json:"hora"`
	Likes   int      `json:"likes"`
	LikedBy []string `json:"likedBy"`
}

// Input is a new feedback as posted by the client. Empty fields get defaults.
type Input struct {
	ID    storefront.FlexNumber
	Nome  string
	Texto string
	Email string
	Data  string
	Hora  string
}

type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used for the default date and time
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

type Service struct {
	mu     sync.Mutex
	store  blob.Store
	notify storefront.Notifier
	now    func() time.Time
	loc    *time.Location
}

// saoPaulo falls back to a fixed UTC-3 zone when tzdata is not installed
func saoPaulo() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

func New(store blob.Store, notify storefront.Notifier, opts ...Option) *Service {
	s := &Service{store: store, notify: notify, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		s.loc = saoPaulo()
	}
	return s
}

func (s *Service) load(ctx context.Context) ([]Feedback, error) {
	var list []Feedback
	if err := storefront.LoadJSON(ctx, s.store, DocumentKey, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []Feedback{}
	}
	return list, nil
}

func (s *Service) save(ctx context.Context, list []Feedback) error {
	if err := storefront.SaveJSON(ctx, s.store, DocumentKey, list); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.Notify(storefront.KindFeedbacks)
	}
	return nil
}

func find(list []Feedback, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// All returns the wall, newest first
func (s *Service) All(ctx context.Context) ([]Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Add validates in, fills defaults and puts the feedback on top of the wall.
// It returns the stored feedback and the new wall size.
func (s *Service) Add(ctx context.Context, in Input) (Feedback, int, error) {
	texto := sanitize.Input(in.Texto)
	if strings.TrimSpace(in.Texto) == "" || texto == "" {
		return Feedback{}, 0, storefront.Invalid(MsgEmpty)
	}
	email := sanitize.Input(in.Email)
	if email != "" && !sanitize.Email(email) {
		return Feedback{}, 0, storefront.Invalid(MsgInvalidEmail)
	}

	now := s.now().In(s.loc)
	fb := Feedback{
		ID:      int64(in.ID.Value),
		Nome:    sanitize.Input(in.Nome),
		Texto:   texto,
		Email:   email,
		Data:    sanitize.Input(in.Data),
		Hora:    sanitize.Input(in.Hora),
		LikedBy: []string{},
	}
	if !in.ID.Set || fb.ID <= 0 {
		fb.ID = now.UnixMilli()
	}
	if fb.Nome == "" {
		fb.Nome = DefaultName
	}
	if fb.Data == "" {
		fb.Data = now.Format("02/01/2006")
	}
	if fb.Hora == "" {
		fb.Hora = now.Format("15:04")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Feedback{}, 0, err
	}
	// ids must stay unique for likes and deletes to address one entry
	for find(list, fb.ID) >= 0 {
		fb.ID++
	}

	list = append([]Feedback{fb}, list...)
	if len(list) > MaxFeedbacks {
		list = list[:MaxFeedbacks]
	}
	if err := s.save(ctx, list); err != nil {
		return Feedback{}, 0, err
	}

	metrics.FeedbacksPosted.Inc()
	log.Printf("[FEEDBACK] new feedback %d from %s", fb.ID, fb.Nome)
	return fb, len(list), nil
}

// React applies a like or unlike from userID and returns the updated feedback
func (s *Service) React(ctx context.Context, id int64, userID, action string) (Feedback, error) {
	if action != ActionLike && action != ActionUnlike {
		return Feedback{}, storefront.Invalid(MsgInvalidAction)
	}
	if userID == "" {
		return Feedback{}, storefront.Invalid(MsgUserIDRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Feedback{}, err
	}
	i := find(list, id)
	if i < 0 {
		return Feedback{}, ErrNotFound
	}
	fb := &list[i]
	if fb.LikedBy == nil {
		fb.LikedBy = []string{}
	}

	pos := -1
	for j, u := range fb.LikedBy {
		if u == userID {
			pos = j
			break
		}
	}

	switch action {
	case ActionLike:
		if pos >= 0 {
			return Feedback{}, ErrAlreadyLiked
		}
		fb.LikedBy = append(fb.LikedBy, userID)
		fb.Likes++
	case ActionUnlike:
		if pos < 0 {
			return Feedback{}, ErrNotLiked
		}
		fb.LikedBy = append(fb.LikedBy[:pos], fb.LikedBy[pos+1:]...)
		if fb.Likes > 0 {
			fb.Likes--
		}
	}

	if err := s.save(ctx, list); err != nil {
		return Feedback{}, err
	}
	log.Printf("[FEEDBACK] %d %s by %s, likes %d", fb.ID, action, userID, fb.Likes)
	return *fb, nil
}

// Delete removes a feedback and returns the remaining wall size
func (s *Service) Delete(ctx context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	i := find(list, id)
	if i < 0 {
		return 0, ErrNotFound
	}
	list = append(list[:i], list[i+1:]...)
	if err := s.save(ctx, list); err != nil {
		return 0, err
	}
	log.Printf("[FEEDBACK] deleted %d", id)
	return len(list), nil
}
