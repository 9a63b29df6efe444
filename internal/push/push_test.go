package push_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/push"
)

type store struct {
	mu      sync.Mutex
	subs    map[string]domain.PushSubscription
	deleted []string
	err     error
}

func newStore(subs ...domain.PushSubscription) *store {
	s := &store{subs: make(map[string]domain.PushSubscription)}
	for _, sub := range subs {
		s.subs[sub.Endpoint] = sub
	}
	return s
}

func (s *store) Upsert(_ context.Context, sub domain.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.Endpoint] = sub
	return nil
}

func (s *store) Delete(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, endpoint)
	s.deleted = append(s.deleted, endpoint)
	return nil
}

func (s *store) All(context.Context) ([]domain.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func browserKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	_, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return pub, base64.RawURLEncoding.EncodeToString(secret)
}

func subscription(t *testing.T, endpoint string) domain.PushSubscription {
	t.Helper()
	p256dh, auth := browserKeys(t)
	return domain.PushSubscription{Endpoint: endpoint, P256dh: p256dh, Auth: auth}
}

func newService(t *testing.T, st push.Store, client *http.Client) *push.Service {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return push.NewService(push.Config{
		VAPIDPublicKey:  pub,
		VAPIDPrivateKey: priv,
		Subscriber:      "mailto:hello@nordicstoday.com",
	}, st, client, logger.NewNop())
}

func TestBroadcast(t *testing.T) {
	var mu sync.Mutex
	var ttls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ttls = append(ttls, r.Header.Get("TTL"))
		mu.Unlock()
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/bad":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	st := newStore(
		subscription(t, srv.URL+"/ok-1"),
		subscription(t, srv.URL+"/ok-2"),
		subscription(t, srv.URL+"/gone"),
		subscription(t, srv.URL+"/missing"),
		subscription(t, srv.URL+"/bad"),
	)
	svc := newService(t, st, srv.Client())

	res, err := svc.Broadcast(context.Background(), push.Notification{Title: "Hej", Body: "News"})
	require.NoError(t, err)

	assert.Equal(t, push.Result{Sent: 2, Removed: 2, Failed: 1, Total: 5}, res)
	sort.Strings(st.deleted)
	assert.Equal(t, []string{srv.URL + "/gone", srv.URL + "/missing"}, st.deleted)
	assert.Len(t, st.subs, 3)
	for _, ttl := range ttls {
		assert.Equal(t, "86400", ttl)
	}
}

func TestBroadcast_UnreachableEndpointFails(t *testing.T) {
	st := newStore(subscription(t, "http://127.0.0.1:1/unreachable"))
	svc := newService(t, st, &http.Client{Timeout: time.Second})

	res, err := svc.Broadcast(context.Background(), push.Notification{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, push.Result{Failed: 1, Total: 1}, res)
}

func TestBroadcast_StoreError(t *testing.T) {
	st := newStore()
	st.err = errors.New("db down")
	_, err := newService(t, st, nil).Broadcast(context.Background(), push.Notification{Title: "x"})
	assert.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	st := newStore()
	svc := newService(t, st, nil)
	sub := subscription(t, "https://push.example/abc")

	require.NoError(t, svc.Subscribe(context.Background(), sub, "Firefox"))
	assert.Equal(t, "Firefox", st.subs[sub.Endpoint].UserAgent)

	assert.ErrorIs(t, svc.Subscribe(context.Background(), domain.PushSubscription{Endpoint: "x"}, ""), push.ErrInvalidSubscription)
	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), ""), push.ErrInvalidSubscription)

	require.NoError(t, svc.Unsubscribe(context.Background(), sub.Endpoint))
	assert.Empty(t, st.subs)
}

type recent struct {
	rows       []domain.ProcessedArticle
	categories []domain.Category
}

func (r *recent) FetchPublishedSince(_ context.Context, _ time.Time, _ int, cats ...domain.Category) ([]domain.ProcessedArticle, error) {
	r.categories = cats
	return r.rows, nil
}

type broadcaster struct {
	sent []push.Notification
	err  error
}

func (b *broadcaster) Broadcast(_ context.Context, n push.Notification) (push.Result, error) {
	if b.err != nil {
		return push.Result{}, b.err
	}
	b.sent = append(b.sent, n)
	return push.Result{Sent: 1, Total: 1}, nil
}

func breaking(id string) domain.ProcessedArticle {
	return domain.ProcessedArticle{
		Article:     domain.Article{ID: id, Title: "Story " + id, Country: domain.Finland, Category: domain.Breaking},
		CountryName: "Finland",
		URLSlug:     "/article/story-" + id,
	}
}

func TestNotifyBreaking_AnnouncesOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	src := &recent{rows: []domain.ProcessedArticle{breaking("new"), breaking("old")}}
	b := &broadcaster{}
	n := push.NewBreakingNotifier(src, b, rdb, logger.NewNop())

	count, err := n.NotifyBreaking(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []domain.Category{domain.Breaking}, src.categories)
	require.Len(t, b.sent, 2)
	assert.Equal(t, "Story old", b.sent[0].Body)
	assert.Equal(t, "/article/story-new", b.sent[1].URL)
	assert.Equal(t, "Breaking: Finland", b.sent[1].Title)
	assert.Equal(t, 72*time.Hour, mr.TTL(push.NotifiedKey("new")))

	count, err = n.NotifyBreaking(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, b.sent, 2)
}

func TestNotifyBreaking_FailedBroadcastIsRetried(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	b := &broadcaster{err: errors.New("db down")}
	n := push.NewBreakingNotifier(&recent{rows: []domain.ProcessedArticle{breaking("1")}}, b, rdb, logger.NewNop())

	_, err := n.NotifyBreaking(context.Background())
	require.Error(t, err)
	assert.False(t, mr.Exists(push.NotifiedKey("1")))
}
