// Package redisstore keeps sessions and report links in Redis and carries
// session changes between instances over pub/sub.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"finboard/internal/log"
	"finboard/internal/report"
	"finboard/internal/session"
)

const (
	DefaultPrefix  = "finboard"
	DefaultChannel = "finboard:session-changes"

	fieldUserID = "id"
	fieldRole   = "role"
	fieldRoleID = "role_id"
)

// Store implements session.Persister and report.LinkStore.
type Store struct {
	client  *redis.Client
	prefix  string
	linkTTL time.Duration
	logger  *log.Logger
}

type Option func(*Store)

func WithPrefix(p string) Option { return func(s *Store) { s.prefix = p } }

// WithLinkTTL expires a profile's report links after ttl without writes.
func WithLinkTTL(ttl time.Duration) Option { return func(s *Store) { s.linkTTL = ttl } }

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentRedis) }
}

// NewClient parses a redis:// URL.
func NewClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:  client,
		prefix:  DefaultPrefix,
		linkTTL: 7 * 24 * time.Hour,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) sessionKey(profile string) string {
	return s.prefix + ":session:" + profile
}

func (s *Store) linksKey(profile string) string {
	return s.prefix + ":links:" + profile
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Load(ctx context.Context, profile string) (session.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(profile)).Result()
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	return fromHash(fields), nil
}

// Save replaces all three fields inside MULTI/EXEC.
func (s *Store) Save(ctx context.Context, profile string, sess session.Session) error {
	key := s.sessionKey(profile)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, toHash(sess))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session and its links inside MULTI/EXEC.
func (s *Store) Delete(ctx context.Context, profile string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(profile), s.linksKey(profile))
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Profiles lists profiles with a stored session.
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	prefix := s.sessionKey("")
	var out []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return out, nil
}

func (s *Store) SaveLink(ctx context.Context, profile, kind, url string) error {
	key := s.linksKey(profile)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, kind, url)
		if s.linkTTL > 0 {
			pipe.Expire(ctx, key, s.linkTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report link: %w", err)
	}
	return nil
}

func (s *Store) Link(ctx context.Context, profile, kind string) (string, error) {
	url, err := s.client.HGet(ctx, s.linksKey(profile), kind).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load report link: %w", err)
	}
	return url, nil
}

func (s *Store) DropLinks(ctx context.Context, profile string) error {
	if err := s.client.Del(ctx, s.linksKey(profile)).Err(); err != nil {
		return fmt.Errorf("drop report links: %w", err)
	}
	return nil
}

func toHash(sess session.Session) map[string]any {
	return map[string]any{
		fieldUserID: sess.UserID,
		fieldRole:   sess.Role,
		fieldRoleID: sess.RoleID,
	}
}

func fromHash(fields map[string]string) session.Session {
	return session.Session{
		UserID: fields[fieldUserID],
		Role:   fields[fieldRole],
		RoleID: fields[fieldRoleID],
	}
}

// Broadcaster publishes session changes on a pub/sub channel.
type Broadcaster struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

func NewBroadcaster(client *redis.Client, channel string, logger *log.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Broadcaster{client: client, channel: channel, logger: logger.WithComponent(log.ComponentRedis)}
}

func (b *Broadcaster) Publish(ctx context.Context, c session.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Listen subscribes and hands every decodable message to fn until ctx is done.
func (b *Broadcaster) Listen(ctx context.Context, fn func(session.Change)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c, err := decodeChange(msg.Payload)
			if err != nil {
				b.logger.WarnContext(ctx, "Dropping malformed session change", log.FieldError, err.Error())
				continue
			}
			fn(c)
		}
	}
}

func (b *Broadcaster) Close() error { return nil }

func decodeChange(payload string) (session.Change, error) {
	var c session.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return session.Change{}, err
	}
	if c.Profile == "" {
		return session.Change{}, errors.New("change without profile")
	}
	return c, nil
}

var (
	_ session.Persister   = (*Store)(nil)
	_ session.Broadcaster = (*Broadcaster)(nil)
	_ report.LinkStore    = (*Store)(nil)
)
